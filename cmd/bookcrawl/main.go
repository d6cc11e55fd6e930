// Command bookcrawl crawls the books.toscrape.com catalogue and analyses
// the records it produced.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
