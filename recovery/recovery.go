// Package recovery reads book records back out of damaged crawl output.
//
// A crawl interrupted mid-write leaves a JSON array with no closing
// bracket, and hand-edited files pick up trailing commas or raw line
// breaks inside strings. Recover salvages every record that still decodes
// on its own and reports how many fragments it had to give up on.
package recovery

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/titanous/json5"

	"github.com/aluiziolira/books-crawler/models"
	"github.com/aluiziolira/books-crawler/parser"
)

var (
	// ErrUnterminated marks a fragment whose closing brace never appeared.
	ErrUnterminated = errors.New("unterminated object")
	// ErrOpenString marks a fragment cut short because a string literal in
	// it never closed before the next record began.
	ErrOpenString = errors.New("unterminated string")
)

// FragmentError reports one candidate object that could not be decoded.
type FragmentError struct {
	Offset int
	Err    error
}

func (e *FragmentError) Error() string {
	return fmt.Sprintf("fragment at offset %d: %v", e.Offset, e.Err)
}

func (e *FragmentError) Unwrap() error {
	return e.Err
}

// Report summarises a recovery pass.
type Report struct {
	// Fragments is the number of candidate objects found.
	Fragments int
	// Recovered counts records returned, Repaired those among them that
	// needed the cleanup retry.
	Recovered int
	Repaired  int
	Dropped   int
	// Strict is set when the input was a well-formed array.
	Strict   bool
	Failures []*FragmentError
}

// Lossless reports whether every fragment produced a record.
func (r Report) Lossless() bool {
	return r.Dropped == 0
}

func (r *Report) drop(offset int, err error) {
	r.Dropped++
	r.Failures = append(r.Failures, &FragmentError{Offset: offset, Err: err})
}

// Recover decodes as many valid records from data as it can, in input
// order. It never fails as a whole; per-fragment failures are in the report.
func Recover(data []byte) ([]*models.Book, Report) {
	var report Report
	data = trim(data)

	var strict []*models.Book
	if err := json.Unmarshal(data, &strict); err == nil {
		report.Strict = true
		report.Fragments = len(strict)
		books := make([]*models.Book, 0, len(strict))
		for i, book := range strict {
			if book == nil {
				report.drop(i, errors.New("null record"))
				continue
			}
			if err := parser.ValidateBook(book); err != nil {
				report.drop(i, err)
				continue
			}
			books = append(books, book)
		}
		report.Recovered = len(books)
		return books, report
	}

	fragments := scanFragments(data)
	report.Fragments = len(fragments)

	books := make([]*models.Book, 0, len(fragments))
	for _, frag := range fragments {
		if frag.err != nil {
			report.drop(frag.offset, frag.err)
			continue
		}
		book, repaired, err := decodeFragment(frag.data)
		if err == nil {
			err = parser.ValidateBook(book)
		}
		if err != nil {
			report.drop(frag.offset, err)
			continue
		}
		if repaired {
			report.Repaired++
		}
		books = append(books, book)
	}
	report.Recovered = len(books)
	return books, report
}

type fragment struct {
	offset int
	data   []byte
	err    error
}

// scanFragments cuts data into candidate objects by brace matching outside
// string literals. Records are flat: an opening brace while a fragment is
// still open means that fragment was cut short, so a record holding a
// nested object is split and dropped.
//
// An unbalanced quote would otherwise hide every brace after it. While
// inside a string, a closing brace followed by the start of another
// object, or a line that starts a new object, ends the fragment.
func scanFragments(data []byte) []fragment {
	var (
		out      []fragment
		start    = -1
		depth    int
		inString bool
		escaped  bool
	)

	cut := func(end int, err error) {
		out = append(out, fragment{offset: start, data: data[start:end], err: err})
		start = -1
		depth = 0
		inString = false
		escaped = false
	}

	for i, c := range data {
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			case c == '}' && recordFollows(data, i+1):
				cut(i+1, ErrOpenString)
			case c == '\n' && objectStartsAt(data, i+1):
				cut(i, ErrOpenString)
			}
			continue
		}

		switch c {
		case '"':
			if start >= 0 {
				inString = true
			}
		case '{':
			if start >= 0 && depth > 0 {
				out = append(out, fragment{offset: start, data: data[start:i], err: ErrUnterminated})
			}
			start = i
			depth = 1
		case '}':
			if start < 0 {
				continue
			}
			depth--
			if depth == 0 {
				cut(i+1, nil)
			}
		}
	}

	if start >= 0 {
		out = append(out, fragment{offset: start, data: data[start:], err: ErrUnterminated})
	}
	return out
}

// recordFollows reports whether data[i:] continues with an optional comma
// and then the start of an object.
func recordFollows(data []byte, i int) bool {
	i = skipSpace(data, i)
	if i < len(data) && data[i] == ',' {
		i++
	}
	return objectStartsAt(data, i)
}

// objectStartsAt reports whether data[i:] opens an object with a quoted
// key, as in `{"title":`, allowing whitespace between tokens.
func objectStartsAt(data []byte, i int) bool {
	i = skipSpace(data, i)
	if i >= len(data) || data[i] != '{' {
		return false
	}
	i = skipSpace(data, i+1)
	if i >= len(data) || data[i] != '"' {
		return false
	}
	end := bytes.IndexAny(data[i+1:], "\"\n")
	if end < 0 || data[i+1+end] != '"' {
		return false
	}
	i = skipSpace(data, i+end+2)
	return i < len(data) && data[i] == ':'
}

func skipSpace(data []byte, i int) int {
	for i < len(data) {
		switch data[i] {
		case ' ', '\t', '\n', '\r':
			i++
		default:
			return i
		}
	}
	return i
}

var trailingComma = regexp.MustCompile(`,\s*([}\]])`)

var rawBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ", "\t", " ")

// decodeFragment tries a strict decode, then one retry after cleanup that
// also accepts JSON5 syntax. repaired reports whether the retry was needed.
func decodeFragment(data []byte) (book *models.Book, repaired bool, err error) {
	if err := json.Unmarshal(data, &book); err == nil {
		return book, false, nil
	}

	cleaned := []byte(rawBreaks.Replace(string(data)))
	cleaned = trailingComma.ReplaceAll(cleaned, []byte("$1"))

	book = nil
	if err := json.Unmarshal(cleaned, &book); err == nil {
		return book, true, nil
	}

	var loose map[string]any
	if err := json5.Unmarshal(cleaned, &loose); err != nil {
		return nil, false, fmt.Errorf("decode after cleanup: %w", err)
	}
	normalised, err := json.Marshal(loose)
	if err != nil {
		return nil, false, fmt.Errorf("re-encode fragment: %w", err)
	}
	book = nil
	if err := json.Unmarshal(normalised, &book); err != nil {
		return nil, false, fmt.Errorf("decode record: %w", err)
	}
	return book, true, nil
}

// trim drops a UTF-8 byte order mark and surrounding whitespace.
func trim(data []byte) []byte {
	return bytes.TrimSpace(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf")))
}
