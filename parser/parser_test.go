package parser

import (
	"errors"
	"testing"

	"github.com/aluiziolira/books-crawler/models"
)

func TestValidateBook(t *testing.T) {
	tests := []struct {
		name    string
		book    *models.Book
		wantErr error
	}{
		{
			name: "valid book",
			book: &models.Book{
				Title:      "Test Book",
				Price:      models.StringPtr("£10.00"),
				ProductURL: "http://example.com/catalogue/test-book_1/index.html",
			},
		},
		{
			name: "optional fields absent",
			book: &models.Book{
				Title:      "Test Book",
				ProductURL: "http://example.com/catalogue/test-book_1/index.html",
			},
		},
		{
			name: "missing title",
			book: &models.Book{
				Title:      "  ",
				ProductURL: "http://example.com/catalogue/test-book_1/index.html",
			},
			wantErr: ErrMissingTitle,
		},
		{
			name: "missing product url",
			book: &models.Book{
				Title: "Test Book",
			},
			wantErr: ErrMissingProductURL,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBook(tt.book)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("ValidateBook() unexpected error = %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("ValidateBook() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if err := ValidateBook(nil); err == nil {
		t.Fatalf("nil book should not validate")
	}
}

func TestRatingFromClass(t *testing.T) {
	tests := []struct {
		class string
		want  string
	}{
		{class: "star-rating One", want: "One"},
		{class: "star-rating Two", want: "Two"},
		{class: "star-rating three", want: "Three"},
		{class: "star-rating FOUR", want: "Four"},
		{class: "Five star-rating", want: "Five"},
		{class: "star-rating Zero", want: ""},
		{class: "star-rating Six", want: ""},
		{class: "star-rating", want: ""},
		{class: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.class, func(t *testing.T) {
			got := RatingFromClass(tt.class)
			if tt.want == "" {
				if got != nil {
					t.Fatalf("RatingFromClass(%q) = %q, want nil", tt.class, *got)
				}
				return
			}
			if got == nil || *got != tt.want {
				t.Fatalf("RatingFromClass(%q) = %v, want %q", tt.class, got, tt.want)
			}
		})
	}
}

func TestRatingToNumeric(t *testing.T) {
	tests := []struct {
		input    string
		expected int
	}{
		{input: "One", expected: 1},
		{input: "Two", expected: 2},
		{input: "Three", expected: 3},
		{input: "Four", expected: 4},
		{input: "Five", expected: 5},
		{input: "three", expected: 3},
		{input: "Zero", expected: 0},
		{input: "Invalid", expected: 0},
		{input: "", expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := RatingToNumeric(tt.input); got != tt.expected {
				t.Errorf("RatingToNumeric(%q) = %d, want %d", tt.input, got, tt.expected)
			}
		})
	}
}

func TestCollapseWhitespace(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "surrounding", input: "  In stock (22 available)  ", expected: "In stock (22 available)"},
		{name: "newlines", input: "\n    In stock\n   (22 available)\n", expected: "In stock (22 available)"},
		{name: "clean", input: "In stock", expected: "In stock"},
		{name: "empty", input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CollapseWhitespace(tt.input); got != tt.expected {
				t.Errorf("CollapseWhitespace(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   float64
		wantOK bool
	}{
		{name: "pound prefix", input: "£51.77", want: 51.77, wantOK: true},
		{name: "mojibake prefix", input: "Â£10.50", want: 10.50, wantOK: true},
		{name: "integer", input: "£7", want: 7, wantOK: true},
		{name: "whitespace", input: "  £ 99.99 ", want: 99.99, wantOK: true},
		{name: "no digits", input: "free", wantOK: false},
		{name: "empty", input: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParsePrice(tt.input)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("ParsePrice(%q) = %v, %v; want %v, %v", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
