// Package tokenizer splits raw field text into Tokens. Text is segmented on
// Unicode word boundaries, each segment is NFKC-normalised and lower-cased,
// and segments with no letter or digit are dropped. Stop-word removal and
// stemming are not done here; they are pipeline stages.
package tokenizer

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/clipperhouse/uax29/v2/words"
	"golang.org/x/text/unicode/norm"
)

// Token is a term candidate plus its provenance in the source field. Tokens
// are values; stages derive new tokens with Update or WithMetadata instead of
// mutating the one they were given.
type Token struct {
	Text string
	// Start and Length are rune offsets into the original field text.
	Start    int
	Length   int
	Metadata map[string]any
}

// New creates a Token with no metadata.
func New(text string, start, length int) Token {
	return Token{Text: text, Start: start, Length: length}
}

// Update returns a copy of t whose text is fn(t.Text). Metadata is shared
// with t and must be treated as read-only.
func (t Token) Update(fn func(text string) string) Token {
	t.Text = fn(t.Text)
	return t
}

// WithMetadata returns a copy of t with key set to value.
func (t Token) WithMetadata(key string, value any) Token {
	md := make(map[string]any, len(t.Metadata)+1)
	for k, v := range t.Metadata {
		md[k] = v
	}
	md[key] = value
	t.Metadata = md
	return t
}

// Meta returns the metadata value stored under key.
func (t Token) Meta(key string) (any, bool) {
	v, ok := t.Metadata[key]
	return v, ok
}

// Position returns the (start, length) pair of the token in its field.
func (t Token) Position() [2]int {
	return [2]int{t.Start, t.Length}
}

func (t Token) String() string {
	return t.Text
}

// Tokenize breaks text into lower-cased, normalised Tokens.
func Tokenize(text string) []Token {
	if text == "" {
		return nil
	}
	tokens := make([]Token, 0, len(text)/6+1)
	segments := words.FromString(text)
	runeOffset := 0
	for segments.Next() {
		segment := segments.Value()
		runeLen := utf8.RuneCountInString(segment)
		if isWord(segment) {
			tokens = append(tokens, New(Normalize(segment), runeOffset, runeLen))
		}
		runeOffset += runeLen
	}
	return tokens
}

// Normalize applies the compatibility normalization and lower-casing every
// indexed term goes through.
func Normalize(s string) string {
	return strings.ToLower(norm.NFKC.String(s))
}

// FromTerms wraps pre-tokenized terms. Terms are normalized but otherwise
// kept as given; the position of each term is its ordinal.
func FromTerms(terms []string) []Token {
	tokens := make([]Token, 0, len(terms))
	for i, term := range terms {
		term = Normalize(strings.TrimSpace(term))
		if term == "" {
			continue
		}
		tokens = append(tokens, New(term, i, utf8.RuneCountInString(term)))
	}
	return tokens
}

func isWord(segment string) bool {
	for _, r := range segment {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
