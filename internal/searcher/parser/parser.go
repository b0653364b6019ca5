// Package parser turns a query string into a Query. The grammar, per
// whitespace-separated clause:
//
//	[+|-][=][field[,field...]:]term[~N][^B]
//
// A leading '+' makes the clause required and '-' prohibited. '=' disables
// the search pipeline and lower-casing for the term. '*' in the term is a
// wildcard. The fuzzy (~N) and boost (^B) modifiers may appear in either
// order. A backslash makes the next character literal.
package parser

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/textindex/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/textindex/pkg/errors"
)

const (
	wildcardMarker = '*'
	escapeMarker   = '\\'
	fuzzyMarker    = '~'
	boostMarker    = '^'
	fieldMarker    = ':'
	fieldSeparator = ','
	requiredMarker = '+'
	excludeMarker  = '-'
	verbatimMarker = '='
)

// ParseError describes a malformed clause. Offset is the byte offset of
// the problem in the query string and Fragment the clause containing it.
type ParseError struct {
	Offset   int
	Fragment string
	Reason   string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at offset %d in %q: %s", e.Offset, e.Fragment, e.Reason)
}

func (e *ParseError) Unwrap() error {
	return apperrors.ErrParse
}

// char is one rune of a clause with its byte offset in the query and
// whether it was escaped.
type char struct {
	r       rune
	offset  int
	escaped bool
}

func (c char) is(r rune) bool {
	return !c.escaped && c.r == r
}

type rawClause struct {
	chars []char
	start int
	end   int
}

func isSpace(r rune) bool {
	return unicode.IsSpace(r)
}

func isModifier(r rune) bool {
	return r == fuzzyMarker || r == boostMarker
}

// Parse parses query. An empty or blank query yields a Query with no
// clauses. Any malformed clause fails the whole query with a *ParseError.
func Parse(query string) (*Query, error) {
	raws, err := split(query)
	if err != nil {
		return nil, err
	}
	q := &Query{Raw: query, Clauses: make([]Clause, 0, len(raws))}
	for _, raw := range raws {
		c, err := parseClause(query, raw)
		if err != nil {
			return nil, err
		}
		q.Clauses = append(q.Clauses, c)
	}
	return q, nil
}

// split is the lexer: it walks the query once, resolving escapes and
// cutting clauses at unescaped whitespace.
func split(query string) ([]rawClause, error) {
	var (
		clauses []rawClause
		cur     *rawClause
		escape  = -1
	)
	for off, r := range query {
		if r == utf8.RuneError && !strings.HasPrefix(query[off:], string(utf8.RuneError)) {
			return nil, &ParseError{Offset: off, Fragment: query, Reason: "invalid UTF-8"}
		}
		if escape < 0 && isSpace(r) {
			if cur != nil {
				cur.end = off
				clauses = append(clauses, *cur)
				cur = nil
			}
			continue
		}
		if cur == nil {
			cur = &rawClause{start: off}
		}
		if escape < 0 && r == escapeMarker {
			escape = off
			continue
		}
		cur.chars = append(cur.chars, char{r: r, offset: off, escaped: escape >= 0})
		escape = -1
	}
	if escape >= 0 {
		return nil, &ParseError{Offset: escape, Fragment: query[cur.start:], Reason: "trailing escape character"}
	}
	if cur != nil {
		cur.end = len(query)
		clauses = append(clauses, *cur)
	}
	return clauses, nil
}

func parseClause(query string, raw rawClause) (Clause, error) {
	fragment := query[raw.start:raw.end]
	fail := func(offset int, format string, args ...any) (Clause, error) {
		return Clause{}, &ParseError{Offset: offset, Fragment: fragment, Reason: fmt.Sprintf(format, args...)}
	}
	chars := raw.chars
	c := NewClause("")
	i := 0

	if i < len(chars) {
		switch {
		case chars[i].is(requiredMarker):
			c.Presence = Required
			i++
		case chars[i].is(excludeMarker):
			c.Presence = Prohibited
			i++
		}
	}
	if i < len(chars) && chars[i].is(verbatimMarker) {
		c.UsePipeline = false
		i++
	}

	if colon := indexOf(chars[i:], fieldMarker); colon >= 0 {
		scope := chars[i : i+colon]
		fieldStart := i
		for j := 0; j <= len(scope); j++ {
			if j < len(scope) && !scope[j].is(fieldSeparator) {
				continue
			}
			name := text(scope[fieldStart-i : j])
			if name == "" {
				return fail(offsetAt(chars, i+j, raw.end), "empty field name")
			}
			c.Fields = append(c.Fields, name)
			fieldStart = i + j + 1
		}
		i += colon + 1
	}

	termEnd := len(chars)
	for j := i; j < len(chars); j++ {
		if chars[j].escaped || !isModifier(chars[j].r) {
			continue
		}
		termEnd = j
		break
	}
	termChars := chars[i:termEnd]
	if len(termChars) == 0 {
		return fail(offsetAt(chars, i, raw.end), "empty term")
	}

	var literalStar bool
	for j, ch := range termChars {
		if ch.r != wildcardMarker {
			continue
		}
		if ch.escaped {
			literalStar = true
			continue
		}
		switch j {
		case 0:
			c.Wildcard |= WildcardLeading
		case len(termChars) - 1:
			c.Wildcard |= WildcardTrailing
		default:
			c.Wildcard |= WildcardInterior
		}
	}
	if literalStar && c.Wildcard != WildcardNone {
		return fail(termChars[0].offset, "escaped '*' cannot be combined with wildcards")
	}
	c.Term = text(termChars)
	if c.UsePipeline {
		c.Term = tokenizer.Normalize(c.Term)
	}

	var seenFuzzy, seenBoost bool
	for j := termEnd; j < len(chars); {
		marker := chars[j]
		k := j + 1
		for k < len(chars) && (chars[k].escaped || !isModifier(chars[k].r)) {
			k++
		}
		number := chars[j+1 : k]
		switch marker.r {
		case fuzzyMarker:
			if seenFuzzy {
				return fail(marker.offset, "repeated %c modifier", fuzzyMarker)
			}
			seenFuzzy = true
			if len(number) == 0 {
				return fail(marker.offset, "missing edit distance after %c", fuzzyMarker)
			}
			n, ok := parseDistance(number)
			if !ok {
				return fail(number[0].offset, "edit distance %q is not a non-negative integer", text(number))
			}
			c.EditDistance = n
		case boostMarker:
			if seenBoost {
				return fail(marker.offset, "repeated %c modifier", boostMarker)
			}
			seenBoost = true
			if len(number) == 0 {
				return fail(marker.offset, "missing boost after %c", boostMarker)
			}
			b, ok := parseBoost(number)
			if !ok {
				return fail(number[0].offset, "boost %q is not a number", text(number))
			}
			if b <= 0 {
				return fail(number[0].offset, "boost must be positive, got %s", text(number))
			}
			c.Boost = b
		}
		j = k
	}

	if c.EditDistance > 0 && c.Wildcard != WildcardNone {
		return fail(raw.start, "fuzzy matching cannot be combined with wildcards")
	}
	return c, nil
}

func indexOf(chars []char, r rune) int {
	for i, ch := range chars {
		if ch.is(r) {
			return i
		}
	}
	return -1
}

func offsetAt(chars []char, i, end int) int {
	if i < len(chars) {
		return chars[i].offset
	}
	return end
}

func text(chars []char) string {
	var sb strings.Builder
	for _, ch := range chars {
		sb.WriteRune(ch.r)
	}
	return sb.String()
}

func parseDistance(chars []char) (int, bool) {
	for _, ch := range chars {
		if ch.escaped || ch.r < '0' || ch.r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(text(chars))
	return n, err == nil
}

func parseBoost(chars []char) (float64, bool) {
	for _, ch := range chars {
		if ch.escaped || !(ch.r == '.' || ch.r >= '0' && ch.r <= '9') {
			return 0, false
		}
	}
	f, err := strconv.ParseFloat(text(chars), 64)
	return f, err == nil
}
