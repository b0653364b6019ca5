package parser

import (
	"strconv"
	"strings"
)

// Presence decides how a clause gates document inclusion.
type Presence int

const (
	Optional Presence = iota
	Required
	Prohibited
)

func (p Presence) String() string {
	switch p {
	case Required:
		return "required"
	case Prohibited:
		return "prohibited"
	default:
		return "optional"
	}
}

// Wildcard records where unescaped '*' markers occur in a clause term.
type Wildcard uint8

const (
	WildcardNone     Wildcard = 0
	WildcardLeading  Wildcard = 1 << 0
	WildcardTrailing Wildcard = 1 << 1
	WildcardInterior Wildcard = 1 << 2
	WildcardBoth              = WildcardLeading | WildcardTrailing
)

func (w Wildcard) String() string {
	if w == WildcardNone {
		return "none"
	}
	var parts []string
	if w&WildcardLeading != 0 {
		parts = append(parts, "leading")
	}
	if w&WildcardTrailing != 0 {
		parts = append(parts, "trailing")
	}
	if w&WildcardInterior != 0 {
		parts = append(parts, "interior")
	}
	return strings.Join(parts, "|")
}

// Clause is one whitespace-separated unit of a query.
type Clause struct {
	Term         string
	Fields       []string
	Boost        float64
	EditDistance int
	UsePipeline  bool
	Wildcard     Wildcard
	Presence     Presence
}

// NewClause returns an optional, unscoped clause with default modifiers.
func NewClause(term string) Clause {
	return Clause{Term: term, Boost: 1, UsePipeline: true}
}

// IsExpanding reports whether the clause term is resolved through the
// vocabulary automaton rather than looked up exactly.
func (c Clause) IsExpanding() bool {
	return c.Wildcard != WildcardNone || c.EditDistance > 0
}

// String renders the clause so that parsing the result yields an equal
// clause.
func (c Clause) String() string {
	var sb strings.Builder
	switch c.Presence {
	case Required:
		sb.WriteByte('+')
	case Prohibited:
		sb.WriteByte('-')
	}
	if !c.UsePipeline {
		sb.WriteByte('=')
	}
	if len(c.Fields) > 0 {
		for i, f := range c.Fields {
			if i > 0 {
				sb.WriteByte(',')
			}
			writeEscaped(&sb, f, false)
		}
		sb.WriteByte(':')
	}
	writeEscaped(&sb, c.Term, c.Wildcard != WildcardNone)
	if c.EditDistance > 0 {
		sb.WriteByte('~')
		sb.WriteString(strconv.Itoa(c.EditDistance))
	}
	if c.Boost != 1 {
		sb.WriteByte('^')
		sb.WriteString(strconv.FormatFloat(c.Boost, 'f', -1, 64))
	}
	return sb.String()
}

func writeEscaped(sb *strings.Builder, s string, keepStars bool) {
	for i, r := range s {
		switch {
		case r == wildcardMarker && keepStars:
		case r == ',' || r == ':' || r == wildcardMarker || r == escapeMarker || isModifier(r) || isSpace(r):
			sb.WriteByte(escapeMarker)
		case i == 0 && (r == '+' || r == '-' || r == '='):
			sb.WriteByte(escapeMarker)
		}
		sb.WriteRune(r)
	}
}

// Query is a parsed query string.
type Query struct {
	Raw     string
	Clauses []Clause
}

// String renders the canonical form of q. Queries that differ only in
// whitespace or modifier order render identically.
func (q *Query) String() string {
	parts := make([]string, len(q.Clauses))
	for i, c := range q.Clauses {
		parts[i] = c.String()
	}
	return strings.Join(parts, " ")
}

// HasRequired reports whether any clause is Required.
func (q *Query) HasRequired() bool {
	for _, c := range q.Clauses {
		if c.Presence == Required {
			return true
		}
	}
	return false
}
