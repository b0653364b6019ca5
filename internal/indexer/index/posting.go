package index

import "strings"

// Posting records how often a term occurs in one field of one document.
// TermFrequency is always at least 1; a missing posting means zero.
type Posting struct {
	TermFrequency int      `json:"tf"`
	Positions     [][2]int `json:"positions,omitempty"`
}

// InvertedIndex maps term -> field -> document reference -> posting.
type InvertedIndex map[string]map[string]map[string]*Posting

// Add records one occurrence of term in field of ref.
func (ii InvertedIndex) Add(term, field, ref string, position *[2]int) {
	fields, ok := ii[term]
	if !ok {
		fields = make(map[string]map[string]*Posting)
		ii[term] = fields
	}
	docs, ok := fields[field]
	if !ok {
		docs = make(map[string]*Posting)
		fields[field] = docs
	}
	p, ok := docs[ref]
	if !ok {
		p = &Posting{}
		docs[ref] = p
	}
	p.TermFrequency++
	if position != nil {
		p.Positions = append(p.Positions, *position)
	}
}

// Field describes an indexed field.
type Field struct {
	Name      string  `json:"name"`
	Boost     float64 `json:"boost"`
	Positions bool    `json:"positions,omitempty"`
}

// FieldRef addresses the vector of one field of one document.
type FieldRef struct {
	Field string
	Ref   string
}

const fieldRefSeparator = "/"

func (f FieldRef) String() string {
	return f.Field + fieldRefSeparator + f.Ref
}

// ParseFieldRef reverses FieldRef.String. Field names never contain the
// separator, so the first one splits field from reference.
func ParseFieldRef(s string) (FieldRef, bool) {
	field, ref, ok := strings.Cut(s, fieldRefSeparator)
	if !ok || field == "" {
		return FieldRef{}, false
	}
	return FieldRef{Field: field, Ref: ref}, true
}

// ValidFieldName reports whether name can be used as a field name.
func ValidFieldName(name string) bool {
	return name != "" && !strings.Contains(name, fieldRefSeparator)
}
