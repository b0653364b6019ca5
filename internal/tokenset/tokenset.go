// Package tokenset implements the vocabulary automaton: a minimal acyclic
// finite automaton over every indexed term. Common suffixes share nodes, so
// the structure is a DAG stored in an arena of integer-addressed nodes.
// A TokenSet is immutable and safe for concurrent use.
package tokenset

import (
	"sort"

	apperrors "github.com/Adithya-Monish-Kumar-K/textindex/pkg/errors"
)

// Wildcard is the pattern character matching any run of characters.
const Wildcard = '*'

type edge struct {
	label  rune
	target uint32
}

type node struct {
	final bool
	edges []edge
}

type TokenSet struct {
	nodes []node
	words int
}

// New builds a TokenSet from terms in any order. Duplicates and empty
// strings are ignored; the input slice is not modified.
func New(terms []string) *TokenSet {
	sorted := make([]string, len(terms))
	copy(sorted, terms)
	sort.Strings(sorted)
	b := newBuilder()
	for _, term := range sorted {
		b.insert([]rune(term))
	}
	return b.finish()
}

// FromSorted builds a TokenSet from terms that must already be in strictly
// increasing order.
func FromSorted(terms []string) (*TokenSet, error) {
	for i := 1; i < len(terms); i++ {
		if terms[i-1] >= terms[i] {
			return nil, apperrors.Validation("terms not strictly sorted at %d: %q >= %q", i, terms[i-1], terms[i])
		}
	}
	b := newBuilder()
	for _, term := range terms {
		b.insert([]rune(term))
	}
	return b.finish(), nil
}

// Len is the number of distinct terms.
func (t *TokenSet) Len() int {
	return t.words
}

// NodeCount is the number of automaton states, including the root.
func (t *TokenSet) NodeCount() int {
	return len(t.nodes)
}

func (t *TokenSet) next(id uint32, label rune) (uint32, bool) {
	edges := t.nodes[id].edges
	i := sort.Search(len(edges), func(i int) bool { return edges[i].label >= label })
	if i < len(edges) && edges[i].label == label {
		return edges[i].target, true
	}
	return 0, false
}

// Contains reports whether term is in the vocabulary.
func (t *TokenSet) Contains(term string) bool {
	if term == "" {
		return false
	}
	id := uint32(0)
	for _, r := range term {
		target, ok := t.next(id, r)
		if !ok {
			return false
		}
		id = target
	}
	return t.nodes[id].final
}

// Terms returns every term in lexicographic order.
func (t *TokenSet) Terms() []string {
	terms := make([]string, 0, t.words)
	var prefix []rune
	var walk func(id uint32)
	walk = func(id uint32) {
		for _, e := range t.nodes[id].edges {
			prefix = append(prefix, e.label)
			if t.nodes[e.target].final {
				terms = append(terms, string(prefix))
			}
			walk(e.target)
			prefix = prefix[:len(prefix)-1]
		}
	}
	walk(0)
	return terms
}

// Union returns a new TokenSet recognising the terms of both sets.
func (t *TokenSet) Union(other *TokenSet) *TokenSet {
	if other == nil {
		return t
	}
	a, b := t.Terms(), other.Terms()
	merged := make([]string, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			merged = append(merged, a[i])
			i++
		case a[i] > b[j]:
			merged = append(merged, b[j])
			j++
		default:
			merged = append(merged, a[i])
			i++
			j++
		}
	}
	merged = append(merged, a[i:]...)
	merged = append(merged, b[j:]...)

	builder := newBuilder()
	for _, term := range merged {
		builder.insert([]rune(term))
	}
	return builder.finish()
}
