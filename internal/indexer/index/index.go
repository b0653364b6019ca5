// Package index holds the immutable result of an index build: the inverted
// index, per-field TF-IDF vectors, the vocabulary automaton and the names of
// the pipelines used to produce them. An Index has no mutating methods and
// is safe for unrestricted concurrent reads.
package index

import (
	"sort"

	"github.com/Adithya-Monish-Kumar-K/textindex/internal/pipeline"
	"github.com/Adithya-Monish-Kumar-K/textindex/internal/tokenset"
)

type Index struct {
	ref            string
	fields         []Field
	fieldPos       map[string]int
	pipelineNames  []string
	searchNames    []string
	searchPipeline *pipeline.Pipeline
	documents      []string
	ordinals       map[string]uint32
	documentBoosts map[string]float64
	inverted       InvertedIndex
	vectors        map[FieldRef]*Vector
	tokenSet       *tokenset.TokenSet
}

// Params carries everything needed to assemble an Index. New takes
// ownership of the maps and slices it is given.
type Params struct {
	Ref            string
	Fields         []Field
	PipelineNames  []string
	SearchNames    []string
	SearchPipeline *pipeline.Pipeline
	Documents      []string
	DocumentBoosts map[string]float64
	Inverted       InvertedIndex
	Vectors        map[FieldRef]*Vector
	TokenSet       *tokenset.TokenSet
}

func New(p Params) *Index {
	docs := p.Documents
	sort.Strings(docs)
	ordinals := make(map[string]uint32, len(docs))
	for i, ref := range docs {
		ordinals[ref] = uint32(i)
	}
	fieldPos := make(map[string]int, len(p.Fields))
	for i, f := range p.Fields {
		fieldPos[f.Name] = i
	}
	searchPipeline := p.SearchPipeline
	if searchPipeline == nil {
		searchPipeline = pipeline.Empty()
	}
	tokenSet := p.TokenSet
	if tokenSet == nil {
		tokenSet = tokenset.New(nil)
	}
	return &Index{
		ref:            p.Ref,
		fields:         p.Fields,
		fieldPos:       fieldPos,
		pipelineNames:  p.PipelineNames,
		searchNames:    p.SearchNames,
		searchPipeline: searchPipeline,
		documents:      docs,
		ordinals:       ordinals,
		documentBoosts: p.DocumentBoosts,
		inverted:       p.Inverted,
		vectors:        p.Vectors,
		tokenSet:       tokenSet,
	}
}

// Ref is the name of the document field holding the reference.
func (idx *Index) Ref() string {
	return idx.ref
}

// Fields returns the indexed fields in declaration order.
func (idx *Index) Fields() []Field {
	out := make([]Field, len(idx.fields))
	copy(out, idx.fields)
	return out
}

// FieldNames returns the indexed field names in declaration order.
func (idx *Index) FieldNames() []string {
	names := make([]string, len(idx.fields))
	for i, f := range idx.fields {
		names[i] = f.Name
	}
	return names
}

func (idx *Index) Field(name string) (Field, bool) {
	i, ok := idx.fieldPos[name]
	if !ok {
		return Field{}, false
	}
	return idx.fields[i], true
}

// PipelineNames lists the indexing pipeline stages.
func (idx *Index) PipelineNames() []string {
	return append([]string(nil), idx.pipelineNames...)
}

// SearchPipelineNames lists the stages applied to query terms.
func (idx *Index) SearchPipelineNames() []string {
	return append([]string(nil), idx.searchNames...)
}

func (idx *Index) SearchPipeline() *pipeline.Pipeline {
	return idx.searchPipeline
}

// HasReference reports whether a document with ref was added, including
// documents that produced no terms.
func (idx *Index) HasReference(ref string) bool {
	_, ok := idx.ordinals[ref]
	return ok
}

// Ordinal returns the dense position of ref in the sorted reference list.
func (idx *Index) Ordinal(ref string) (uint32, bool) {
	o, ok := idx.ordinals[ref]
	return o, ok
}

// Reference is the inverse of Ordinal.
func (idx *Index) Reference(ordinal uint32) string {
	return idx.documents[ordinal]
}

// References returns all document references in sorted order.
func (idx *Index) References() []string {
	return append([]string(nil), idx.documents...)
}

func (idx *Index) DocumentCount() int {
	return len(idx.documents)
}

// DocumentBoost returns the boost the document was added with.
func (idx *Index) DocumentBoost(ref string) float64 {
	if b, ok := idx.documentBoosts[ref]; ok {
		return b
	}
	return 1
}

// Postings returns ref -> posting for term in field. The map must not be
// modified.
func (idx *Index) Postings(term, field string) map[string]*Posting {
	return idx.inverted[term][field]
}

// DocumentFrequency counts distinct documents containing term in any field.
func (idx *Index) DocumentFrequency(term string) int {
	fields := idx.inverted[term]
	if len(fields) == 1 {
		for _, docs := range fields {
			return len(docs)
		}
	}
	seen := make(map[string]struct{})
	for _, docs := range fields {
		for ref := range docs {
			seen[ref] = struct{}{}
		}
	}
	return len(seen)
}

// Vector returns the field vector of ref, or nil when the field produced no
// terms for that document.
func (idx *Index) Vector(field, ref string) *Vector {
	return idx.vectors[FieldRef{Field: field, Ref: ref}]
}

// TokenSet returns the shared vocabulary automaton.
func (idx *Index) TokenSet() *tokenset.TokenSet {
	return idx.tokenSet
}

func (idx *Index) TermCount() int {
	return len(idx.inverted)
}
