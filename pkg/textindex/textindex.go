// Package textindex is the embeddable entry point: build an index from
// structured documents, search it, and persist it. Builders default to the
// English pipeline (trimmer, stop-word filter, stemmer for indexing and the
// stemmer alone for queries). Pass WithPipeline or WithSearchPipeline to
// replace either.
//
//	b, _ := textindex.NewBuilder()
//	_ = b.Field("title", textindex.WithBoost(10))
//	_ = b.Field("body")
//	_ = b.Add(textindex.Document{"ref": "1", "title": "France", "body": "..."})
//	idx, _ := b.Build()
//	results, _ := idx.Search(ctx, "+fra* -germany")
package textindex

import (
	"context"
	"encoding/json"

	"github.com/Adithya-Monish-Kumar-K/textindex/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/textindex/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/textindex/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/textindex/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/textindex/internal/pipeline"
	"github.com/Adithya-Monish-Kumar-K/textindex/internal/pipeline/english"
	"github.com/Adithya-Monish-Kumar-K/textindex/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/textindex/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/textindex/internal/searcher/ranker"
)

type (
	Document     = indexer.Document
	Extractor    = indexer.Extractor
	Option       = indexer.Option
	FieldOption  = indexer.FieldOption
	DocOption    = indexer.DocumentOption
	Result       = ranker.Result
	MatchData    = ranker.MatchData
	SearchResult = executor.SearchResult
	Query        = parser.Query
	Clause       = parser.Clause
	ParseError   = parser.ParseError
	Token        = tokenizer.Token
	StageFunc    = pipeline.Func
	StageKind    = pipeline.Kind
)

const (
	KindTrimmer        = pipeline.KindTrimmer
	KindStopWordFilter = pipeline.KindStopWordFilter
	KindStemmer        = pipeline.KindStemmer
	KindCustom         = pipeline.KindCustom
)

var (
	WithRef                = indexer.WithRef
	WithPipeline           = indexer.WithPipeline
	WithSearchPipeline     = indexer.WithSearchPipeline
	WithDocumentBoostField = indexer.WithDocumentBoostField
	WithBoost              = indexer.WithBoost
	WithExtractor          = indexer.WithExtractor
	WithTermPositions      = indexer.WithTermPositions
	WithDocumentBoost      = indexer.WithDocumentBoost
	FieldExtractor         = indexer.FieldExtractor

	ErrFinalized = indexer.ErrFinalized
)

// RegisterStage adds a named pipeline stage to the process-wide registry.
// Stages must be registered before any builder or stored index names them.
func RegisterStage(name string, kind StageKind, fn StageFunc) error {
	return pipeline.Register(name, kind, fn)
}

// Parse parses a query string without running it.
func Parse(query string) (*Query, error) {
	return parser.Parse(query)
}

type Builder struct {
	b *indexer.Builder
}

// NewBuilder creates a builder with the English pipelines. Later options
// override them.
func NewBuilder(opts ...Option) (*Builder, error) {
	defaults := []Option{
		indexer.WithRegistry(pipeline.Default),
		indexer.WithPipeline(english.IndexStages...),
		indexer.WithSearchPipeline(english.SearchStages...),
	}
	b, err := indexer.NewBuilder(append(defaults, opts...)...)
	if err != nil {
		return nil, err
	}
	return &Builder{b: b}, nil
}

// Field declares an indexed field. Fields must be declared before the first
// document is added.
func (b *Builder) Field(name string, opts ...FieldOption) error {
	return b.b.AddField(name, opts...)
}

func (b *Builder) Add(doc Document, opts ...DocOption) error {
	return b.b.AddDocument(doc, opts...)
}

// AddAll adds docs in order, tokenizing them in parallel. Rejected
// documents are reported together; the others are kept.
func (b *Builder) AddAll(ctx context.Context, docs []Document) error {
	return b.b.AddDocuments(ctx, docs)
}

// Build finalizes the builder. Any later call on it fails with
// ErrFinalized.
func (b *Builder) Build() (*Index, error) {
	idx, err := b.b.Build()
	if err != nil {
		return nil, err
	}
	return wrap(idx), nil
}

// Index is an immutable, concurrently searchable index.
type Index struct {
	idx  *index.Index
	exec *executor.Executor
}

func wrap(idx *index.Index) *Index {
	return &Index{idx: idx, exec: executor.New(idx)}
}

// Search returns every matching document, best first.
func (ix *Index) Search(ctx context.Context, query string) ([]Result, error) {
	sr, err := ix.exec.Search(ctx, query, 0)
	if err != nil {
		return nil, err
	}
	return sr.Results, nil
}

// SearchLimit returns at most limit results plus the total hit count.
func (ix *Index) SearchLimit(ctx context.Context, query string, limit int) (*SearchResult, error) {
	return ix.exec.Search(ctx, query, limit)
}

// Execute runs an already parsed query.
func (ix *Index) Execute(ctx context.Context, q *Query, limit int) (*SearchResult, error) {
	return ix.exec.Execute(ctx, q, limit)
}

func (ix *Index) HasReference(ref string) bool { return ix.idx.HasReference(ref) }

func (ix *Index) DocumentCount() int { return ix.idx.DocumentCount() }

// Terms lists the vocabulary in lexicographic order.
func (ix *Index) Terms() []string { return ix.idx.TokenSet().Terms() }

// Expand returns the vocabulary terms matching a wildcard pattern.
func (ix *Index) Expand(pattern string) []string { return ix.idx.TokenSet().Wildcard(pattern) }

// Similar returns the vocabulary terms within distance edits of term.
func (ix *Index) Similar(term string, distance int) ([]string, error) {
	return ix.idx.TokenSet().Fuzzy(term, distance)
}

func (ix *Index) MarshalJSON() ([]byte, error) {
	return json.Marshal(ix.idx.Serialize())
}

// Unmarshal restores an index serialized with MarshalJSON. Every stage it
// names must be registered.
func Unmarshal(data []byte) (*Index, error) {
	idx, err := index.Unmarshal(data, pipeline.Default)
	if err != nil {
		return nil, err
	}
	return wrap(idx), nil
}

// Save writes the index to path in the checksummed file format.
func (ix *Index) Save(path string) error {
	return segment.WriteFile(path, ix.idx)
}

// Open loads an index file written by Save.
func Open(path string) (*Index, error) {
	idx, _, err := segment.Open(path, pipeline.Default)
	if err != nil {
		return nil, err
	}
	return wrap(idx), nil
}

// Federation searches several indexes as one. Results carry the name of
// the index they came from in Result.Source.
type Federation struct {
	f *executor.Federated
}

func Federate(indexes map[string]*Index) *Federation {
	execs := make(map[string]*executor.Executor, len(indexes))
	for name, ix := range indexes {
		execs[name] = ix.exec
	}
	return &Federation{f: executor.NewFederated(execs)}
}

func (f *Federation) Search(ctx context.Context, query string, limit int) (*SearchResult, error) {
	return f.f.Search(ctx, query, limit)
}

// Terms lists the union of the member vocabularies.
func (f *Federation) Terms() []string { return f.f.Vocabulary().Terms() }
