// Package indexer turns documents into an immutable index.Index. A Builder
// accumulates term statistics for one index; Build hands the result off and
// finalizes the Builder.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/textindex/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/textindex/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/textindex/internal/pipeline"
	"github.com/Adithya-Monish-Kumar-K/textindex/internal/tokenset"
	apperrors "github.com/Adithya-Monish-Kumar-K/textindex/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/metrics"
)

// DefaultRef is the document field holding the reference unless WithRef
// says otherwise.
const DefaultRef = "ref"

// ErrFinalized is returned by every mutating call after Build.
var ErrFinalized = apperrors.New(apperrors.ErrValidation, 400, "builder already finalized")

// Builder is single-writer: callers must serialize access. AddDocuments is
// the only method that uses goroutines internally.
type Builder struct {
	ref            string
	boostField     string
	registry       *pipeline.Registry
	pipelineNames  []string
	searchNames    []string
	pipeline       *pipeline.Pipeline
	searchPipeline *pipeline.Pipeline
	fields         []fieldSpec
	fieldPos       map[string]int
	refs           []string
	documents      map[string]struct{}
	documentBoosts map[string]float64
	inverted       index.InvertedIndex
	documentFreq   map[string]int
	finalized      bool
	logger         *slog.Logger
	metrics        *metrics.Metrics
}

type fieldSpec struct {
	name      string
	boost     float64
	extractor Extractor
	positions bool
}

// Option configures a Builder.
type Option func(*Builder)

// WithRegistry resolves pipeline stage names against reg instead of
// pipeline.Default.
func WithRegistry(reg *pipeline.Registry) Option {
	return func(b *Builder) { b.registry = reg }
}

// WithPipeline sets the stages applied to field text at index time.
func WithPipeline(names ...string) Option {
	return func(b *Builder) { b.pipelineNames = append([]string(nil), names...) }
}

// WithSearchPipeline sets the stages the searcher applies to query terms.
func WithSearchPipeline(names ...string) Option {
	return func(b *Builder) { b.searchNames = append([]string(nil), names...) }
}

// WithRef names the document field holding the reference.
func WithRef(field string) Option {
	return func(b *Builder) { b.ref = field }
}

// WithDocumentBoostField names a numeric document field read as the
// document boost when AddDocument is not given one explicitly.
func WithDocumentBoostField(field string) Option {
	return func(b *Builder) { b.boostField = field }
}

func WithLogger(l *slog.Logger) Option {
	return func(b *Builder) { b.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Builder) { b.metrics = m }
}

// NewBuilder resolves the configured pipelines. Both default to empty.
func NewBuilder(opts ...Option) (*Builder, error) {
	b := &Builder{
		ref:            DefaultRef,
		registry:       pipeline.Default,
		fieldPos:       make(map[string]int),
		documents:      make(map[string]struct{}),
		documentBoosts: make(map[string]float64),
		inverted:       make(index.InvertedIndex),
		documentFreq:   make(map[string]int),
		logger:         logger.WithComponent("builder"),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.ref == "" {
		return nil, apperrors.Configuration("reference field name must not be empty")
	}
	var err error
	if b.pipeline, err = pipeline.New(b.registry, b.pipelineNames...); err != nil {
		return nil, fmt.Errorf("indexing pipeline: %w", err)
	}
	if b.searchPipeline, err = pipeline.New(b.registry, b.searchNames...); err != nil {
		return nil, fmt.Errorf("search pipeline: %w", err)
	}
	return b, nil
}

// FieldOption configures one field.
type FieldOption func(*fieldSpec)

// WithBoost multiplies every weight in the field's vectors.
func WithBoost(boost float64) FieldOption {
	return func(f *fieldSpec) { f.boost = boost }
}

func WithExtractor(fn Extractor) FieldOption {
	return func(f *fieldSpec) { f.extractor = fn }
}

// WithTermPositions records (start, length) of every occurrence in the
// field's postings.
func WithTermPositions() FieldOption {
	return func(f *fieldSpec) { f.positions = true }
}

// AddField declares a field. Fields must be declared before the first
// document is added.
func (b *Builder) AddField(name string, opts ...FieldOption) error {
	if b.finalized {
		return ErrFinalized
	}
	if !index.ValidFieldName(name) {
		return apperrors.Configuration("invalid field name %q", name)
	}
	if name == b.ref {
		return apperrors.Configuration("field %q is the reference field", name)
	}
	if _, ok := b.fieldPos[name]; ok {
		return apperrors.Configuration("field %q already declared", name)
	}
	if len(b.refs) > 0 {
		return apperrors.Configuration("field %q declared after documents were added", name)
	}
	spec := fieldSpec{name: name, boost: 1, extractor: FieldExtractor(name)}
	for _, opt := range opts {
		opt(&spec)
	}
	if !(spec.boost > 0) || math.IsInf(spec.boost, 0) {
		return apperrors.Configuration("field %q boost must be a positive number, got %v", name, spec.boost)
	}
	if spec.extractor == nil {
		return apperrors.Configuration("field %q has a nil extractor", name)
	}
	b.fieldPos[name] = len(b.fields)
	b.fields = append(b.fields, spec)
	return nil
}

// DocumentOption configures one AddDocument call.
type DocumentOption func(*documentOptions)

type documentOptions struct {
	boost    float64
	hasBoost bool
}

// WithDocumentBoost multiplies every weight of the document's vectors.
func WithDocumentBoost(boost float64) DocumentOption {
	return func(o *documentOptions) {
		o.boost = boost
		o.hasBoost = true
	}
}

// prepared is a tokenized document that has not yet touched builder state.
type prepared struct {
	ref    string
	boost  float64
	fields []preparedField
}

type preparedField struct {
	name      string
	positions bool
	tokens    []tokenizer.Token
}

// AddDocument tokenizes every field of doc and then records its terms. A
// rejected document leaves the builder unchanged.
func (b *Builder) AddDocument(doc Document, opts ...DocumentOption) error {
	if b.finalized {
		return ErrFinalized
	}
	var o documentOptions
	for _, opt := range opts {
		opt(&o)
	}
	p, err := b.prepare(doc, o)
	if err != nil {
		return err
	}
	return b.commit(p)
}

// AddDocuments tokenizes docs in parallel and commits them in input order on
// the calling goroutine. Per-document failures do not stop the batch; they
// are returned joined. Cancelling ctx abandons documents not yet committed.
func (b *Builder) AddDocuments(ctx context.Context, docs []Document) error {
	if b.finalized {
		return ErrFinalized
	}
	preparedDocs := make([]*prepared, len(docs))
	prepareErrs := make([]error, len(docs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, doc := range docs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			preparedDocs[i], prepareErrs[i] = b.prepare(doc, documentOptions{})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("tokenizing documents: %w", err)
	}

	var errs []error
	for i, p := range preparedDocs {
		if err := ctx.Err(); err != nil {
			errs = append(errs, fmt.Errorf("committing documents: %w", err))
			break
		}
		err := prepareErrs[i]
		if err == nil {
			err = b.commit(p)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("document %d: %w", i, err))
		}
	}
	b.logger.Debug("document batch added",
		"documents", len(docs),
		"failed", len(errs),
		"total_documents", len(b.refs),
	)
	return errors.Join(errs...)
}

// prepare only reads builder configuration, so it may run concurrently.
func (b *Builder) prepare(doc Document, o documentOptions) (*prepared, error) {
	ref, err := b.reference(doc)
	if err != nil {
		b.reject("invalid_ref")
		return nil, err
	}
	boost := 1.0
	switch {
	case o.hasBoost:
		boost = o.boost
	case b.boostField != "":
		if v, ok := doc[b.boostField]; ok && v != nil {
			f, ok := toFloat(v)
			if !ok {
				b.reject("invalid_boost")
				return nil, apperrors.Validation("document %q: boost field %q is not numeric", ref, b.boostField)
			}
			boost = f
		}
	}
	if !(boost > 0) || math.IsInf(boost, 0) {
		b.reject("invalid_boost")
		return nil, apperrors.Validation("document %q: boost must be a positive number, got %v", ref, boost)
	}

	p := &prepared{ref: ref, boost: boost, fields: make([]preparedField, 0, len(b.fields))}
	for _, f := range b.fields {
		raw, err := extractTokens(f.extractor(doc))
		if err != nil {
			b.reject("malformed")
			return nil, apperrors.Validation("document %q field %q: %v", ref, f.name, err)
		}
		if len(raw) == 0 {
			continue
		}
		tokens := b.pipeline.Run(raw)
		if len(tokens) == 0 {
			continue
		}
		p.fields = append(p.fields, preparedField{name: f.name, positions: f.positions, tokens: tokens})
	}
	return p, nil
}

func (b *Builder) reference(doc Document) (string, error) {
	if doc == nil {
		return "", apperrors.Validation("document is nil")
	}
	v, ok := doc[b.ref]
	if !ok || v == nil {
		return "", apperrors.Validation("document is missing reference field %q", b.ref)
	}
	ref, ok := v.(string)
	if !ok {
		return "", apperrors.Validation("reference field %q must be a string, got %T", b.ref, v)
	}
	if ref == "" {
		return "", apperrors.Validation("reference field %q is empty", b.ref)
	}
	return ref, nil
}

func (b *Builder) commit(p *prepared) error {
	if _, dup := b.documents[p.ref]; dup {
		b.reject("duplicate_ref")
		return apperrors.Validation("duplicate document reference %q", p.ref)
	}
	b.documents[p.ref] = struct{}{}
	b.refs = append(b.refs, p.ref)
	if p.boost != 1 {
		b.documentBoosts[p.ref] = p.boost
	}

	seen := make(map[string]struct{})
	for _, f := range p.fields {
		for _, tok := range f.tokens {
			if tok.Text == "" {
				continue
			}
			var pos *[2]int
			if f.positions {
				at := tok.Position()
				pos = &at
			}
			b.inverted.Add(tok.Text, f.name, p.ref, pos)
			seen[tok.Text] = struct{}{}
		}
	}
	for term := range seen {
		b.documentFreq[term]++
	}
	if b.metrics != nil {
		b.metrics.DocsIndexedTotal.Inc()
	}
	return nil
}

func (b *Builder) reject(reason string) {
	if b.metrics != nil {
		b.metrics.DocsRejectedTotal.WithLabelValues(reason).Inc()
	}
}

// Build computes the field vectors and the vocabulary automaton and returns
// the finished index. The Builder cannot be used afterwards.
func (b *Builder) Build() (*index.Index, error) {
	if b.finalized {
		return nil, ErrFinalized
	}
	if len(b.fields) == 0 {
		return nil, apperrors.Configuration("index has no fields")
	}
	start := time.Now()
	b.finalized = true

	n := float64(len(b.refs))
	vocabulary := make([]string, 0, len(b.inverted))
	elements := make(map[index.FieldRef][]index.Element)
	for term, byField := range b.inverted {
		vocabulary = append(vocabulary, term)
		idf := InverseDocumentFrequency(n, float64(b.documentFreq[term]))
		for field, byRef := range byField {
			fieldBoost := b.fields[b.fieldPos[field]].boost
			for ref, posting := range byRef {
				fr := index.FieldRef{Field: field, Ref: ref}
				elements[fr] = append(elements[fr], index.Element{
					Term:   term,
					Weight: TermWeight(posting.TermFrequency, idf) * fieldBoost * b.documentBoost(ref),
				})
			}
		}
	}
	vectors := make(map[index.FieldRef]*index.Vector, len(elements))
	for fr, els := range elements {
		vectors[fr] = index.NewVector(els, b.fields[b.fieldPos[fr.Field]].boost*b.documentBoost(fr.Ref))
	}

	sort.Strings(vocabulary)
	tokenSet, err := tokenset.FromSorted(vocabulary)
	if err != nil {
		return nil, fmt.Errorf("building vocabulary: %w", err)
	}

	fields := make([]index.Field, len(b.fields))
	for i, f := range b.fields {
		fields[i] = index.Field{Name: f.name, Boost: f.boost, Positions: f.positions}
	}

	idx := index.New(index.Params{
		Ref:            b.ref,
		Fields:         fields,
		PipelineNames:  b.pipeline.Names(),
		SearchNames:    b.searchPipeline.Names(),
		SearchPipeline: b.searchPipeline,
		Documents:      b.refs,
		DocumentBoosts: b.documentBoosts,
		Inverted:       b.inverted,
		Vectors:        vectors,
		TokenSet:       tokenSet,
	})
	b.refs, b.documents, b.inverted, b.documentFreq, b.documentBoosts = nil, nil, nil, nil, nil

	elapsed := time.Since(start)
	if b.metrics != nil {
		b.metrics.IndexBuildDuration.Observe(elapsed.Seconds())
		b.metrics.IndexDocuments.Set(float64(idx.DocumentCount()))
		b.metrics.VocabularySize.Set(float64(tokenSet.Len()))
	}
	b.logger.Info("index built",
		"documents", idx.DocumentCount(),
		"fields", len(fields),
		"terms", tokenSet.Len(),
		"automaton_nodes", tokenSet.NodeCount(),
		"vectors", len(vectors),
		"duration_ms", elapsed.Milliseconds(),
	)
	return idx, nil
}

func (b *Builder) documentBoost(ref string) float64 {
	if boost, ok := b.documentBoosts[ref]; ok {
		return boost
	}
	return 1
}

// InverseDocumentFrequency is 1 + ln(n/df). df is the number of distinct
// documents containing the term in any field.
func InverseDocumentFrequency(n, df float64) float64 {
	if df <= 0 || n <= 0 {
		return 0
	}
	return 1 + math.Log(n/df)
}

// TermWeight is the unboosted tf-idf weight of one (term, field, document).
func TermWeight(tf int, idf float64) float64 {
	if tf <= 0 {
		return 0
	}
	return (1 + math.Log(float64(tf))) * idf
}
