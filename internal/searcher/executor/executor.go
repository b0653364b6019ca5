// Package executor evaluates parsed queries against an immutable index.
// Clause terms are expanded through the vocabulary automaton, scored from
// the field vectors, and gated by presence using bitmaps over document
// ordinals.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/RoaringBitmap/roaring"

	"github.com/Adithya-Monish-Kumar-K/textindex/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/textindex/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/textindex/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/textindex/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/textindex/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/metrics"
)

type SearchResult struct {
	Query     string          `json:"query"`
	TotalHits int             `json:"total_hits"`
	Results   []ranker.Result `json:"results"`
	TermStats map[string]int  `json:"term_stats"`
}

type Executor struct {
	idx          *index.Index
	maxExpansion int
	logger       *slog.Logger
	metrics      *metrics.Metrics
}

type Option func(*Executor)

// WithMaxExpansion fails clauses whose wildcard or fuzzy term expands to
// more than n vocabulary terms. Zero means no limit.
func WithMaxExpansion(n int) Option {
	return func(e *Executor) { e.maxExpansion = n }
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) { e.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Executor) { e.metrics = m }
}

func New(idx *index.Index, opts ...Option) *Executor {
	e := &Executor{
		idx:    idx,
		logger: logger.WithComponent("query-executor"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Index returns the index the executor searches.
func (e *Executor) Index() *index.Index {
	return e.idx
}

// Search parses query and executes it.
func (e *Executor) Search(ctx context.Context, query string, limit int) (*SearchResult, error) {
	q, err := parser.Parse(query)
	if err != nil {
		e.observe("parse_error", nil)
		return nil, err
	}
	return e.Execute(ctx, q, limit)
}

// scoring holds the per-call accumulators.
type scoring struct {
	scores  map[uint32]float64
	matches map[uint32]ranker.MatchData
}

// Execute runs q and returns at most limit results (all when limit <= 0).
// A query that matches nothing yields an empty result, not an error.
func (e *Executor) Execute(ctx context.Context, q *parser.Query, limit int) (*SearchResult, error) {
	start := time.Now()
	acc := scoring{
		scores:  make(map[uint32]float64),
		matches: make(map[uint32]ranker.MatchData),
	}
	termStats := make(map[string]int)
	var (
		required   []*roaring.Bitmap
		optional   = roaring.New()
		prohibited = roaring.New()
		positive   int
		excluding  int
	)

	for _, clause := range q.Clauses {
		if err := ctx.Err(); err != nil {
			e.observe("error", nil)
			return nil, fmt.Errorf("executing query: %w", err)
		}
		terms, active, err := e.expand(clause)
		if err != nil {
			e.observe("invalid", nil)
			return nil, err
		}
		if !active {
			continue
		}
		matched := roaring.New()
		for _, term := range terms {
			for _, field := range e.scope(clause) {
				postings := e.idx.Postings(term, field)
				termStats[term] += len(postings)
				for ref, posting := range postings {
					ord, ok := e.idx.Ordinal(ref)
					if !ok {
						continue
					}
					matched.Add(ord)
					if clause.Presence != parser.Prohibited {
						acc.add(e.idx, ord, term, field, ref, posting, clause.Boost)
					}
				}
			}
		}
		switch clause.Presence {
		case parser.Required:
			required = append(required, matched)
			positive++
		case parser.Prohibited:
			prohibited.Or(matched)
			excluding++
		default:
			optional.Or(matched)
			positive++
		}
	}

	var qualifying *roaring.Bitmap
	switch {
	case len(required) > 0:
		qualifying = roaring.FastAnd(required...)
	case positive > 0:
		qualifying = optional
	case excluding > 0:
		qualifying = roaring.New()
		qualifying.AddRange(0, uint64(e.idx.DocumentCount()))
	default:
		qualifying = roaring.New()
	}
	qualifying.AndNot(prohibited)

	results := make([]ranker.Result, 0, qualifying.GetCardinality())
	it := qualifying.Iterator()
	for it.HasNext() {
		ord := it.Next()
		results = append(results, ranker.Result{
			Ref:       e.idx.Reference(ord),
			Score:     acc.scores[ord],
			MatchData: acc.matches[ord],
		})
	}
	total := len(results)
	results = ranker.Rank(results, limit)

	e.observe(outcome(total), results)
	e.logger.Debug("query executed",
		"query", q.String(),
		"clauses", len(q.Clauses),
		"candidates", len(acc.scores),
		"total_hits", total,
		"results", len(results),
		"duration_us", time.Since(start).Microseconds(),
	)
	return &SearchResult{
		Query:     q.Raw,
		TotalHits: total,
		Results:   results,
		TermStats: termStats,
	}, nil
}

// add scores one posting: the term's weight in the field vector, normalised
// by the unboosted magnitude and scaled by the clause boost. The stored
// weight carries the field and document boosts, which survive normalisation.
func (s scoring) add(idx *index.Index, ord uint32, term, field, ref string, p *index.Posting, boost float64) {
	v := idx.Vector(field, ref)
	if v == nil || v.Magnitude() == 0 {
		return
	}
	s.scores[ord] += v.Weight(term) / v.Magnitude() * boost
	md, ok := s.matches[ord]
	if !ok {
		md = make(ranker.MatchData)
		s.matches[ord] = md
	}
	md.Add(term, field, ranker.FieldMatch{TermFrequency: p.TermFrequency, Positions: p.Positions})
}

// scope returns the indexed fields a clause applies to. Unknown field names
// are dropped, so a clause scoped only to unknown fields matches nothing.
func (e *Executor) scope(c parser.Clause) []string {
	if len(c.Fields) == 0 {
		return e.idx.FieldNames()
	}
	fields := make([]string, 0, len(c.Fields))
	for _, name := range c.Fields {
		if _, ok := e.idx.Field(name); ok {
			fields = append(fields, name)
		}
	}
	return fields
}

// expand resolves a clause to vocabulary terms. active is false when the
// search pipeline removed the whole term (a stop word); such a clause
// neither scores nor gates.
func (e *Executor) expand(c parser.Clause) (terms []string, active bool, err error) {
	vocab := e.idx.TokenSet()

	var base []string
	switch {
	case c.Wildcard != parser.WildcardNone:
		terms = vocab.Wildcard(c.Term)
		e.observeExpansion("wildcard", len(terms))
		return terms, true, e.checkExpansion(c, terms)
	case !c.UsePipeline:
		base = []string{c.Term}
	default:
		tokens := e.idx.SearchPipeline().Run(tokenizer.Tokenize(c.Term))
		for _, tok := range tokens {
			if tok.Text != "" {
				base = append(base, tok.Text)
			}
		}
		if len(base) == 0 {
			return nil, false, nil
		}
	}

	if c.EditDistance == 0 {
		for _, term := range base {
			if vocab.Contains(term) {
				terms = append(terms, term)
			}
		}
		return dedup(terms), true, nil
	}
	for _, term := range base {
		matches, err := vocab.Fuzzy(term, c.EditDistance)
		if err != nil {
			return nil, false, fmt.Errorf("clause %q: %w", c.String(), err)
		}
		terms = append(terms, matches...)
	}
	terms = dedup(terms)
	e.observeExpansion("fuzzy", len(terms))
	return terms, true, e.checkExpansion(c, terms)
}

func (e *Executor) checkExpansion(c parser.Clause, terms []string) error {
	if e.maxExpansion > 0 && len(terms) > e.maxExpansion {
		return apperrors.Validation("clause %q expands to %d terms (limit %d)", c.String(), len(terms), e.maxExpansion)
	}
	return nil
}

func dedup(terms []string) []string {
	if len(terms) < 2 {
		return terms
	}
	seen := make(map[string]struct{}, len(terms))
	out := terms[:0]
	for _, t := range terms {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func outcome(total int) string {
	if total == 0 {
		return "zero_result"
	}
	return "hit"
}

func (e *Executor) observe(result string, results []ranker.Result) {
	if e.metrics == nil {
		return
	}
	e.metrics.SearchQueriesTotal.WithLabelValues(result).Inc()
	if results != nil {
		e.metrics.SearchResultsCount.Observe(float64(len(results)))
	}
}

func (e *Executor) observeExpansion(kind string, n int) {
	if e.metrics != nil {
		e.metrics.TermExpansionSize.WithLabelValues(kind).Observe(float64(n))
	}
}
