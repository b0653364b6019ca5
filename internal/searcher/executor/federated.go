package executor

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/textindex/internal/searcher/merger"
	"github.com/Adithya-Monish-Kumar-K/textindex/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/textindex/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/textindex/internal/tokenset"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/logger"
)

// Federated runs one query against several named indexes concurrently and
// merges the ranked results. Scores are per-index and are not
// renormalised across indexes.
type Federated struct {
	names     []string
	executors map[string]*Executor
	vocab     *tokenset.TokenSet
	logger    *slog.Logger
}

// NewFederated takes a name -> executor map. The vocabulary of the
// federation is the union of every member's vocabulary.
func NewFederated(executors map[string]*Executor) *Federated {
	names := make([]string, 0, len(executors))
	for name := range executors {
		names = append(names, name)
	}
	sort.Strings(names)
	var vocab *tokenset.TokenSet
	for _, name := range names {
		ts := executors[name].Index().TokenSet()
		if vocab == nil {
			vocab = ts
			continue
		}
		vocab = vocab.Union(ts)
	}
	if vocab == nil {
		vocab = tokenset.New(nil)
	}
	return &Federated{
		names:     names,
		executors: executors,
		vocab:     vocab,
		logger:    logger.WithComponent("federated-executor"),
	}
}

// Vocabulary returns the union of the member vocabularies.
func (f *Federated) Vocabulary() *tokenset.TokenSet {
	return f.vocab
}

// Names lists the member indexes in sorted order.
func (f *Federated) Names() []string {
	return append([]string(nil), f.names...)
}

// Search parses query once and executes it against every member.
func (f *Federated) Search(ctx context.Context, query string, limit int) (*SearchResult, error) {
	q, err := parser.Parse(query)
	if err != nil {
		return nil, err
	}
	return f.Execute(ctx, q, limit)
}

// Execute fails if any member fails; a parse or validation problem is the
// same for every member, so partial results would only hide it.
func (f *Federated) Execute(ctx context.Context, q *parser.Query, limit int) (*SearchResult, error) {
	type result struct {
		sr  *SearchResult
		err error
	}
	results := make([]result, len(f.names))
	var wg sync.WaitGroup
	for i, name := range f.names {
		wg.Add(1)
		go func(i int, name string, exec *Executor) {
			defer wg.Done()
			sr, err := exec.Execute(ctx, q, limit)
			if err != nil {
				results[i] = result{err: fmt.Errorf("index %q: %w", name, err)}
				return
			}
			for j := range sr.Results {
				sr.Results[j].Source = name
			}
			results[i] = result{sr: sr}
		}(i, name, f.executors[name])
	}
	wg.Wait()

	merged := &SearchResult{Query: q.Raw, TermStats: make(map[string]int)}
	sets := make([][]ranker.Result, 0, len(results))
	for _, r := range results {
		if r.err != nil {
			return nil, r.err
		}
		merged.TotalHits += r.sr.TotalHits
		for term, n := range r.sr.TermStats {
			merged.TermStats[term] += n
		}
		sets = append(sets, r.sr.Results)
	}
	merged.Results = merger.Merge(sets, limit)
	f.logger.Debug("federated query executed",
		"query", q.String(),
		"indexes", len(f.names),
		"total_hits", merged.TotalHits,
		"results", len(merged.Results),
	)
	return merged, nil
}
