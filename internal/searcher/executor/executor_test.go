package executor

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/textindex/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/textindex/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/textindex/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/textindex/internal/pipeline"
	"github.com/Adithya-Monish-Kumar-K/textindex/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/textindex/pkg/errors"
)

func testRegistry() *pipeline.Registry {
	reg := pipeline.NewRegistry()
	reg.MustRegister("stop", pipeline.KindStopWordFilter, func(tok tokenizer.Token) []tokenizer.Token {
		if tok.Text == "the" {
			return nil
		}
		return []tokenizer.Token{tok}
	})
	return reg
}

func buildIndex(t testing.TB, fields []string, docs []indexer.Document) *index.Index {
	t.Helper()
	b, err := indexer.NewBuilder(indexer.WithRegistry(testRegistry()), indexer.WithSearchPipeline("stop"))
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range fields {
		if err := b.AddField(f); err != nil {
			t.Fatal(err)
		}
	}
	for _, d := range docs {
		if err := b.AddDocument(d); err != nil {
			t.Fatal(err)
		}
	}
	idx, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	return idx
}

func franceIndex(t *testing.T) *index.Index {
	return buildIndex(t, []string{"title", "body"}, []indexer.Document{
		{"ref": "doc1", "title": "France"},
		{"ref": "doc2", "title": "Politics", "body": "France government"},
	})
}

func presenceIndex(t *testing.T) *index.Index {
	return buildIndex(t, []string{"body"}, []indexer.Document{
		{"ref": "d1", "body": "apple banana"},
		{"ref": "d2", "body": "apple"},
		{"ref": "d3", "body": "banana cherry"},
		{"ref": "d4", "body": "cherry"},
	})
}

func refs(sr *SearchResult) []string {
	out := make([]string, len(sr.Results))
	for i, r := range sr.Results {
		out[i] = r.Ref
	}
	return out
}

func search(t *testing.T, e *Executor, query string) *SearchResult {
	t.Helper()
	sr, err := e.Search(context.Background(), query, 0)
	if err != nil {
		t.Fatalf("Search(%q): %v", query, err)
	}
	return sr
}

func TestFranceScenario(t *testing.T) {
	e := New(franceIndex(t))
	tests := []struct {
		query string
		want  []string
	}{
		{"France", []string{"doc1", "doc2"}},
		{"inexistent", []string{}},
		{"Fra*", []string{"doc1", "doc2"}},
		{"France~1", []string{"doc1", "doc2"}},
		{"title:france", []string{"doc1"}},
		{"body:france", []string{"doc2"}},
		{"nofield:france", []string{}},
		{"france government^10", []string{"doc2", "doc1"}},
		{"=France", []string{}},
		{"=france", []string{"doc1", "doc2"}},
		{"*", []string{"doc1", "doc2"}},
		{"", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			sr := search(t, e, tt.query)
			if got := refs(sr); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Search(%q) = %v, want %v", tt.query, got, tt.want)
			}
			if sr.TotalHits != len(tt.want) {
				t.Errorf("TotalHits = %d, want %d", sr.TotalHits, len(tt.want))
			}
		})
	}
}

func TestScoresAndMatchData(t *testing.T) {
	e := New(franceIndex(t))
	sr := search(t, e, "france")
	if len(sr.Results) != 2 {
		t.Fatalf("results = %v", refs(sr))
	}
	first, second := sr.Results[0], sr.Results[1]
	if first.Score != 1 {
		t.Errorf("single-term field score = %v, want 1", first.Score)
	}
	if !(second.Score > 0 && second.Score < first.Score) {
		t.Errorf("doc2 score = %v, want in (0, %v)", second.Score, first.Score)
	}
	if _, ok := second.MatchData["france"]["body"]; !ok {
		t.Errorf("doc2 match data = %+v, want france/body", second.MatchData)
	}
	if sr.TermStats["france"] != 2 {
		t.Errorf("TermStats = %v", sr.TermStats)
	}

	boosted := search(t, e, "france^2")
	if boosted.Results[0].Score != 2 {
		t.Errorf("boosted score = %v, want 2", boosted.Results[0].Score)
	}
}

func TestWildcardMatchesNormalizedTerms(t *testing.T) {
	e := New(buildIndex(t, []string{"body"}, []indexer.Document{
		{"ref": "a", "body": "\ufb01nance report"},
		{"ref": "b", "body": "weather"},
	}))
	for _, query := range []string{"\ufb01n*", "FIN*", "*\ufb01nance", "\ufb01nance"} {
		if got := refs(search(t, e, query)); !reflect.DeepEqual(got, []string{"a"}) {
			t.Errorf("Search(%q) = %v, want [a]", query, got)
		}
	}
}

type boostedDoc struct {
	doc   indexer.Document
	boost float64
}

func TestBoostsAffectRanking(t *testing.T) {
	tests := []struct {
		name       string
		titleBoost float64
		docs       []boostedDoc
		query      string
		wantRefs   []string
		wantScores []float64
	}{
		{
			name:       "field boost",
			titleBoost: 10,
			docs: []boostedDoc{
				{indexer.Document{"ref": "a", "body": "france"}, 1},
				{indexer.Document{"ref": "b", "title": "france"}, 1},
			},
			query:      "france",
			wantRefs:   []string{"b", "a"},
			wantScores: []float64{10, 1},
		},
		{
			name:       "document boost",
			titleBoost: 1,
			docs: []boostedDoc{
				{indexer.Document{"ref": "a", "body": "france"}, 1},
				{indexer.Document{"ref": "b", "body": "france"}, 5},
			},
			query:      "france",
			wantRefs:   []string{"b", "a"},
			wantScores: []float64{5, 1},
		},
		{
			name:       "field and clause boost",
			titleBoost: 3,
			docs: []boostedDoc{
				{indexer.Document{"ref": "a", "title": "france"}, 2},
			},
			query:      "title:france^2",
			wantRefs:   []string{"a"},
			wantScores: []float64{12},
		},
		{
			name:       "scoped clause ignores other field boost",
			titleBoost: 10,
			docs: []boostedDoc{
				{indexer.Document{"ref": "a", "title": "france", "body": "france"}, 1},
			},
			query:      "body:france",
			wantRefs:   []string{"a"},
			wantScores: []float64{1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := indexer.NewBuilder()
			if err != nil {
				t.Fatal(err)
			}
			if err := b.AddField("title", indexer.WithBoost(tt.titleBoost)); err != nil {
				t.Fatal(err)
			}
			if err := b.AddField("body"); err != nil {
				t.Fatal(err)
			}
			for _, d := range tt.docs {
				if err := b.AddDocument(d.doc, indexer.WithDocumentBoost(d.boost)); err != nil {
					t.Fatal(err)
				}
			}
			idx, err := b.Build()
			if err != nil {
				t.Fatal(err)
			}

			sr := search(t, New(idx), tt.query)
			if got := refs(sr); !reflect.DeepEqual(got, tt.wantRefs) {
				t.Fatalf("Search(%q) = %v, want %v", tt.query, got, tt.wantRefs)
			}
			for i, r := range sr.Results {
				if r.Score != tt.wantScores[i] {
					t.Errorf("%s score = %v, want %v", r.Ref, r.Score, tt.wantScores[i])
				}
			}
		})
	}
}

func TestPresence(t *testing.T) {
	e := New(presenceIndex(t))
	tests := []struct {
		query string
		want  []string
	}{
		{"+apple -banana", []string{"d2"}},
		{"+apple cherry", []string{"d2", "d1"}},
		{"+apple +banana", []string{"d1"}},
		{"apple cherry", []string{"d2", "d4", "d1", "d3"}},
		{"-banana", []string{"d2", "d4"}},
		{"-banana -apple", []string{"d4"}},
		{"+missing apple", []string{}},
		{"apple -apple", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			sr := search(t, e, tt.query)
			if got := refs(sr); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Search(%q) = %v, want %v", tt.query, got, tt.want)
			}
		})
	}

	for _, r := range search(t, e, "-banana").Results {
		if r.Score != 0 {
			t.Errorf("prohibited-only result %s score = %v, want 0", r.Ref, r.Score)
		}
	}
}

func TestStopWordedClauseIsInert(t *testing.T) {
	e := New(franceIndex(t))
	if got := refs(search(t, e, "+the france")); !reflect.DeepEqual(got, []string{"doc1", "doc2"}) {
		t.Errorf("+the france = %v", got)
	}
	if got := refs(search(t, e, "-the")); len(got) != 0 {
		t.Errorf("-the = %v, want nothing", got)
	}
}

func TestTieBreakByReference(t *testing.T) {
	idx := buildIndex(t, []string{"body"}, []indexer.Document{
		{"ref": "zeta", "body": "same words"},
		{"ref": "alpha", "body": "same words"},
		{"ref": "mid", "body": "same words"},
	})
	sr := search(t, New(idx), "same")
	if got := refs(sr); !reflect.DeepEqual(got, []string{"alpha", "mid", "zeta"}) {
		t.Errorf("tie order = %v", got)
	}
	for i := 1; i < len(sr.Results); i++ {
		if !ranker.Less(sr.Results[i-1], sr.Results[i]) {
			t.Errorf("results %d and %d out of order", i-1, i)
		}
	}
}

func TestLimit(t *testing.T) {
	e := New(presenceIndex(t))
	sr, err := e.Search(context.Background(), "apple cherry", 2)
	if err != nil {
		t.Fatal(err)
	}
	if got := refs(sr); !reflect.DeepEqual(got, []string{"d2", "d4"}) {
		t.Errorf("limited = %v", got)
	}
	if sr.TotalHits != 4 {
		t.Errorf("TotalHits = %d, want 4", sr.TotalHits)
	}
}

func TestErrors(t *testing.T) {
	e := New(franceIndex(t), WithMaxExpansion(1))
	tests := []struct {
		query string
		check func(error) bool
	}{
		{"fr~2", apperrors.IsValidation},
		{"*", apperrors.IsValidation},
		{"foo~", apperrors.IsParse},
		{"a^0", apperrors.IsParse},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			sr, err := e.Search(context.Background(), tt.query, 0)
			if err == nil || !tt.check(err) {
				t.Fatalf("Search(%q) err = %v", tt.query, err)
			}
			if sr != nil {
				t.Error("partial result returned with error")
			}
		})
	}
}

func TestCancelledContext(t *testing.T) {
	e := New(franceIndex(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.Search(ctx, "france", 0); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestFederated(t *testing.T) {
	f := NewFederated(map[string]*Executor{
		"news":  New(franceIndex(t)),
		"fruit": New(presenceIndex(t)),
	})
	if got := f.Names(); !reflect.DeepEqual(got, []string{"fruit", "news"}) {
		t.Errorf("Names = %v", got)
	}
	vocab := f.Vocabulary()
	for _, term := range []string{"france", "apple", "government"} {
		if !vocab.Contains(term) {
			t.Errorf("federated vocabulary missing %q", term)
		}
	}

	sr, err := f.Search(context.Background(), "france apple", 0)
	if err != nil {
		t.Fatal(err)
	}
	if sr.TotalHits != 4 {
		t.Errorf("TotalHits = %d, want 4", sr.TotalHits)
	}
	var sources []string
	for _, r := range sr.Results {
		sources = append(sources, r.Source+"/"+r.Ref)
	}
	want := []string{"fruit/d2", "news/doc1", "fruit/d1", "news/doc2"}
	if !reflect.DeepEqual(sources, want) {
		t.Errorf("federated results = %v, want %v", sources, want)
	}

	if _, err := f.Search(context.Background(), "fr~5", 0); !apperrors.IsValidation(err) {
		t.Errorf("member error not surfaced: %v", err)
	}
}

func BenchmarkSearch(b *testing.B) {
	words := []string{"search", "index", "vector", "token", "query", "field", "boost", "score"}
	docs := make([]indexer.Document, 2000)
	for i := range docs {
		docs[i] = indexer.Document{
			"ref":  fmt.Sprintf("doc-%05d", i),
			"body": fmt.Sprintf("%s %s %s%d", words[i%len(words)], words[(i*3)%len(words)], words[(i*5)%len(words)], i%50),
		}
	}
	e := New(buildIndex(b, []string{"body"}, docs))
	queries := []string{"search", "+index -boost", "sea*", "vectr~1", "score^3 field"}
	ctx := context.Background()
	for _, q := range queries {
		b.Run(q, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := e.Search(ctx, q, 10); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
