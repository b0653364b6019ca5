package textindex

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	apperrors "github.com/Adithya-Monish-Kumar-K/textindex/pkg/errors"
)

var registerOnce sync.Once

func franceIndex(t *testing.T, opts ...Option) *Index {
	t.Helper()
	b, err := NewBuilder(opts...)
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Field("title"); err != nil {
		t.Fatal(err)
	}
	if err := b.Field("body"); err != nil {
		t.Fatal(err)
	}
	docs := []Document{
		{"ref": "doc1", "title": "France"},
		{"ref": "doc2", "title": "Politics", "body": "France government"},
	}
	if err := b.AddAll(context.Background(), docs); err != nil {
		t.Fatal(err)
	}
	idx, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	return idx
}

func refs(results []Result) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Ref
	}
	return out
}

func TestFranceScenario(t *testing.T) {
	idx := franceIndex(t)
	tests := []struct {
		query string
		want  []string
	}{
		{"France", []string{"doc1", "doc2"}},
		{"inexistent", []string{}},
		{"Fra*", []string{"doc1", "doc2"}},
		{"France~1", []string{"doc1", "doc2"}},
		{"governments", []string{"doc2"}},
		{"title:France", []string{"doc1"}},
		{"+france -politics", []string{"doc1"}},
		{"the", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			results, err := idx.Search(context.Background(), tt.query)
			if err != nil {
				t.Fatalf("Search: %v", err)
			}
			if got := refs(results); strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("refs = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVocabularyIsStemmed(t *testing.T) {
	idx := franceIndex(t)
	want := "franc,govern,polit"
	if got := strings.Join(idx.Terms(), ","); got != want {
		t.Errorf("Terms = %s, want %s", got, want)
	}
	if got := idx.Expand("gov*"); len(got) != 1 || got[0] != "govern" {
		t.Errorf("Expand = %v", got)
	}
	if got, err := idx.Similar("frank", 1); err != nil || len(got) != 1 || got[0] != "franc" {
		t.Errorf("Similar = %v, %v", got, err)
	}
}

func TestCustomPipeline(t *testing.T) {
	registerOnce.Do(func() {
		err := RegisterStage("dropPolitics", KindCustom, func(tok Token) []Token {
			if tok.Text == "politics" {
				return nil
			}
			return []Token{tok}
		})
		if err != nil {
			t.Fatal(err)
		}
	})
	idx := franceIndex(t, WithPipeline("dropPolitics"), WithSearchPipeline())
	if got := strings.Join(idx.Terms(), ","); got != "france,government" {
		t.Errorf("Terms = %s", got)
	}
	if _, err := NewBuilder(WithPipeline("no-such-stage")); !apperrors.IsConfiguration(err) {
		t.Errorf("unknown stage: err = %v", err)
	}
}

func TestPersistence(t *testing.T) {
	idx := franceIndex(t)
	ctx := context.Background()

	data, err := json.Marshal(idx)
	if err != nil {
		t.Fatal(err)
	}
	restored, err := Unmarshal(data)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "france.tidx")
	if err := idx.Save(path); err != nil {
		t.Fatal(err)
	}
	opened, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}

	want, _ := idx.Search(ctx, "fra* politics^2")
	for name, other := range map[string]*Index{"json": restored, "file": opened} {
		got, err := other.Search(ctx, "fra* politics^2")
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if len(got) != len(want) {
			t.Fatalf("%s: %d results, want %d", name, len(got), len(want))
		}
		for i := range want {
			if got[i].Ref != want[i].Ref || got[i].Score != want[i].Score {
				t.Errorf("%s: result %d = %+v, want %+v", name, i, got[i], want[i])
			}
		}
	}
}

func TestParseErrorKind(t *testing.T) {
	idx := franceIndex(t)
	_, err := idx.Search(context.Background(), "title:")
	var pe *ParseError
	if !errors.As(err, &pe) || !apperrors.IsParse(err) {
		t.Fatalf("err = %v, want *ParseError", err)
	}
	if _, err := Parse("fra*~1"); err == nil {
		t.Error("fuzzy wildcard should not parse")
	}
}

func TestFederation(t *testing.T) {
	b, err := NewBuilder()
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Field("title"); err != nil {
		t.Fatal(err)
	}
	if err := b.Add(Document{"ref": "doc9", "title": "Franche-Comté"}); err != nil {
		t.Fatal(err)
	}
	regions, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	fed := Federate(map[string]*Index{"countries": franceIndex(t), "regions": regions})

	sr, err := fed.Search(context.Background(), "fra*", 0)
	if err != nil {
		t.Fatal(err)
	}
	if sr.TotalHits != 3 {
		t.Fatalf("TotalHits = %d, want 3", sr.TotalHits)
	}
	sources := map[string]string{}
	for _, r := range sr.Results {
		sources[r.Ref] = r.Source
	}
	if sources["doc9"] != "regions" || sources["doc1"] != "countries" {
		t.Errorf("sources = %v", sources)
	}
	if terms := fed.Terms(); len(terms) < 4 {
		t.Errorf("Terms = %v", terms)
	}
}

func TestBuilderFinalized(t *testing.T) {
	b, err := NewBuilder()
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Field("title"); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Build(); err != nil {
		t.Fatal(err)
	}
	if err := b.Add(Document{"ref": "x", "title": "late"}); !errors.Is(err, ErrFinalized) {
		t.Errorf("err = %v, want ErrFinalized", err)
	}
}
