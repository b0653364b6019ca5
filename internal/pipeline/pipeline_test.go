package pipeline

import (
	"reflect"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/textindex/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/textindex/pkg/errors"
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	reg := NewRegistry()
	reg.MustRegister("upper", KindCustom, func(tok tokenizer.Token) []tokenizer.Token {
		return []tokenizer.Token{tok.Update(strings.ToUpper)}
	})
	reg.MustRegister("dropShort", KindStopWordFilter, func(tok tokenizer.Token) []tokenizer.Token {
		if len(tok.Text) < 3 {
			return nil
		}
		return []tokenizer.Token{tok}
	})
	reg.MustRegister("splitHyphen", KindCustom, func(tok tokenizer.Token) []tokenizer.Token {
		parts := strings.Split(tok.Text, "-")
		out := make([]tokenizer.Token, 0, len(parts))
		for _, p := range parts {
			part := p
			out = append(out, tok.Update(func(string) string { return part }))
		}
		return out
	})
	return reg
}

func texts(tokens []tokenizer.Token) []string {
	out := make([]string, len(tokens))
	for i, tok := range tokens {
		out[i] = tok.Text
	}
	return out
}

func TestPipelineRunsStagesInOrder(t *testing.T) {
	reg := testRegistry(t)
	p, err := New(reg, "dropShort", "upper")
	if err != nil {
		t.Fatal(err)
	}
	got := texts(p.Run(tokenizer.FromTerms([]string{"an", "apple", "is", "red"})))
	want := []string{"APPLE", "RED"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Run = %v, want %v", got, want)
	}
	if !reflect.DeepEqual(p.Names(), []string{"dropShort", "upper"}) {
		t.Errorf("Names = %v", p.Names())
	}
}

func TestPipelineStageCanSplit(t *testing.T) {
	reg := testRegistry(t)
	p, err := New(reg, "splitHyphen", "upper")
	if err != nil {
		t.Fatal(err)
	}
	got := texts(p.Run([]tokenizer.Token{tokenizer.New("state-of-art", 0, 12)}))
	want := []string{"STATE", "OF", "ART"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Run = %v, want %v", got, want)
	}
}

func TestPipelineDeterministic(t *testing.T) {
	reg := testRegistry(t)
	p, err := New(reg, "splitHyphen", "dropShort", "upper")
	if err != nil {
		t.Fatal(err)
	}
	input := tokenizer.FromTerms([]string{"well-known", "of", "search-engine", "go"})
	first := p.Run(input)
	for i := 0; i < 20; i++ {
		if got := p.Run(input); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d differs: %v vs %v", i, texts(got), texts(first))
		}
	}
}

func TestPipelineUnknownStage(t *testing.T) {
	_, err := New(NewRegistry(), "missing")
	if !apperrors.IsConfiguration(err) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	reg := testRegistry(t)
	err := reg.Register("upper", KindCustom, func(tok tokenizer.Token) []tokenizer.Token { return nil })
	if !apperrors.IsConfiguration(err) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if err := reg.Register("", KindCustom, func(tok tokenizer.Token) []tokenizer.Token { return nil }); err == nil {
		t.Error("empty name accepted")
	}
	if err := reg.Register("nilfn", KindCustom, nil); err == nil {
		t.Error("nil function accepted")
	}
	want := []string{"dropShort", "splitHyphen", "upper"}
	if got := reg.Names(); !reflect.DeepEqual(got, want) {
		t.Errorf("Names = %v, want %v", got, want)
	}
}

func TestEmptyPipelinePassesThrough(t *testing.T) {
	got := texts(Empty().RunString("Hello World"))
	if !reflect.DeepEqual(got, []string{"hello", "world"}) {
		t.Errorf("RunString = %v", got)
	}
}
