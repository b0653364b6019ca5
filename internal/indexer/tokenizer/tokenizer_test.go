package tokenizer

import (
	"reflect"
	"strings"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"empty", "", nil},
		{"single word", "France", []string{"france"}},
		{"punctuation dropped", "Hello, world!", []string{"hello", "world"}},
		{"digits kept", "route 66", []string{"route", "66"}},
		{"whitespace only", "   \t\n", nil},
		{"unicode lowered", "ÉCOLE Straße", []string{"école", "straße"}},
		{"nfkc folds ligature", "ﬁle", []string{"file"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens := Tokenize(tt.input)
			var got []string
			for _, tok := range tokens {
				got = append(got, tok.Text)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tokenize(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestTokenizePositions(t *testing.T) {
	tokens := Tokenize("Politics of France")
	want := [][2]int{{0, 8}, {9, 2}, {12, 6}}
	if len(tokens) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(tokens), len(want))
	}
	for i, tok := range tokens {
		if tok.Position() != want[i] {
			t.Errorf("token %d (%q) position = %v, want %v", i, tok.Text, tok.Position(), want[i])
		}
	}
}

func TestTokenIsNotMutated(t *testing.T) {
	orig := New("running", 0, 7).WithMetadata("field", "body")
	updated := orig.Update(func(s string) string { return "run" }).WithMetadata("stemmed", true)

	if orig.Text != "running" {
		t.Errorf("original text changed to %q", orig.Text)
	}
	if _, ok := orig.Meta("stemmed"); ok {
		t.Error("original metadata gained a key set on the derived token")
	}
	if updated.Text != "run" {
		t.Errorf("updated text = %q, want run", updated.Text)
	}
	if v, _ := updated.Meta("field"); v != "body" {
		t.Errorf("derived token lost metadata, field = %v", v)
	}
}

func TestFromTerms(t *testing.T) {
	tokens := FromTerms([]string{"Alpha", " ", "beta"})
	if len(tokens) != 2 {
		t.Fatalf("got %d tokens, want 2", len(tokens))
	}
	if tokens[0].Text != "alpha" || tokens[1].Text != "beta" {
		t.Errorf("unexpected tokens %v", tokens)
	}
	if tokens[1].Start != 2 {
		t.Errorf("beta start = %d, want ordinal 2", tokens[1].Start)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"France", "france"},
		{"\ufb01nance", "finance"},
		{"ＦＲＡ*", "fra*"},
		{"Ⅻ", "xii"},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	tokens := FromTerms([]string{"\ufb01nance"})
	if len(tokens) != 1 || tokens[0].Text != "finance" {
		t.Errorf("FromTerms ligature = %v, want finance", tokens)
	}
}

func BenchmarkTokenize(b *testing.B) {
	texts := map[string]string{
		"short": "The quick brown fox jumps over the lazy dog",
		"long": strings.Repeat("Information retrieval systems combine tokenization, stemming "+
			"and stop word removal to normalise text into searchable terms. ", 50),
	}
	for name, text := range texts {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				_ = Tokenize(text)
			}
		})
	}
}
