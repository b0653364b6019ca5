package segment

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/textindex/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/textindex/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/textindex/internal/pipeline"
	apperrors "github.com/Adithya-Monish-Kumar-K/textindex/pkg/errors"
)

func buildIndex(t *testing.T) *index.Index {
	t.Helper()
	b, err := indexer.NewBuilder(indexer.WithRegistry(pipeline.NewRegistry()))
	if err != nil {
		t.Fatal(err)
	}
	if err := b.AddField("title", indexer.WithBoost(2)); err != nil {
		t.Fatal(err)
	}
	if err := b.AddField("body", indexer.WithTermPositions()); err != nil {
		t.Fatal(err)
	}
	docs := []indexer.Document{
		{"ref": "doc1", "title": "France"},
		{"ref": "doc2", "title": "Politics", "body": "France government"},
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

func TestWriteAndOpen(t *testing.T) {
	dir := t.TempDir()
	idx := buildIndex(t)
	name, err := NewWriter(dir).Write(idx)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	path := filepath.Join(dir, name)

	h, err := ReadHeader(path)
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	if h.DocCount != 2 || h.TermCount != 3 || h.FieldCount != 2 {
		t.Errorf("header = %+v", h)
	}

	loaded, _, err := Open(path, pipeline.NewRegistry())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !reflect.DeepEqual(loaded.References(), idx.References()) {
		t.Errorf("References = %v", loaded.References())
	}
	if !reflect.DeepEqual(loaded.TokenSet().Terms(), idx.TokenSet().Terms()) {
		t.Errorf("Terms = %v", loaded.TokenSet().Terms())
	}
	want := idx.Vector("title", "doc1").Weight("france")
	if got := loaded.Vector("title", "doc1").Weight("france"); got != want {
		t.Errorf("weight = %v, want %v", got, want)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file left behind")
	}
}

func TestOpenDetectsCorruption(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "idx"+Extension)
	if err := WriteFile(path, buildIndex(t)); err != nil {
		t.Fatal(err)
	}
	clean, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		mutate func([]byte) []byte
	}{
		{"flipped payload byte", func(b []byte) []byte { b[HeaderSize+3] ^= 0xff; return b }},
		{"bad magic", func(b []byte) []byte { b[0] = 'X'; return b }},
		{"truncated", func(b []byte) []byte { return b[:len(b)-3] }},
		{"tiny", func(b []byte) []byte { return b[:10] }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := tt.mutate(append([]byte(nil), clean...))
			if err := os.WriteFile(path, data, 0644); err != nil {
				t.Fatal(err)
			}
			if _, _, err := Open(path, pipeline.NewRegistry()); !errors.Is(err, apperrors.ErrCorrupt) {
				t.Errorf("err = %v, want ErrCorrupt", err)
			}
		})
	}
}

func TestLatestAndRetain(t *testing.T) {
	dir := t.TempDir()
	if p, err := Latest(dir); err != nil || p != "" {
		t.Fatalf("Latest(empty) = %q, %v", p, err)
	}
	idx := buildIndex(t)
	w := NewWriter(dir)
	var names []string
	for i := 0; i < 3; i++ {
		name, err := w.Write(idx)
		if err != nil {
			t.Fatal(err)
		}
		names = append(names, name)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	latest, err := Latest(dir)
	if err != nil {
		t.Fatal(err)
	}
	if latest != filepath.Join(dir, names[2]) {
		t.Errorf("Latest = %q, want %q", latest, names[2])
	}

	removed, err := w.Retain(1)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(removed, names[:2]) {
		t.Errorf("removed = %v, want %v", removed, names[:2])
	}
	left, _ := List(dir)
	if !reflect.DeepEqual(left, names[2:]) {
		t.Errorf("List = %v", left)
	}
}
