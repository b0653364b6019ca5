package source

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/textindex/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/textindex/pkg/errors"
)

func collect(t *testing.T, src Source, batchSize int) [][]indexer.Document {
	t.Helper()
	var batches [][]indexer.Document
	err := src.Read(context.Background(), batchSize, func(batch []indexer.Document) error {
		batches = append(batches, batch)
		return nil
	}, func(err error) {
		t.Errorf("unexpected rejection: %v", err)
	})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	return batches
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "docs.jsonl")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestJSONLBatches(t *testing.T) {
	path := writeFile(t, `{"ref":"a","title":"France"}

{"ref":"b","title":"Germany","boost":2}
{"ref":"c","tags":["x","y"]}
`)
	batches := collect(t, NewJSONL(path), 2)
	if len(batches) != 2 || len(batches[0]) != 2 || len(batches[1]) != 1 {
		t.Fatalf("batch sizes = %v", batches)
	}
	if got := batches[0][1]["boost"]; got != 2.0 {
		t.Errorf("boost = %v (%T)", got, got)
	}
	if got := batches[1][0]["ref"]; got != "c" {
		t.Errorf("ref = %v", got)
	}
}

func TestJSONLMalformedLineIsRejected(t *testing.T) {
	path := writeFile(t, "{\"ref\":\"a\"}\n{oops\n[1,2]\n{\"ref\":\"b\"}\n")
	var (
		docs     []indexer.Document
		rejected []error
	)
	err := NewJSONL(path).Read(context.Background(), 10, func(batch []indexer.Document) error {
		docs = append(docs, batch...)
		return nil
	}, func(err error) {
		rejected = append(rejected, err)
	})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(docs) != 2 || docs[0]["ref"] != "a" || docs[1]["ref"] != "b" {
		t.Errorf("documents = %v, want a and b", docs)
	}
	if len(rejected) != 2 {
		t.Fatalf("rejected = %v, want 2 errors", rejected)
	}
	for _, err := range rejected {
		if !apperrors.IsValidation(err) {
			t.Errorf("rejection %v is not a ValidationError", err)
		}
	}
	if !strings.Contains(rejected[0].Error(), "line 2") || !strings.Contains(rejected[1].Error(), "line 3") {
		t.Errorf("rejections = %v, want lines 2 and 3", rejected)
	}
}

func TestJSONLStopsOnCallbackError(t *testing.T) {
	path := writeFile(t, "{\"ref\":\"a\"}\n{\"ref\":\"b\"}\n{\"ref\":\"c\"}\n")
	stop := errors.New("stop")
	calls := 0
	err := NewJSONL(path).Read(context.Background(), 1, func([]indexer.Document) error {
		calls++
		return stop
	}, nil)
	if !errors.Is(err, stop) || calls != 1 {
		t.Fatalf("err = %v, calls = %d", err, calls)
	}
}

func TestSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docs.db")
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatal(err)
	}
	stmts := []string{
		`CREATE TABLE docs (ref TEXT, title TEXT, body TEXT, boost REAL)`,
		`INSERT INTO docs VALUES ('a', 'France', NULL, 1.5)`,
		`INSERT INTO docs VALUES ('b', 'Germany', 'Berlin', NULL)`,
		`INSERT INTO docs VALUES ('c', 'Italy', 'Rome', 2)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("%s: %v", stmt, err)
		}
	}
	db.Close()

	src, err := OpenSQLite(path, `SELECT ref, title, body, boost FROM docs ORDER BY ref`)
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()
	batches := collect(t, src, 2)
	if len(batches) != 2 {
		t.Fatalf("got %d batches, want 2", len(batches))
	}
	first := batches[0][0]
	if first["ref"] != "a" || first["title"] != "France" || first["boost"] != 1.5 {
		t.Errorf("first row = %v", first)
	}
	if _, ok := first["body"]; ok {
		t.Error("NULL column should be absent from the document")
	}
	if got := batches[1][0]["body"]; got != "Rome" {
		t.Errorf("body = %v", got)
	}
}

func TestOpenUnknownKind(t *testing.T) {
	_, err := Open(context.Background(), config.SourceConfig{Kind: "csv"}, config.PostgresConfig{})
	if !apperrors.IsConfiguration(err) {
		t.Fatalf("err = %v, want ConfigurationError", err)
	}
	if _, err := OpenSQLite("", "SELECT 1"); !apperrors.IsConfiguration(err) {
		t.Fatalf("empty path: err = %v", err)
	}
}
