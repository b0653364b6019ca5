// Package source reads documents for the indexer from a JSON-lines file or
// a SQL query and hands them over in batches.
package source

import (
	"context"

	"github.com/Adithya-Monish-Kumar-K/textindex/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/textindex/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/postgres"
)

const (
	KindJSONL    = "jsonl"
	KindPostgres = "postgres"
	KindSQLite   = "sqlite3"

	defaultBatchSize = 500
)

// BatchFunc receives each batch in source order. Returning an error stops
// the read.
type BatchFunc func(batch []indexer.Document) error

// RejectFunc receives a record that could not be decoded into a document.
// The read continues with the next record. A nil RejectFunc drops them.
type RejectFunc func(err error)

type Source interface {
	Read(ctx context.Context, batchSize int, fn BatchFunc, reject RejectFunc) error
	Close() error
}

// Open builds the source described by cfg. pg is only used for the
// postgres kind.
func Open(ctx context.Context, cfg config.SourceConfig, pg config.PostgresConfig) (Source, error) {
	switch cfg.Kind {
	case KindJSONL:
		return NewJSONL(cfg.Path), nil
	case KindSQLite:
		return OpenSQLite(cfg.Path, cfg.Query)
	case KindPostgres:
		client, err := postgres.New(ctx, pg)
		if err != nil {
			return nil, err
		}
		return NewPostgres(client, cfg.Query), nil
	default:
		return nil, apperrors.Configuration("unknown source kind %q", cfg.Kind)
	}
}

// batcher accumulates documents and flushes them to fn.
type batcher struct {
	size  int
	fn    BatchFunc
	batch []indexer.Document
}

func newBatcher(size int, fn BatchFunc) *batcher {
	if size <= 0 {
		size = defaultBatchSize
	}
	return &batcher{size: size, fn: fn, batch: make([]indexer.Document, 0, size)}
}

func (b *batcher) add(doc indexer.Document) error {
	b.batch = append(b.batch, doc)
	if len(b.batch) < b.size {
		return nil
	}
	return b.flush()
}

func (b *batcher) flush() error {
	if len(b.batch) == 0 {
		return nil
	}
	err := b.fn(b.batch)
	b.batch = make([]indexer.Document, 0, b.size)
	return err
}
