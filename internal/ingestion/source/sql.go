package source

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Adithya-Monish-Kumar-K/textindex/internal/indexer"
	apperrors "github.com/Adithya-Monish-Kumar-K/textindex/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/postgres"
)

// SQL runs one query inside a transaction and turns every row into a
// document keyed by column name. The whole read sees one snapshot.
type SQL struct {
	query string
	inTx  func(ctx context.Context, fn func(*sql.Tx) error) error
	close func() error
}

// NewPostgres reads through a read-only transaction on client.
func NewPostgres(client *postgres.Client, query string) *SQL {
	return &SQL{
		query: query,
		inTx: func(ctx context.Context, fn func(*sql.Tx) error) error {
			return client.InTx(ctx, &sql.TxOptions{ReadOnly: true}, fn)
		},
		close: client.Close,
	}
}

// OpenSQLite opens the database file at path.
func OpenSQLite(path, query string) (*SQL, error) {
	if path == "" {
		return nil, apperrors.Configuration("sqlite source needs a path")
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite %s: %w", path, err)
	}
	return &SQL{
		query: query,
		inTx: func(ctx context.Context, fn func(*sql.Tx) error) error {
			tx, err := db.BeginTx(ctx, nil)
			if err != nil {
				return fmt.Errorf("beginning transaction: %w", err)
			}
			defer tx.Rollback()
			return fn(tx)
		},
		close: db.Close,
	}, nil
}

// Read never rejects: every scanned row becomes a document.
func (s *SQL) Read(ctx context.Context, batchSize int, fn BatchFunc, _ RejectFunc) error {
	if s.query == "" {
		return apperrors.Configuration("sql source needs a query")
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, s.query)
		if err != nil {
			return fmt.Errorf("querying documents: %w", err)
		}
		defer rows.Close()

		columns, err := rows.Columns()
		if err != nil {
			return fmt.Errorf("reading columns: %w", err)
		}
		values := make([]any, len(columns))
		dest := make([]any, len(columns))
		for i := range values {
			dest[i] = &values[i]
		}
		b := newBatcher(batchSize, fn)
		for rows.Next() {
			if err := rows.Scan(dest...); err != nil {
				return fmt.Errorf("scanning row: %w", err)
			}
			doc := make(indexer.Document, len(columns))
			for i, col := range columns {
				switch v := values[i].(type) {
				case nil:
				case []byte:
					doc[col] = string(v)
				default:
					doc[col] = v
				}
			}
			if err := b.add(doc); err != nil {
				return err
			}
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterating rows: %w", err)
		}
		return b.flush()
	})
}

func (s *SQL) Close() error {
	return s.close()
}
