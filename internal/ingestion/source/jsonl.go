package source

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/Adithya-Monish-Kumar-K/textindex/internal/indexer"
	apperrors "github.com/Adithya-Monish-Kumar-K/textindex/pkg/errors"
)

const maxLineSize = 16 << 20

// JSONL reads one JSON object per line. Blank lines are skipped; a line that
// is not a JSON object is rejected as a ValidationError.
type JSONL struct {
	path string
}

func NewJSONL(path string) *JSONL {
	return &JSONL{path: path}
}

func (j *JSONL) Read(ctx context.Context, batchSize int, fn BatchFunc, reject RejectFunc) error {
	f, err := os.Open(j.path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", j.path, err)
	}
	defer f.Close()

	b := newBatcher(batchSize, fn)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		if line%1000 == 0 && ctx.Err() != nil {
			return ctx.Err()
		}
		var doc indexer.Document
		if err := json.Unmarshal(raw, &doc); err != nil {
			if reject != nil {
				reject(apperrors.Validation("%s line %d: %v", j.path, line, err))
			}
			continue
		}
		if err := b.add(doc); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading %s: %w", j.path, err)
	}
	return b.flush()
}

func (j *JSONL) Close() error { return nil }
