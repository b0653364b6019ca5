// Package reload keeps the searcher serving the newest index file in a data
// directory. A Holder owns the current snapshot; a file watcher and a Kafka
// listener both ask it to load the latest file when a new one appears.
package reload

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/textindex/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/textindex/internal/pipeline"
	"github.com/Adithya-Monish-Kumar-K/textindex/internal/searcher/executor"
	apperrors "github.com/Adithya-Monish-Kumar-K/textindex/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/metrics"
)

// Reload triggers, used as the metrics label.
const (
	TriggerStartup = "startup"
	TriggerWatch   = "watch"
	TriggerKafka   = "kafka"
	TriggerManual  = "manual"
)

// Snapshot is one loaded index file and the executor serving it.
type Snapshot struct {
	Executor   *executor.Executor
	Path       string
	Generation string
	Header     segment.Header
	LoadedAt   time.Time
}

// Invalidator drops results computed against an older snapshot.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

type Holder struct {
	dataDir     string
	registry    *pipeline.Registry
	execOpts    []executor.Option
	invalidator Invalidator
	metrics     *metrics.Metrics
	logger      *slog.Logger

	current atomic.Pointer[Snapshot]
	mu      sync.Mutex
}

type Option func(*Holder)

func WithExecutorOptions(opts ...executor.Option) Option {
	return func(h *Holder) { h.execOpts = append(h.execOpts, opts...) }
}

// WithInvalidator registers a cache to flush after every successful swap.
func WithInvalidator(inv Invalidator) Option {
	return func(h *Holder) { h.invalidator = inv }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Holder) { h.metrics = m }
}

// NewHolder creates an empty holder for index files in dataDir. Stage names
// stored in the files are resolved against reg.
func NewHolder(dataDir string, reg *pipeline.Registry, opts ...Option) *Holder {
	h := &Holder{
		dataDir:  dataDir,
		registry: reg,
		logger:   logger.WithComponent("index-reload"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Current returns the snapshot being served, or nil before the first load.
func (h *Holder) Current() *Snapshot {
	return h.current.Load()
}

// LoadLatest swaps in the newest index file of the data directory. It
// reports false when that file is already being served.
func (h *Holder) LoadLatest(ctx context.Context, trigger string) (bool, error) {
	path, err := segment.Latest(h.dataDir)
	if err != nil {
		h.record(trigger, "error")
		return false, err
	}
	if path == "" {
		h.record(trigger, "error")
		return false, apperrors.Newf(apperrors.ErrNotFound, 404, "no index files in %s", h.dataDir)
	}
	return h.Load(ctx, path, trigger)
}

// Load opens path and makes it the current snapshot. A failed load leaves
// the previous snapshot in place.
func (h *Holder) Load(ctx context.Context, path, trigger string) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if cur := h.current.Load(); cur != nil && cur.Path == path {
		h.record(trigger, "unchanged")
		return false, nil
	}
	start := time.Now()
	idx, header, err := segment.Open(path, h.registry)
	if err != nil {
		h.record(trigger, "error")
		h.logger.Error("index load failed", "path", path, "trigger", trigger, "error", err)
		return false, fmt.Errorf("loading index: %w", err)
	}
	snap := &Snapshot{
		Executor:   executor.New(idx, h.execOpts...),
		Path:       path,
		Generation: filepath.Base(path),
		Header:     header,
		LoadedAt:   time.Now(),
	}
	h.current.Store(snap)
	h.record(trigger, "success")
	if h.metrics != nil {
		h.metrics.IndexDocuments.Set(float64(idx.DocumentCount()))
		h.metrics.VocabularySize.Set(float64(idx.TermCount()))
	}
	if h.invalidator != nil {
		if err := h.invalidator.Invalidate(ctx); err != nil {
			h.logger.Warn("cache invalidation after reload failed", "error", err)
		}
	}
	h.logger.Info("index loaded",
		"path", path,
		"trigger", trigger,
		"documents", idx.DocumentCount(),
		"terms", idx.TermCount(),
		"duration", time.Since(start),
	)
	return true, nil
}

func (h *Holder) record(trigger, status string) {
	if h.metrics != nil {
		h.metrics.IndexReloadsTotal.WithLabelValues(trigger, status).Inc()
	}
}
