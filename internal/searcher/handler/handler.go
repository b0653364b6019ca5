// Package handler exposes the search API over HTTP. Every request runs
// against the snapshot current when it arrived, so a reload never changes
// an answer half way through.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/textindex/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/textindex/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/textindex/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/textindex/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/textindex/internal/searcher/reload"
	apperrors "github.com/Adithya-Monish-Kumar-K/textindex/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/middleware"
)

// Snapshots yields the index snapshot to serve and swaps in newer ones.
type Snapshots interface {
	Current() *reload.Snapshot
	LoadLatest(ctx context.Context, trigger string) (bool, error)
}

type Handler struct {
	snapshots    Snapshots
	cache        *cache.QueryCache
	defaultLimit int
	maxResults   int
	timeout      time.Duration
	metrics      *metrics.Metrics
	logger       *slog.Logger
}

// New creates a Handler. queryCache and m may be nil.
func New(snapshots Snapshots, queryCache *cache.QueryCache, m *metrics.Metrics, defaultLimit, maxResults int) *Handler {
	return &Handler{
		snapshots:    snapshots,
		cache:        queryCache,
		defaultLimit: defaultLimit,
		maxResults:   maxResults,
		metrics:      m,
		logger:       logger.WithComponent("search-handler"),
	}
}

// SetSearchTimeout bounds the execution of each search. Zero means the
// request context alone applies.
func (h *Handler) SetSearchTimeout(d time.Duration) {
	h.timeout = d
}

// Register mounts the API routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/vocabulary", h.Vocabulary)
	mux.HandleFunc("GET /api/v1/index", h.IndexInfo)
	mux.HandleFunc("POST /api/v1/index/reload", h.Reload)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}
	log := logger.FromContext(ctx)

	raw := r.URL.Query().Get("q")
	if raw == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}
	limit, ok := h.limit(w, r)
	if !ok {
		return
	}
	q, err := parser.Parse(raw)
	if err != nil {
		h.writeFailure(w, err, "search failed")
		return
	}
	snap := h.snapshots.Current()
	if snap == nil {
		h.writeError(w, http.StatusServiceUnavailable, "no index loaded")
		return
	}

	var result *executor.SearchResult
	cacheStatus := "disabled"
	if h.cache != nil {
		var hit bool
		result, hit, err = h.cache.GetOrCompute(ctx, snap.Generation, q, limit, func() (*executor.SearchResult, error) {
			return snap.Executor.Execute(ctx, q, limit)
		})
		cacheStatus = "miss"
		if hit {
			cacheStatus = "hit"
		}
	} else {
		result, err = snap.Executor.Execute(ctx, q, limit)
	}
	if err != nil {
		log.Warn("search failed", "query", raw, "error", err)
		h.writeFailure(w, err, "search failed")
		return
	}

	elapsed := time.Since(start)
	if h.metrics != nil {
		h.metrics.SearchLatency.WithLabelValues(cacheStatus).Observe(elapsed.Seconds())
	}
	log.Info("search completed",
		"query", raw,
		"total_hits", result.TotalHits,
		"returned", len(result.Results),
		"cache", cacheStatus,
		"generation", snap.Generation,
		"latency_ms", elapsed.Milliseconds(),
		"request_id", middleware.GetRequestID(ctx),
	)
	h.writeJSON(w, http.StatusOK, result)
}

// Vocabulary lists index terms matching ?pattern= (wildcards) or within
// ?distance= edits of ?term=.
func (h *Handler) Vocabulary(w http.ResponseWriter, r *http.Request) {
	snap := h.snapshots.Current()
	if snap == nil {
		h.writeError(w, http.StatusServiceUnavailable, "no index loaded")
		return
	}
	ts := snap.Executor.Index().TokenSet()
	params := r.URL.Query()

	var terms []string
	switch {
	case params.Has("pattern"):
		terms = ts.Wildcard(tokenizer.Normalize(params.Get("pattern")))
	case params.Has("term"):
		distance := 1
		if s := params.Get("distance"); s != "" {
			d, err := strconv.Atoi(s)
			if err != nil {
				h.writeError(w, http.StatusBadRequest, "distance must be an integer")
				return
			}
			distance = d
		}
		var err error
		if terms, err = ts.Fuzzy(tokenizer.Normalize(params.Get("term")), distance); err != nil {
			h.writeFailure(w, err, "search failed")
			return
		}
	default:
		h.writeError(w, http.StatusBadRequest, "one of 'pattern' or 'term' is required")
		return
	}
	if terms == nil {
		terms = []string{}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"terms": terms,
		"count": len(terms),
	})
}

// IndexInfo describes the snapshot being served.
func (h *Handler) IndexInfo(w http.ResponseWriter, r *http.Request) {
	snap := h.snapshots.Current()
	if snap == nil {
		h.writeError(w, http.StatusServiceUnavailable, "no index loaded")
		return
	}
	idx := snap.Executor.Index()
	h.writeJSON(w, http.StatusOK, map[string]any{
		"generation":      snap.Generation,
		"loaded_at":       snap.LoadedAt.UTC().Format(time.RFC3339),
		"documents":       idx.DocumentCount(),
		"terms":           idx.TermCount(),
		"ref":             idx.Ref(),
		"fields":          idx.FieldNames(),
		"pipeline":        idx.PipelineNames(),
		"search_pipeline": idx.SearchPipelineNames(),
	})
}

// Reload loads the newest index file of the data directory if it is not
// already being served.
func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	loaded, err := h.snapshots.LoadLatest(r.Context(), reload.TriggerManual)
	if err != nil {
		logger.FromContext(r.Context()).Warn("manual reload failed", "error", err)
		h.writeFailure(w, err, "reload failed")
		return
	}
	resp := map[string]any{"reloaded": loaded}
	if snap := h.snapshots.Current(); snap != nil {
		resp["generation"] = snap.Generation
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}
	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func (h *Handler) limit(w http.ResponseWriter, r *http.Request) (int, bool) {
	limit := h.defaultLimit
	s := r.URL.Query().Get("limit")
	if s == "" {
		return limit, true
	}
	parsed, err := strconv.Atoi(s)
	if err != nil || parsed < 1 {
		h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
		return 0, false
	}
	if h.maxResults > 0 && parsed > h.maxResults {
		parsed = h.maxResults
	}
	return parsed, true
}

// writeFailure maps an error kind to its status. Parse errors carry the
// offending offset; server-side failures are reported as fallback.
func (h *Handler) writeFailure(w http.ResponseWriter, err error, fallback string) {
	var pe *parser.ParseError
	if errors.As(err, &pe) {
		h.writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":    pe.Reason,
			"offset":   pe.Offset,
			"fragment": pe.Fragment,
		})
		return
	}
	if errors.Is(err, context.DeadlineExceeded) {
		h.writeError(w, http.StatusGatewayTimeout, "search timed out")
		return
	}
	status := apperrors.HTTPStatusCode(err)
	message := err.Error()
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "error", err)
		message = fallback
	}
	h.writeError(w, status, message)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
