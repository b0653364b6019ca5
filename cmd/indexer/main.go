package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/textindex/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/textindex/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/textindex/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/textindex/internal/ingestion/source"
	"github.com/Adithya-Monish-Kumar-K/textindex/internal/pipeline"
	"github.com/Adithya-Monish-Kumar-K/textindex/internal/pipeline/english"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/resilience"
)

func main() {
	configPath := flag.String("config", "", "path to config file (defaults and TI_* variables when empty)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(logger.Options{Service: "indexer", Level: cfg.Logging.Level, Format: cfg.Logging.Format})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(nil)
	if cfg.Metrics.Enabled {
		metricsServer := metrics.NewServer(cfg.Metrics.Port, nil)
		metricsServer.Start()
		defer metricsServer.Shutdown(5 * time.Second)
	}

	if err := run(ctx, cfg, m); err != nil {
		slog.Error("indexing failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, m *metrics.Metrics) error {
	log := logger.WithComponent("indexer")
	log.Info("starting indexer",
		"source", cfg.Source.Kind,
		"data_dir", cfg.Index.DataDir,
		"fields", len(cfg.Index.Fields),
	)

	b, err := newBuilder(cfg.Index, m)
	if err != nil {
		return err
	}
	src, err := source.Open(ctx, cfg.Source, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("opening source: %w", err)
	}
	defer src.Close()

	var added, rejected int
	err = src.Read(ctx, cfg.Source.BatchSize, func(batch []indexer.Document) error {
		err := b.AddDocuments(ctx, batch)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		failed := unwrapAll(err)
		for _, e := range failed {
			log.Warn("document rejected", "error", e)
		}
		added += len(batch) - len(failed)
		rejected += len(failed)
		return nil
	}, func(err error) {
		log.Warn("document rejected", "error", err)
		m.DocsRejectedTotal.WithLabelValues("malformed").Inc()
		rejected++
	})
	if err != nil {
		return fmt.Errorf("reading documents: %w", err)
	}
	log.Info("documents read", "added", added, "rejected", rejected)

	idx, err := b.Build()
	if err != nil {
		return err
	}
	name, err := publishFile(cfg.Index, idx)
	if err != nil {
		return err
	}
	if !cfg.Kafka.Enabled {
		return nil
	}
	return announce(ctx, cfg.Kafka, name, idx)
}

// newBuilder turns the index section into a configured builder. The
// language selects the default pipelines when none are listed.
func newBuilder(cfg config.IndexConfig, m *metrics.Metrics) (*indexer.Builder, error) {
	indexStages, searchStages := cfg.Pipeline, cfg.SearchPipeline
	if cfg.Language == "english" {
		if len(indexStages) == 0 {
			indexStages = english.IndexStages
		}
		if len(searchStages) == 0 {
			searchStages = english.SearchStages
		}
	}
	opts := []indexer.Option{
		indexer.WithRegistry(pipeline.Default),
		indexer.WithRef(cfg.Ref),
		indexer.WithPipeline(indexStages...),
		indexer.WithSearchPipeline(searchStages...),
		indexer.WithMetrics(m),
	}
	if cfg.BoostField != "" {
		opts = append(opts, indexer.WithDocumentBoostField(cfg.BoostField))
	}
	b, err := indexer.NewBuilder(opts...)
	if err != nil {
		return nil, err
	}
	for _, f := range cfg.Fields {
		var fieldOpts []indexer.FieldOption
		if f.Boost > 0 {
			fieldOpts = append(fieldOpts, indexer.WithBoost(f.Boost))
		}
		if f.Positions {
			fieldOpts = append(fieldOpts, indexer.WithTermPositions())
		}
		if err := b.AddField(f.Name, fieldOpts...); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func publishFile(cfg config.IndexConfig, idx *index.Index) (string, error) {
	w := segment.NewWriter(cfg.DataDir)
	name, err := w.Write(idx)
	if err != nil {
		return "", fmt.Errorf("writing index: %w", err)
	}
	slog.Info("index written",
		"path", filepath.Join(cfg.DataDir, name),
		"documents", idx.DocumentCount(),
		"terms", idx.TermCount(),
	)
	removed, err := w.Retain(cfg.Retain)
	if err != nil {
		slog.Warn("pruning old index files failed", "error", err)
	} else if len(removed) > 0 {
		slog.Info("old index files removed", "files", removed)
	}
	return name, nil
}

func announce(ctx context.Context, cfg config.KafkaConfig, name string, idx *index.Index) error {
	producer := kafka.NewProducer(cfg, cfg.Topics.IndexPublished)
	defer producer.Close()
	event := kafka.Event{
		Key: name,
		Value: segment.Published{
			Name:      name,
			DocCount:  idx.DocumentCount(),
			TermCount: idx.TermCount(),
			CreatedAt: time.Now().UTC(),
		},
	}
	retry := resilience.RetryConfig{MaxAttempts: 5, InitialDelay: 200 * time.Millisecond, JitterFraction: 0.1}
	err := resilience.Retry(ctx, "publish index", retry, func() error {
		return producer.Publish(ctx, event)
	})
	if err != nil {
		return fmt.Errorf("announcing %s: %w", name, err)
	}
	slog.Info("index announced", "topic", cfg.Topics.IndexPublished, "name", name)
	return nil
}

func unwrapAll(err error) []error {
	if err == nil {
		return nil
	}
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		return joined.Unwrap()
	}
	return []error{err}
}
