package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/corpus-indexer/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/corpus-indexer/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/corpus-indexer/internal/indexer/ranker"
	"github.com/Adithya-Monish-Kumar-K/corpus-indexer/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/corpus-indexer/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/corpus-indexer/internal/publish"
	"github.com/Adithya-Monish-Kumar-K/corpus-indexer/internal/report"
	"github.com/Adithya-Monish-Kumar-K/corpus-indexer/internal/stopwords"
	"github.com/Adithya-Monish-Kumar-K/corpus-indexer/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/corpus-indexer/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/corpus-indexer/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/corpus-indexer/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/corpus-indexer/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/corpus-indexer/pkg/redis"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	workers := flag.Int("workers", 0, "number of pipeline workers")
	top := flag.Int("top", 0, "number of top terms to display")
	corpusPath := flag.String("corpus", "", "corpus archive or directory")
	stopwordsPath := flag.String("stopwords", "", "stopword list (zip archive or text file)")
	outputPath := flag.String("output", "", "index output path")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(apperrors.ExitConfig)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "workers":
			cfg.Pipeline.Workers = *workers
		case "top":
			cfg.Pipeline.TopN = *top
		case "corpus":
			cfg.Corpus.Path = *corpusPath
		case "stopwords":
			cfg.Stopwords.Path = *stopwordsPath
		case "output":
			cfg.Output.Path = *outputPath
		}
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(apperrors.ExitCode(err))
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg, os.Stdout)
	stop()
	if err != nil {
		slog.Error("indexing failed", "error", err)
		os.Exit(apperrors.ExitCode(err))
	}
}

// run indexes the configured corpus and writes the report to out.
func run(ctx context.Context, cfg *config.Config, out io.Writer) error {
	runID := uuid.NewString()
	ctx = logger.WithRunID(ctx, runID)
	log := logger.FromContext(ctx)
	log.Info("starting indexer",
		"workers", cfg.Pipeline.Workers,
		"policy", cfg.Pipeline.FailurePolicy,
		"corpus", cfg.Corpus.Path,
		"source", cfg.Corpus.Source,
	)

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	if cfg.Metrics.Enabled {
		shutdown := metrics.StartServer(cfg.Metrics.Port, reg)
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			shutdown(sctx)
		}()
	}

	stop, err := stopwords.Load(cfg.Stopwords.Path, cfg.Stopwords.Member)
	if err != nil {
		return err
	}
	log.Info("stopwords loaded", "count", stop.Len())

	source, err := corpus.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer source.Close()

	engine, err := indexer.NewEngine(cfg.Pipeline, source, tokenizer.New(stop), m)
	if err != nil {
		return err
	}
	result, err := engine.Run(ctx)
	if err != nil {
		return err
	}
	idx := result.Index

	if err := segment.Save(cfg.Output.Path, cfg.Output.Format, idx); err != nil {
		return err
	}
	log.Info("index saved", "path", cfg.Output.Path, "format", cfg.Output.Format)

	err = report.Write(out, report.Summary{
		Workers:    cfg.Pipeline.Workers,
		Documents:  len(result.Documents),
		Skipped:    len(result.Skipped),
		Top:        ranker.TopN(idx, cfg.Pipeline.TopN),
		Requested:  cfg.Pipeline.TopN,
		Terms:      idx.Len(),
		SizeBytes:  idx.SizeBytes(),
		OutputPath: cfg.Output.Path,
		Timings:    result.Timings,
	})
	if err != nil {
		return fmt.Errorf("%w: writing report: %w", apperrors.ErrIO, err)
	}

	if cfg.Redis.Enabled {
		client, err := redis.NewClient(ctx, cfg.Redis)
		if err != nil {
			return fmt.Errorf("%w: %w", apperrors.ErrIO, err)
		}
		defer client.Close()
		if err := publish.NewRedisPublisher(client, cfg.Redis).Publish(ctx, runID, idx, cfg.Output.Path); err != nil {
			return fmt.Errorf("%w: publishing index: %w", apperrors.ErrIO, err)
		}
	}

	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.IndexComplete)
		defer producer.Close()
		err := publish.NewKafkaNotifier(producer).Notify(ctx, publish.IndexCompleteEvent{
			RunID:     runID,
			Terms:     idx.Len(),
			Documents: len(result.Documents),
			Skipped:   len(result.Skipped),
			Output:    cfg.Output.Path,
		})
		if err != nil {
			return fmt.Errorf("%w: %w", apperrors.ErrIO, err)
		}
	}

	log.Info("indexer finished", "terms", idx.Len())
	return nil
}
