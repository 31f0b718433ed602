// Package indexer runs the indexing pipeline: documents are read and then
// normalized by a pool of workers over contiguous partitions, the
// per-partition results are recombined in partition order and the merged
// term sequences are folded into an inverted index on a single goroutine.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/corpus-indexer/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/corpus-indexer/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/corpus-indexer/internal/indexer/merger"
	"github.com/Adithya-Monish-Kumar-K/corpus-indexer/internal/indexer/partition"
	"github.com/Adithya-Monish-Kumar-K/corpus-indexer/internal/indexer/pool"
	"github.com/Adithya-Monish-Kumar-K/corpus-indexer/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/corpus-indexer/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/corpus-indexer/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/corpus-indexer/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/corpus-indexer/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/corpus-indexer/pkg/tracing"
)

// Pipeline stage names used in errors, logs and metrics.
const (
	StageRead      = "read"
	StageNormalize = "normalize"
	StageBuild     = "build"
)

// Result is the outcome of one pipeline run.
type Result struct {
	Index *index.InvertedIndex
	// Documents[id] is the name of document id.
	Documents []string
	// Skipped lists documents indexed as empty in lenient decode mode.
	Skipped []string
	Timings map[string]time.Duration
}

type Engine struct {
	cfg        config.PipelineConfig
	source     corpus.Source
	normalizer *tokenizer.Normalizer
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// NewEngine wires a pipeline. m may be nil.
func NewEngine(cfg config.PipelineConfig, source corpus.Source, normalizer *tokenizer.Normalizer, m *metrics.Metrics) (*Engine, error) {
	if cfg.Workers < 1 {
		return nil, fmt.Errorf("%w: worker count %d must be >= 1", apperrors.ErrInvalidPartition, cfg.Workers)
	}
	if cfg.FailurePolicy == "" {
		cfg.FailurePolicy = config.PolicyFailFast
	}
	return &Engine{
		cfg:        cfg,
		source:     source,
		normalizer: normalizer,
		metrics:    m,
		logger:     slog.Default().With("component", "indexer"),
	}, nil
}

// Run reads, normalizes and indexes the whole corpus.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	runID := logger.RunID(ctx)
	log := e.logger
	if runID != "" {
		log = log.With("run_id", runID)
	}
	ctx, root := tracing.StartRun(ctx, "index-run", runID)
	defer func() {
		root.End()
		root.Log(ctx, log)
	}()
	res := &Result{Timings: make(map[string]time.Duration)}

	names, err := e.source.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing corpus: %w", err)
	}
	log.Info("corpus listed", "documents", len(names), "workers", e.cfg.Workers)

	stageCtx, span := tracing.StartChild(ctx, StageRead)
	docs, skipped, err := e.acquire(stageCtx, names)
	e.observeStage(StageRead, span, res)
	if err != nil {
		return nil, err
	}
	res.Skipped = skipped
	res.Documents = make([]string, len(docs))
	for i, d := range docs {
		res.Documents[i] = d.Name
	}
	log.Info("documents read",
		"documents", len(docs),
		"skipped", len(skipped),
		"duration", res.Timings[StageRead],
	)

	stageCtx, span = tracing.StartChild(ctx, StageNormalize)
	seqs, err := e.preprocess(stageCtx, docs)
	e.observeStage(StageNormalize, span, res)
	if err != nil {
		return nil, err
	}
	log.Info("documents normalized", "documents", len(seqs), "duration", res.Timings[StageNormalize])

	_, span = tracing.StartChild(ctx, StageBuild)
	idx, err := index.Build(seqs, index.BuildOptions{RejectEmpty: e.cfg.RejectEmptyCorpus})
	e.observeStage(StageBuild, span, res)
	if err != nil {
		return nil, err
	}
	res.Index = idx
	if e.metrics != nil {
		e.metrics.IndexTerms.Set(float64(idx.Len()))
		e.metrics.IndexSizeBytes.Set(float64(idx.SizeBytes()))
	}
	log.Info("inverted index built",
		"terms", idx.Len(),
		"documents", idx.DocCount(),
		"size_bytes", idx.SizeBytes(),
		"duration", res.Timings[StageBuild],
	)
	return res, nil
}

type readItem struct {
	doc     corpus.Document
	skipped bool
}

// acquire reads every listed document; a document's id is its position in
// names. Skipped documents keep their id with empty text.
func (e *Engine) acquire(ctx context.Context, names []string) ([]corpus.Document, []string, error) {
	ranges, err := partition.Plan(len(names), e.cfg.Workers)
	if err != nil {
		return nil, nil, err
	}
	e.observePartitions(StageRead, ranges)

	slots, err := pool.Run(ctx, ranges, e.poolOptions(StageRead), func(ctx context.Context, r partition.Range) ([]readItem, error) {
		out := make([]readItem, 0, r.Len())
		for _, name := range names[r.Start:r.End] {
			text, err := e.source.Read(ctx, name)
			if err != nil {
				var de *apperrors.DecodeError
				if e.cfg.SkipUndecodable && errors.As(err, &de) {
					e.logger.Warn("skipping undecodable document", "document", name, "error", err)
					out = append(out, readItem{doc: corpus.Document{Name: name}, skipped: true})
					continue
				}
				return nil, err
			}
			out = append(out, readItem{doc: corpus.Document{Name: name, Text: text}})
		}
		return out, nil
	})
	if err != nil {
		e.countFailures(StageRead, err)
		return nil, nil, fmt.Errorf("reading corpus: %w", err)
	}

	items := merger.Concat(slots)
	docs := make([]corpus.Document, len(items))
	var skipped []string
	for i, it := range items {
		it.doc.ID = i
		docs[i] = it.doc
		if it.skipped {
			skipped = append(skipped, it.doc.Name)
		}
	}
	if e.metrics != nil {
		e.metrics.DocsReadTotal.Add(float64(len(docs) - len(skipped)))
		e.metrics.DocsSkippedTotal.Add(float64(len(skipped)))
	}
	return docs, skipped, nil
}

// preprocess turns every document into its term sequence; the result is
// indexed by document id.
func (e *Engine) preprocess(ctx context.Context, docs []corpus.Document) ([][]string, error) {
	ranges, err := partition.Plan(len(docs), e.cfg.Workers)
	if err != nil {
		return nil, err
	}
	e.observePartitions(StageNormalize, ranges)

	slots, err := pool.Run(ctx, ranges, e.poolOptions(StageNormalize), func(ctx context.Context, r partition.Range) ([][]string, error) {
		out := make([][]string, 0, r.Len())
		for _, doc := range docs[r.Start:r.End] {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			out = append(out, e.normalizer.Normalize(doc.Text))
		}
		return out, nil
	})
	if err != nil {
		e.countFailures(StageNormalize, err)
		return nil, fmt.Errorf("normalizing corpus: %w", err)
	}
	seqs := merger.Concat(slots)
	if len(seqs) != len(docs) {
		return nil, fmt.Errorf("normalizing corpus: merged %d sequences for %d documents", len(seqs), len(docs))
	}
	if e.metrics != nil {
		e.metrics.DocsNormalizedTotal.Add(float64(len(seqs)))
	}
	return seqs, nil
}

func (e *Engine) poolOptions(stage string) pool.Options {
	return pool.Options{
		Stage:   stage,
		Policy:  pool.Policy(e.cfg.FailurePolicy),
		Timeout: e.cfg.WorkerTimeout,
		Logger:  e.logger,
	}
}

func (e *Engine) observeStage(stage string, span *tracing.Span, res *Result) {
	d := span.End()
	res.Timings[stage] = d
	if e.metrics != nil {
		e.metrics.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
	}
}

func (e *Engine) observePartitions(stage string, ranges []partition.Range) {
	if e.metrics == nil {
		return
	}
	for _, r := range ranges {
		e.metrics.PartitionSize.WithLabelValues(stage).Observe(float64(r.Len()))
	}
}

func (e *Engine) countFailures(stage string, err error) {
	if e.metrics == nil {
		return
	}
	n := 1
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		n = len(joined.Unwrap())
	}
	e.metrics.WorkerFailuresTotal.WithLabelValues(stage).Add(float64(n))
}
