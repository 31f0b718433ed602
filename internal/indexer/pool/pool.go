// Package pool runs one task per partition concurrently. Every worker
// writes only to its own result slot and Run returns after all workers have
// finished.
package pool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/corpus-indexer/internal/indexer/partition"
	apperrors "github.com/Adithya-Monish-Kumar-K/corpus-indexer/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/corpus-indexer/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/corpus-indexer/pkg/tracing"
	"golang.org/x/sync/errgroup"
)

// Policy decides what Run does when a worker fails.
type Policy string

const (
	// FailFast cancels the remaining workers on the first failure and
	// returns that failure.
	FailFast Policy = "fail-fast"
	// CollectAll lets every worker finish and returns all failures joined.
	CollectAll Policy = "collect-all"
)

// Task processes the items of one partition.
type Task[T any] func(ctx context.Context, r partition.Range) ([]T, error)

type Options struct {
	// Stage names the pipeline stage in errors and logs.
	Stage   string
	Policy  Policy
	Timeout time.Duration
	Logger  *slog.Logger
}

// Run executes task once per range and returns the per-range results in
// range order. Slots of failed workers are nil. On failure the error is a
// *errors.WorkerError (FailFast) or a join of them (CollectAll); completed
// slots are returned alongside it.
func Run[T any](ctx context.Context, ranges []partition.Range, opts Options, task Task[T]) ([][]T, error) {
	if opts.Policy == "" {
		opts.Policy = FailFast
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default().With("component", "worker-pool")
	}
	slots := make([][]T, len(ranges))

	switch opts.Policy {
	case FailFast:
		g, gctx := errgroup.WithContext(ctx)
		for i, r := range ranges {
			i, r := i, r
			g.Go(func() error {
				out, err := runWorker(gctx, r, opts, task)
				if err != nil {
					return err
				}
				slots[i] = out
				return nil
			})
		}
		err := g.Wait()
		return slots, err
	case CollectAll:
		errs := make([]error, len(ranges))
		var wg sync.WaitGroup
		for i, r := range ranges {
			i, r := i, r
			wg.Add(1)
			go func() {
				defer wg.Done()
				out, err := runWorker(ctx, r, opts, task)
				if err != nil {
					errs[i] = err
					return
				}
				slots[i] = out
			}()
		}
		wg.Wait()
		return slots, errors.Join(errs...)
	default:
		return nil, fmt.Errorf("unknown pool policy %q", opts.Policy)
	}
}

func runWorker[T any](ctx context.Context, r partition.Range, opts Options, task Task[T]) ([]T, error) {
	ctx, span := tracing.StartChild(ctx, "worker", "partition", r.Index, "start", r.Start, "end", r.End)
	name := fmt.Sprintf("%s worker %d", opts.Stage, r.Index)
	out, err := resilience.WithTimeoutValue(ctx, opts.Timeout, name, func(ctx context.Context) (res []T, err error) {
		defer func() {
			if p := recover(); p != nil {
				res, err = nil, fmt.Errorf("panic: %v", p)
			}
		}()
		return task(ctx, r)
	})
	elapsed := span.End()
	if err != nil {
		span.SetAttr("error", err.Error())
		level := slog.LevelError
		// Siblings stopped by a fail-fast cancellation are not failures of
		// their own.
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			level = slog.LevelDebug
		}
		opts.Logger.Log(ctx, level, "worker failed",
			"stage", opts.Stage,
			"partition", r.Index,
			"start", r.Start,
			"end", r.End,
			"error", err,
		)
		return nil, &apperrors.WorkerError{
			Stage:     opts.Stage,
			Partition: r.Index,
			Start:     r.Start,
			End:       r.End,
			Err:       err,
		}
	}
	opts.Logger.Debug("worker finished",
		"stage", opts.Stage,
		"partition", r.Index,
		"items", len(out),
		"duration", elapsed,
	)
	return out, nil
}
