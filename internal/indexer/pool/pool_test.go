package pool

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/corpus-indexer/internal/indexer/partition"
	apperrors "github.com/Adithya-Monish-Kumar-K/corpus-indexer/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func identity(ctx context.Context, r partition.Range) ([]int, error) {
	out := make([]int, 0, r.Len())
	for i := r.Start; i < r.End; i++ {
		out = append(out, i)
	}
	return out, nil
}

func plan(t *testing.T, n, w int) []partition.Range {
	t.Helper()
	ranges, err := partition.Plan(n, w)
	require.NoError(t, err)
	return ranges
}

func TestRunFillsSlotsInRangeOrder(t *testing.T) {
	for _, policy := range []Policy{FailFast, CollectAll} {
		t.Run(string(policy), func(t *testing.T) {
			ranges := plan(t, 103, 7)
			slots, err := Run(context.Background(), ranges, Options{Stage: "test", Policy: policy}, identity)
			require.NoError(t, err)
			require.Len(t, slots, 7)
			for i, r := range ranges {
				require.Len(t, slots[i], r.Len())
				if r.Len() > 0 {
					assert.Equal(t, r.Start, slots[i][0])
					assert.Equal(t, r.End-1, slots[i][len(slots[i])-1])
				}
			}
		})
	}
}

func TestRunFailFastCancelsSiblings(t *testing.T) {
	ranges := plan(t, 4, 4)
	boom := errors.New("malformed document")
	cancelled := make(chan struct{}, len(ranges))

	_, err := Run(context.Background(), ranges, Options{Stage: "read"}, func(ctx context.Context, r partition.Range) ([]int, error) {
		if r.Index == 2 {
			return nil, boom
		}
		select {
		case <-ctx.Done():
			cancelled <- struct{}{}
			return nil, ctx.Err()
		case <-time.After(5 * time.Second):
			return nil, nil
		}
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, err, apperrors.ErrWorkerFailure)

	var we *apperrors.WorkerError
	require.True(t, errors.As(err, &we))
	assert.Equal(t, "read", we.Stage)
	assert.Equal(t, 2, we.Partition)
	assert.Equal(t, 2, we.Start)
	assert.Equal(t, 3, we.End)
	assert.Len(t, cancelled, 3)
}

func TestRunCollectAllKeepsCompletedSlots(t *testing.T) {
	ranges := plan(t, 6, 3)
	slots, err := Run(context.Background(), ranges, Options{Stage: "normalize", Policy: CollectAll}, func(ctx context.Context, r partition.Range) ([]int, error) {
		if r.Index != 1 {
			return nil, errors.New("bad partition")
		}
		return identity(ctx, r)
	})
	require.Error(t, err)

	var joined interface{ Unwrap() []error }
	require.True(t, errors.As(err, &joined))
	assert.Len(t, joined.Unwrap(), 2)

	assert.Nil(t, slots[0])
	assert.Equal(t, []int{2, 3}, slots[1])
	assert.Nil(t, slots[2])
}

func TestRunWorkerTimeout(t *testing.T) {
	ranges := plan(t, 2, 1)
	_, err := Run(context.Background(), ranges, Options{Stage: "read", Timeout: 20 * time.Millisecond}, func(ctx context.Context, r partition.Range) ([]int, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrWorkerTimeout)
	assert.Equal(t, apperrors.ExitTimeout, apperrors.ExitCode(err))
}

func TestRunRecoversPanics(t *testing.T) {
	ranges := plan(t, 2, 2)
	_, err := Run(context.Background(), ranges, Options{Stage: "normalize"}, func(ctx context.Context, r partition.Range) ([]int, error) {
		if r.Index == 1 {
			panic("index out of range")
		}
		return identity(ctx, r)
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrWorkerFailure)
	assert.Contains(t, err.Error(), "panic: index out of range")
}

func TestRunUnknownPolicy(t *testing.T) {
	_, err := Run(context.Background(), plan(t, 1, 1), Options{Policy: "sometimes"}, identity)
	require.Error(t, err)
}

func TestRunFailFastLogsOnlyTheFailure(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ranges := plan(t, 4, 4)

	_, err := Run(context.Background(), ranges, Options{Stage: "read", Logger: log}, func(ctx context.Context, r partition.Range) ([]int, error) {
		if r.Index == 0 {
			return nil, errors.New("malformed document")
		}
		<-ctx.Done()
		return nil, ctx.Err()
	})
	require.Error(t, err)

	var errorLines, debugLines int
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if !strings.Contains(line, "worker failed") {
			continue
		}
		switch {
		case strings.Contains(line, "level=ERROR"):
			errorLines++
			assert.Contains(t, line, "malformed document")
		case strings.Contains(line, "level=DEBUG"):
			debugLines++
		}
	}
	assert.Equal(t, 1, errorLines)
	assert.Equal(t, 3, debugLines)
}
