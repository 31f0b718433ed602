package indexer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/corpus-indexer/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/corpus-indexer/internal/indexer/ranker"
	"github.com/Adithya-Monish-Kumar-K/corpus-indexer/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/corpus-indexer/internal/stopwords"
	"github.com/Adithya-Monish-Kumar-K/corpus-indexer/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/corpus-indexer/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/corpus-indexer/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/corpus-indexer/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pipelineConfig(workers int) config.PipelineConfig {
	return config.PipelineConfig{Workers: workers, FailurePolicy: config.PolicyFailFast}
}

func newEngine(t *testing.T, cfg config.PipelineConfig, src corpus.Source, stop []string, opts ...tokenizer.Option) *Engine {
	t.Helper()
	e, err := NewEngine(cfg, src, tokenizer.New(stopwords.FromWords(stop), opts...), nil)
	require.NoError(t, err)
	return e
}

func TestRunExampleScenario(t *testing.T) {
	src := corpus.NewMemory("the cat sat", "the dog sat on the mat")
	e := newEngine(t, pipelineConfig(2), src, []string{"the", "on"}, tokenizer.WithStemmer(tokenizer.Identity))

	res, err := e.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, map[string][]int{
		"cat": {0},
		"sat": {0, 1},
		"dog": {1},
		"mat": {1},
	}, res.Index.ToMap())
	assert.Equal(t, []string{"0", "1"}, res.Documents)
	assert.Empty(t, res.Skipped)
	assert.Contains(t, res.Timings, StageRead)
	assert.Contains(t, res.Timings, StageNormalize)
	assert.Contains(t, res.Timings, StageBuild)

	top := ranker.TopN(res.Index, 1)
	require.Len(t, top, 1)
	assert.Equal(t, "sat", top[0].Term)
	assert.Equal(t, 2, top[0].Count)
}

func syntheticCorpus(n int) []string {
	vocab := strings.Fields("search engines index documents quickly while workers partition the corpus and merge results into postings for every running term")
	docs := make([]string, n)
	for d := range docs {
		var b strings.Builder
		for i := 0; i < 5+d%11; i++ {
			b.WriteString(vocab[(d*7+i*3)%len(vocab)])
			b.WriteByte(' ')
		}
		docs[d] = b.String()
	}
	return docs
}

func TestRunIndexIndependentOfWorkerCount(t *testing.T) {
	docs := syntheticCorpus(137)
	stop := []string{"the", "and", "for", "into", "while"}

	baseline, err := newEngine(t, pipelineConfig(1), corpus.NewMemory(docs...), stop).Run(context.Background())
	require.NoError(t, err)
	require.Positive(t, baseline.Index.Len())

	for _, w := range []int{2, 3, 4, 8, 16, 200} {
		for _, policy := range []string{config.PolicyFailFast, config.PolicyCollectAll} {
			t.Run(fmt.Sprintf("workers=%d/%s", w, policy), func(t *testing.T) {
				cfg := pipelineConfig(w)
				cfg.FailurePolicy = policy
				res, err := newEngine(t, cfg, corpus.NewMemory(docs...), stop).Run(context.Background())
				require.NoError(t, err)
				assert.True(t, baseline.Index.Equal(res.Index))
				assert.Equal(t, baseline.Index.ToMap(), res.Index.ToMap())
			})
		}
	}
}

func TestRunPostingsMatchNormalizedDocuments(t *testing.T) {
	docs := syntheticCorpus(40)
	n := tokenizer.New(stopwords.FromWords([]string{"the"}))
	e, err := NewEngine(pipelineConfig(3), corpus.NewMemory(docs...), n, nil)
	require.NoError(t, err)
	res, err := e.Run(context.Background())
	require.NoError(t, err)

	for d, text := range docs {
		terms := map[string]bool{}
		for _, term := range n.Normalize(text) {
			terms[term] = true
		}
		for _, term := range res.Index.Terms() {
			assert.Equal(t, terms[term], res.Index.Contains(term, d), "term %q doc %d", term, d)
		}
	}
}

func TestRunFailFastOnDecodeError(t *testing.T) {
	src := corpus.NewMemoryBytes([]byte("good one"), []byte("good two"), []byte{0xff, 0xfe}, []byte("good four"))
	e := newEngine(t, pipelineConfig(2), src, nil)

	_, err := e.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrDecode)
	assert.ErrorIs(t, err, apperrors.ErrWorkerFailure)

	var we *apperrors.WorkerError
	require.True(t, errors.As(err, &we))
	assert.Equal(t, StageRead, we.Stage)
	assert.Equal(t, 1, we.Partition)
	assert.Equal(t, 2, we.Start)
	assert.Equal(t, 4, we.End)

	var de *apperrors.DecodeError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "2", de.DocID)
}

func TestRunCollectAllReportsEveryFailure(t *testing.T) {
	src := corpus.NewMemoryBytes([]byte{0xff}, []byte("fine"), []byte{0xfe})
	cfg := pipelineConfig(3)
	cfg.FailurePolicy = config.PolicyCollectAll
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	e, err := NewEngine(cfg, src, tokenizer.New(stopwords.Set{}), m)
	require.NoError(t, err)

	_, err = e.Run(context.Background())
	require.Error(t, err)

	var joined interface{ Unwrap() []error }
	require.True(t, errors.As(err, &joined))
	assert.Len(t, joined.Unwrap(), 2)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.WorkerFailuresTotal.WithLabelValues(StageRead)))
}

func TestRunLenientSkipsUndecodable(t *testing.T) {
	src := corpus.NewMemoryBytes([]byte("alpha beta"), []byte{0xff, 'x'}, []byte("beta gamma"))
	cfg := pipelineConfig(2)
	cfg.SkipUndecodable = true
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	e, err := NewEngine(cfg, src, tokenizer.New(stopwords.Set{}, tokenizer.WithStemmer(tokenizer.Identity)), m)
	require.NoError(t, err)

	res, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, res.Skipped)
	assert.Equal(t, []int{0, 2}, []int(res.Index.Postings("beta")))
	assert.Equal(t, 3, res.Index.DocCount())

	assert.Equal(t, 2.0, testutil.ToFloat64(m.DocsReadTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DocsSkippedTotal))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.DocsNormalizedTotal))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.IndexTerms))
}

func TestRunEmptyCorpus(t *testing.T) {
	res, err := newEngine(t, pipelineConfig(4), corpus.NewMemory(), nil).Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Index.Len())
	assert.Empty(t, ranker.TopN(res.Index, 20))

	cfg := pipelineConfig(4)
	cfg.RejectEmptyCorpus = true
	_, err = newEngine(t, cfg, corpus.NewMemory(), nil).Run(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrEmptyCorpus)
}

func TestNewEngineRejectsZeroWorkers(t *testing.T) {
	_, err := NewEngine(pipelineConfig(0), corpus.NewMemory(), tokenizer.New(stopwords.Set{}), nil)
	assert.ErrorIs(t, err, apperrors.ErrInvalidPartition)
}

// hangingSource never returns the named document until its context ends.
type hangingSource struct {
	*corpus.MemorySource
	hang string
}

func (s hangingSource) Read(ctx context.Context, name string) (string, error) {
	if name == s.hang {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return s.MemorySource.Read(ctx, name)
}

func TestRunWorkerTimeout(t *testing.T) {
	src := hangingSource{MemorySource: corpus.NewMemory("a", "b", "c", "d"), hang: "3"}
	cfg := pipelineConfig(2)
	cfg.WorkerTimeout = 50 * time.Millisecond

	_, err := newEngine(t, cfg, src, nil).Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrWorkerTimeout)
	assert.NotErrorIs(t, err, apperrors.ErrDecode)
	assert.Equal(t, apperrors.ExitTimeout, apperrors.ExitCode(err))
}

func TestRunCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newEngine(t, pipelineConfig(2), corpus.NewMemory("a", "b"), nil).Run(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, apperrors.ExitInterrupted, apperrors.ExitCode(err))
}

func TestRunLogsSpanTree(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	logger.SetupWriter(&buf, "debug", "text")
	t.Cleanup(func() { slog.SetDefault(prev) })

	e := newEngine(t, pipelineConfig(2), corpus.NewMemory("a b", "c d", "e"), nil)
	_, err := e.Run(logger.WithRunID(context.Background(), "run-42"))
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "span=index-run")
	assert.Contains(t, out, "span=normalize")
	assert.Equal(t, 4, strings.Count(out, "span=worker"))
	assert.Contains(t, out, "run_id=run-42")
}
