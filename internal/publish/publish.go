// Package publish pushes a finished index to Redis and announces completed
// runs on Kafka. Both are optional and enabled from config.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/corpus-indexer/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/corpus-indexer/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/corpus-indexer/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/corpus-indexer/pkg/resilience"
)

const batchSize = 1000

// Store is the subset of *redis.Client the publisher writes through.
type Store interface {
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
	SetMany(ctx context.Context, values map[string][]byte, ttl time.Duration) error
	HSet(ctx context.Context, key string, fields map[string]any, ttl time.Duration) error
}

// RedisPublisher stores every posting list as a JSON array under
// <prefix>term:<term> and run metadata in the <prefix>meta hash.
type RedisPublisher struct {
	store  Store
	prefix string
	ttl    time.Duration
	retry  resilience.RetryConfig
	logger *slog.Logger
}

func NewRedisPublisher(store Store, cfg config.RedisConfig) *RedisPublisher {
	return &RedisPublisher{
		store:  store,
		prefix: cfg.KeyPrefix,
		ttl:    cfg.TTL,
		retry:  resilience.DefaultRetryConfig(),
		logger: slog.Default().With("component", "redis-publisher"),
	}
}

func (p *RedisPublisher) TermKey(term string) string {
	return p.prefix + "term:" + term
}

func (p *RedisPublisher) MetaKey() string {
	return p.prefix + "meta"
}

// Publish replaces any previously published index with idx.
func (p *RedisPublisher) Publish(ctx context.Context, runID string, idx *index.InvertedIndex, output string) error {
	removed, err := p.store.FlushByPattern(ctx, p.prefix+"term:*")
	if err != nil {
		return fmt.Errorf("clearing previous index: %w", err)
	}
	if removed > 0 {
		p.logger.Info("cleared previous index", "keys", removed)
	}

	batch := make(map[string][]byte, batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		err := resilience.Retry(ctx, "redis-set-postings", p.retry, func() error {
			return p.store.SetMany(ctx, batch, p.ttl)
		})
		batch = make(map[string][]byte, batchSize)
		return err
	}
	for _, entry := range idx.Entries() {
		data, err := json.Marshal(entry.Postings)
		if err != nil {
			return fmt.Errorf("encoding postings for %q: %w", entry.Term, err)
		}
		batch[p.TermKey(entry.Term)] = data
		if len(batch) == batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}

	meta := map[string]any{
		"run_id":       runID,
		"terms":        strconv.Itoa(idx.Len()),
		"documents":    strconv.Itoa(idx.DocCount()),
		"output":       output,
		"completed_at": time.Now().UTC().Format(time.RFC3339),
	}
	err = resilience.Retry(ctx, "redis-set-meta", p.retry, func() error {
		return p.store.HSet(ctx, p.MetaKey(), meta, p.ttl)
	})
	if err != nil {
		return err
	}
	p.logger.Info("index published", "terms", idx.Len(), "prefix", p.prefix)
	return nil
}

// IndexCompleteEvent announces a finished run.
type IndexCompleteEvent struct {
	RunID       string    `json:"run_id"`
	Terms       int       `json:"terms"`
	Documents   int       `json:"documents"`
	Skipped     int       `json:"skipped"`
	Output      string    `json:"output"`
	CompletedAt time.Time `json:"completed_at"`
}

// EventPublisher is satisfied by *kafka.Producer.
type EventPublisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// KafkaNotifier emits IndexCompleteEvent messages keyed by run id.
type KafkaNotifier struct {
	producer EventPublisher
	retry    resilience.RetryConfig
}

func NewKafkaNotifier(producer EventPublisher) *KafkaNotifier {
	return &KafkaNotifier{producer: producer, retry: resilience.DefaultRetryConfig()}
}

func (n *KafkaNotifier) Notify(ctx context.Context, ev IndexCompleteEvent) error {
	if ev.CompletedAt.IsZero() {
		ev.CompletedAt = time.Now().UTC()
	}
	return resilience.Retry(ctx, "kafka-index-complete", n.retry, func() error {
		return n.producer.Publish(ctx, kafka.Event{Key: ev.RunID, Value: ev})
	})
}
