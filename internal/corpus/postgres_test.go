package corpus

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/corpus-indexer/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/corpus-indexer/pkg/postgres"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// skipIfNoPostgres skips the test when PostgreSQL is unavailable.
func skipIfNoPostgres(t *testing.T, table string) *postgres.Client {
	t.Helper()
	cfg := config.PostgresConfig{
		Host:            envOrDefault("TEST_POSTGRES_HOST", "localhost"),
		Port:            envOrDefaultInt("TEST_POSTGRES_PORT", 5432),
		Database:        envOrDefault("TEST_POSTGRES_DB", "corpus_test"),
		User:            envOrDefault("TEST_POSTGRES_USER", "corpus"),
		Password:        envOrDefault("TEST_POSTGRES_PASSWORD", "localdev"),
		SSLMode:         "disable",
		Table:           table,
		MaxOpenConns:    4,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Minute,
	}
	client, err := postgres.New(context.Background(), cfg)
	if err != nil {
		t.Skipf("skipping postgres test: postgres unavailable: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestPostgresSource(t *testing.T) {
	table := "documents_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	client := skipIfNoPostgres(t, table)
	ctx := context.Background()

	_, err := client.DB.ExecContext(ctx, fmt.Sprintf(`CREATE TABLE %s (id BIGINT PRIMARY KEY, body TEXT NOT NULL)`, client.Table()))
	require.NoError(t, err)
	t.Cleanup(func() {
		client.DB.ExecContext(context.Background(), fmt.Sprintf(`DROP TABLE IF EXISTS %s`, client.Table()))
	})
	_, err = client.DB.ExecContext(ctx, fmt.Sprintf(`INSERT INTO %s (id, body) VALUES (10, 'the dog sat'), (2, 'the cat sat')`, client.Table()))
	require.NoError(t, err)

	src := NewPostgres(client)
	names, err := src.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "10"}, names)

	text, err := src.Read(ctx, "10")
	require.NoError(t, err)
	assert.Equal(t, "the dog sat", text)

	_, err = src.Read(ctx, "99")
	assert.Error(t, err)
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
