package corpus

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	apperrors "github.com/Adithya-Monish-Kumar-K/corpus-indexer/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/corpus-indexer/pkg/postgres"
)

// PostgresSource reads documents from a table with columns id and body,
// ordered by id.
type PostgresSource struct {
	client *postgres.Client
}

func NewPostgres(client *postgres.Client) *PostgresSource {
	return &PostgresSource{client: client}
}

func (s *PostgresSource) List(ctx context.Context) ([]string, error) {
	query := fmt.Sprintf(`SELECT id::text FROM %s ORDER BY id`, s.client.Table())
	rows, err := s.client.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w: %w", apperrors.ErrIO, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning document id: %w: %w", apperrors.ErrIO, err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w: %w", apperrors.ErrIO, err)
	}
	return names, nil
}

func (s *PostgresSource) Read(ctx context.Context, name string) (string, error) {
	query := fmt.Sprintf(`SELECT body FROM %s WHERE id::text = $1`, s.client.Table())
	var body []byte
	err := s.client.DB.QueryRowContext(ctx, query, name).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("document %s not found: %w", name, apperrors.ErrIO)
	}
	if err != nil {
		return "", fmt.Errorf("reading document %s: %w: %w", name, apperrors.ErrIO, err)
	}
	return decode(name, body)
}

func (s *PostgresSource) Close() error {
	return s.client.Close()
}
