// Package corpus provides the document sources the pipeline reads from. A
// source lists document names in corpus order; a document's position in
// that list becomes its id.
package corpus

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/corpus-indexer/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/corpus-indexer/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/corpus-indexer/pkg/postgres"
)

// Source is a read-only document collection. Read must be safe to call
// from several goroutines at once.
type Source interface {
	// List returns document names in corpus order.
	List(ctx context.Context) ([]string, error)
	// Read returns the UTF-8 text of the named document or a
	// *errors.DecodeError when its bytes are not valid UTF-8.
	Read(ctx context.Context, name string) (string, error)
	Close() error
}

// Document is one decoded corpus entry. ID is assigned after acquisition
// from the document's position among retained documents.
type Document struct {
	ID   int
	Name string
	Text string
}

// Open returns the source selected by cfg.Corpus.
func Open(ctx context.Context, cfg *config.Config) (Source, error) {
	switch cfg.Corpus.Source {
	case config.SourceZip:
		return OpenZip(cfg.Corpus.Path)
	case config.SourceDir:
		return OpenDir(cfg.Corpus.Path)
	case config.SourcePostgres:
		client, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("opening postgres corpus: %w: %w", apperrors.ErrIO, err)
		}
		return NewPostgres(client), nil
	default:
		return nil, apperrors.Newf(apperrors.ErrInvalidConfig, apperrors.ExitConfig, "unknown corpus source %q", cfg.Corpus.Source)
	}
}

func decode(name string, data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", &apperrors.DecodeError{DocID: name, Err: fmt.Errorf("invalid UTF-8 sequence")}
	}
	return string(data), nil
}
