package corpus

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	apperrors "github.com/Adithya-Monish-Kumar-K/corpus-indexer/pkg/errors"
)

// DirSource reads the regular files directly under a directory, ordered by
// file name.
type DirSource struct {
	root string
}

func OpenDir(root string) (*DirSource, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("opening corpus directory %s: %w: %w", root, apperrors.ErrIO, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("corpus path %s is not a directory: %w", root, apperrors.ErrIO)
	}
	return &DirSource{root: root}, nil
}

func (s *DirSource) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w: %w", s.root, apperrors.ErrIO, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

func (s *DirSource) Read(ctx context.Context, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if name != filepath.Base(name) {
		return "", fmt.Errorf("document name %q escapes %s: %w", name, s.root, apperrors.ErrIO)
	}
	data, err := os.ReadFile(filepath.Join(s.root, name))
	if err != nil {
		return "", fmt.Errorf("reading %s: %w: %w", name, apperrors.ErrIO, err)
	}
	return decode(name, data)
}

func (s *DirSource) Close() error {
	return nil
}
