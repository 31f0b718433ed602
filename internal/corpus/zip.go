package corpus

import (
	"archive/zip"
	"context"
	"fmt"
	"io"

	apperrors "github.com/Adithya-Monish-Kumar-K/corpus-indexer/pkg/errors"
)

// ZipSource reads documents from the entries of a zip archive, in archive
// order. Directory entries are skipped.
type ZipSource struct {
	path  string
	rc    *zip.ReadCloser
	files map[string]*zip.File
	names []string
}

func OpenZip(path string) (*ZipSource, error) {
	rc, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("opening corpus archive %s: %w: %w", path, apperrors.ErrIO, err)
	}
	s := &ZipSource{
		path:  path,
		rc:    rc,
		files: make(map[string]*zip.File, len(rc.File)),
	}
	for _, f := range rc.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if _, dup := s.files[f.Name]; dup {
			continue
		}
		s.files[f.Name] = f
		s.names = append(s.names, f.Name)
	}
	return s, nil
}

func (s *ZipSource) List(ctx context.Context) ([]string, error) {
	return append([]string(nil), s.names...), nil
}

func (s *ZipSource) Read(ctx context.Context, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f, ok := s.files[name]
	if !ok {
		return "", fmt.Errorf("%s: no entry %q: %w", s.path, name, apperrors.ErrIO)
	}
	r, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("opening %s in %s: %w: %w", name, s.path, apperrors.ErrIO, err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("reading %s in %s: %w: %w", name, s.path, apperrors.ErrIO, err)
	}
	return decode(name, data)
}

func (s *ZipSource) Close() error {
	return s.rc.Close()
}
