package corpus

import (
	"context"
	"fmt"
	"strconv"
)

// MemorySource serves documents held in memory. Names are the decimal
// positions "0", "1", ….
type MemorySource struct {
	docs [][]byte
}

func NewMemory(texts ...string) *MemorySource {
	docs := make([][]byte, len(texts))
	for i, t := range texts {
		docs[i] = []byte(t)
	}
	return &MemorySource{docs: docs}
}

// NewMemoryBytes keeps raw bytes, so invalid UTF-8 can be served.
func NewMemoryBytes(docs ...[]byte) *MemorySource {
	return &MemorySource{docs: docs}
}

func (s *MemorySource) List(ctx context.Context) ([]string, error) {
	names := make([]string, len(s.docs))
	for i := range s.docs {
		names[i] = strconv.Itoa(i)
	}
	return names, nil
}

func (s *MemorySource) Read(ctx context.Context, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	i, err := strconv.Atoi(name)
	if err != nil || i < 0 || i >= len(s.docs) {
		return "", fmt.Errorf("no document %q", name)
	}
	return decode(name, s.docs[i])
}

func (s *MemorySource) Close() error {
	return nil
}
