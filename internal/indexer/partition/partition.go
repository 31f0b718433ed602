// Package partition splits an ordered collection into contiguous,
// non-overlapping ranges, one per worker.
package partition

import (
	"fmt"

	apperrors "github.com/Adithya-Monish-Kumar-K/corpus-indexer/pkg/errors"
)

// Range is the half-open interval [Start, End) assigned to worker Index.
type Range struct {
	Index int
	Start int
	End   int
}

func (r Range) Len() int {
	return r.End - r.Start
}

func (r Range) String() string {
	return fmt.Sprintf("#%d[%d, %d)", r.Index, r.Start, r.End)
}

// Plan returns exactly workers ranges covering [0, n) in order. Sizes differ
// by at most one; the first n%workers ranges take the extra element. When
// workers exceeds n the trailing ranges are empty.
func Plan(n, workers int) ([]Range, error) {
	if workers <= 0 {
		return nil, fmt.Errorf("%w: worker count %d must be >= 1", apperrors.ErrInvalidPartition, workers)
	}
	if n < 0 {
		return nil, fmt.Errorf("%w: collection size %d must be >= 0", apperrors.ErrInvalidPartition, n)
	}
	base, extra := n/workers, n%workers
	ranges := make([]Range, workers)
	start := 0
	for i := range ranges {
		size := base
		if i < extra {
			size++
		}
		ranges[i] = Range{Index: i, Start: start, End: start + size}
		start += size
	}
	return ranges, nil
}
