// Package merger recombines per-partition pool results into the sequence a
// single sequential pass would have produced.
package merger

// Concat joins parts in slot order. Position in the result equals the
// global item index, so parts must be in partition order.
func Concat[T any](parts [][]T) []T {
	total := 0
	for _, p := range parts {
		total += len(p)
	}
	out := make([]T, 0, total)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// Offsets returns the global index at which each part starts in Concat's
// output.
func Offsets[T any](parts [][]T) []int {
	offsets := make([]int, len(parts))
	pos := 0
	for i, p := range parts {
		offsets[i] = pos
		pos += len(p)
	}
	return offsets
}
