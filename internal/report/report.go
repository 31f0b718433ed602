// Package report formats the human-readable summary of a pipeline run.
package report

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/Adithya-Monish-Kumar-K/corpus-indexer/internal/indexer/index"
)

const bytesPerMB = 1024 * 1024

// Summary is everything printed after a run.
type Summary struct {
	Title     string
	Workers   int
	Documents int
	Skipped   int
	// Top is the ranked top-N as returned by ranker.TopN; Requested is the
	// N the user asked for, which may exceed len(Top).
	Top        []index.TermCount
	Requested  int
	Terms      int
	SizeBytes  int64
	OutputPath string
	Timings    map[string]time.Duration
}

// Write prints s to w.
func Write(w io.Writer, s Summary) error {
	p := &printer{w: w}
	title := s.Title
	if title == "" {
		title = "Inverted Index"
	}
	p.printf("\n=================== %s ===================\n", title)
	p.printf("Documents: %d (skipped %d), workers: %d\n", s.Documents, s.Skipped, s.Workers)
	p.printf("============================================================\n")

	p.printf("\nThe inverted index has been created.\n")
	p.printf("Now displaying top %d terms:\n\n", s.Requested)
	for _, tc := range s.Top {
		p.printf("%s: %d occurrences\n", tc.Term, tc.Count)
	}

	p.printf("\nTerms: %d\n", s.Terms)
	p.printf("Size in Bytes: %d bytes\n", s.SizeBytes)
	p.printf("Size in MB: %.6f MB\n", float64(s.SizeBytes)/bytesPerMB)

	if len(s.Timings) > 0 {
		stages := make([]string, 0, len(s.Timings))
		for stage := range s.Timings {
			stages = append(stages, stage)
		}
		sort.Strings(stages)
		p.printf("\n")
		for _, stage := range stages {
			p.printf("%s: %s\n", stage, s.Timings[stage].Round(time.Microsecond))
		}
	}

	if s.OutputPath != "" {
		p.printf("\nThe inverted index is saved as %s.\n", s.OutputPath)
	}
	return p.err
}

// printer stops writing after the first error.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}
