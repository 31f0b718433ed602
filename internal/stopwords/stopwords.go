// Package stopwords loads stopword lists and answers membership queries on
// case-folded terms.
package stopwords

import (
	"archive/zip"
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"unicode/utf8"

	apperrors "github.com/Adithya-Monish-Kumar-K/corpus-indexer/pkg/errors"
	"golang.org/x/text/cases"
)

// Set is an immutable stopword set. It is safe for concurrent reads.
type Set struct {
	words map[string]struct{}
}

// Fold returns the case-folded form used for stopword comparison.
func Fold(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			// cases.Caser is stateful, one per call
			return cases.Fold().String(s)
		}
	}
	return strings.ToLower(s)
}

func FromWords(words []string) Set {
	s := Set{words: make(map[string]struct{}, len(words))}
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		s.words[Fold(w)] = struct{}{}
	}
	return s
}

// Contains reports whether term's case-folded form is a stopword.
func (s Set) Contains(term string) bool {
	_, ok := s.words[Fold(term)]
	return ok
}

func (s Set) Len() int {
	return len(s.words)
}

// Words returns the folded stopwords in lexical order.
func (s Set) Words() []string {
	out := make([]string, 0, len(s.words))
	for w := range s.words {
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}

// Parse reads one stopword per line. Blank lines and lines starting with
// '#' are ignored.
func Parse(r io.Reader) ([]string, error) {
	var words []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words = append(words, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scanning stopwords: %w", err)
	}
	return words, nil
}

// Load reads the stopword list at path. When member is non-empty path is
// a zip archive and member names the entry holding the list.
func Load(path, member string) (Set, error) {
	if member != "" {
		return LoadZip(path, member)
	}
	return LoadFile(path)
}

func LoadFile(path string) (Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return Set{}, fmt.Errorf("opening stopwords %s: %w: %w", path, apperrors.ErrIO, err)
	}
	defer f.Close()
	words, err := Parse(f)
	if err != nil {
		return Set{}, fmt.Errorf("reading stopwords %s: %w: %w", path, apperrors.ErrIO, err)
	}
	return FromWords(words), nil
}

func LoadZip(path, member string) (Set, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return Set{}, fmt.Errorf("opening stopwords archive %s: %w: %w", path, apperrors.ErrIO, err)
	}
	defer zr.Close()
	f, err := zr.Open(member)
	if err != nil {
		return Set{}, fmt.Errorf("opening %s in %s: %w: %w", member, path, apperrors.ErrIO, err)
	}
	defer f.Close()
	words, err := Parse(f)
	if err != nil {
		return Set{}, fmt.Errorf("reading %s in %s: %w: %w", member, path, apperrors.ErrIO, err)
	}
	return FromWords(words), nil
}
