// Package tokenizer turns raw document text into normalized terms. Text is
// NFKC-normalised, split on Unicode (UAX #29) word boundaries, stemmed with
// the Snowball English stemmer and filtered against a stopword set.
package tokenizer

import (
	"unicode"

	"github.com/Adithya-Monish-Kumar-K/corpus-indexer/internal/stopwords"
	"github.com/clipperhouse/uax29/v2/words"
	snowballeng "github.com/kljensen/snowball/english"
	"golang.org/x/text/unicode/norm"
)

// Normalizer is built once and shared by every worker. It holds no mutable
// state, so Normalize is safe for concurrent use.
type Normalizer struct {
	stop     stopwords.Set
	tokenize func(string) []string
	stem     func(string) string
}

type Option func(*Normalizer)

// WithStemmer replaces the Snowball stemmer.
func WithStemmer(stem func(string) string) Option {
	return func(n *Normalizer) { n.stem = stem }
}

// WithTokenizer replaces the UAX #29 word splitter.
func WithTokenizer(tokenize func(string) []string) Option {
	return func(n *Normalizer) { n.tokenize = tokenize }
}

func New(stop stopwords.Set, opts ...Option) *Normalizer {
	n := &Normalizer{
		stop:     stop,
		tokenize: Tokenize,
		stem:     Stem,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize returns the document's terms in text order. Repeated terms are
// kept; the index builder deduplicates per document.
func (n *Normalizer) Normalize(text string) []string {
	tokens := n.tokenize(text)
	terms := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		term := n.stem(tok)
		if term == "" || n.stop.Contains(term) {
			continue
		}
		terms = append(terms, term)
	}
	return terms
}

// Tokenize splits text into word segments. Segments without a letter or
// digit (spaces, punctuation, symbols) are dropped.
func Tokenize(text string) []string {
	text = norm.NFKC.String(text)
	segs := words.FromString(text)
	var tokens []string
	for segs.Next() {
		if tok := segs.Value(); isWord(tok) {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

// Stem lowercases word and reduces it to its Snowball English stem.
func Stem(word string) string {
	return snowballeng.Stem(word, false)
}

// Identity leaves tokens unchanged apart from case folding. Useful where
// stemming would obscure results.
func Identity(word string) string {
	return stopwords.Fold(word)
}

func isWord(tok string) bool {
	for _, r := range tok {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
