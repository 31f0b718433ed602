// Package index builds and queries the term → document-set inverted index.
// Each postings set is a roaring bitmap, so recording a document twice for
// the same term is a no-op and iteration is always in ascending id order.
package index

import (
	"fmt"
	"math"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"
	apperrors "github.com/Adithya-Monish-Kumar-K/corpus-indexer/pkg/errors"
)

// entryOverhead approximates the map bucket and bitmap header cost per term.
const entryOverhead = 64

// InvertedIndex maps terms to the documents that contain them. It is built
// once by a Builder and is read-only afterwards.
type InvertedIndex struct {
	postings map[string]*roaring.Bitmap
	docCount int
}

type BuildOptions struct {
	// RejectEmpty makes Build fail with ErrEmptyCorpus on zero documents.
	RejectEmpty bool
}

// Build indexes seqs, where seqs[d] holds the terms of document d.
func Build(seqs [][]string, opts BuildOptions) (*InvertedIndex, error) {
	if len(seqs) == 0 && opts.RejectEmpty {
		return nil, fmt.Errorf("building index: %w", apperrors.ErrEmptyCorpus)
	}
	b := NewBuilder()
	for docID, terms := range seqs {
		if err := b.Add(docID, terms); err != nil {
			return nil, err
		}
	}
	return b.Index(), nil
}

// Builder accumulates documents in increasing id order. It is not safe for
// concurrent use.
type Builder struct {
	postings map[string]*roaring.Bitmap
	lastDoc  int
	docs     int
}

func NewBuilder() *Builder {
	return &Builder{
		postings: make(map[string]*roaring.Bitmap),
		lastDoc:  -1,
	}
}

// Add records every distinct term of document docID. Ids must be strictly
// increasing across calls.
func (b *Builder) Add(docID int, terms []string) error {
	if docID <= b.lastDoc {
		return fmt.Errorf("document %d added after document %d: ids must increase", docID, b.lastDoc)
	}
	if int64(docID) > math.MaxUint32 {
		return fmt.Errorf("document id %d exceeds the supported range", docID)
	}
	for _, term := range terms {
		bm, ok := b.postings[term]
		if !ok {
			bm = roaring.New()
			b.postings[term] = bm
		}
		bm.Add(uint32(docID))
	}
	b.lastDoc = docID
	b.docs++
	return nil
}

// Index finalises the builder. The builder must not be used afterwards.
func (b *Builder) Index() *InvertedIndex {
	for _, bm := range b.postings {
		bm.RunOptimize()
	}
	idx := &InvertedIndex{postings: b.postings, docCount: b.docs}
	b.postings = nil
	return idx
}

// FromMap rebuilds an index from its serialised term → ids form.
func FromMap(m map[string][]int, docCount int) (*InvertedIndex, error) {
	idx := &InvertedIndex{
		postings: make(map[string]*roaring.Bitmap, len(m)),
		docCount: docCount,
	}
	for term, ids := range m {
		bm := roaring.New()
		for _, id := range ids {
			if id < 0 || int64(id) > math.MaxUint32 {
				return nil, fmt.Errorf("term %q: document id %d out of range", term, id)
			}
			bm.Add(uint32(id))
		}
		idx.postings[term] = bm
	}
	return idx, nil
}

// Postings returns the ascending document ids for term, or nil.
func (idx *InvertedIndex) Postings(term string) PostingList {
	bm, ok := idx.postings[term]
	if !ok {
		return nil
	}
	return toList(bm)
}

// Count returns the number of documents containing term.
func (idx *InvertedIndex) Count(term string) int {
	bm, ok := idx.postings[term]
	if !ok {
		return 0
	}
	return int(bm.GetCardinality())
}

func (idx *InvertedIndex) Contains(term string, docID int) bool {
	bm, ok := idx.postings[term]
	if !ok || docID < 0 || int64(docID) > math.MaxUint32 {
		return false
	}
	return bm.Contains(uint32(docID))
}

// Terms returns every indexed term in lexical order.
func (idx *InvertedIndex) Terms() []string {
	terms := make([]string, 0, len(idx.postings))
	for term := range idx.postings {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	return terms
}

// Len is the number of distinct terms.
func (idx *InvertedIndex) Len() int {
	return len(idx.postings)
}

// DocCount is the number of documents that were indexed.
func (idx *InvertedIndex) DocCount() int {
	return idx.docCount
}

// SizeBytes estimates the in-memory footprint of the index.
func (idx *InvertedIndex) SizeBytes() int64 {
	var size int64
	for term, bm := range idx.postings {
		size += int64(len(term)) + int64(bm.GetSizeInBytes()) + entryOverhead
	}
	return size
}

// Counts returns every term with its document count, in lexical order.
func (idx *InvertedIndex) Counts() []TermCount {
	out := make([]TermCount, 0, len(idx.postings))
	for _, term := range idx.Terms() {
		out = append(out, TermCount{Term: term, Count: idx.Count(term)})
	}
	return out
}

// Entries returns all postings ordered by term.
func (idx *InvertedIndex) Entries() []TermEntry {
	entries := make([]TermEntry, 0, len(idx.postings))
	for _, term := range idx.Terms() {
		entries = append(entries, TermEntry{Term: term, Postings: toList(idx.postings[term])})
	}
	return entries
}

// ToMap exposes the index as term → ascending document ids.
func (idx *InvertedIndex) ToMap() map[string][]int {
	m := make(map[string][]int, len(idx.postings))
	for term, bm := range idx.postings {
		m[term] = toList(bm)
	}
	return m
}

// Equal reports whether both indexes hold the same terms and postings.
func (idx *InvertedIndex) Equal(other *InvertedIndex) bool {
	if idx == nil || other == nil {
		return idx == other
	}
	if len(idx.postings) != len(other.postings) {
		return false
	}
	for term, bm := range idx.postings {
		obm, ok := other.postings[term]
		if !ok || !bm.Equals(obm) {
			return false
		}
	}
	return true
}

func toList(bm *roaring.Bitmap) PostingList {
	out := make(PostingList, 0, bm.GetCardinality())
	it := bm.Iterator()
	for it.HasNext() {
		out = append(out, int(it.Next()))
	}
	return out
}
