package segment

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"os"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/corpus-indexer/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/corpus-indexer/pkg/errors"
	"github.com/RoaringBitmap/roaring/v2"
)

type Reader struct {
	file     *os.File
	filePath string
	header   SegmentHeader
	dict     []DictEntry
	postBase int64
}

func OpenReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening segment file: %w: %w", apperrors.ErrIO, err)
	}
	headerBytes := make([]byte, HeaderSize)
	if _, err := f.ReadAt(headerBytes, 0); err != nil {
		f.Close()
		return nil, fmt.Errorf("reading segment header: %w: %w", apperrors.ErrIO, err)
	}
	magic := binary.LittleEndian.Uint32(headerBytes[0:4])
	if magic != MagicBytes {
		f.Close()
		return nil, fmt.Errorf("invalid segment file: bad magic bytes %x: %w", magic, apperrors.ErrIO)
	}
	header := SegmentHeader{
		Magic:      magic,
		Version:    binary.LittleEndian.Uint32(headerBytes[4:8]),
		TermCount:  binary.LittleEndian.Uint32(headerBytes[8:12]),
		DocCount:   binary.LittleEndian.Uint32(headerBytes[12:16]),
		DictOffset: int64(binary.LittleEndian.Uint64(headerBytes[16:24])),
		DictSize:   int64(binary.LittleEndian.Uint64(headerBytes[24:32])),
		PostOffset: int64(binary.LittleEndian.Uint64(headerBytes[32:40])),
		PostSize:   int64(binary.LittleEndian.Uint64(headerBytes[40:48])),
		CreatedAt:  int64(binary.LittleEndian.Uint64(headerBytes[48:56])),
	}
	if header.Version != FormatVersion {
		f.Close()
		return nil, fmt.Errorf("unsupported segment version %d: %w", header.Version, apperrors.ErrIO)
	}
	dictBytes := make([]byte, header.DictSize)
	if _, err := f.ReadAt(dictBytes, header.DictOffset); err != nil {
		f.Close()
		return nil, fmt.Errorf("reading dictionary: %w: %w", apperrors.ErrIO, err)
	}
	footer := make([]byte, FooterSize)
	if _, err := f.ReadAt(footer, header.DictOffset+header.DictSize); err != nil {
		f.Close()
		return nil, fmt.Errorf("reading footer: %w: %w", apperrors.ErrIO, err)
	}
	if want := binary.LittleEndian.Uint32(footer[0:4]); crc32.ChecksumIEEE(dictBytes) != want {
		f.Close()
		return nil, fmt.Errorf("dictionary checksum mismatch: %w", apperrors.ErrIO)
	}
	var dict []DictEntry
	if err := json.Unmarshal(dictBytes, &dict); err != nil {
		f.Close()
		return nil, fmt.Errorf("parsing dictionary: %w: %w", apperrors.ErrIO, err)
	}
	return &Reader{
		file:     f,
		filePath: path,
		header:   header,
		dict:     dict,
		postBase: header.PostOffset,
	}, nil
}

func (r *Reader) Search(term string) (index.PostingList, error) {
	idx := sort.Search(len(r.dict), func(i int) bool {
		return r.dict[i].Term >= term
	})
	if idx >= len(r.dict) || r.dict[idx].Term != term {
		return nil, nil
	}
	return r.read(r.dict[idx])
}

// Load reads every term back into an in-memory index.
func (r *Reader) Load() (*index.InvertedIndex, error) {
	m := make(map[string][]int, len(r.dict))
	for _, entry := range r.dict {
		postings, err := r.read(entry)
		if err != nil {
			return nil, err
		}
		m[entry.Term] = postings
	}
	return index.FromMap(m, int(r.header.DocCount))
}

func (r *Reader) read(entry DictEntry) (index.PostingList, error) {
	postingsBytes := make([]byte, entry.PostLen)
	if _, err := r.file.ReadAt(postingsBytes, r.postBase+entry.PostOffset); err != nil {
		return nil, fmt.Errorf("reading postings for %q: %w: %w", entry.Term, apperrors.ErrIO, err)
	}
	bm := roaring.New()
	if err := bm.UnmarshalBinary(postingsBytes); err != nil {
		return nil, fmt.Errorf("decoding postings for %q: %w: %w", entry.Term, apperrors.ErrIO, err)
	}
	postings := make(index.PostingList, 0, bm.GetCardinality())
	it := bm.Iterator()
	for it.HasNext() {
		postings = append(postings, int(it.Next()))
	}
	return postings, nil
}

func (r *Reader) Terms() int {
	return len(r.dict)
}

func (r *Reader) DocCount() uint32 {
	return r.header.DocCount
}

func (r *Reader) Close() error {
	return r.file.Close()
}

// ReadJSON loads an index written by WriteJSON. The JSON form does not
// record documents without terms, so DocCount is one past the largest id.
func ReadJSON(path string) (*index.InvertedIndex, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w: %w", path, apperrors.ErrIO, err)
	}
	var m map[string][]int
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing %s: %w: %w", path, apperrors.ErrIO, err)
	}
	docCount := 0
	for _, ids := range m {
		for _, id := range ids {
			docCount = max(docCount, id+1)
		}
	}
	return index.FromMap(m, docCount)
}
