package segment

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/corpus-indexer/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/corpus-indexer/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/corpus-indexer/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleIndex(t *testing.T) *index.InvertedIndex {
	t.Helper()
	idx, err := index.Build([][]string{
		{"cat", "sat"},
		{"dog", "sat", "mat"},
		{},
	}, index.BuildOptions{})
	require.NoError(t, err)
	return idx
}

func TestWriteJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "inverted_index.json")
	require.NoError(t, WriteJSON(path, sampleIndex(t)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"cat":[0],"dog":[1],"mat":[1],"sat":[0,1]}`, string(data))
	assert.Equal(t, `{"cat":[0],"dog":[1],"mat":[1],"sat":[0,1]}`, string(data))

	back, err := ReadJSON(path)
	require.NoError(t, err)
	assert.True(t, sampleIndex(t).Equal(back))
	assert.Equal(t, 2, back.DocCount())

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestSegmentRoundTrip(t *testing.T) {
	idx := sampleIndex(t)
	path := filepath.Join(t.TempDir(), "index.spdx")
	require.NoError(t, Write(path, idx))

	r, err := OpenReader(path)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, 4, r.Terms())
	assert.Equal(t, uint32(3), r.DocCount())

	postings, err := r.Search("sat")
	require.NoError(t, err)
	assert.Equal(t, index.PostingList{0, 1}, postings)

	postings, err = r.Search("unicorn")
	require.NoError(t, err)
	assert.Nil(t, postings)

	loaded, err := r.Load()
	require.NoError(t, err)
	assert.True(t, idx.Equal(loaded))
	assert.Equal(t, 3, loaded.DocCount())
}

func TestOpenReaderRejectsCorruptFiles(t *testing.T) {
	dir := t.TempDir()

	garbage := filepath.Join(dir, "garbage.spdx")
	require.NoError(t, os.WriteFile(garbage, make([]byte, 128), 0o644))
	_, err := OpenReader(garbage)
	assert.ErrorIs(t, err, apperrors.ErrIO)

	path := filepath.Join(dir, "index.spdx")
	require.NoError(t, Write(path, sampleIndex(t)))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	// flip a byte inside the dictionary
	data[len(data)-FooterSize-2] ^= 0xff
	require.NoError(t, os.WriteFile(path, data, 0o644))
	_, err = OpenReader(path)
	assert.ErrorIs(t, err, apperrors.ErrIO)
}

func TestSaveDispatchesOnFormat(t *testing.T) {
	dir := t.TempDir()
	idx := sampleIndex(t)

	require.NoError(t, Save(filepath.Join(dir, "a.json"), config.FormatJSON, idx))
	require.NoError(t, Save(filepath.Join(dir, "a.spdx"), config.FormatSegment, idx))
	assert.ErrorIs(t, Save(filepath.Join(dir, "a.xml"), "xml", idx), apperrors.ErrInvalidConfig)
}

func TestWriteFailureIsIOError(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	err := WriteJSON(filepath.Join(blocker, "index.json"), sampleIndex(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrIO)
	assert.Equal(t, apperrors.ExitIO, apperrors.ExitCode(err))
}

func TestEmptyIndexSegment(t *testing.T) {
	idx, err := index.Build(nil, index.BuildOptions{})
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "empty.spdx")
	require.NoError(t, Write(path, idx))

	r, err := OpenReader(path)
	require.NoError(t, err)
	defer r.Close()
	assert.Zero(t, r.Terms())
}
