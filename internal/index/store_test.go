package index

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/collegebuddy/internal/domain"
)

func chunk(id, text string, pos int) domain.Chunk {
	return domain.Chunk{ID: id, Source: "data/handbook.txt", Position: pos, Text: text}
}

func buildStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore(filepath.Join(t.TempDir(), "vector_index"))
	chunks := []domain.Chunk{
		chunk("a", "library hours", 0),
		chunk("b", "exam deadlines", 1),
		chunk("c", "hostel fees", 2),
		chunk("d", "exam schedule", 3),
	}
	vectors := [][]float32{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
		{0, 0.9, 0.1},
	}
	meta, err := s.Replace(context.Background(), "embed-test", chunks, vectors)
	require.NoError(t, err)
	require.Equal(t, 4, meta.Chunks)
	return s
}

func TestExists(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "idx")
	s := NewStore(dir)
	assert.False(t, s.Exists(), "missing dir")

	require.NoError(t, os.Mkdir(dir, 0o755))
	assert.False(t, s.Exists(), "empty dir")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "leftover"), []byte("x"), 0o600))
	assert.True(t, s.Exists(), "non-empty dir")
}

func TestReplace_ThenSearch(t *testing.T) {
	s := buildStore(t)
	assert.True(t, s.Exists())

	hits, err := s.Search(context.Background(), []float32{0, 1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)

	assert.Equal(t, "b", hits[0].Chunk.ID)
	assert.Equal(t, "exam deadlines", hits[0].Chunk.Text)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-9)
	assert.Equal(t, "d", hits[1].Chunk.ID)
	assert.GreaterOrEqual(t, hits[1].Score, hits[2].Score)
}

func TestSearch_KLargerThanIndex(t *testing.T) {
	s := buildStore(t)

	hits, err := s.Search(context.Background(), []float32{1, 0, 0}, 10)
	require.NoError(t, err)
	assert.Len(t, hits, 4)
}

func TestSearch_TiesKeepInsertionOrder(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "idx"))
	_, err := s.Replace(context.Background(), "m",
		[]domain.Chunk{chunk("x", "one", 0), chunk("y", "two", 1), chunk("z", "three", 2)},
		[][]float32{{1, 1}, {1, 1}, {1, 1}},
	)
	require.NoError(t, err)

	hits, err := s.Search(context.Background(), []float32{1, 1}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "x", hits[0].Chunk.ID)
	assert.Equal(t, "y", hits[1].Chunk.ID)
}

func TestSearch_MissingIndex(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "absent"))

	_, err := s.Search(context.Background(), []float32{1}, 3)
	require.ErrorIs(t, err, domain.ErrIndexNotFound)
}

func TestSearch_DimensionMismatch(t *testing.T) {
	s := buildStore(t)

	_, err := s.Search(context.Background(), []float32{1, 0}, 3)
	require.ErrorIs(t, err, domain.ErrVectorDimMismatch)
}

func TestReplace_DiscardsPreviousBuild(t *testing.T) {
	s := buildStore(t)

	_, err := s.Replace(context.Background(), "embed-test",
		[]domain.Chunk{chunk("new", "only chunk", 0)},
		[][]float32{{0.5, 0.5}},
	)
	require.NoError(t, err)

	hits, err := s.Search(context.Background(), []float32{1, 1}, 3)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "new", hits[0].Chunk.ID)

	_, err = os.Stat(s.Dir() + ".staging")
	assert.True(t, os.IsNotExist(err), "staging dir should be gone")
}

func TestReplace_RejectsInconsistentVectors(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "idx"))

	_, err := s.Replace(context.Background(), "m",
		[]domain.Chunk{chunk("a", "x", 0), chunk("b", "y", 1)},
		[][]float32{{1, 0}, {1}},
	)
	require.ErrorIs(t, err, domain.ErrVectorDimMismatch)
	assert.False(t, s.Exists(), "failed build must not leave an index behind")
}

func TestReplace_Empty(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "idx"))

	_, err := s.Replace(context.Background(), "m", nil, nil)
	require.ErrorIs(t, err, domain.ErrNoDocuments)
	assert.False(t, s.Exists())
}

func TestReplace_CountMismatch(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "idx"))

	_, err := s.Replace(context.Background(), "m", []domain.Chunk{chunk("a", "x", 0)}, nil)
	require.Error(t, err)
}

func TestMeta(t *testing.T) {
	s := buildStore(t)

	meta, err := s.Meta()
	require.NoError(t, err)
	assert.Equal(t, "embed-test", meta.Model)
	assert.Equal(t, 3, meta.Dimensions)
	assert.Equal(t, 4, meta.Chunks)
	assert.False(t, meta.BuiltAt.IsZero())
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, cosine([]float32{2, 0}, []float32{5, 0}), 1e-9)
	assert.InDelta(t, 0.0, cosine([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, cosine([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Equal(t, 0.0, cosine([]float32{0, 0}, []float32{1, 1}))
}
