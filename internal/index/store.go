// Package index persists embedded chunks in a bbolt file and answers
// nearest-neighbour queries over them.
package index

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"slices"
	"time"

	"go.etcd.io/bbolt"

	"github.com/kailas-cloud/collegebuddy/internal/domain"
)

// FileName is the database file inside the index directory.
const FileName = "index.db"

var (
	bucketChunks = []byte("chunks")
	bucketMeta   = []byte("meta")
	keyMeta      = []byte("meta")
)

const openTimeout = 5 * time.Second

// Meta describes a built index.
type Meta struct {
	Model      string    `json:"model"`
	Dimensions int       `json:"dimensions"`
	Chunks     int       `json:"chunks"`
	BuiltAt    time.Time `json:"built_at"`
}

// record is the stored form of one chunk.
type record struct {
	ID       string    `json:"id"`
	Source   string    `json:"source"`
	Page     int       `json:"page,omitempty"`
	Position int       `json:"position"`
	Text     string    `json:"text"`
	Vector   []float32 `json:"vector"`
}

// Store is a vector index living in a single directory.
// The directory is either absent or holds a complete build.
type Store struct {
	dir string
}

// NewStore returns a Store rooted at dir. Nothing is touched on disk.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the index directory.
func (s *Store) Dir() string { return s.dir }

// Exists reports whether the index directory exists and is non-empty.
func (s *Store) Exists() bool {
	entries, err := os.ReadDir(s.dir)
	return err == nil && len(entries) > 0
}

// Replace writes chunks and their vectors as a fresh index, discarding any
// previous one. The new index is built in a staging directory and swapped in
// only after it has been fully written.
func (s *Store) Replace(ctx context.Context, model string, chunks []domain.Chunk, vectors [][]float32) (Meta, error) {
	if len(chunks) == 0 {
		return Meta{}, domain.ErrNoDocuments
	}
	if len(chunks) != len(vectors) {
		return Meta{}, fmt.Errorf("%d chunks but %d vectors", len(chunks), len(vectors))
	}
	dims := len(vectors[0])
	if dims == 0 {
		return Meta{}, fmt.Errorf("empty vector for chunk 0: %w", domain.ErrVectorDimMismatch)
	}
	for i, v := range vectors {
		if len(v) != dims {
			return Meta{}, fmt.Errorf("vector %d has %d dimensions, expected %d: %w",
				i, len(v), dims, domain.ErrVectorDimMismatch)
		}
	}

	staging := s.dir + ".staging"
	if err := os.RemoveAll(staging); err != nil {
		return Meta{}, fmt.Errorf("clear staging dir: %w", err)
	}
	if err := os.MkdirAll(staging, 0o755); err != nil {
		return Meta{}, fmt.Errorf("create staging dir: %w", err)
	}

	meta := Meta{Model: model, Dimensions: dims, Chunks: len(chunks), BuiltAt: time.Now().UTC()}
	if err := write(ctx, filepath.Join(staging, FileName), meta, chunks, vectors); err != nil {
		_ = os.RemoveAll(staging)
		return Meta{}, err
	}

	if err := os.RemoveAll(s.dir); err != nil {
		return Meta{}, fmt.Errorf("remove previous index: %w", err)
	}
	if err := os.Rename(staging, s.dir); err != nil {
		return Meta{}, fmt.Errorf("activate index: %w", err)
	}

	return meta, nil
}

func write(ctx context.Context, path string, meta Meta, chunks []domain.Chunk, vectors [][]float32) error {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: openTimeout})
	if err != nil {
		return fmt.Errorf("open index db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucket(bucketChunks)
		if err != nil {
			return err
		}
		for i, c := range chunks {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := json.Marshal(record{
				ID:       c.ID,
				Source:   c.Source,
				Page:     c.Page,
				Position: c.Position,
				Text:     c.Text,
				Vector:   vectors[i],
			})
			if err != nil {
				return err
			}
			// Zero-padded sequence keys keep cursor order equal to insertion order.
			if err := b.Put([]byte(fmt.Sprintf("%08d", i)), data); err != nil {
				return err
			}
		}

		mb, err := tx.CreateBucket(bucketMeta)
		if err != nil {
			return err
		}
		data, err := json.Marshal(meta)
		if err != nil {
			return err
		}
		return mb.Put(keyMeta, data)
	})
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("write index: %w", err)
	}

	if err := db.Close(); err != nil {
		return fmt.Errorf("close index db: %w", err)
	}
	return nil
}

// openReadOnly opens the index database with a shared lock.
func (s *Store) openReadOnly() (*bbolt.DB, error) {
	path := filepath.Join(s.dir, FileName)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.ErrIndexNotFound
		}
		return nil, fmt.Errorf("stat index db: %w", err)
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{ReadOnly: true, Timeout: openTimeout})
	if err != nil {
		return nil, fmt.Errorf("open index db: %w", err)
	}
	return db, nil
}

// Meta returns the description of the current build.
func (s *Store) Meta() (Meta, error) {
	db, err := s.openReadOnly()
	if err != nil {
		return Meta{}, err
	}
	defer db.Close()

	var meta Meta
	err = db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketMeta)
		if b == nil {
			return domain.ErrIndexNotFound
		}
		data := b.Get(keyMeta)
		if data == nil {
			return domain.ErrIndexNotFound
		}
		return json.Unmarshal(data, &meta)
	})
	if err != nil {
		return Meta{}, fmt.Errorf("read meta: %w", err)
	}
	return meta, nil
}

// Search returns the k chunks most similar to vec by cosine similarity,
// best first. Equal scores keep insertion order. The database is opened
// read-only for the duration of the call.
func (s *Store) Search(ctx context.Context, vec []float32, k int) ([]domain.ScoredChunk, error) {
	if k <= 0 {
		return nil, nil
	}

	db, err := s.openReadOnly()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	var hits []domain.ScoredChunk
	err = db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketChunks)
		if b == nil {
			return domain.ErrIndexNotFound
		}
		return b.ForEach(func(_, data []byte) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			var r record
			if err := json.Unmarshal(data, &r); err != nil {
				return fmt.Errorf("decode chunk: %w", err)
			}
			if len(r.Vector) != len(vec) {
				return fmt.Errorf("query has %d dimensions, index has %d: %w",
					len(vec), len(r.Vector), domain.ErrVectorDimMismatch)
			}
			hits = append(hits, domain.ScoredChunk{
				Chunk: domain.Chunk{
					ID:       r.ID,
					Source:   r.Source,
					Page:     r.Page,
					Position: r.Position,
					Text:     r.Text,
				},
				Score: cosine(vec, r.Vector),
			})
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}

	slices.SortStableFunc(hits, func(a, b domain.ScoredChunk) int {
		return cmp.Compare(b.Score, a.Score)
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// cosine returns the cosine similarity of a and b, or 0 when either is a zero vector.
func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
