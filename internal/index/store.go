package index

import (
	"context"
	"encoding/binary"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"lawqa/internal/domain"
)

// ErrArtifactMismatch is returned when the persisted index blob and the raw
// embedding matrix disagree, or when they no longer align with the corpus.
var ErrArtifactMismatch = errors.New("persisted artifacts are inconsistent")

// Store persists a flat index as two artifacts: a gob-encoded blob of the
// index structure and a raw float32 matrix that can be re-loaded without
// recomputation.
type Store struct {
	IndexPath  string
	MatrixPath string
}

type flatBlob struct {
	Dim     int
	Vectors [][]float32
}

// Exists reports whether both artifacts are present.
func (s Store) Exists() bool {
	if _, err := os.Stat(s.IndexPath); err != nil {
		return false
	}
	if _, err := os.Stat(s.MatrixPath); err != nil {
		return false
	}
	return true
}

// Persist writes both artifacts. Each is written to a temporary file and
// renamed into place so a concurrent cold start cannot observe a partial
// write.
func (s Store) Persist(f *Flat) error {
	if err := writeAtomic(s.IndexPath, func(w io.Writer) error {
		return gob.NewEncoder(w).Encode(flatBlob{Dim: f.dim, Vectors: f.vectors})
	}); err != nil {
		return fmt.Errorf("persist index blob: %w", err)
	}
	if err := writeAtomic(s.MatrixPath, func(w io.Writer) error {
		return writeMatrix(w, f.vectors, f.dim)
	}); err != nil {
		return fmt.Errorf("persist embedding matrix: %w", err)
	}
	return nil
}

// Load reads both artifacts and validates that they agree on shape.
func (s Store) Load() (*Flat, error) {
	file, err := os.Open(s.IndexPath)
	if err != nil {
		return nil, fmt.Errorf("open index blob: %w", err)
	}
	defer file.Close()

	var blob flatBlob
	if err := gob.NewDecoder(file).Decode(&blob); err != nil {
		return nil, fmt.Errorf("decode index blob: %w", err)
	}
	if blob.Dim <= 0 {
		return nil, fmt.Errorf("decode index blob: %w", ErrArtifactMismatch)
	}

	rows, cols, err := readMatrixShape(s.MatrixPath)
	if err != nil {
		return nil, err
	}
	if rows != len(blob.Vectors) || cols != blob.Dim {
		return nil, fmt.Errorf("index blob holds %dx%d but matrix holds %dx%d: %w",
			len(blob.Vectors), blob.Dim, rows, cols, ErrArtifactMismatch)
	}

	f := &Flat{dim: blob.Dim, vectors: blob.Vectors}
	return f, nil
}

// LoadOrBuild loads the persisted index when both artifacts exist.
// Otherwise it embeds every text in order (one service call per text),
// builds a fresh index, persists it, and returns it. progress, when
// non-nil, is called after each completed embedding.
func (s Store) LoadOrBuild(ctx context.Context, texts []string, emb domain.Embedder, progress func(done, total int)) (*Flat, error) {
	if s.Exists() {
		return s.Load()
	}

	vectors := make([][]float32, 0, len(texts))
	dim := 0
	for i, text := range texts {
		vec, err := emb.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed section %d: %w", i+1, err)
		}
		if dim == 0 {
			dim = len(vec)
		}
		if len(vec) != dim {
			return nil, fmt.Errorf("embed section %d: %w", i+1, ErrDimensionMismatch)
		}
		vectors = append(vectors, vec)
		if progress != nil {
			progress(i+1, len(texts))
		}
	}
	if dim == 0 {
		return nil, errors.New("no sections to index")
	}

	f, err := NewFlat(dim)
	if err != nil {
		return nil, err
	}
	if err := f.Add(vectors...); err != nil {
		return nil, err
	}
	if err := s.Persist(f); err != nil {
		return nil, err
	}
	return f, nil
}

func writeAtomic(path string, write func(io.Writer) error) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := write(file); err != nil {
		file.Close()
		os.Remove(tmp)
		return err
	}
	if err := file.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// The matrix artifact is little-endian: uint32 row and column counts
// followed by rows*cols float32 values in row-major order.
func writeMatrix(w io.Writer, vectors [][]float32, dim int) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(vectors))); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(dim)); err != nil {
		return err
	}
	for _, v := range vectors {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	return nil
}

func readMatrixShape(path string) (rows, cols int, err error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("open embedding matrix: %w", err)
	}
	defer file.Close()

	var r, c uint32
	if err := binary.Read(file, binary.LittleEndian, &r); err != nil {
		return 0, 0, fmt.Errorf("read embedding matrix header: %w", err)
	}
	if err := binary.Read(file, binary.LittleEndian, &c); err != nil {
		return 0, 0, fmt.Errorf("read embedding matrix header: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		return 0, 0, err
	}
	want := int64(8) + int64(r)*int64(c)*4
	if info.Size() != want {
		return 0, 0, fmt.Errorf("embedding matrix is %d bytes, want %d: %w", info.Size(), want, ErrArtifactMismatch)
	}
	return int(r), int(c), nil
}
