package csv

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/w-h-a/insight/store"
)

const (
	chunksFile   = "chunks.csv"
	manifestFile = "manifest.json"
)

var header = []string{"Filename", "Content", "Embedding"}

type manifest struct {
	Model     string `json:"model"`
	Dimension int    `json:"dimension"`
}

// csvStore keeps one partition in memory and persists it as a tabular file,
// one row per chunk, with the embedding encoded as a bracketed float list.
type csvStore struct {
	options store.Options
	dir     string
	chunks  []store.Chunk
	model   string
	dim     int
	mtx     sync.RWMutex
}

func (s *csvStore) Add(ctx context.Context, chunks ...store.Chunk) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	for _, ch := range chunks {
		if s.dim > 0 && len(ch.Embedding) != s.dim {
			return fmt.Errorf("chunk %s: embedding length %d, want %d", ch.Id, len(ch.Embedding), s.dim)
		}

		cpy := ch
		cpy.Embedding = store.Normalize(ch.Embedding)
		s.chunks = append(s.chunks, cpy)

		if s.dim == 0 {
			s.dim = len(cpy.Embedding)
		}
	}

	return s.snapshot()
}

func (s *csvStore) TopK(ctx context.Context, vector []float32, k int) ([]store.Result, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	if len(s.chunks) == 0 {
		return nil, store.ErrEmptyStore
	}

	return store.Rank(s.chunks, vector, k), nil
}

func (s *csvStore) Count(ctx context.Context) (int, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	return len(s.chunks), nil
}

func (s *csvStore) Model(ctx context.Context) (string, error) {
	return s.model, nil
}

func (s *csvStore) Close() error {
	return nil
}

func (s *csvStore) load() error {
	if err := s.loadManifest(); err != nil {
		return err
	}

	f, err := os.Open(filepath.Join(s.dir, chunksFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(header)

	// header row
	if _, err := r.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}

	row := 0
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return &store.MalformedRecordError{Row: row, Err: err}
		}

		vec, err := store.ParseVector(record[2])
		if err != nil {
			return &store.MalformedRecordError{Row: row, Err: err}
		}

		if s.dim > 0 && len(vec) != s.dim {
			return &store.MalformedRecordError{
				Row: row,
				Err: fmt.Errorf("embedding length %d, want %d", len(vec), s.dim),
			}
		}

		if s.dim == 0 {
			s.dim = len(vec)
		}

		s.chunks = append(s.chunks, store.Chunk{
			Id:        record[0],
			Content:   record[1],
			Embedding: vec,
		})

		row++
	}

	return nil
}

func (s *csvStore) loadManifest() error {
	bs, err := os.ReadFile(filepath.Join(s.dir, manifestFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}

	var m manifest
	if err := json.Unmarshal(bs, &m); err != nil {
		return err
	}

	if len(s.model) > 0 && len(m.Model) > 0 && m.Model != s.model {
		return fmt.Errorf("%w: have %s, want %s", store.ErrModelMismatch, m.Model, s.model)
	}

	if len(m.Model) > 0 {
		s.model = m.Model
	}
	if m.Dimension > 0 {
		s.dim = m.Dimension
	}

	return nil
}

// snapshot writes the whole partition to temp files and renames them into
// place so concurrent readers never observe a partially written store.
func (s *csvStore) snapshot() error {
	tmp, err := os.CreateTemp(s.dir, chunksFile+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)

	if err := w.Write(header); err != nil {
		tmp.Close()
		return err
	}

	for _, ch := range s.chunks {
		if err := w.Write([]string{ch.Id, ch.Content, store.FormatVector(ch.Embedding)}); err != nil {
			tmp.Close()
			return err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return err
	}

	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, chunksFile)); err != nil {
		return err
	}

	return s.writeManifest()
}

func (s *csvStore) writeManifest() error {
	bs, err := json.Marshal(manifest{Model: s.model, Dimension: s.dim})
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, manifestFile+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(bs); err != nil {
		tmp.Close()
		return err
	}

	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), filepath.Join(s.dir, manifestFile))
}

type csvOpener struct {
	options store.Options
}

func (o *csvOpener) Open(ctx context.Context, id string) (store.Store, error) {
	if err := store.ValidateId(id); err != nil {
		return nil, err
	}

	dir := filepath.Join(o.options.Location, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	s := &csvStore{
		options: o.options,
		dir:     dir,
		model:   o.options.Model,
		dim:     o.options.Dimension,
	}

	if err := s.load(); err != nil {
		return nil, err
	}

	return s, nil
}

// NewOpener returns an Opener that keeps one directory per partition under
// the namespace root given by WithLocation.
func NewOpener(opts ...store.Option) store.Opener {
	options := store.NewOptions(opts...)

	return &csvOpener{
		options: options,
	}
}
