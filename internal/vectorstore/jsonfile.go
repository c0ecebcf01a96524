package vectorstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/rs/zerolog/log"

	"pdf-chat/internal/helper"
	"pdf-chat/internal/models"
)

const vectorsFileName = "vectors.json"

// vectorsFile is the on-disk layout: parallel arrays of texts and embeddings,
// plus the store-local id of each record.
type vectorsFile struct {
	Texts      []string    `json:"texts"`
	Embeddings [][]float32 `json:"embeddings"`
	IDs        []int64     `json:"ids,omitempty"`
}

// JSONStore loads every record into memory, scores all of them on each query
// and rewrites its file after every mutation.
type JSONStore struct {
	mu       sync.RWMutex
	path     string
	data     vectorsFile
	embedder Embedder
	seq      Sequence
}

// NewJSONStore opens dir/vectors.json, creating an empty file if needed.
func NewJSONStore(dir string, embedder Embedder, seq Sequence) (*JSONStore, error) {
	if err := helper.CreateFolder(dir); err != nil {
		return nil, err
	}
	s := &JSONStore{
		path:     filepath.Join(dir, vectorsFileName),
		embedder: embedder,
		seq:      seq,
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	if s.seq == nil {
		var maxID int64
		if len(s.data.IDs) > 0 {
			maxID = slices.Max(s.data.IDs)
		}
		s.seq = NewMemorySequence(maxID + 1)
	}
	return s, nil
}

func (s *JSONStore) load() error {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.data = vectorsFile{Texts: []string{}, Embeddings: [][]float32{}}
		return s.save()
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", s.path, err)
	}

	var data vectorsFile
	if err := json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("failed to decode %s: %w", s.path, err)
	}
	if len(data.Texts) != len(data.Embeddings) {
		return fmt.Errorf("%w: %s has %d texts and %d embeddings", models.ErrBatchSizeMismatch, s.path, len(data.Texts), len(data.Embeddings))
	}
	// files written without ids get positional ones
	if len(data.IDs) != len(data.Texts) {
		data.IDs = make([]int64, len(data.Texts))
		for i := range data.IDs {
			data.IDs[i] = int64(i + 1)
		}
	}
	s.data = data
	return nil
}

// save writes to a temporary file in the same directory and renames it over
// the target, so readers never see a partial file.
func (s *JSONStore) save() error {
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".vectors-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := json.NewEncoder(tmp).Encode(&s.data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to encode vectors: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write vectors: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", s.path, err)
	}
	return nil
}

func (s *JSONStore) AddTexts(ctx context.Context, texts []string) error {
	if len(texts) == 0 {
		return nil
	}
	vectors := s.embedder.EmbedBatch(ctx, texts)

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insert(ctx, texts, vectors)
}

func (s *JSONStore) insert(ctx context.Context, texts []string, vectors [][]float32) error {
	if err := checkBatch(texts, vectors); err != nil {
		return err
	}
	first, err := s.seq.Reserve(ctx, len(texts))
	if err != nil {
		return fmt.Errorf("failed to reserve ids: %w", err)
	}

	n := len(s.data.Texts)
	s.data.Texts = append(s.data.Texts, texts...)
	s.data.Embeddings = append(s.data.Embeddings, vectors...)
	for i := range texts {
		s.data.IDs = append(s.data.IDs, first+int64(i))
	}

	if err := s.save(); err != nil {
		s.data.Texts = s.data.Texts[:n]
		s.data.Embeddings = s.data.Embeddings[:n]
		s.data.IDs = s.data.IDs[:n]
		return err
	}
	log.Debug().Int("documents", len(texts)).Str("file", s.path).Msg("Added documents to vector file")
	return nil
}

func (s *JSONStore) SimilaritySearch(ctx context.Context, query string, k int) ([]models.Document, error) {
	if k <= 0 || s.Count() == 0 {
		return []models.Document{}, nil
	}
	queryEmbedding := s.embedder.Embed(ctx, query)

	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := make([]models.Document, len(s.data.Texts))
	for i, emb := range s.data.Embeddings {
		docs[i] = models.Document{
			ID:      s.data.IDs[i],
			Content: s.data.Texts[i],
			Score:   CosineSimilarity(queryEmbedding, emb),
		}
	}
	return rank(docs, k), nil
}

// Clear empties the store and deletes its file.
func (s *JSONStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", s.path, err)
	}
	s.data = vectorsFile{Texts: []string{}, Embeddings: [][]float32{}}
	log.Info().Str("file", s.path).Msg("Cleared vector file")
	return nil
}

func (s *JSONStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data.Texts)
}

var _ Store = (*JSONStore)(nil)
