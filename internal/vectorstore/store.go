package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"pdf-chat/internal/config"
	"pdf-chat/internal/models"
)

// Store persists chunk texts with their embeddings and answers cosine
// similarity queries.
type Store interface {
	// AddTexts embeds and stores texts as one batch. The batch is rejected
	// whole with models.ErrBatchSizeMismatch if the embedding count differs
	// from the text count.
	AddTexts(ctx context.Context, texts []string) error
	// SimilaritySearch returns up to k documents by descending similarity,
	// earliest insertion first on ties. An empty store yields no documents.
	SimilaritySearch(ctx context.Context, query string, k int) ([]models.Document, error)
	// Clear removes every document and the persisted artifact.
	Clear(ctx context.Context) error
	Count() int
}

// Embedder produces one vector per text, never failing.
type Embedder interface {
	Embed(ctx context.Context, text string) []float32
	EmbedBatch(ctx context.Context, texts []string) [][]float32
	Dimension() int
}

// Sequence hands out store-local ids. Ids are never reused, even after Clear.
type Sequence interface {
	Reserve(ctx context.Context, n int) (first int64, err error)
}

// MemorySequence is a process-local Sequence.
type MemorySequence struct {
	mu   sync.Mutex
	next int64
}

func NewMemorySequence(start int64) *MemorySequence {
	if start < 1 {
		start = 1
	}
	return &MemorySequence{next: start}
}

func (s *MemorySequence) Reserve(_ context.Context, n int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	first := s.next
	s.next += int64(n)
	return first, nil
}

// New opens the store selected by cfg.RAG.VectorStore.
func New(cfg *config.RAGConfig, embedder Embedder, seq Sequence) (Store, error) {
	switch cfg.VectorStore {
	case config.VectorStoreChromem:
		return NewChromemStore(cfg.StorePath, cfg.CollectionName, false, cfg.EncryptionKey, embedder, seq)
	case config.VectorStoreJSON:
		return NewJSONStore(cfg.StorePath, embedder, seq)
	default:
		return nil, fmt.Errorf("%w: unknown vector store %q", models.ErrConfiguration, cfg.VectorStore)
	}
}

func checkBatch(texts []string, vectors [][]float32) error {
	if len(vectors) != len(texts) {
		log.Error().Int("texts", len(texts)).Int("embeddings", len(vectors)).Msg("Mismatch in batch lengths, no documents added")
		return fmt.Errorf("%w: %d texts, %d embeddings", models.ErrBatchSizeMismatch, len(texts), len(vectors))
	}
	return nil
}

// rank orders docs by descending score then ascending id, and keeps the first k.
// Undefined scores (zero-length vectors) rank as 0.
func rank(docs []models.Document, k int) []models.Document {
	if k <= 0 || len(docs) == 0 {
		return []models.Document{}
	}
	for i := range docs {
		if math.IsNaN(float64(docs[i].Score)) {
			docs[i].Score = 0
		}
	}
	sort.SliceStable(docs, func(i, j int) bool {
		if docs[i].Score != docs[j].Score {
			return docs[i].Score > docs[j].Score
		}
		return docs[i].ID < docs[j].ID
	})
	if k < len(docs) {
		docs = docs[:k]
	}
	return docs
}

// CosineSimilarity returns 0 when either vector has zero norm or the lengths differ.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
