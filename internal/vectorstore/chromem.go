package vectorstore

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"

	"pdf-chat/internal/models"
)

const (
	compress    = false
	seqMetadata = "seq"
)

// ChromemStore keeps documents in a persistent chromem-go collection.
type ChromemStore struct {
	mu             sync.Mutex
	db             *chromem.DB
	collection     *chromem.Collection
	collectionName string
	dbPath         string
	encryptionKey  string
	embedder       Embedder
	seq            Sequence
}

// NewChromemStore opens (or creates) the collection under dbPath. With
// inMemory set nothing is written to disk.
func NewChromemStore(dbPath, collectionName string, inMemory bool, encryptionKey string, embedder Embedder, seq Sequence) (*ChromemStore, error) {
	var db *chromem.DB
	var err error
	if inMemory {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(dbPath, compress)
		if err != nil {
			return nil, fmt.Errorf("failed to create database: %w", err)
		}
	}

	s := &ChromemStore{
		db:             db,
		collectionName: collectionName,
		dbPath:         dbPath,
		encryptionKey:  encryptionKey,
		embedder:       embedder,
		seq:            seq,
	}
	if err := s.openCollection(); err != nil {
		return nil, err
	}
	if s.seq == nil {
		s.seq = NewMemorySequence(int64(s.collection.Count()) + 1)
	}
	return s, nil
}

func (s *ChromemStore) openCollection() error {
	c, err := s.db.GetOrCreateCollection(s.collectionName, nil, nil)
	if err != nil {
		return fmt.Errorf("failed to create/get collection: %w", err)
	}
	s.collection = c
	return nil
}

func (s *ChromemStore) AddTexts(ctx context.Context, texts []string) error {
	if len(texts) == 0 {
		return nil
	}
	vectors := s.embedder.EmbedBatch(ctx, texts)

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insert(ctx, texts, vectors)
}

func (s *ChromemStore) insert(ctx context.Context, texts []string, vectors [][]float32) error {
	if err := checkBatch(texts, vectors); err != nil {
		return err
	}

	first, err := s.seq.Reserve(ctx, len(texts))
	if err != nil {
		return fmt.Errorf("failed to reserve ids: %w", err)
	}

	docs := make([]chromem.Document, len(texts))
	ids := make([]string, len(texts))
	for i := range texts {
		id := strconv.FormatInt(first+int64(i), 10)
		ids[i] = id
		docs[i] = chromem.Document{
			ID:        id,
			Content:   texts[i],
			Metadata:  map[string]string{seqMetadata: id},
			Embedding: vectors[i],
		}
	}

	if err := s.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		// drop whatever part of the batch made it in
		if delErr := s.collection.Delete(ctx, nil, nil, ids...); delErr != nil {
			log.Error().Err(delErr).Msg("Failed to roll back partial batch")
		}
		return fmt.Errorf("failed to add documents: %w", err)
	}
	log.Debug().Int("documents", len(docs)).Str("collection", s.collectionName).Msg("Added documents to vector database")
	return nil
}

func (s *ChromemStore) SimilaritySearch(ctx context.Context, query string, k int) ([]models.Document, error) {
	if k <= 0 || s.Count() == 0 {
		return []models.Document{}, nil
	}
	queryEmbedding := s.embedder.Embed(ctx, query)

	s.mu.Lock()
	defer s.mu.Unlock()

	// query the whole collection so ties at the cut-off resolve by insertion order
	n := s.collection.Count()
	if n == 0 {
		return []models.Document{}, nil
	}
	results, err := s.collection.QueryEmbedding(ctx, queryEmbedding, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %w", err)
	}

	docs := make([]models.Document, 0, len(results))
	for _, r := range results {
		id, err := strconv.ParseInt(r.Metadata[seqMetadata], 10, 64)
		if err != nil {
			id, _ = strconv.ParseInt(r.ID, 10, 64)
		}
		docs = append(docs, models.Document{ID: id, Content: r.Content, Score: r.Similarity})
	}
	return rank(docs, k), nil
}

// Clear drops the collection, including its files on disk, and starts a new empty one.
func (s *ChromemStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.DeleteCollection(s.collectionName); err != nil {
		return fmt.Errorf("failed to drop collection: %w", err)
	}
	log.Info().Str("collection", s.collectionName).Msg("Cleared vector database")
	return s.openCollection()
}

func (s *ChromemStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.collection.Count()
}

// Export writes the collection to filePath, encrypted with the configured key.
func (s *ChromemStore) Export(filePath string) error {
	if s.encryptionKey == "" {
		return fmt.Errorf("encryption key is required")
	}
	if filePath == "" {
		return fmt.Errorf("file path is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	log.Debug().Str("collection", s.collectionName).Str("file", filePath).Bool("compress", compress).Msg("Exporting collection")
	if err := s.db.ExportToFile(filePath, compress, s.encryptionKey, s.collectionName); err != nil {
		return fmt.Errorf("failed to export database: %w", err)
	}
	return nil
}

// Import loads a collection previously written by Export, replacing the
// current one.
func (s *ChromemStore) Import(filePath string) error {
	if s.encryptionKey == "" {
		return fmt.Errorf("encryption key is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	log.Debug().Str("collection", s.collectionName).Str("file", filePath).Msg("Importing collection")
	if err := s.db.ImportFromFile(filePath, s.encryptionKey, s.collectionName); err != nil {
		return fmt.Errorf("failed to import database: %w", err)
	}
	return s.openCollection()
}

var _ Store = (*ChromemStore)(nil)
