package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"pdf-chat/internal/models"
)

// Searcher is the read side of the vector store.
type Searcher interface {
	SimilaritySearch(ctx context.Context, query string, k int) ([]models.Document, error)
}

type RAG struct {
	store Searcher
}

func NewRAG(store Searcher) *RAG {
	return &RAG{store: store}
}

// Query retrieves the k chunks closest to question and returns the augmented
// prompt along with the documents it was built from.
func (r *RAG) Query(ctx context.Context, question string, k int) (string, []models.Document, error) {
	docs, err := r.store.SimilaritySearch(ctx, question, k)
	if err != nil {
		return "", nil, fmt.Errorf("failed to retrieve context: %w", err)
	}
	log.Debug().Int("k", k).Int("retrieved", len(docs)).Msg("Retrieved context documents")
	return BuildAugmentedPrompt(question, docs), docs, nil
}

// BuildAugmentedPrompt joins the retrieved texts with newlines and renders them
// with the question. No documents still yields a prompt, with an empty context.
func BuildAugmentedPrompt(question string, docs []models.Document) string {
	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Content
	}
	return fmt.Sprintf(models.AugmentedPromptTemplate, strings.Join(texts, models.ContextSeparator), question)
}
