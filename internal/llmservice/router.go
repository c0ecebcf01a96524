package llmservice

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"pdf-chat/internal/models"
)

// Retriever builds a context-augmented prompt for a question.
type Retriever interface {
	Query(ctx context.Context, question string, k int) (string, []models.Document, error)
}

// Router dispatches a turn to the backend selected by the session context.
type Router struct {
	backends  map[models.BackendKind]Backend
	retriever Retriever
}

func NewRouter(retriever Retriever) *Router {
	return &Router{backends: make(map[models.BackendKind]Backend), retriever: retriever}
}

func (r *Router) Register(kind models.BackendKind, backend Backend) {
	r.backends[kind] = backend
}

func (r *Router) Backend(kind models.BackendKind) (Backend, error) {
	backend, ok := r.backends[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", models.ErrUnknownBackend, kind)
	}
	return backend, nil
}

// Chat answers userInput. With retrieval enabled the user turn is replaced by
// the augmented prompt and any image is ignored; otherwise an image goes to
// the backend's image capability. history is not modified.
func (r *Router) Chat(ctx context.Context, sc models.SessionContext, userInput string, history []models.ChatTurn, image []byte) (string, error) {
	backend, err := r.Backend(sc.Backend)
	if err != nil {
		return "", err
	}
	log.Debug().Str("backend", string(sc.Backend)).Str("model", sc.Model).Bool("rag", sc.RAG).Bool("image", len(image) > 0).Msg("Routing chat")

	turns := make([]models.ChatTurn, len(history), len(history)+1)
	copy(turns, history)

	switch {
	case sc.RAG:
		if r.retriever == nil {
			return "", fmt.Errorf("%w: retrieval requested but no vector store is configured", models.ErrConfiguration)
		}
		prompt, _, err := r.retriever.Query(ctx, userInput, sc.K)
		if err != nil {
			return "", err
		}
		turns = append(turns, models.ChatTurn{Role: models.SenderUser, Content: prompt})
		return backend.Complete(ctx, sc.Model, turns)
	case len(image) > 0:
		return backend.CompleteWithImage(ctx, sc.Model, userInput, image)
	default:
		turns = append(turns, models.ChatTurn{Role: models.SenderUser, Content: userInput})
		return backend.Complete(ctx, sc.Model, turns)
	}
}
