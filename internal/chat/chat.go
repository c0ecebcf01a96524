package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"pdf-chat/internal/models"
)

// MessageStore is the persistence the turn flow needs.
type MessageStore interface {
	SaveMessage(ctx context.Context, msg models.Message) (int64, error)
	LoadLastKTextMessages(ctx context.Context, sessionID string, k int) ([]models.Message, error)
	GetSetting(ctx context.Context, name, defaultValue string) (string, error)
	UpdateSetting(ctx context.Context, name, value string) error
}

// Chatter answers a turn, see llmservice.Router.
type Chatter interface {
	Chat(ctx context.Context, sc models.SessionContext, userInput string, history []models.ChatTurn, image []byte) (string, error)
}

// ModelLister enumerates live models of a backend.
type ModelLister interface {
	ListModels(ctx context.Context) ([]string, error)
}

// Catalog is what /models reports. OpenAI may be nil when no key is set.
type Catalog struct {
	Gemini []string
	OpenAI ModelLister
}

// Service runs one conversational turn end to end.
type Service struct {
	store   MessageStore
	router  Chatter
	catalog Catalog
}

func NewService(store MessageStore, router Chatter, catalog Catalog) *Service {
	return &Service{store: store, router: router, catalog: catalog}
}

// Turn answers input in the session described by sc. The user turn is
// persisted before the backend is called, so it survives a failed call.
// Slash commands are answered locally and not persisted.
func (s *Service) Turn(ctx context.Context, sc models.SessionContext, input string, image []byte) (string, error) {
	if reply, ok := s.command(ctx, input); ok {
		return reply, nil
	}
	if sc.SessionID == "" {
		return "", fmt.Errorf("%w: no session selected", models.ErrConfiguration)
	}

	past, err := s.store.LoadLastKTextMessages(ctx, sc.SessionID, sc.MemoryLength)
	if err != nil {
		return "", err
	}
	history := models.TurnsFromMessages(past)

	if strings.TrimSpace(input) != "" || len(image) == 0 {
		if _, err := s.store.SaveMessage(ctx, models.Message{
			SessionID: sc.SessionID,
			Sender:    models.SenderUser,
			Kind:      models.KindText,
			Text:      input,
		}); err != nil {
			return "", err
		}
	}
	if len(image) > 0 {
		if _, err := s.store.SaveMessage(ctx, models.Message{
			SessionID: sc.SessionID,
			Sender:    models.SenderUser,
			Kind:      models.KindBinary,
			Blob:      image,
		}); err != nil {
			return "", err
		}
	}

	reply, err := s.router.Chat(ctx, sc, input, history, image)
	if err != nil {
		log.Error().Err(err).Str("session", sc.SessionID).Msg("Chat backend failed")
		return "", err
	}

	if _, err := s.store.SaveMessage(ctx, models.Message{
		SessionID: sc.SessionID,
		Sender:    models.SenderAssistant,
		Kind:      models.KindText,
		Text:      reply,
	}); err != nil {
		return "", err
	}
	return reply, nil
}

func (s *Service) command(ctx context.Context, input string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "/help":
		return models.HelpText, true
	case "/models":
		return s.listModels(ctx), true
	}
	return "", false
}

func (s *Service) listModels(ctx context.Context) string {
	var sb strings.Builder
	sb.WriteString("Gemini models:\n")
	for _, m := range s.catalog.Gemini {
		fmt.Fprintf(&sb, "- %s\n", m)
	}
	if s.catalog.OpenAI == nil {
		return strings.TrimRight(sb.String(), "\n")
	}

	sb.WriteString("OpenAI models:\n")
	ids, err := s.catalog.OpenAI.ListModels(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to list OpenAI models")
		sb.WriteString("- unavailable\n")
	}
	for _, id := range ids {
		fmt.Fprintf(&sb, "- %s\n", id)
	}
	return strings.TrimRight(sb.String(), "\n")
}
