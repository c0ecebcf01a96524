package db

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"pdf-chat/internal/models"
)

type Message struct {
	bun.BaseModel `bun:"table:messages,alias:m"`
	ID            int64  `bun:"message_id,pk,autoincrement"`
	SessionID     string `bun:"session_id,notnull"`
	Sender        string `bun:"sender,notnull"`
	Kind          string `bun:"kind,notnull"`
	TextContent   string `bun:"text_content,nullzero"`
	BlobContent   []byte `bun:"blob_content,nullzero"`
}

func toRow(msg models.Message) *Message {
	return &Message{
		SessionID:   msg.SessionID,
		Sender:      string(msg.Sender),
		Kind:        string(msg.Kind),
		TextContent: msg.Text,
		BlobContent: msg.Blob,
	}
}

func (m *Message) toModel() models.Message {
	return models.Message{
		ID:        m.ID,
		SessionID: m.SessionID,
		Sender:    models.Sender(m.Sender),
		Kind:      models.Kind(m.Kind),
		Text:      m.TextContent,
		Blob:      m.BlobContent,
	}
}

// SaveMessage appends msg to its session and returns the insertion id.
func (s *Store) SaveMessage(ctx context.Context, msg models.Message) (int64, error) {
	if msg.SessionID == "" {
		return 0, fmt.Errorf("message has no session id")
	}
	row := toRow(msg)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.NewInsert().Model(row).Returning("message_id").Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to save message: %w", err)
	}
	return row.ID, nil
}

// LoadMessages returns every message of a session in insertion order.
func (s *Store) LoadMessages(ctx context.Context, sessionID string) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rows []Message
	err := s.db.NewSelect().
		Model(&rows).
		Where("session_id = ?", sessionID).
		Order("message_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	return toModels(rows), nil
}

// LoadLastKTextMessages returns the k most recent text messages of a
// session, oldest first.
func (s *Store) LoadLastKTextMessages(ctx context.Context, sessionID string, k int) ([]models.Message, error) {
	if k <= 0 {
		return []models.Message{}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var rows []Message
	err := s.db.NewSelect().
		Model(&rows).
		Where("session_id = ?", sessionID).
		Where("kind = ?", string(models.KindText)).
		Order("message_id DESC").
		Limit(k).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return toModels(rows), nil
}

// DeleteHistory removes every message of a session.
func (s *Store) DeleteHistory(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.NewDelete().
		Model((*Message)(nil)).
		Where("session_id = ?", sessionID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete history: %w", err)
	}
	return nil
}

// ListSessionIDs returns the distinct session ids in storage, sorted.
func (s *Store) ListSessionIDs(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := []string{}
	err := s.db.NewSelect().
		Model((*Message)(nil)).
		Distinct().
		Column("session_id").
		Order("session_id ASC").
		Scan(ctx, &ids)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return ids, nil
}

func toModels(rows []Message) []models.Message {
	msgs := make([]models.Message, len(rows))
	for i := range rows {
		msgs[i] = rows[i].toModel()
	}
	return msgs
}
