package models

import (
	"fmt"
	"strings"
)

type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

type Kind string

const (
	KindText   Kind = "text"
	KindBinary Kind = "binary"
)

// BackendKind tags a chat backend implementation.
type BackendKind string

const (
	BackendGemini BackendKind = "gemini"
	BackendOpenAI BackendKind = "openai"
)

// ParseBackendKind resolves a backend name, case-insensitively.
func ParseBackendKind(name string) (BackendKind, error) {
	switch BackendKind(strings.ToLower(strings.TrimSpace(name))) {
	case BackendGemini:
		return BackendGemini, nil
	case BackendOpenAI:
		return BackendOpenAI, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownBackend, name)
	}
}

// Message is a persisted chat message. Text is set for KindText, Blob for KindBinary.
type Message struct {
	ID        int64
	SessionID string
	Sender    Sender
	Kind      Kind
	Text      string
	Blob      []byte
}

// ChatTurn is one entry of the history sent to a backend.
type ChatTurn struct {
	Role    Sender
	Content string
}

// SessionContext carries the per-session selections every turn depends on.
type SessionContext struct {
	SessionID    string
	Backend      BackendKind
	Model        string
	RAG          bool
	K            int
	MemoryLength int
}

// TurnsFromMessages keeps the text messages of a history, in order.
func TurnsFromMessages(msgs []Message) []ChatTurn {
	turns := make([]ChatTurn, 0, len(msgs))
	for _, m := range msgs {
		if m.Kind != KindText {
			continue
		}
		turns = append(turns, ChatTurn{Role: m.Sender, Content: m.Text})
	}
	return turns
}
