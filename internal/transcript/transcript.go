package transcript

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"pdf-chat/internal/models"
)

var speakers = map[models.Sender]string{
	models.SenderUser:      "User",
	models.SenderAssistant: "Assistant",
}

// Markdown renders a session history as markdown, one section per message.
// Binary messages appear as placeholders.
func Markdown(sessionID string, msgs []models.Message) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Session %s\n\n", sessionID)
	for _, m := range msgs {
		speaker, ok := speakers[m.Sender]
		if !ok {
			speaker = string(m.Sender)
		}
		fmt.Fprintf(&sb, "**%s:**\n\n", speaker)
		if m.Kind == models.KindBinary {
			fmt.Fprintf(&sb, "*[image, %d bytes]*\n\n", len(m.Blob))
			continue
		}
		sb.WriteString(strings.TrimSpace(m.Text))
		sb.WriteString("\n\n")
	}
	return sb.String()
}

// HTML renders a session history to an HTML fragment. Raw HTML inside
// messages is not passed through.
func HTML(sessionID string, msgs []models.Message) (string, error) {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
		),
	)
	var buf bytes.Buffer
	if err := md.Convert([]byte(Markdown(sessionID, msgs)), &buf); err != nil {
		return "", fmt.Errorf("failed to render transcript: %w", err)
	}
	return buf.String(), nil
}

// WriteHTML renders a session history into the file at path.
func WriteHTML(path, sessionID string, msgs []models.Message) error {
	out, err := HTML(sessionID, msgs)
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(out), 0o644)
}
