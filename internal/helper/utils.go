package helper

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"

	"pdf-chat/internal/models"
)

// GenerateUUID creates a random unique UUID string
func GenerateUUID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate UUID: %w", err)
	}
	return id.String(), nil
}

// NewSessionKey returns a timestamp-derived session key for t.
func NewSessionKey(t time.Time) string {
	return t.Format(models.SessionKeyLayout)
}

// CreateFolder creates path and its parents if missing.
func CreateFolder(path string) error {
	if path == "" || path == "." {
		return nil
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("failed to create folder %s: %w", path, err)
	}
	return nil
}

// DetectMIME sniffs the content type of an uploaded image.
func DetectMIME(data []byte) string {
	return http.DetectContentType(data)
}

// ImageDataURI encodes an image as a data URI.
func ImageDataURI(data []byte) string {
	return "data:" + DetectMIME(data) + ";base64," + base64.StdEncoding.EncodeToString(data)
}
