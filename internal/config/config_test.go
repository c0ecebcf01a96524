package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"pdf-chat/internal/models"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.RAG.ChunkSize != models.DefaultChunkSize || cfg.RAG.ChunkOverlap != models.DefaultChunkOverlap {
		t.Fatalf("unexpected chunking defaults: %+v", cfg.RAG)
	}
	if cfg.RAG.EmbeddingDimension != 768 {
		t.Fatalf("expected dimension 768, got %d", cfg.RAG.EmbeddingDimension)
	}
	if cfg.RAG.VectorStore != VectorStoreChromem {
		t.Fatalf("expected chromem store, got %q", cfg.RAG.VectorStore)
	}
	if cfg.Timeout != 30*time.Second {
		t.Fatalf("expected 30s timeout, got %s", cfg.Timeout)
	}
	if cfg.Gemini.Models[0] != "gemini-2.0-flash" {
		t.Fatalf("unexpected gemini models: %v", cfg.Gemini.Models)
	}
}

func TestLoadConfigFileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
database:
  driver: sqlite
  dsn: ":memory:"
gemini:
  api_key: from-file
  models: [m1, m2]
rag:
  vector_store: json
  chunk_size: 500
  chunk_overlap: 50
  retrieved_documents: 3
timeout: 5s
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GEMINI_API_KEY", "from-env")
	t.Setenv("OPENAI_API_KEY", "")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Gemini.APIKey != "from-env" {
		t.Fatalf("expected env override, got %q", cfg.Gemini.APIKey)
	}
	if len(cfg.Gemini.Models) != 2 || cfg.Gemini.Models[1] != "m2" {
		t.Fatalf("unexpected models: %v", cfg.Gemini.Models)
	}
	if cfg.RAG.ChunkSize != 500 || cfg.RAG.ChunkOverlap != 50 || cfg.RAG.RetrievedDocuments != 3 {
		t.Fatalf("unexpected rag config: %+v", cfg.RAG)
	}
	if cfg.RAG.ChatMemoryLength != models.DefaultChatMemoryLength {
		t.Fatalf("expected default memory length, got %d", cfg.RAG.ChatMemoryLength)
	}
	if cfg.Timeout != 5*time.Second {
		t.Fatalf("expected 5s, got %s", cfg.Timeout)
	}
}

func TestValidateRejectsBadChunking(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
	}{
		{"overlap equals size", 100, 100},
		{"overlap exceeds size", 100, 150},
		{"negative overlap", 100, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			cfg.RAG.ChunkSize = tt.size
			cfg.RAG.ChunkOverlap = tt.overlap
			ApplyDefaults(cfg)
			err := cfg.Validate()
			if !errors.Is(err, models.ErrConfiguration) {
				t.Fatalf("expected ErrConfiguration, got %v", err)
			}
		})
	}
}

func TestValidateRejectsUnknownBackend(t *testing.T) {
	cfg := &Config{Defaults: DefaultsConfig{Backend: "claude"}}
	ApplyDefaults(cfg)
	if err := cfg.Validate(); !errors.Is(err, models.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}
