package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"pdf-chat/internal/models"
)

const (
	VectorStoreChromem = "chromem"
	VectorStoreJSON    = "json"

	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverPQ       = "pq"

	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Gemini   GeminiConfig   `yaml:"gemini"`
	OpenAI   OpenAIConfig   `yaml:"openai"`
	EmbedLLM LLMConfig      `yaml:"embed_llm"`
	RAG      RAGConfig      `yaml:"rag"`
	Defaults DefaultsConfig `yaml:"defaults"`
	Timeout  time.Duration  `yaml:"timeout"`
	LogLevel string         `yaml:"log_level"`
}

type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	DSN      string `yaml:"dsn"`
	Password string `yaml:"password"`
	Debug    bool   `yaml:"debug"`
}

type GeminiConfig struct {
	APIKey       string   `yaml:"api_key"`
	Models       []string `yaml:"models"`
	VisionModels []string `yaml:"vision_models"`
}

type OpenAIConfig struct {
	APIKey  string   `yaml:"api_key"`
	BaseURL string   `yaml:"base_url"`
	Models  []string `yaml:"models"`
}

// LLMConfig describes the embedding provider.
type LLMConfig struct {
	Provider string `yaml:"provider"`
	BaseURL  string `yaml:"base_url"`
	Key      string `yaml:"key"`
	Model    string `yaml:"model"`
}

type RAGConfig struct {
	VectorStore        string `yaml:"vector_store"`
	StorePath          string `yaml:"store_path"`
	CollectionName     string `yaml:"collection_name"`
	EncryptionKey      string `yaml:"encryption_key"`
	EmbeddingDimension int    `yaml:"embedding_dimension"`
	ChunkSize          int    `yaml:"chunk_size"`
	ChunkOverlap       int    `yaml:"chunk_overlap"`
	RetrievedDocuments int    `yaml:"retrieved_documents"`
	ChatMemoryLength   int    `yaml:"chat_memory_length"`
}

type DefaultsConfig struct {
	Backend string `yaml:"backend"`
	Model   string `yaml:"model"`
}

// LoadConfig reads the YAML file at path, falling back to defaults when it
// does not exist. Variables from a .env file in the working directory are
// loaded first; GEMINI_API_KEY and OPENAI_API_KEY override the file.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	ApplyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.Gemini.APIKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.OpenAI.APIKey = v
	}
}

// ApplyDefaults fills every zero-valued option.
func ApplyDefaults(cfg *Config) {
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = DriverSQLite
	}
	if cfg.Database.DSN == "" && cfg.Database.Driver == DriverSQLite {
		cfg.Database.DSN = "./data/chat_sessions.db"
	}
	if len(cfg.Gemini.Models) == 0 {
		cfg.Gemini.Models = []string{"gemini-2.0-flash", "gemini-pro", "gemini-1.0-pro"}
	}
	if len(cfg.Gemini.VisionModels) == 0 {
		cfg.Gemini.VisionModels = []string{"gemini-2.0-flash", "gemini-pro-vision", "gemini-1.0-pro-vision"}
	}
	if len(cfg.OpenAI.Models) == 0 {
		cfg.OpenAI.Models = []string{"gpt-3.5-turbo", "gpt-4"}
	}
	if cfg.EmbedLLM.Provider == "" {
		cfg.EmbedLLM.Provider = ProviderGemini
	}
	if cfg.EmbedLLM.Model == "" {
		switch cfg.EmbedLLM.Provider {
		case ProviderGemini:
			cfg.EmbedLLM.Model = "embedding-001"
		case ProviderOllama:
			cfg.EmbedLLM.Model = "nomic-embed-text"
		case ProviderOpenAI:
			cfg.EmbedLLM.Model = "text-embedding-3-small"
		}
	}

	rag := &cfg.RAG
	if rag.VectorStore == "" {
		rag.VectorStore = VectorStoreChromem
	}
	if rag.StorePath == "" {
		rag.StorePath = "./chroma_db"
	}
	if rag.CollectionName == "" {
		rag.CollectionName = "pdf_chunks"
	}
	if rag.EmbeddingDimension == 0 {
		rag.EmbeddingDimension = models.DefaultEmbeddingDimension
	}
	if rag.ChunkSize == 0 {
		rag.ChunkSize = models.DefaultChunkSize
		if rag.ChunkOverlap == 0 {
			rag.ChunkOverlap = models.DefaultChunkOverlap
		}
	}
	if rag.RetrievedDocuments == 0 {
		rag.RetrievedDocuments = models.DefaultRetrievedDocuments
	}
	if rag.ChatMemoryLength == 0 {
		rag.ChatMemoryLength = models.DefaultChatMemoryLength
	}

	if cfg.Defaults.Backend == "" {
		cfg.Defaults.Backend = string(models.BackendGemini)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = models.DefaultTimeout
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "debug"
	}
}

// Validate reports the first invalid option wrapped in models.ErrConfiguration.
func (c *Config) Validate() error {
	rag := c.RAG
	switch {
	case rag.ChunkSize <= 0:
		return fmt.Errorf("%w: chunk_size must be positive, got %d", models.ErrConfiguration, rag.ChunkSize)
	case rag.ChunkOverlap < 0:
		return fmt.Errorf("%w: chunk_overlap must not be negative, got %d", models.ErrConfiguration, rag.ChunkOverlap)
	case rag.ChunkOverlap >= rag.ChunkSize:
		return fmt.Errorf("%w: chunk_overlap (%d) must be smaller than chunk_size (%d)", models.ErrConfiguration, rag.ChunkOverlap, rag.ChunkSize)
	case rag.EmbeddingDimension <= 0:
		return fmt.Errorf("%w: embedding_dimension must be positive", models.ErrConfiguration)
	case rag.RetrievedDocuments <= 0:
		return fmt.Errorf("%w: retrieved_documents must be positive", models.ErrConfiguration)
	case rag.ChatMemoryLength <= 0:
		return fmt.Errorf("%w: chat_memory_length must be positive", models.ErrConfiguration)
	case rag.VectorStore != VectorStoreChromem && rag.VectorStore != VectorStoreJSON:
		return fmt.Errorf("%w: unknown vector_store %q", models.ErrConfiguration, rag.VectorStore)
	}

	switch c.Database.Driver {
	case DriverSQLite, DriverPostgres, DriverPQ:
	default:
		return fmt.Errorf("%w: unknown database driver %q", models.ErrConfiguration, c.Database.Driver)
	}

	if _, err := models.ParseBackendKind(c.Defaults.Backend); err != nil {
		return fmt.Errorf("%w: %v", models.ErrConfiguration, err)
	}
	return nil
}
