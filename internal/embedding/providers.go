package embedding

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"pdf-chat/internal/config"
)

// NewProvider builds the embedding provider selected by cfg.EmbedLLM.
func NewProvider(ctx context.Context, cfg *config.Config) (Provider, error) {
	llmCfg := &cfg.EmbedLLM
	log.Debug().Interface("config", map[string]string{
		"provider":        llmCfg.Provider,
		"base_url":        llmCfg.BaseURL,
		"embedding_model": llmCfg.Model,
	}).Msg("Loaded embedding config")

	var (
		embedder *embeddings.EmbedderImpl
		err      error
	)
	switch llmCfg.Provider {
	case config.ProviderGemini:
		key := llmCfg.Key
		if key == "" {
			key = cfg.Gemini.APIKey
		}
		embedder, err = NewGeminiEmbedder(ctx, key, llmCfg.Model)
	case config.ProviderOllama:
		embedder, err = NewOllamaEmbedder(llmCfg)
	case config.ProviderOpenAI:
		key := llmCfg.Key
		if key == "" {
			key = cfg.OpenAI.APIKey
		}
		baseURL := llmCfg.BaseURL
		if baseURL == "" {
			baseURL = cfg.OpenAI.BaseURL
		}
		embedder, err = NewOpenAIEmbedder(key, baseURL, llmCfg.Model)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", llmCfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return embedder, nil
}

// NewGeminiEmbedder embeds with Google's embedding models (768 dimensions for embedding-001).
func NewGeminiEmbedder(ctx context.Context, apiKey, model string) (*embeddings.EmbedderImpl, error) {
	client, err := googleai.New(ctx,
		googleai.WithAPIKey(apiKey),
		googleai.WithDefaultEmbeddingModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return embeddings.NewEmbedder(client)
}

func NewOllamaEmbedder(llmCfg *config.LLMConfig) (*embeddings.EmbedderImpl, error) {
	opts := []ollama.Option{ollama.WithModel(llmCfg.Model)}
	if llmCfg.BaseURL != "" {
		opts = append(opts, ollama.WithServerURL(llmCfg.BaseURL))
	}
	llm, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create ollama client: %w", err)
	}
	return embeddings.NewEmbedder(llm)
}

func NewOpenAIEmbedder(apiKey, baseURL, model string) (*embeddings.EmbedderImpl, error) {
	opts := []openai.Option{
		openai.WithToken(strings.TrimPrefix(apiKey, "Bearer ")),
		openai.WithEmbeddingModel(model),
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create openai client: %w", err)
	}
	return embeddings.NewEmbedder(llm)
}
