package llmservice

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"

	"pdf-chat/internal/config"
	"pdf-chat/internal/helper"
	"pdf-chat/internal/models"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error)
}

// GeminiBackend calls Google's Gemini models, walking an ordered list of
// models until one answers.
type GeminiBackend struct {
	llm          contentGenerator
	models       []string
	visionModels []string
	timeout      time.Duration
}

func NewGeminiBackend(ctx context.Context, cfg *config.Config) (*GeminiBackend, error) {
	log.Debug().Strs("models", cfg.Gemini.Models).Strs("vision_models", cfg.Gemini.VisionModels).Msg("Creating gemini backend")
	client, err := googleai.New(ctx,
		googleai.WithAPIKey(cfg.Gemini.APIKey),
		googleai.WithDefaultModel(cfg.Gemini.Models[0]),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return NewGeminiBackendWithClient(client, cfg.Gemini.Models, cfg.Gemini.VisionModels, cfg.Timeout), nil
}

func NewGeminiBackendWithClient(llm contentGenerator, textModels, visionModels []string, timeout time.Duration) *GeminiBackend {
	if len(visionModels) == 0 {
		visionModels = textModels
	}
	return &GeminiBackend{llm: llm, models: textModels, visionModels: visionModels, timeout: timeout}
}

// Models returns the text fallback list.
func (g *GeminiBackend) Models() []string {
	return g.models
}

func (g *GeminiBackend) Complete(ctx context.Context, model string, history []models.ChatTurn) (string, error) {
	messages := make([]llms.MessageContent, 0, len(history))
	for _, turn := range history {
		role := llms.ChatMessageTypeHuman
		if turn.Role == models.SenderAssistant {
			role = llms.ChatMessageTypeAI
		}
		messages = append(messages, llms.TextParts(role, turn.Content))
	}
	return g.tryModels(ctx, modelOrder(model, g.models), messages), nil
}

func (g *GeminiBackend) CompleteWithImage(ctx context.Context, model, instruction string, image []byte) (string, error) {
	messages := []llms.MessageContent{{
		Role: llms.ChatMessageTypeHuman,
		Parts: []llms.ContentPart{
			llms.TextContent{Text: instruction},
			llms.BinaryPart(helper.DetectMIME(image), image),
		},
	}}
	return g.tryModels(ctx, modelOrder(model, g.visionModels), messages), nil
}

// tryModels never fails: when every model errors it returns
// models.AllModelsFailedMessage as the answer.
func (g *GeminiBackend) tryModels(ctx context.Context, order []string, messages []llms.MessageContent) string {
	for _, model := range order {
		log.Debug().Str("model", model).Msg("Trying model")
		text, err := g.generate(ctx, model, messages)
		if err != nil {
			log.Warn().Err(err).Str("model", model).Msg("Error with model")
			continue
		}
		log.Debug().Str("model", model).Msg("Success with model")
		return text
	}
	log.Error().Strs("models", order).Msg("All models failed")
	return models.AllModelsFailedMessage
}

func (g *GeminiBackend) generate(ctx context.Context, model string, messages []llms.MessageContent) (string, error) {
	ctx, cancel := withTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.llm.GenerateContent(ctx, messages, llms.WithModel(model))
	if err != nil {
		return "", classify(err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned", models.ErrBackendCall)
	}
	return resp.Choices[0].Content, nil
}

// modelOrder puts the selected model first, followed by the rest of the list.
func modelOrder(selected string, list []string) []string {
	order := make([]string, 0, len(list)+1)
	if selected != "" {
		order = append(order, selected)
	}
	for _, m := range list {
		if m != selected {
			order = append(order, m)
		}
	}
	return order
}

var _ Backend = (*GeminiBackend)(nil)
