package llmservice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"pdf-chat/internal/config"
	"pdf-chat/internal/helper"
	"pdf-chat/internal/models"
)

type chatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
	ListModels(ctx context.Context) (openai.ModelsList, error)
}

// BackendError is an error payload returned by the upstream API, such as a
// quota or authentication failure.
type BackendError struct {
	Status  int
	Type    string
	Message string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("openai api error (status %d, %s): %s", e.Status, e.Type, e.Message)
}

// Result is either an answer or an upstream error payload.
type Result struct {
	Text string
	Err  *BackendError
}

// OpenAIBackend talks to the OpenAI chat completions API or a compatible server.
type OpenAIBackend struct {
	client       chatClient
	defaultModel string
	timeout      time.Duration
}

func NewOpenAIBackend(cfg *config.Config) *OpenAIBackend {
	clientCfg := openai.DefaultConfig(cfg.OpenAI.APIKey)
	if cfg.OpenAI.BaseURL != "" {
		clientCfg.BaseURL = cfg.OpenAI.BaseURL
	}
	var defaultModel string
	if len(cfg.OpenAI.Models) > 0 {
		defaultModel = cfg.OpenAI.Models[0]
	}
	return NewOpenAIBackendWithClient(openai.NewClientWithConfig(clientCfg), defaultModel, cfg.Timeout)
}

func NewOpenAIBackendWithClient(client chatClient, defaultModel string, timeout time.Duration) *OpenAIBackend {
	return &OpenAIBackend{client: client, defaultModel: defaultModel, timeout: timeout}
}

// Call sends messages and separates upstream error payloads (Result.Err)
// from transport failures (the returned error).
func (b *OpenAIBackend) Call(ctx context.Context, model string, messages []openai.ChatCompletionMessage) (Result, error) {
	if model == "" {
		model = b.defaultModel
	}
	ctx, cancel := withTimeout(ctx, b.timeout)
	defer cancel()

	resp, err := b.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    model,
		Messages: messages,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return Result{Err: &BackendError{Status: apiErr.HTTPStatusCode, Type: apiErr.Type, Message: apiErr.Message}}, nil
		}
		return Result{}, classify(err)
	}
	if len(resp.Choices) == 0 {
		return Result{}, fmt.Errorf("%w: openai chat completion returned no choices", models.ErrBackendCall)
	}
	return Result{Text: resp.Choices[0].Message.Content}, nil
}

// Complete returns the upstream error message as the answer when the API
// rejects the request, so the conversation always shows a reply.
func (b *OpenAIBackend) Complete(ctx context.Context, model string, history []models.ChatTurn) (string, error) {
	messages := make([]openai.ChatCompletionMessage, len(history))
	for i, turn := range history {
		role := openai.ChatMessageRoleUser
		if turn.Role == models.SenderAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages[i] = openai.ChatCompletionMessage{Role: role, Content: turn.Content}
	}
	return b.answer(ctx, model, messages)
}

func (b *OpenAIBackend) CompleteWithImage(ctx context.Context, model, instruction string, image []byte) (string, error) {
	messages := []openai.ChatCompletionMessage{{
		Role: openai.ChatMessageRoleUser,
		MultiContent: []openai.ChatMessagePart{
			{Type: openai.ChatMessagePartTypeText, Text: instruction},
			{
				Type:     openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{URL: helper.ImageDataURI(image), Detail: openai.ImageURLDetailAuto},
			},
		},
	}}
	return b.answer(ctx, model, messages)
}

func (b *OpenAIBackend) answer(ctx context.Context, model string, messages []openai.ChatCompletionMessage) (string, error) {
	res, err := b.Call(ctx, model, messages)
	if err != nil {
		return "", err
	}
	if res.Err != nil {
		log.Warn().Err(res.Err).Str("model", model).Msg("OpenAI returned an error payload")
		return res.Err.Message, nil
	}
	return res.Text, nil
}

func (b *OpenAIBackend) ListModels(ctx context.Context) ([]string, error) {
	ctx, cancel := withTimeout(ctx, b.timeout)
	defer cancel()

	list, err := b.client.ListModels(ctx)
	if err != nil {
		return nil, classify(err)
	}
	ids := make([]string, 0, len(list.Models))
	for _, m := range list.Models {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

var (
	_ Backend     = (*OpenAIBackend)(nil)
	_ ModelLister = (*OpenAIBackend)(nil)
)
