package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/kirillkom/cameroon-legal-assistant/internal/core/domain"
	"github.com/kirillkom/cameroon-legal-assistant/internal/infrastructure/resilience"
)

const (
	defaultModel    = goopenai.GPT4oMini
	maxAnswerTokens = 512
	systemPrompt    = "You answer questions about the law and governance of Cameroon. Answer only from established legal sources and say so when you do not know."
)

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

// Engine is a hosted chat-completion backend. It implements
// ports.InferenceHandle.
type Engine struct {
	client   *goopenai.Client
	model    string
	executor *resilience.Executor
}

func New(cfg Config, executor *resilience.Executor) (*Engine, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "openai engine", errors.New("api key is required"))
	}
	clientConfig := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}
	return &Engine{
		client:   goopenai.NewClientWithConfig(clientConfig),
		model:    model,
		executor: executor,
	}, nil
}

func (e *Engine) Name() string {
	return "openai:" + e.model
}

func (e *Engine) Generate(ctx context.Context, prompt string) (string, error) {
	request := goopenai.ChatCompletionRequest{
		Model: e.model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: goopenai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   maxAnswerTokens,
		Temperature: 0.2,
	}
	text, err := resilience.Call(ctx, e.executor, "openai.chat", func(callCtx context.Context) (string, error) {
		resp, err := e.client.CreateChatCompletion(callCtx, request)
		if err != nil {
			return "", fmt.Errorf("openai chat completion: %w", err)
		}
		if len(resp.Choices) == 0 {
			return "", errors.New("openai returned no choices")
		}
		return resp.Choices[0].Message.Content, nil
	}, classifyOpenAIError)
	if err != nil {
		return "", resilience.WrapTemporary("openai generate", err, classifyOpenAIError)
	}
	return strings.TrimSpace(text), nil
}

// IsAvailable lists models and requires the configured one to be present.
func (e *Engine) IsAvailable(ctx context.Context) error {
	models, err := e.client.ListModels(ctx)
	if err != nil {
		return domain.WrapError(domain.ErrResourceUnavailable, "openai probe", err)
	}
	for _, model := range models.Models {
		if model.ID == e.model {
			return nil
		}
	}
	return domain.WrapError(domain.ErrResourceUnavailable, "openai probe", fmt.Errorf("model %q is not served", e.model))
}

func classifyOpenAIError(err error) resilience.ErrorClassification {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return classifyStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return classifyStatus(reqErr.HTTPStatusCode)
	}
	return resilience.ClassifyHTTPError(err)
}

func classifyStatus(statusCode int) resilience.ErrorClassification {
	if resilience.IsRetryableHTTPStatus(statusCode) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}
	return resilience.ErrorClassification{}
}
