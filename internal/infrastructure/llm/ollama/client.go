package ollama

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/cameroon-legal-assistant/internal/core/domain"
	"github.com/kirillkom/cameroon-legal-assistant/internal/infrastructure/resilience"
)

const maxAnswerTokens = 256

// Client drives a local Ollama server. It implements ports.InferenceHandle.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
	executor   *resilience.Executor
}

type Options struct {
	HTTPClient         *http.Client
	ResilienceExecutor *resilience.Executor
}

func New(baseURL, model string) *Client {
	return NewWithOptions(baseURL, model, Options{})
}

func NewWithOptions(baseURL, model string, options Options) *Client {
	httpClient := options.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 120 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: httpClient,
		executor:   options.ResilienceExecutor,
	}
}

func (c *Client) Name() string {
	return "ollama:" + c.model
}

func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	reqBody := map[string]any{
		"model":  c.model,
		"prompt": prompt,
		"stream": false,
		"options": map[string]any{
			"num_predict": maxAnswerTokens,
		},
	}
	text, err := resilience.Call(ctx, c.executor, "ollama.generate", func(callCtx context.Context) (string, error) {
		var response struct {
			Response string `json:"response"`
		}
		if err := c.postJSON(callCtx, "/api/generate", reqBody, &response, "generate"); err != nil {
			return "", err
		}
		return response.Response, nil
	}, resilience.ClassifyHTTPError)
	if err != nil {
		return "", resilience.WrapTemporary("ollama generate", err, resilience.ClassifyHTTPError)
	}
	return strings.TrimSpace(text), nil
}

// IsAvailable confirms the server answers and has the configured model pulled.
func (c *Client) IsAvailable(ctx context.Context) error {
	var response struct {
		Models []struct {
			Name  string `json:"name"`
			Model string `json:"model"`
		} `json:"models"`
	}
	if err := c.getJSON(ctx, "/api/tags", &response, "tags"); err != nil {
		return domain.WrapError(domain.ErrResourceUnavailable, "ollama probe", err)
	}
	for _, model := range response.Models {
		if sameModel(model.Name, c.model) || sameModel(model.Model, c.model) {
			return nil
		}
	}
	return domain.WrapError(domain.ErrResourceUnavailable, "ollama probe", fmt.Errorf("model %q is not pulled", c.model))
}

func sameModel(listed, configured string) bool {
	if listed == "" {
		return false
	}
	if listed == configured {
		return true
	}
	return strings.TrimSuffix(listed, ":latest") == strings.TrimSuffix(configured, ":latest")
}
