package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/kirillkom/cameroon-legal-assistant/internal/core/domain"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("unexpected authorization header %q", r.Header.Get("Authorization"))
		}
		switch r.URL.Path {
		case "/chat/completions":
			var req goopenai.ChatCompletionRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("decode request: %v", err)
			}
			if len(req.Messages) != 2 || req.Messages[1].Content != "question: what is the senate" {
				t.Errorf("unexpected messages %+v", req.Messages)
			}
			_ = json.NewEncoder(w).Encode(goopenai.ChatCompletionResponse{
				Model: req.Model,
				Choices: []goopenai.ChatCompletionChoice{{
					Message: goopenai.ChatCompletionMessage{
						Role:    goopenai.ChatMessageRoleAssistant,
						Content: " The Senate represents the regions. ",
					},
					FinishReason: goopenai.FinishReasonStop,
				}},
			})
		case "/models":
			_ = json.NewEncoder(w).Encode(goopenai.ModelsList{
				Models: []goopenai.Model{{ID: "gpt-4o-mini"}, {ID: "gpt-4o"}},
			})
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestGenerateReturnsFirstChoice(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	engine, err := New(Config{APIKey: "test-key", BaseURL: server.URL}, nil)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	got, err := engine.Generate(context.Background(), "question: what is the senate")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if got != "The Senate represents the regions." {
		t.Fatalf("unexpected answer %q", got)
	}
	if engine.Name() != "openai:gpt-4o-mini" {
		t.Fatalf("unexpected name %q", engine.Name())
	}
}

func TestIsAvailableRequiresServedModel(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	engine, err := New(Config{APIKey: "test-key", BaseURL: server.URL, Model: "gpt-4o"}, nil)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	if err := engine.IsAvailable(context.Background()); err != nil {
		t.Fatalf("expected model to be available, got %v", err)
	}

	missing, err := New(Config{APIKey: "test-key", BaseURL: server.URL, Model: "o9"}, nil)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	if err := missing.IsAvailable(context.Background()); !domain.IsKind(err, domain.ErrResourceUnavailable) {
		t.Fatalf("expected unavailable error, got %v", err)
	}
}

func TestGenerateMarksServerErrorsTemporary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
	}))
	defer server.Close()

	engine, err := New(Config{APIKey: "test-key", BaseURL: server.URL}, nil)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	_, err = engine.Generate(context.Background(), "question")
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error, got %v", err)
	}
}

func TestNewRequiresAPIKey(t *testing.T) {
	if _, err := New(Config{}, nil); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}
