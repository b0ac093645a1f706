package mcpadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/cameroon-legal-assistant/internal/core/domain"
	"github.com/kirillkom/cameroon-legal-assistant/internal/core/ports"
)

const (
	ServerName = "cameroon-legal-assistant"

	ToolAskLegalQuestion   = "ask_legal_question"
	ToolSearchLegalSources = "search_legal_sources"
)

// Tools exposes the resolution pipeline to MCP clients.
type Tools struct {
	resolver  ports.QuestionResolver
	inspector ports.SearchInspector
	logger    *slog.Logger
}

func NewTools(resolver ports.QuestionResolver, inspector ports.SearchInspector, logger *slog.Logger) *Tools {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tools{resolver: resolver, inspector: inspector, logger: logger}
}

func NewServer(tools *Tools, version string) *server.MCPServer {
	s := server.NewMCPServer(
		ServerName,
		version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	s.AddTool(mcp.NewTool(ToolAskLegalQuestion,
		mcp.WithDescription("Answer a question about Cameroonian law. Returns markdown with a source label."),
		mcp.WithString("question",
			mcp.Required(),
			mcp.Description("The legal question in English or French"),
		),
		mcp.WithString("language",
			mcp.Description("Answer language"),
			mcp.Enum(string(domain.LanguageEnglish), string(domain.LanguageFrench)),
		),
	), tools.AskLegalQuestion)

	s.AddTool(mcp.NewTool(ToolSearchLegalSources,
		mcp.WithDescription("Run the legal web search alone and show the formatted results."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search terms; the Cameroon legal context is appended automatically"),
		),
		mcp.WithString("language",
			mcp.Description("Heading language"),
			mcp.Enum(string(domain.LanguageEnglish), string(domain.LanguageFrench)),
		),
	), tools.SearchLegalSources)

	return s
}

func (t *Tools) AskLegalQuestion(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := request.RequireString("question")
	if err != nil || strings.TrimSpace(question) == "" {
		return mcp.NewToolResultError("question is required"), nil
	}
	language, err := domain.ParseLanguage(request.GetString("language", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := t.resolver.Resolve(ctx, domain.NewQuestion(question, language))
	t.logger.Info("mcp_tool_called", "tool", ToolAskLegalQuestion, "source", result.Source)
	return mcp.NewToolResultText(fmt.Sprintf("%s\n\nSource: %s", result.Answer, result.Source)), nil
}

func (t *Tools) SearchLegalSources(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil || strings.TrimSpace(query) == "" {
		return mcp.NewToolResultError("query is required"), nil
	}
	language, err := domain.ParseLanguage(request.GetString("language", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	preview := t.inspector.PreviewSearch(ctx, strings.TrimSpace(query), language)
	t.logger.Info("mcp_tool_called", "tool", ToolSearchLegalSources, "result_count", preview.ResultCount)
	payload, err := json.MarshalIndent(preview, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode search preview: %w", err)
	}
	return mcp.NewToolResultText(string(payload)), nil
}
