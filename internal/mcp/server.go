package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/tinyship/reviewreply/internal/models"
	"github.com/tinyship/reviewreply/internal/settings"
	"github.com/tinyship/reviewreply/internal/store"
)

// Generator drafts a reply to a review.
type Generator interface {
	Generate(ctx context.Context, commentID int64, tone string) (string, error)
}

// Server exposes reviews, settings, and reply drafting as MCP tools.
type Server struct {
	store     store.Store
	generator Generator
	version   string
}

// NewServer creates the MCP server wrapper.
func NewServer(s store.Store, g Generator, version string) *Server {
	if version == "" {
		version = "dev"
	}
	return &Server{store: s, generator: g, version: version}
}

// MCPServer returns a configured mcp-go server with all tools registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("reviewreply", s.version, server.WithToolCapabilities(true))

	srv.AddTool(s.listReviewsTool())
	srv.AddTool(s.getSettingsTool())
	srv.AddTool(s.generateReplyTool())

	return srv
}

// ServeStdio starts the stdio transport, blocking until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	stdioServer := server.NewStdioServer(s.MCPServer())
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

// ---------------------------------------------------------------------------
// Tool definitions and handlers
// ---------------------------------------------------------------------------

// list_reviews
func (s *Server) listReviewsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("list_reviews",
		mcp.WithDescription("List product reviews, newest first. Returns a JSON array with id, product, author, rating, and content."),
		mcp.WithNumber("product_id", mcp.Description("Only reviews of this product")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of reviews (default 20)")),
	)
	return tool, s.handleListReviews
}

func (s *Server) handleListReviews(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filter := store.CommentListFilter{
		Type:      models.CommentTypeReview,
		ProductID: int64(request.GetInt("product_id", 0)),
		Limit:     request.GetInt("limit", 20),
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}

	reviews, err := s.store.ListComments(ctx, filter)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list reviews: %v", err)), nil
	}

	type reviewOut struct {
		ID      int64  `json:"id"`
		Product string `json:"product"`
		Author  string `json:"author"`
		Rating  *int   `json:"rating,omitempty"`
		Content string `json:"content"`
	}

	titles := map[int64]string{}
	out := make([]reviewOut, len(reviews))
	for i, r := range reviews {
		title, ok := titles[r.ProductID]
		if !ok {
			if p, err := s.store.GetProduct(ctx, r.ProductID); err == nil {
				title = p.Title
			}
			titles[r.ProductID] = title
		}
		out[i] = reviewOut{
			ID:      r.ID,
			Product: title,
			Author:  r.Author,
			Rating:  r.Rating,
			Content: r.Content,
		}
	}

	data, err := json.Marshal(out)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal reviews: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// get_settings
func (s *Server) getSettingsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("get_settings",
		mcp.WithDescription("Show the reply settings: model, default tone, and whether an API key is set. The key itself is masked."),
	)
	return tool, s.handleGetSettings
}

func (s *Server) handleGetSettings(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg, err := settings.Load(ctx, s.store)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load settings: %v", err)), nil
	}

	out := map[string]any{
		"api_key":     settings.MaskKey(cfg.APIKey),
		"api_key_set": cfg.APIKey != "",
		"model":       cfg.Model,
		"tone":        cfg.Tone,
		"tones":       settings.Tones(),
	}
	data, err := json.Marshal(out)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal settings: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// generate_review_reply
func (s *Server) generateReplyTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("generate_review_reply",
		mcp.WithDescription("Draft a public reply to a product review. The draft is returned, not posted."),
		mcp.WithNumber("comment_id", mcp.Required(), mcp.Description("Review comment id")),
		mcp.WithString("tone", mcp.Description("Reply tone; defaults to the configured tone"),
			mcp.Enum(toneNames()...)),
	)
	return tool, s.handleGenerateReply
}

func (s *Server) handleGenerateReply(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireInt("comment_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	text, err := s.generator.Generate(ctx, int64(id), request.GetString("tone", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(text), nil
}

func toneNames() []string {
	tones := settings.Tones()
	out := make([]string, len(tones))
	for i, t := range tones {
		out[i] = string(t)
	}
	return out
}
