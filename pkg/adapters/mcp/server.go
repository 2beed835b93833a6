// Package mcp exposes the engine over the Model Context Protocol, so MCP
// clients can drive dialogue sessions as tools.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/parleyhq/parley"
	"github.com/parleyhq/parley/pkg/domain"
)

// Engine is the surface the MCP transport needs from the dialogue engine.
type Engine interface {
	StartSession(ctx context.Context, seed map[string]any) (*domain.State, error)
	ProcessTurn(ctx context.Context, sessionID, userText string) (*domain.TurnResult, error)
	EndSession(ctx context.Context, sessionID, reason string) error
}

// Server wraps the engine as an MCP server over stdio.
type Server struct {
	engine    Engine
	mcpServer *server.MCPServer
}

// NewServer creates the MCP server and registers the session tools.
func NewServer(engine Engine) *Server {
	s := &Server{
		engine:    engine,
		mcpServer: server.NewMCPServer("parley-mcp", strings.TrimSpace(parley.Version)),
	}
	s.registerTools()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) registerTools() {
	startTool := mcp.NewTool("start_session",
		mcp.WithDescription("Start a new dialogue session. Returns the session ID and entry node."),
		mcp.WithString("seed", mcp.Description("JSON object of initial session values (optional)")),
	)
	s.mcpServer.AddTool(startTool, s.handleStartSession)

	turnTool := mcp.NewTool("process_turn",
		mcp.WithDescription("Process one user turn in an existing session."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID returned by start_session")),
		mcp.WithString("text", mcp.Required(), mcp.Description("User utterance for this turn")),
	)
	s.mcpServer.AddTool(turnTool, s.handleProcessTurn)

	endTool := mcp.NewTool("end_session",
		mcp.WithDescription("End a dialogue session and flush its record."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID to end")),
		mcp.WithString("reason", mcp.Description("Why the session ended (optional)")),
	)
	s.mcpServer.AddTool(endTool, s.handleEndSession)
}

func (s *Server) handleStartSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var seed map[string]any
	if raw := request.GetString("seed", ""); raw != "" {
		if err := json.Unmarshal([]byte(raw), &seed); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid seed JSON: %v", err)), nil
		}
	}

	state, err := s.engine.StartSession(ctx, seed)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("start session failed: %v", err)), nil
	}

	out, _ := json.Marshal(map[string]string{
		"session_id": state.ID,
		"node":       state.Node,
	})
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) handleProcessTurn(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text, err := request.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.engine.ProcessTurn(ctx, sessionID, text)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("turn failed: %v", err)), nil
	}

	out, _ := json.Marshal(result)
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) handleEndSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	reason := request.GetString("reason", "client_request")

	if err := s.engine.EndSession(ctx, sessionID, reason); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("end session failed: %v", err)), nil
	}
	return mcp.NewToolResultText(`{"ended":true}`), nil
}
