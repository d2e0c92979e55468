package dispatcher

import (
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

// Version is set at build time via ldflags.
var Version = "dev"

const instructions = `You run the onboarding conversation for a mentorship program.

Rules:
- Call exactly one state-changing tool per user message, never several in parallel.
- Pass the same message_id for every call made while handling one user message.
- After each call, ask the question in "prompt" and offer "suggestions" as quick replies.
- When pending_verification is true, ask for the secret phrase of the existing account, or offer recovery or a fresh start.
- During recovery ask only for the field named in recovery.next_field. Never reveal stored values.
- Use get_session and lookup_email freely; they change nothing.`

// NewServer registers every tool on a new MCP server.
func NewServer(svc Service, log *zap.Logger) *server.MCPServer {
	s := server.NewMCPServer(
		"gophintake",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(instructions),
	)
	tools := Tools(svc)
	for _, t := range tools {
		s.AddTool(t.Definition, t.Handle)
	}
	log.Info("mcp tools registered", zap.Int("count", len(tools)))
	return s
}
