// Package mcpadapter exposes the text tools over the Model Context Protocol.
package mcpadapter

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/writing-assistant/internal/core/domain"
	"github.com/kirillkom/writing-assistant/internal/core/ports"
)

const (
	serverName = "writing-assistant"
	Version    = "0.1.0"
)

var ErrMissingSuggestionService = errors.New("suggestion service is required")

type Server struct {
	suggestions ports.SuggestionService
	defaultMode domain.WritingMode
	logger      *slog.Logger
	server      *server.MCPServer
}

func NewServer(suggestions ports.SuggestionService, defaultMode domain.WritingMode, logger *slog.Logger) (*Server, error) {
	if suggestions == nil {
		return nil, ErrMissingSuggestionService
	}
	if _, ok := domain.ParseWritingMode(string(defaultMode)); !ok {
		defaultMode = domain.ModeBusiness
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		suggestions: suggestions,
		defaultMode: defaultMode,
		logger:      logger,
		server: server.NewMCPServer(serverName, Version,
			server.WithToolCapabilities(false),
			server.WithRecovery(),
		),
	}
	s.registerTools()
	return s, nil
}

// Run serves stdio until ctx is cancelled or in is closed.
func (s *Server) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.server)
	stdio.SetErrorLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelError))
	return stdio.Listen(ctx, in, out)
}
