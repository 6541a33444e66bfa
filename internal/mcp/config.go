package mcp

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wagiedev/workerctl/internal/logging"
)

// ServerType selects how the tools are served.
type ServerType string

const (
	// ServerTypeStdio serves a single client over the process's stdin/stdout.
	ServerTypeStdio ServerType = "stdio"
	// ServerTypeHTTP serves streamable HTTP clients on Addr.
	ServerTypeHTTP ServerType = "http"
)

// shutdownTimeout bounds the HTTP server shutdown.
const shutdownTimeout = 5 * time.Second

// ServeConfig configures Serve.
type ServeConfig struct {
	Type   ServerType
	Addr   string // listen address for ServerTypeHTTP
	Logger *slog.Logger
}

// ParseServerType accepts stdio and http. Empty means stdio.
func ParseServerType(name string) (ServerType, error) {
	switch ServerType(name) {
	case "", ServerTypeStdio:
		return ServerTypeStdio, nil
	case ServerTypeHTTP:
		return ServerTypeHTTP, nil
	default:
		return "", fmt.Errorf("unknown MCP server type %q", name)
	}
}

// Serve serves s until ctx is done or the stdio client disconnects.
func Serve(ctx context.Context, s *Server, cfg ServeConfig) error {
	log := logging.OrNop(cfg.Logger).With("component", "mcp")

	switch cfg.Type {
	case "", ServerTypeStdio:
		log.Info("Serving MCP tools on stdio", "tools", len(s.ListTools()))

		return s.SDK().Run(ctx, &mcp.StdioTransport{})

	case ServerTypeHTTP:
		ln, err := net.Listen("tcp", cfg.Addr)
		if err != nil {
			return fmt.Errorf("listen on %s: %w", cfg.Addr, err)
		}

		return serveHTTP(ctx, log, s, ln)

	default:
		return fmt.Errorf("unknown MCP server type %q", cfg.Type)
	}
}

func serveHTTP(ctx context.Context, log *slog.Logger, s *Server, ln net.Listener) error {
	sdk := s.SDK()
	handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return sdk }, nil)

	srv := &http.Server{Handler: handler, ReadHeaderTimeout: 10 * time.Second}

	shutdownDone := make(chan struct{})

	stop := context.AfterFunc(ctx, func() {
		defer close(shutdownDone)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		_ = srv.Shutdown(shutdownCtx)
	})

	log.Info("Serving MCP tools over HTTP", "addr", ln.Addr().String(), "tools", len(s.ListTools()))

	err := srv.Serve(ln)

	if !stop() {
		<-shutdownDone
	}

	if err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
