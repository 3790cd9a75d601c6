// Package mcpserver exposes the orchestrator as Model Context Protocol tools.
package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"siteflow/internal/logging"
	"siteflow/internal/orchestrator"
)

const Version = "0.1.0"

// New creates an MCP server with every siteflow tool registered.
func New(o *orchestrator.Orchestrator) *mcp.Server {
	t := &Tools{Orchestrator: o}

	srv := mcp.NewServer(&mcp.Implementation{
		Name:    "siteflow",
		Version: Version,
	}, nil)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "chat",
		Description: "Route a natural-language request (terrain analysis, layout optimization, wake simulation, reports, wellbore trajectories, porosity, project management) and return the response with artifacts",
	}, t.Chat)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "list_projects",
		Description: "List projects whose name contains the pattern (case-insensitive); an empty pattern lists all",
	}, t.ListProjects)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "get_project",
		Description: "Get the stored context of one project, including the results of every completed workflow step",
	}, t.GetProject)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "delete_projects",
		Description: "Delete projects whose name contains the pattern. Without confirm the matches are only listed",
	}, t.DeleteProjects)

	return srv
}

// Serve runs srv on the named transport until ctx is done. transport is
// "stdio" or "http"; addr is only used for http.
func Serve(ctx context.Context, srv *mcp.Server, transport, addr string, logger *zap.Logger) error {
	logger = logging.OrNop(logger)
	switch transport {
	case "stdio", "":
		logger.Info("mcp server starting", zap.String("transport", "stdio"))
		return srv.Run(ctx, &mcp.StdioTransport{})
	case "http":
		handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
			return srv
		}, nil)
		hs := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = hs.Shutdown(shutdownCtx)
		}()
		logger.Info("mcp server listening", zap.String("transport", "http"), zap.String("addr", addr))
		if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	default:
		return fmt.Errorf("unknown transport %q (use stdio or http)", transport)
	}
}
