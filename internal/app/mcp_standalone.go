package app

import (
	"context"
	"time"

	mcpserver "reportstudio/internal/mcp"
)

// shutdownTimeout bounds the final flush of pending writes.
const shutdownTimeout = 30 * time.Second

// ServeMCP runs the app as a standalone MCP server on stdin/stdout. It opens
// documentID (or the most recent document), starts the background workers
// and serves until stdin closes or ctx is cancelled.
func (a *App) ServeMCP(ctx context.Context, documentID, version string) error {
	info, err := a.OpenDocument(ctx, documentID)
	if err != nil {
		return err
	}
	if err := a.Startup(ctx); err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.Shutdown(sctx); err != nil {
			a.log.Error().Err(err).Msg("shutdown")
		}
	}()

	srv := mcpserver.New(mcpserver.Deps{Docs: a.docs, Logger: a.log, Version: version})
	unsubscribe := a.events.Subscribe(srv.Notify)
	defer unsubscribe()

	a.log.Info().Str("document", info.ID).Str("title", info.Title).Msg("serving MCP on stdio")

	done := make(chan error, 1)
	go func() { done <- srv.ServeStdio() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return nil
	}
}
