package app

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/vk/dashlink/internal/comm"
	"github.com/vk/dashlink/internal/ctxlog"
)

// Run executes the main application logic based on the provided configuration.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if a.config.Once {
		return a.runOnce(ctx)
	}

	server := comm.NewServer(a.registry, a.sessions, a.buildSession)
	return server.ListenAndServe(ctx, a.config.ListenAddr)
}

// runOnce renders a single session and writes its document snapshot as
// JSON, then tears the session down.
func (a *App) runOnce(ctx context.Context) error {
	root, doc, err := a.buildSession(ctx)
	if err != nil {
		return fmt.Errorf("failed to build document: %w", err)
	}

	bindings, err := a.registry.ProcessCallbacks(ctx, root, doc)
	if err != nil {
		return fmt.Errorf("failed to resolve links: %w", err)
	}
	a.logger.Info("🔗 Links resolved.", "bindings", len(bindings))

	sess := a.sessions.Open(root, doc)
	defer a.sessions.Close(sess.ID, a.registry)

	payload, err := comm.EncodeDocument(sess)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	enc := json.NewEncoder(a.outW)
	enc.SetIndent("", "  ")
	if err := enc.Encode(payload); err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}

	a.logger.Debug("App.Run method finished.")
	return nil
}
