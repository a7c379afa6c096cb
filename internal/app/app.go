package app

import (
	"context"
	"io"
	"log/slog"

	"github.com/vk/dashlink/internal/ctxlog"
	"github.com/vk/dashlink/internal/links"
	"github.com/vk/dashlink/internal/model"
	"github.com/vk/dashlink/internal/plots"
	"github.com/vk/dashlink/internal/state"
	"github.com/vk/dashlink/internal/view"
)

// Builder constructs a view tree and its rendered document, and declares
// the links between them, for one session.
type Builder func(ctx context.Context, reg *links.Registry) (*view.Element, *model.Model, error)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW        io.Writer
	logger      *slog.Logger
	registry    *links.Registry
	sessions    *state.Store
	integration *plots.Integration
	config      *Config
	builder     Builder
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance, including its own isolated logger and
// registry. A nil builder serves the built-in demo dashboard.
func NewApp(outW io.Writer, appConfig *Config, builder Builder) *App {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW)
	logger.Debug("Logger configured successfully.")

	reg := links.NewRegistry()
	integration := plots.NewIntegration()
	reg.SetIntegration(integration)
	logger.Debug("Link registry initialized.")

	a := &App{
		outW:        outW,
		logger:      logger,
		registry:    reg,
		sessions:    state.NewStore(),
		integration: integration,
		config:      appConfig,
		builder:     builder,
	}
	if a.builder == nil {
		a.builder = a.demoDashboard
	}
	return a
}

// Registry returns the application's link registry. This is primarily
// for testing.
func (a *App) Registry() *links.Registry {
	return a.registry
}

// Sessions returns the application's session store. This is primarily
// for testing.
func (a *App) Sessions() *state.Store {
	return a.sessions
}

// buildSession runs the builder for one fresh session.
func (a *App) buildSession(ctx context.Context) (*view.Element, *model.Model, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	return a.builder(ctx, a.registry)
}
