package comm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/zishang520/socket.io/v2/socket"

	"github.com/vk/dashlink/internal/ctxlog"
	"github.com/vk/dashlink/internal/links"
	"github.com/vk/dashlink/internal/model"
	"github.com/vk/dashlink/internal/state"
	"github.com/vk/dashlink/internal/view"
)

// BuildFunc constructs a fresh view tree and its rendered document for
// one browser session.
type BuildFunc func(ctx context.Context) (*view.Element, *model.Model, error)

// Server pushes rendered documents to socket.io clients and applies the
// patches they send back.
type Server struct {
	registry *links.Registry
	sessions *state.Store
	build    BuildFunc

	io         *socket.Server
	httpServer *http.Server
}

// NewServer wires a socket.io server around the given session store and
// link registry. Each connecting client gets its own session built by
// the BuildFunc.
func NewServer(reg *links.Registry, sessions *state.Store, build BuildFunc) *Server {
	return &Server{
		registry: reg,
		sessions: sessions,
		build:    build,
		io:       socket.NewServer(nil, nil),
	}
}

// Handler returns the HTTP handler serving the socket.io endpoint and a
// health check, wired to the given base context.
func (s *Server) Handler(ctx context.Context) http.Handler {
	s.io.On("connection", func(clients ...any) {
		client := clients[0].(*socket.Socket)
		s.handleConnection(ctx, client)
	})

	mux := http.NewServeMux()
	mux.Handle("/socket.io/", s.io.ServeHandler(nil))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		logger := ctxlog.FromContext(ctx)
		logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "OK")
	})
	return mux
}

// ListenAndServe serves the handler on addr until the context is
// cancelled, then shuts down gracefully and closes all sessions.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	logger := ctxlog.FromContext(ctx)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.Handler(ctx),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("📡 Dashboard server starting", "address", fmt.Sprintf("http://localhost%s", addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger.Info("📡 Shutting down dashboard server...")
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Dashboard server shutdown failed", "error", err)
		return err
	}
	s.sessions.CloseAll(s.registry)
	logger.Debug("Dashboard server shut down gracefully.")
	return nil
}

func (s *Server) handleConnection(ctx context.Context, client *socket.Socket) {
	logger := ctxlog.FromContext(ctx).With("sid", client.Id())
	logger.Info("Client connected")

	root, doc, err := s.build(ctx)
	if err != nil {
		logger.Error("Failed to build document", "error", err)
		client.Emit("build_error", err.Error())
		client.Disconnect(true)
		return
	}

	if _, err := s.registry.ProcessCallbacks(ctx, root, doc); err != nil {
		logger.Error("Failed to resolve links", "error", err)
		client.Emit("build_error", err.Error())
		client.Disconnect(true)
		return
	}

	sess := s.sessions.Open(root, doc)
	logger = logger.With("session", sess.ID)

	payload, err := EncodeDocument(sess)
	if err != nil {
		logger.Error("Failed to encode document", "error", err)
		s.sessions.Close(sess.ID, s.registry)
		client.Disconnect(true)
		return
	}
	client.Emit("document", payload)
	logger.Debug("Document pushed", "models", len(payload.Models))

	client.On("patch", func(datas ...any) {
		if len(datas) == 0 {
			return
		}
		patch, err := decodePatch(datas[0])
		if err != nil {
			logger.Warn("Dropping malformed patch", "error", err)
			return
		}
		if patch.Session == "" {
			patch.Session = sess.ID
		}
		target, ok := s.sessions.Get(patch.Session)
		if !ok {
			logger.Warn("Dropping patch for unknown session", "patch_session", patch.Session)
			return
		}
		if err := ApplyPatch(target, patch); err != nil {
			logger.Warn("Patch rejected", "ref", patch.Ref, "prop", patch.Prop, "error", err)
			client.Emit("patch_error", err.Error())
			return
		}
		logger.Debug("Patch applied", "ref", patch.Ref, "prop", patch.Prop)
		client.Emit("patch_ack", map[string]string{"ref": patch.Ref, "prop": patch.Prop})
	})

	client.On("disconnect", func(...any) {
		logger.Info("Client disconnected")
		s.sessions.Close(sess.ID, s.registry)
	})
}

// decodePatch converts the loosely-typed socket.io payload back into a
// Patch via a JSON round trip.
func decodePatch(data any) (Patch, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Patch{}, fmt.Errorf("re-encode patch: %w", err)
	}
	var p Patch
	if err := json.Unmarshal(raw, &p); err != nil {
		return Patch{}, fmt.Errorf("decode patch: %w", err)
	}
	if p.Ref == "" || p.Prop == "" {
		return Patch{}, errors.New("patch missing ref or prop")
	}
	return p, nil
}
