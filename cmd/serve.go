package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/mailercloud-sync/internal/config"
	"github.com/sells-group/mailercloud-sync/internal/daterange"
	"github.com/sells-group/mailercloud-sync/internal/failure"
	"github.com/sells-group/mailercloud-sync/internal/sink"
	"github.com/sells-group/mailercloud-sync/internal/syncer"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start an HTTP server that triggers sync runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		srvState := &syncServer{
			cfg:       cfg,
			runner:    newRunner(cfg),
			openStore: openStore,
			now:       time.Now,
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           buildRouter(srvState, cfg.Server.CORSOrigins),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx) //nolint:errcheck
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// syncServer runs at most one sync at a time on behalf of HTTP callers.
type syncServer struct {
	cfg       *config.Config
	runner    *syncer.Runner
	openStore func(ctx context.Context, sc config.StoreConfig) (sink.DocumentStore, error)
	now       func() time.Time

	mu sync.Mutex
}

// syncRequest is the optional JSON body of the /sync endpoints.
type syncRequest struct {
	From         string `json:"from"`
	To           string `json:"to"`
	CurrentMonth bool   `json:"current_month"`
}

func buildRouter(s *syncServer, corsOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	if len(corsOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type"},
			MaxAge:         300,
		}))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Post("/sync/export", s.handleExport)
	r.Post("/sync/store", s.handleStore)
	return r
}

func (s *syncServer) handleExport(w http.ResponseWriter, r *http.Request) {
	window, ok := s.begin(w, r)
	if !ok {
		return
	}
	defer s.mu.Unlock()

	if err := s.cfg.RequireExport(); err != nil {
		writeError(w, err)
		return
	}

	sum, err := s.runner.RunExport(r.Context(), window, syncer.ExportOptions{
		Path:   s.cfg.Export.Path,
		Format: s.cfg.Export.Format,
		BOM:    s.cfg.Export.BOM,
	})
	if err != nil && !errors.Is(err, sink.ErrNoData) {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *syncServer) handleStore(w http.ResponseWriter, r *http.Request) {
	window, ok := s.begin(w, r)
	if !ok {
		return
	}
	defer s.mu.Unlock()

	if err := s.cfg.RequireStore(); err != nil {
		writeError(w, err)
		return
	}

	sum, err := s.runner.RunStore(r.Context(), window, func(ctx context.Context) (sink.DocumentStore, error) {
		return s.openStore(ctx, s.cfg.Store)
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// begin decodes the request window and takes the run lock. On success the
// caller must unlock s.mu.
func (s *syncServer) begin(w http.ResponseWriter, r *http.Request) (daterange.Range, bool) {
	var req syncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return daterange.Range{}, false
	}

	if err := s.cfg.RequireAPIKey(); err != nil {
		writeError(w, err)
		return daterange.Range{}, false
	}

	flags := windowFlags{from: req.From, to: req.To, currentMonth: req.CurrentMonth}
	rng, err := flags.resolve(s.cfg, s.now())
	if err != nil {
		writeError(w, err)
		return daterange.Range{}, false
	}

	if !s.mu.TryLock() {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "a sync run is already in progress"})
		return daterange.Range{}, false
	}
	return rng, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

// writeError maps the error taxonomy onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch failure.Kind(err) {
	case "configuration":
		status = http.StatusBadRequest
	case "transport", "remote_api":
		status = http.StatusBadGateway
	}
	zap.L().Error("serve: sync failed", zap.Int("status", status), zap.Error(err))
	writeJSON(w, status, map[string]string{
		"error": err.Error(),
		"kind":  failure.Kind(err),
	})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
