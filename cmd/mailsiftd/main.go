// CLAUDE:SUMMARY HTTP service entry point: chi router over the pipeline, manifest store, optional MCP stdio.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/mailsift/idgen"
	"github.com/hazyhaar/mailsift/kit"
	"github.com/hazyhaar/mailsift/manifest"
	"github.com/hazyhaar/mailsift/partshield"
	"github.com/hazyhaar/mailsift/pipeline"
)

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	port := env("PORT", "8086")
	dbPath := env("MAILSIFT_DB", "mailsift.db")
	cfgPath := env("MAILSIFT_CONFIG", "")
	mcpTransport := env("MCP_TRANSPORT", "")
	logLevel := env("LOG_LEVEL", "info")

	var lvl slog.Level
	switch logLevel {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg := pipeline.DefaultConfig()
	if cfgPath != "" {
		loaded, err := pipeline.LoadConfig(cfgPath)
		if err != nil {
			slog.Error("config", "error", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	cfg.Logger = logger

	p, err := pipeline.New(cfg)
	if err != nil {
		slog.Error("pipeline", "error", err)
		os.Exit(1)
	}

	store, err := manifest.OpenStore(dbPath)
	if err != nil {
		slog.Error("open store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	// MCP over stdio serves tool calls instead of HTTP.
	if mcpTransport == "stdio" {
		mcpSrv := mcp.NewServer(&mcp.Implementation{
			Name:    "mailsift",
			Version: "1.0.0",
		}, nil)
		p.RegisterMCP(mcpSrv)
		slog.Info("MCP stdio starting")
		if err := mcpSrv.Run(ctx, &mcp.StdioTransport{}); err != nil {
			slog.Error("MCP stdio", "error", err)
			os.Exit(1)
		}
		return
	}

	r := chi.NewRouter()
	r.Use(contextMiddleware(idgen.Prefixed("req_", idgen.Default)))
	r.Post("/v1/process", processHandler(p, store))
	r.Get("/v1/manifests", listHandler(store))
	r.Get("/v1/manifests/{id}", getHandler(store))
	r.Get("/v1/health", healthHandler(store))

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown", "error", err)
	}
	slog.Info("server stopped")
}

// contextMiddleware enriches the request context with kit values so log
// lines and responses can correlate.
func contextMiddleware(reqIDGen idgen.Generator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			reqID := reqIDGen()
			ctx = kit.WithRequestID(ctx, reqID)
			ctx = kit.WithTransport(ctx, "http")

			w.Header().Set("X-Request-ID", reqID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// processHandler accepts a raw message body, runs the pipeline, stores
// the manifest and returns it. Oversized input maps to 413, a hopeless
// document to 422.
func processHandler(p *pipeline.Pipeline, store *manifest.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if len(raw) == 0 {
			writeError(w, http.StatusBadRequest, errors.New("empty request body"))
			return
		}

		m, err := p.Process(r.Context(), raw)
		if err != nil {
			slog.Warn("process failed", "request_id", kit.GetRequestID(r.Context()), "error", err)
			var secErr *partshield.SecurityError
			if errors.As(err, &secErr) && secErr.Kind == partshield.TooLarge {
				writeError(w, http.StatusRequestEntityTooLarge, err)
				return
			}
			writeError(w, http.StatusUnprocessableEntity, err)
			return
		}
		if err := store.Save(m); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusCreated, m)
	}
}

func listHandler(store *manifest.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summaries, err := store.List(100)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"manifests": summaries})
	}
}

func getHandler(store *manifest.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		m, err := store.Get(id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		if m == nil {
			writeError(w, http.StatusNotFound, errors.New("not found"))
			return
		}
		writeJSON(w, http.StatusOK, m)
	}
}

func healthHandler(store *manifest.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		counts, err := store.CountByStatus()
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status":    "ok",
			"manifests": counts,
		})
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
