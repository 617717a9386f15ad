// Package server exposes the document question-answering API over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"docqa/internal/chunker"
	"docqa/internal/config"
	"docqa/internal/extract"
	"docqa/internal/ingest"
	"docqa/internal/llm"
	"docqa/internal/llm/openai"
	"docqa/internal/log"
	"docqa/internal/retrieval"
	"docqa/internal/store"
)

// API holds the wired application: configuration, persistence, the chat
// provider, the active-index manager and the ingest pipeline.
type API struct {
	cfg  *config.Config
	st   store.Store
	chat llm.ChatProvider
	mgr  *retrieval.Manager
	pipe *ingest.Pipeline
	lg   *log.Logger
}

func NewAPI(cfg *config.Config, st store.Store, chat llm.ChatProvider, emb llm.Embedder, lg *log.Logger) *API {
	mgr := retrieval.NewManager()
	return &API{
		cfg:  cfg,
		st:   st,
		chat: chat,
		mgr:  mgr,
		pipe: ingest.NewPipeline(cfg, emb, mgr, st, lg),
		lg:   lg,
	}
}

func (a *API) mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", a.handleHealth)
	mux.HandleFunc("/version", a.handleVersion)
	mux.HandleFunc("/documents", a.handleDocuments)
	mux.HandleFunc("/ask", a.handleAsk)
	mux.HandleFunc("/search", a.handleSearch)
	mux.HandleFunc("/chats", a.handleChats)
	mux.HandleFunc("/chats/", a.handleChatByID)
	return mux
}

// Handler returns the full middleware-wrapped handler. Exported for tests.
func (a *API) Handler() http.Handler {
	return logMiddleware(a.lg, rateLimitMiddleware(a.mux()))
}

// Run starts the HTTP server and blocks until a signal or a listen error.
func Run(cfg *config.Config, lg *log.Logger) error {
	var st store.Store
	if cfg.DBPath != "" {
		sq, err := store.NewSQLite(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open sqlite store: %w", err)
		}
		defer sq.Close()
		st = sq
	} else {
		lg.Warn("store.memory", "reason", "db_path not configured, conversations will not persist")
		st = store.NewMem()
	}

	client := openai.New(os.Getenv("OPENAI_API_KEY"), cfg.OpenAIBaseURL)
	api := NewAPI(cfg, st, client, client, lg)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errs := make(chan error, 1)
	go func() { errs <- srv.ListenAndServe() }()
	lg.Info("server.start", "addr", cfg.Addr)

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigc:
		lg.Info("server.shutdown", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	case err := <-errs:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

func writeError(w http.ResponseWriter, status int, errStr, message string) {
	writeJSON(w, status, apiError{Error: errStr, Message: message, Code: status})
}

// writeDomainError maps core failure classes to HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chunker.ErrInvalidChunking), errors.Is(err, config.ErrInvalid):
		writeError(w, http.StatusBadRequest, "invalid_configuration", err.Error())
	case errors.Is(err, extract.ErrUnsupportedType):
		writeError(w, http.StatusBadRequest, "unsupported_type", err.Error())
	case errors.Is(err, extract.ErrNoText):
		writeError(w, http.StatusUnprocessableEntity, "extraction_failed", err.Error())
	case errors.Is(err, llm.ErrUnavailable):
		writeError(w, http.StatusBadGateway, "provider_unavailable", err.Error())
	case errors.Is(err, retrieval.ErrNoDocument):
		writeError(w, http.StatusNotFound, "no_document", "upload a document before querying")
	case errors.Is(err, retrieval.ErrDimensionMismatch):
		writeError(w, http.StatusInternalServerError, "dimension_mismatch", err.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
	}
}
