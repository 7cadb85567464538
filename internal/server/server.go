// Package server exposes single-text translation over HTTP, and the same
// handler as an AWS Lambda function.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/valpere/chaptertran/internal/orchestrator"
	"github.com/valpere/chaptertran/internal/sanitize"
	"github.com/valpere/chaptertran/internal/terminology"
)

const maxBodyBytes = 1 << 20

var (
	ErrEmptyText         = errors.New("text is required")
	ErrTranslationFailed = errors.New("translation failed")
)

// failedMessage is what clients see for any backend failure.
const failedMessage = "Translation failed"

// Request accepts the glossary under either "terminology" or the older
// "contexts" key.
type Request struct {
	Text        string            `json:"text"`
	Terminology map[string]string `json:"terminology,omitempty"`
	Contexts    map[string]string `json:"contexts,omitempty"`
}

type Response struct {
	Translation string `json:"translation,omitempty"`
	Error       string `json:"error,omitempty"`
}

func (r Request) terms() terminology.Map {
	src := r.Terminology
	if src == nil {
		src = r.Contexts
	}
	m := terminology.Map{}
	for k, v := range src {
		if k, v = terminology.Normalize(k), terminology.Normalize(v); k != "" && v != "" {
			m[k] = v
		}
	}
	return m
}

type Server struct {
	tr      orchestrator.Translator
	log     *zap.Logger
	timeout time.Duration
	invoker Invoker
}

type Option func(*Server)

func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.log = l }
}

// WithTimeout bounds each translation call.
func WithTimeout(d time.Duration) Option {
	return func(s *Server) { s.timeout = d }
}

// WithInvoker sets the client used to fan out keep-warm invocations.
// Without one, a client is built from the default AWS configuration on
// first use.
func WithInvoker(inv Invoker) Option {
	return func(s *Server) { s.invoker = inv }
}

func New(tr orchestrator.Translator, opts ...Option) *Server {
	s := &Server{tr: tr, log: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handle translates one request. It returns ErrEmptyText for blank input
// and ErrTranslationFailed when the backend fails or returns nothing usable.
func (s *Server) Handle(ctx context.Context, req Request) (*Response, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, ErrEmptyText
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	raw, err := s.tr.Translate(ctx, req.Text, req.terms())
	if err != nil {
		s.log.Error("translation failed", zap.Error(err), zap.Int("runes", len([]rune(req.Text))))
		return nil, ErrTranslationFailed
	}
	text := sanitize.Clean(raw)
	if text == "" {
		s.log.Error("translation failed", zap.String("reason", "empty after cleaning"))
		return nil, ErrTranslationFailed
	}

	s.log.Info("translated", zap.Duration("latency", time.Since(start)), zap.Int("runes", len([]rune(req.Text))))
	return &Response{Translation: text}, nil
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/translate", s.handleTranslate)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return mux
}

func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Error: "Invalid JSON"})
		return
	}

	resp, err := s.Handle(r.Context(), req)
	switch {
	case errors.Is(err, ErrEmptyText):
		writeJSON(w, http.StatusBadRequest, Response{Error: err.Error()})
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, Response{Error: failedMessage})
	default:
		writeJSON(w, http.StatusOK, resp)
	}
}

// ListenAndServe serves Routes on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.log.Info("listening", zap.String("addr", addr))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
