// Package server exposes a read-only HTTP view over a receipt directory:
// listing, raw artifacts and on-demand verification reports.
package server

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Server serves receipts from one directory.
type Server struct {
	Router *chi.Mux
	Port   int
	logger *slog.Logger
}

// New builds the router with the standard middleware chain and receipt
// routes.
func New(port int, receiptDir string, logger *slog.Logger) *Server {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(logger))
	r.Use(middleware.Recoverer)
	r.Use(func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, "proofstream-receipts")
	})

	h := &handler{dir: receiptDir, logger: logger}
	r.Get("/receipts", h.listReceipts)
	r.Get("/receipts/{name}", h.getReceipt)
	r.Get("/receipts/{name}/verification", h.getVerification)

	return &Server{
		Router: r,
		Port:   port,
		logger: logger,
	}
}

// Start blocks serving HTTP on the configured port.
func (s *Server) Start() error {
	s.logger.Info("starting receipt server", slog.Int("port", s.Port))
	return http.ListenAndServe(fmt.Sprintf(":%d", s.Port), s.Router)
}
