// Package server exposes the receipt-processing pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/expensesync/expensesync/internal/engine"
	"github.com/expensesync/expensesync/internal/mcp"
)

// Config holds the HTTP listener settings.
type Config struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// Server is the HTTP front end. It owns no pipeline state of its own; each
// request runs an independent pipeline through the shared engine.
type Server struct {
	engine       *engine.Engine
	mcpClient    *mcp.Client
	logger       *slog.Logger
	httpServer   *http.Server
	providerName string
	recorderName string
	config       Config
}

// New creates the server. mcpClient may be nil when persistence does not
// go through MCP; the health and tools endpoints then report accordingly.
func New(cfg Config, eng *engine.Engine, mcpClient *mcp.Client, providerName, recorderName string, logger *slog.Logger) *Server {
	s := &Server{
		engine:       eng,
		mcpClient:    mcpClient,
		logger:       logger,
		providerName: providerName,
		recorderName: recorderName,
		config:       cfg,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /process-receipt", s.handleProcessReceipt)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /health/detailed", s.handleHealthDetailed)
	mux.HandleFunc("GET /tools", s.handleTools)

	var handler http.Handler = mux
	handler = Logger(logger)(handler)
	handler = RequestID(handler)
	handler = CORS(handler)
	handler = Recovery(logger)(handler)

	s.httpServer = &http.Server{
		Addr:         net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s
}

// Handler returns the fully wrapped HTTP handler, used by tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run serves until the context is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errChan := make(chan error, 1)

	go func() {
		s.logger.Info("http server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http server")

	shutdownTimeout := s.config.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown failed: %w", err)
	}
	return nil
}
