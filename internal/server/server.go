// Package server serves the suite history: a token-protected HTML
// dashboard, a read-only JSON API and a health check.
package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/headline-goat/funnel-goat/internal/store"
)

// Config holds configuration for the server.
type Config struct {
	Store     *store.SQLiteStore
	Port      int
	Token     string // generated when empty
	TokenFile string // token is written here on start, for the token command
	Out       io.Writer
	Logger    *slog.Logger
}

type Server struct {
	store     *store.SQLiteStore
	port      int
	token     string
	tokenFile string
	out       io.Writer
	logger    *slog.Logger
	router    chi.Router
	startTime time.Time
}

func New(cfg Config) *Server {
	token := cfg.Token
	if token == "" {
		token = generateToken()
	}
	out := cfg.Out
	if out == nil {
		out = os.Stdout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	srv := &Server{
		store:     cfg.Store,
		port:      cfg.Port,
		token:     token,
		tokenFile: cfg.TokenFile,
		out:       out,
		logger:    logger,
		router:    chi.NewRouter(),
		startTime: time.Now(),
	}

	srv.setupRoutes()
	return srv
}

func (s *Server) setupRoutes() {
	s.router.Use(
		middleware.RealIP,
		requestLogger(s.logger),
		middleware.Recoverer,
	)

	// Public endpoints
	s.router.Get("/health", s.handleHealth)
	s.router.Get("/api/suites", s.handleSuitesAPI)
	s.router.Get("/api/suites/{ref}", s.handleSuiteAPI)

	// Dashboard endpoints (protected)
	s.router.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Get("/dashboard", s.handleDashboard)
		r.Get("/dashboard/suites/{ref}", s.handleDashboardSuite)
	})
}

// Serve starts the server and blocks until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	// Write token to file for the token command
	if s.tokenFile != "" {
		if err := os.WriteFile(s.tokenFile, []byte(s.token), 0600); err != nil {
			s.logger.Warn("failed to write token file", "path", s.tokenFile, "error", err)
		}
	}

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: s.router,
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	fmt.Fprintln(s.out)
	fmt.Fprintf(s.out, "funnel-goat running on http://localhost:%d\n", s.port)
	fmt.Fprintf(s.out, "Dashboard: http://localhost:%d/dashboard?token=%s\n", s.port, s.token)
	fmt.Fprintln(s.out)
	fmt.Fprintln(s.out, "Press Ctrl+C to stop")

	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down server")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

func (s *Server) Token() string {
	return s.token
}

func (s *Server) StartTime() time.Time {
	return s.startTime
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start))
		})
	}
}

func generateToken() string {
	bytes := make([]byte, 4)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to a simple token if crypto/rand fails
		return "a1b2c3d4"
	}
	return hex.EncodeToString(bytes)
}
