package pageserver

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"kosher/internal/application/port/output"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog"
)

//go:embed test_page.html
var testPage []byte

const (
	DefaultAddr  = "127.0.0.1:8765"
	TestPagePath = "/test_page.html"
)

type Config struct {
	Addr        string
	LogRequests bool
	// LogWriter receives request logs; stdout when nil.
	LogWriter io.Writer
}

type Server struct {
	srv     *http.Server
	baseURL string
	done    chan struct{}
	logger  output.LoggerPort
}

func NewRouter(cfg Config) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	if cfg.LogRequests {
		reqLogger := httplog.NewLogger("kosher-fixture", httplog.Options{
			JSON:    true,
			Concise: true,
		})
		if cfg.LogWriter != nil {
			reqLogger = reqLogger.Output(cfg.LogWriter)
		}
		r.Use(httplog.RequestLogger(reqLogger))
	}

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, TestPagePath, http.StatusFound)
	})
	r.Get(TestPagePath, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(testPage)
	})

	return r
}

// Start listens on cfg.Addr and serves until ctx is cancelled or Shutdown
// is called.
func Start(ctx context.Context, cfg Config, logger output.LoggerPort) (*Server, error) {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", cfg.Addr, err)
	}

	s := &Server{
		srv: &http.Server{
			Handler:           NewRouter(cfg),
			ReadHeaderTimeout: 5 * time.Second,
		},
		baseURL: "http://" + ln.Addr().String(),
		done:    make(chan struct{}),
		logger:  logger,
	}

	go func() {
		defer close(s.done)
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Fixture server stopped", "error", err)
		}
	}()

	go func() {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = s.Shutdown(shutdownCtx)
		case <-s.done:
		}
	}()

	logger.Info("Fixture server started", "url", s.baseURL)
	return s, nil
}

func (s *Server) BaseURL() string { return s.baseURL }

func (s *Server) PageURL() string { return s.baseURL + TestPagePath }

func (s *Server) Shutdown(ctx context.Context) error {
	err := s.srv.Shutdown(ctx)
	<-s.done
	return err
}
