package httpserver

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/onexay/revwalk/internal/config"
	"github.com/onexay/revwalk/internal/service"
)

// Server wraps the HTTP server configuration and dependencies.
type Server struct {
	addr    string
	handler http.Handler
	svc     *service.Service
}

// NewServer creates an HTTP server with routes and middleware.
func NewServer(cfg config.Config) (*Server, error) {
	repo, err := service.OpenStore(cfg.Storage)
	if err != nil {
		return nil, err
	}
	svc := service.New(repo, cfg.Walk)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/api/v1/", service.Handler(svc))

	return &Server{addr: cfg.APIAddr, handler: mux, svc: svc}, nil
}

// Handler exposes the routed handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.handler, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("listening on %s", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close releases the storage backend.
func (s *Server) Close() error {
	return s.svc.Close()
}
