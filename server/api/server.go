package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/l0kifs/task-context-mcp/server"
)

var _ server.Service = (*Server)(nil)

type Server struct {
	id string

	addr    string
	handler *Handler
}

func NewServer(id, addr string, handler *Handler) *Server {
	return &Server{
		id: id,

		addr:    addr,
		handler: handler,
	}
}

func (s *Server) ID() string {
	return s.id
}

// Start serves HTTP until the context is cancelled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.addr,
		Handler: otelhttp.NewHandler(s.handler.Router(), "api"),
	}

	errCh := make(chan error, 1)

	go func() {
		log.Infof("api server %s: listening on %s", s.id, s.addr)

		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err

	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		return srv.Shutdown(shutdownCtx)
	}
}
