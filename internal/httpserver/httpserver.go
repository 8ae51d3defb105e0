// Package httpserver runs one server role's HTTP listener with graceful
// shutdown, shared by cmd/phc, cmd/transcryptor and cmd/authserver so each
// main only has to assemble its own mux.
package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/pubhubs/pubhubs-core/internal/logger"
)

// ShutdownTimeout bounds how long Run waits for in-flight requests to
// finish once ctx is cancelled before forcing the listener closed.
const ShutdownTimeout = 10 * time.Second

// Run serves handler on addr until ctx is cancelled, then shuts down
// gracefully. Returns nil on a clean shutdown, or the error ListenAndServe
// reported otherwise.
func Run(ctx context.Context, log logger.Logger, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", logger.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		log.Info("http server shutting down", logger.String("addr", addr))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}
