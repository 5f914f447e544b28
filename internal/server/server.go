// Package server runs the kiosk HTTP server until its context ends or a
// termination signal arrives, then drains in-flight requests.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// DefaultShutdownTimeout bounds how long in-flight requests may take to drain.
const DefaultShutdownTimeout = 15 * time.Second

// Options tweak how Run listens and stops. The zero value listens on
// srv.Addr and watches SIGINT and SIGTERM.
type Options struct {
	Listener        net.Listener
	Signals         <-chan os.Signal
	ShutdownTimeout time.Duration
}

// Run serves srv and shuts it down gracefully once ctx is done or a signal
// is received. OnShutdown hooks registered on srv run during shutdown.
func Run(ctx context.Context, srv *http.Server, logger *zap.Logger, opts Options) error {
	timeout := opts.ShutdownTimeout
	if timeout <= 0 {
		timeout = DefaultShutdownTimeout
	}

	errCh := make(chan error, 1)
	go func() {
		var err error
		if opts.Listener != nil {
			err = srv.Serve(opts.Listener)
		} else {
			err = srv.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errCh <- err
	}()

	sigCh := opts.Signals
	if sigCh == nil {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(ch)
		sigCh = ch
	}

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("context done, shutting down")
	case sig, ok := <-sigCh:
		if !ok {
			return <-errCh
		}
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return <-errCh
}
