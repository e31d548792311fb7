package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"go.uber.org/zap"
)

// serveHTTP runs handler until ctx is cancelled, then shuts it down gracefully.
func serveHTTP(ctx context.Context, cfg ServerConfig, handler http.Handler, logger *zap.Logger) error {
	addr := fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return serveListener(ctx, ln, cfg, handler, logger)
}

// serveListener serves on ln. Request contexts derive from ctx so streaming
// handlers end as soon as shutdown begins.
func serveListener(ctx context.Context, ln net.Listener, cfg ServerConfig, handler http.Handler, logger *zap.Logger) error {
	httpServer := &http.Server{
		Handler:     handler,
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", ln.Addr().String()))
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down HTTP server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP server did not drain in time, closing connections", zap.Error(err))
		_ = httpServer.Close()
		return nil
	}

	logger.Info("HTTP server stopped")
	return nil
}
