package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"
)

// Start runs the HTTP server and the idle-screen sweeper until an
// interrupt arrives, then shuts everything down.
func (s *Server) Start(addr string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go s.sweepScreens(ctx, s.Cfg.GetScreenIdleTimeout())

	errCh := make(chan error, 1)
	go func() {
		if err := s.E.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-waitForShutdown():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return s.Shutdown(shutdownCtx)
}

// sweepScreens closes idle screens every half idle period.
func (s *Server) sweepScreens(ctx context.Context, maxIdle time.Duration) {
	if maxIdle <= 0 {
		return
	}
	ticker := time.NewTicker(maxIdle / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Screens.Sweep(maxIdle); n > 0 {
				slog.Debug("Idle screens closed", "count", n, "remaining", s.Screens.Len())
			}
		}
	}
}
