package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// waitForShutdown returns a channel closed on an interrupt or terminate
// signal.
func waitForShutdown() <-chan struct{} {
	done := make(chan struct{})
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-quit
		signal.Stop(quit)
		close(done)
	}()
	return done
}

// Shutdown stops the HTTP server, the screens, the bus subscribers (presence
// and push), the bus and the tracer, in that order.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error
	if err := s.E.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http server: %w", err))
	}
	s.Screens.CloseAll()
	s.stopSubscriptions()
	s.Presence.Shutdown()
	if err := s.Bus.Close(); err != nil {
		errs = append(errs, fmt.Errorf("bus: %w", err))
	}
	if s.shutdownTracing != nil {
		if err := s.shutdownTracing(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracing: %w", err))
		}
	}
	return errors.Join(errs...)
}
