package amqpline

import (
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
)

type closer interface {
	Close() error
}

// ShutdownCoordinator funnels every shutdown trigger, no matter its source,
// into one idempotent operation. The flag is an atomic compare-and-set so two
// near-simultaneous triggers cannot both observe "not yet shutting down";
// exactly one caller performs the real close.
type ShutdownCoordinator struct {
	conn   closer
	logger *slog.Logger
	flag   atomic.Bool
	exit   func(code int)
}

// NewShutdownCoordinator creates a coordinator that closes conn on shutdown
func NewShutdownCoordinator(conn closer, logger *slog.Logger) *ShutdownCoordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &ShutdownCoordinator{
		conn:   conn,
		logger: logger,
		exit:   os.Exit,
	}
}

// GracefulShutdown closes the broker connection at most once. Any number of
// concurrent or sequential invocations after the first are no-ops. A close
// failure is logged and swallowed; shutdown never fails outward and never
// blocks process exit.
func (s *ShutdownCoordinator) GracefulShutdown() {
	if !s.flag.CompareAndSwap(false, true) {
		return
	}
	s.logger.Info("shutting down broker connection")
	if err := s.conn.Close(); err != nil {
		s.logger.Error("error closing broker connection during shutdown", "error", err)
	}
}

// ShuttingDown reports whether shutdown has been triggered
func (s *ShutdownCoordinator) ShuttingDown() bool {
	return s.flag.Load()
}

// HandleSignals triggers a graceful shutdown when a termination signal
// arrives. The process is left to exit naturally; no exit code is forced.
// Without arguments it listens for SIGINT, SIGTERM and SIGQUIT.
func (s *ShutdownCoordinator) HandleSignals(sigs ...os.Signal) {
	if len(sigs) == 0 {
		sigs = []os.Signal{syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT}
	}
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, sigs...)

	go func() {
		sig := <-ch
		s.logger.Info("received termination signal", "signal", sig.String())
		s.GracefulShutdown()
	}()
}

// Fatal handles an unrecoverable error: shut down, then force a non-zero
// exit. Process state after such an error is not trusted to continue.
func (s *ShutdownCoordinator) Fatal(err error) {
	s.logger.Error("fatal error, shutting down", "error", err)
	s.GracefulShutdown()
	s.exit(1)
}

// Idle triggers a graceful shutdown when the process has run out of work.
// No exit code is forced.
func (s *ShutdownCoordinator) Idle() {
	s.logger.Info("no work left, shutting down")
	s.GracefulShutdown()
}
