package amqpline

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// countingCloser records close invocations
type countingCloser struct {
	closes atomic.Int64
	err    error
}

func (c *countingCloser) Close() error {
	c.closes.Add(1)
	return c.err
}

func TestGracefulShutdown(t *testing.T) {
	t.Run("closes the connection exactly once", func(t *testing.T) {
		conn := &countingCloser{}
		s := NewShutdownCoordinator(conn, testLogger())

		s.GracefulShutdown()
		s.GracefulShutdown()
		s.GracefulShutdown()

		assert.Equal(t, int64(1), conn.closes.Load())
		assert.True(t, s.ShuttingDown())
	})

	t.Run("concurrent triggers perform at most one real close", func(t *testing.T) {
		conn := &countingCloser{}
		s := NewShutdownCoordinator(conn, testLogger())

		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				s.GracefulShutdown()
			}()
		}
		wg.Wait()

		assert.Equal(t, int64(1), conn.closes.Load())
	})

	t.Run("close failure is swallowed", func(t *testing.T) {
		conn := &countingCloser{err: errors.New("already closed")}
		s := NewShutdownCoordinator(conn, testLogger())

		assert.NotPanics(t, s.GracefulShutdown)
		assert.True(t, s.ShuttingDown())
		assert.Equal(t, int64(1), conn.closes.Load())
	})
}

func TestShutdownTriggers(t *testing.T) {
	t.Run("Fatal shuts down then forces a non-zero exit", func(t *testing.T) {
		conn := &countingCloser{}
		s := NewShutdownCoordinator(conn, testLogger())

		var code atomic.Int64
		code.Store(-1)
		s.exit = func(c int) { code.Store(int64(c)) }

		s.Fatal(errors.New("unhandled"))

		assert.Equal(t, int64(1), conn.closes.Load())
		assert.Equal(t, int64(1), code.Load())
	})

	t.Run("Idle shuts down without forcing an exit", func(t *testing.T) {
		conn := &countingCloser{}
		s := NewShutdownCoordinator(conn, testLogger())
		s.exit = func(int) { t.Fatal("idle shutdown must not force exit") }

		s.Idle()

		assert.Equal(t, int64(1), conn.closes.Load())
	})

	t.Run("termination signal triggers shutdown without forcing exit", func(t *testing.T) {
		conn := &countingCloser{}
		s := NewShutdownCoordinator(conn, testLogger())
		s.exit = func(int) { t.Fatal("signal shutdown must not force exit") }

		s.HandleSignals(syscall.SIGUSR1)
		require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGUSR1))

		require.Eventually(t, func() bool {
			return conn.closes.Load() == 1
		}, time.Second, time.Millisecond)
	})

	t.Run("multiple independent triggers fan into one close", func(t *testing.T) {
		conn := &countingCloser{}
		s := NewShutdownCoordinator(conn, testLogger())
		s.exit = func(int) {}

		s.Idle()
		s.Fatal(errors.New("late failure"))
		s.GracefulShutdown()

		assert.Equal(t, int64(1), conn.closes.Load())
	})
}
