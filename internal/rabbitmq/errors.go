package rabbitmq

import (
	"errors"
	"fmt"
	"time"
)

var (
	// Connectivity conditions surfaced by AwaitReachable
	ErrNotYetConnected = errors.New("rabbitmq: not yet connected")
	ErrConnectionLost  = errors.New("rabbitmq: not connected")

	// Connection errors
	ErrShuttingDown     = errors.New("rabbitmq: connection is shutting down")
	ErrConnectionClosed = errors.New("rabbitmq: connection is closed")

	// Channel errors
	ErrChannelClosed     = errors.New("rabbitmq: channel is closed")
	ErrConsumerCancelled = errors.New("rabbitmq: consumer cancelled")

	// Delivery errors
	ErrAlreadySettled = errors.New("rabbitmq: delivery already settled")

	// General errors
	ErrInvalidConfiguration = errors.New("rabbitmq: invalid configuration")
)

// ConnectionError represents a connection-related error
type ConnectionError struct {
	Op        string    // Operation that failed
	Endpoints []string  // Endpoint URLs attempted (sanitized)
	Err       error     // Underlying error
	Timestamp time.Time // When the error occurred
	Attempts  int       // Number of attempts made
}

func (e *ConnectionError) Error() string {
	if e.Attempts > 0 {
		return fmt.Sprintf("rabbitmq connection error: %s failed after %d attempts: %v", e.Op, e.Attempts, e.Err)
	}
	return fmt.Sprintf("rabbitmq connection error: %s failed: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// SetupError represents a channel setup (recipe) error
type SetupError struct {
	Step      string    // Setup step that failed (exchange, queue, binding, qos, consume)
	Name      string    // Name of the exchange or queue involved
	Err       error     // Underlying error
	Timestamp time.Time // When the error occurred
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("rabbitmq setup error: failed to %s '%s': %v", e.Step, e.Name, e.Err)
}

func (e *SetupError) Unwrap() error {
	return e.Err
}

// ConsumerError represents a consumer-related error
type ConsumerError struct {
	Queue       string    // Queue name
	ConsumerTag string    // Consumer tag
	Op          string    // Operation that failed
	Err         error     // Underlying error
	Timestamp   time.Time // When the error occurred
}

func (e *ConsumerError) Error() string {
	return fmt.Sprintf("rabbitmq consumer error: %s failed for consumer %s on queue %s: %v",
		e.Op, e.ConsumerTag, e.Queue, e.Err)
}

func (e *ConsumerError) Unwrap() error {
	return e.Err
}
