package rabbitmq

import (
	"context"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// State describes the lifecycle of the broker connection. The transition to
// StateShuttingDown is one-way: no later event moves the connection out of it.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateShuttingDown
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateShuttingDown:
		return "shutting down"
	default:
		return "unknown"
	}
}

// Connection is the surface the client works against. ConnectionManager is
// the real implementation; NoopConnection substitutes when messaging is
// disabled in configuration.
type Connection interface {
	// Start launches the background connect loop and returns immediately.
	Start()

	// IsConnected reports whether the connection is currently established.
	IsConnected() bool

	// AwaitReachable reports whether the broker is reachable. See
	// ConnectionManager.AwaitReachable for the grace-window contract.
	AwaitReachable(ctx context.Context) (bool, error)

	// OpenChannel registers a setup recipe and returns a channel handle.
	OpenChannel(recipe Recipe) (Chan, error)

	// Close tears the connection down. One-way; at most one real close.
	Close() error
}

type dialFunc func(url string, cfg amqp.Config) (*amqp.Connection, error)

// ConnectionManager owns the single broker connection. It connects across a
// shuffled endpoint list, monitors the connection for closure and retries
// indefinitely until shut down. Registered channel recipes are replayed after
// every reconnect.
type ConnectionManager struct {
	endpoints      []Endpoint
	heartbeat      time.Duration
	reconnectDelay time.Duration
	graceWindow    time.Duration
	logger         *slog.Logger
	dial           dialFunc

	mu            sync.Mutex
	conn          *amqp.Connection
	state         State
	everConnected bool
	channels      []*Channel
	started       bool

	ready     chan struct{}
	readyOnce sync.Once
	done      chan struct{}
}

// ConnectionOption configures the ConnectionManager
type ConnectionOption func(*ConnectionManager)

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) ConnectionOption {
	return func(cm *ConnectionManager) {
		cm.logger = logger
	}
}

// WithHeartbeat sets the AMQP heartbeat interval
func WithHeartbeat(interval time.Duration) ConnectionOption {
	return func(cm *ConnectionManager) {
		cm.heartbeat = interval
	}
}

// WithReconnectDelay sets the delay between reconnection rounds
func WithReconnectDelay(delay time.Duration) ConnectionOption {
	return func(cm *ConnectionManager) {
		cm.reconnectDelay = delay
	}
}

// WithGraceWindow sets how long AwaitReachable waits for the first connect
func WithGraceWindow(window time.Duration) ConnectionOption {
	return func(cm *ConnectionManager) {
		cm.graceWindow = window
	}
}

// NewConnectionManager creates a new connection manager for the given endpoints
func NewConnectionManager(endpoints []Endpoint, options ...ConnectionOption) *ConnectionManager {
	cm := &ConnectionManager{
		endpoints:      endpoints,
		heartbeat:      10 * time.Second,
		reconnectDelay: 5 * time.Second,
		graceWindow:    2 * time.Second,
		logger:         slog.Default(),
		dial:           amqp.DialConfig,
		state:          StateDisconnected,
		ready:          make(chan struct{}),
		done:           make(chan struct{}),
	}

	for _, opt := range options {
		opt(cm)
	}

	return cm
}

// Start launches the connect loop. Calling Start more than once is a no-op.
func (cm *ConnectionManager) Start() {
	cm.mu.Lock()
	if cm.started || cm.state == StateShuttingDown {
		cm.mu.Unlock()
		return
	}
	cm.started = true
	cm.mu.Unlock()

	go cm.run()
}

// run is the supervision loop: dial, replay recipes, wait for closure, repeat.
func (cm *ConnectionManager) run() {
	endpoints := Shuffle(cm.endpoints)
	urls := make([]string, len(endpoints))
	for i, ep := range endpoints {
		urls[i] = ep.URL()
	}

	for {
		if cm.State() == StateShuttingDown {
			return
		}
		cm.setState(StateConnecting)

		conn, ep, err := cm.dialAny(endpoints)
		if err != nil {
			cm.setState(StateDisconnected)
			cm.logger.Error("broker connection failed",
				"endpoints", SanitizeURLs(urls),
				"error", err,
				"retryIn", cm.reconnectDelay)

			select {
			case <-time.After(cm.reconnectDelay):
				continue
			case <-cm.done:
				return
			}
		}

		closeCh := make(chan *amqp.Error, 1)
		conn.NotifyClose(closeCh)

		cm.mu.Lock()
		if cm.state == StateShuttingDown {
			cm.mu.Unlock()
			conn.Close()
			return
		}
		cm.conn = conn
		cm.state = StateConnected
		cm.everConnected = true
		cm.mu.Unlock()

		cm.logger.Info("connected to broker", "endpoint", SanitizeURL(ep.URL()))

		cm.replayChannels(conn)
		cm.readyOnce.Do(func() { close(cm.ready) })

		select {
		case amqpErr := <-closeCh:
			cm.mu.Lock()
			if cm.state == StateShuttingDown {
				cm.mu.Unlock()
				return
			}
			cm.state = StateDisconnected
			cm.conn = nil
			cm.mu.Unlock()

			cm.logger.Error("broker connection lost",
				"endpoints", SanitizeURLs(urls),
				"error", closeCause(amqpErr),
				"retryIn", cm.reconnectDelay)

			select {
			case <-time.After(cm.reconnectDelay):
			case <-cm.done:
				return
			}

		case <-cm.done:
			return
		}
	}
}

// closeCause normalizes a NotifyClose result. The notification channel closes
// with a nil *amqp.Error when the connection went away without a protocol
// error, which still means the connection is gone.
func closeCause(amqpErr *amqp.Error) error {
	if amqpErr == nil {
		return ErrConnectionClosed
	}
	return amqpErr
}

// dialAny attempts each endpoint in order and returns the first that connects.
func (cm *ConnectionManager) dialAny(endpoints []Endpoint) (*amqp.Connection, Endpoint, error) {
	var lastErr error
	attempts := 0

	for _, ep := range endpoints {
		select {
		case <-cm.done:
			return nil, Endpoint{}, ErrShuttingDown
		default:
		}

		attempts++
		conn, err := cm.dial(ep.URL(), amqp.Config{Heartbeat: cm.heartbeat})
		if err != nil {
			lastErr = err
			continue
		}
		return conn, ep, nil
	}

	urls := make([]string, len(endpoints))
	for i, ep := range endpoints {
		urls[i] = SanitizeURL(ep.URL())
	}
	return nil, Endpoint{}, &ConnectionError{
		Op:        "connect",
		Endpoints: urls,
		Err:       lastErr,
		Timestamp: time.Now(),
		Attempts:  attempts,
	}
}

// replayChannels re-applies every registered recipe on a fresh connection.
// Recipes are idempotent, so a replay after reconnect needs no special casing.
func (cm *ConnectionManager) replayChannels(conn *amqp.Connection) {
	cm.mu.Lock()
	channels := make([]*Channel, len(cm.channels))
	copy(channels, cm.channels)
	cm.mu.Unlock()

	for _, ch := range channels {
		if err := ch.apply(conn); err != nil {
			cm.logger.Error("channel setup failed",
				"queue", ch.recipe.Queue.Name,
				"exchange", ch.recipe.Exchange.Name,
				"error", err)
		}
	}
}

// State returns a snapshot of the connection state
func (cm *ConnectionManager) State() State {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return cm.state
}

func (cm *ConnectionManager) setState(s State) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cm.state == StateShuttingDown {
		return
	}
	cm.state = s
}

// IsConnected returns the connection status
func (cm *ConnectionManager) IsConnected() bool {
	return cm.State() == StateConnected
}

// AwaitReachable reports whether the broker is reachable. When shutting down
// it returns false with no error. When the connection was established before
// and is now gone it fails immediately with ErrConnectionLost. When the first
// connect has not completed yet it waits up to the grace window and rechecks
// once before failing with ErrNotYetConnected, so callers probing right after
// startup are not failed spuriously.
func (cm *ConnectionManager) AwaitReachable(ctx context.Context) (bool, error) {
	if cm.State() == StateShuttingDown {
		return false, nil
	}
	if cm.IsConnected() {
		return true, nil
	}

	cm.mu.Lock()
	ever := cm.everConnected
	cm.mu.Unlock()
	if ever {
		if cm.IsConnected() {
			return true, nil
		}
		return false, ErrConnectionLost
	}

	timer := time.NewTimer(cm.graceWindow)
	defer timer.Stop()

	select {
	case <-cm.ready:
		if cm.State() == StateShuttingDown {
			return false, nil
		}
		if cm.IsConnected() {
			return true, nil
		}
		return false, ErrNotYetConnected
	case <-timer.C:
		if cm.IsConnected() {
			return true, nil
		}
		return false, ErrNotYetConnected
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// OpenChannel registers a setup recipe. The recipe is applied immediately if
// connected and replayed on every subsequent reconnect. An apply failure is
// returned to the caller but the registration stands: the next reconnect
// replays the recipe.
func (cm *ConnectionManager) OpenChannel(recipe Recipe) (Chan, error) {
	ch := newChannel(cm.logger, recipe)

	cm.mu.Lock()
	if cm.state == StateShuttingDown {
		cm.mu.Unlock()
		return nil, ErrShuttingDown
	}
	cm.channels = append(cm.channels, ch)
	conn := cm.conn
	connected := cm.state == StateConnected
	cm.mu.Unlock()

	if connected && conn != nil {
		if err := ch.apply(conn); err != nil {
			return ch, err
		}
	}
	return ch, nil
}

// Close transitions to ShuttingDown and closes the underlying connection.
// The transition is terminal; a second Close is a no-op.
func (cm *ConnectionManager) Close() error {
	cm.mu.Lock()
	if cm.state == StateShuttingDown {
		cm.mu.Unlock()
		return nil
	}
	cm.state = StateShuttingDown
	conn := cm.conn
	cm.conn = nil
	cm.mu.Unlock()

	close(cm.done)
	cm.logger.Info("closing broker connection")

	if conn != nil {
		return conn.Close()
	}
	return nil
}
