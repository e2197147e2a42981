// Copyright 2024 Amqpline Contributors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package amqpline

import (
	"context"
	"log/slog"
	"os"

	"github.com/amqpline/amqpline/internal/rabbitmq"
)

// Client is the application entry point: it owns the supervised broker
// connection and the shutdown coordinator, and exposes the consumption and
// publishing patterns built on top of them.
type Client struct {
	conn        rabbitmq.Connection
	coordinator *ShutdownCoordinator
	logger      *slog.Logger
}

// clientConfig holds client construction options
type clientConfig struct {
	logger *slog.Logger
}

// ClientOption configures the client
type ClientOption func(*clientConfig)

// WithLogger sets the logger for all components
func WithLogger(logger *slog.Logger) ClientOption {
	return func(cfg *clientConfig) {
		cfg.logger = logger
	}
}

// NewClient builds a client from configuration and starts connecting in the
// background. It returns immediately; use Reachable to wait for the broker.
// When cfg.Active is false the client runs against a no-op connection stub.
func NewClient(cfg Config, options ...ClientOption) (*Client, error) {
	cc := &clientConfig{
		logger: slog.Default(),
	}
	for _, opt := range options {
		opt(cc)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var conn rabbitmq.Connection
	if cfg.Active {
		connOpts := []rabbitmq.ConnectionOption{
			rabbitmq.WithLogger(cc.logger),
		}
		if cfg.Heartbeat > 0 {
			connOpts = append(connOpts, rabbitmq.WithHeartbeat(cfg.Heartbeat))
		}
		if cfg.ReconnectInterval > 0 {
			connOpts = append(connOpts, rabbitmq.WithReconnectDelay(cfg.ReconnectInterval))
		}
		conn = rabbitmq.NewConnectionManager(cfg.endpoints(), connOpts...)
	} else {
		conn = rabbitmq.NewNoopConnection(cc.logger)
	}
	conn.Start()

	return &Client{
		conn:        conn,
		coordinator: NewShutdownCoordinator(conn, cc.logger),
		logger:      cc.logger,
	}, nil
}

// Reachable reports whether the broker is reachable. Once shutdown has been
// triggered it returns false without an error regardless of the underlying
// connection state. At startup it waits a short grace window for the first
// connect before failing with a connectivity error.
func (c *Client) Reachable(ctx context.Context) (bool, error) {
	if c.coordinator.ShuttingDown() {
		return false, nil
	}
	return c.conn.AwaitReachable(ctx)
}

// GracefulShutdown closes the broker connection at most once; safe to call
// from any number of goroutines and call sites.
func (c *Client) GracefulShutdown() {
	c.coordinator.GracefulShutdown()
}

// HandleSignals installs termination-signal triggers for graceful shutdown.
func (c *Client) HandleSignals(sigs ...os.Signal) {
	c.coordinator.HandleSignals(sigs...)
}

// Fatal shuts down and forces a non-zero process exit.
func (c *Client) Fatal(err error) {
	c.coordinator.Fatal(err)
}

// Idle shuts down without forcing an exit code, for callers that have
// drained their work.
func (c *Client) Idle() {
	c.coordinator.Idle()
}

// Coordinator exposes the shutdown coordinator for wiring additional
// triggers.
func (c *Client) Coordinator() *ShutdownCoordinator {
	return c.coordinator
}

// Close implements io.Closer by triggering a graceful shutdown.
func (c *Client) Close() error {
	c.coordinator.GracefulShutdown()
	return nil
}
