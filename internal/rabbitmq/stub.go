package rabbitmq

import (
	"context"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
)

// NoopConnection substitutes for the real connection when messaging is
// disabled in configuration. It reports always-connected and no-ops every
// operation, so application code runs unchanged without a broker.
type NoopConnection struct {
	logger *slog.Logger
}

// NewNoopConnection creates a disabled connection stub
func NewNoopConnection(logger *slog.Logger) *NoopConnection {
	if logger == nil {
		logger = slog.Default()
	}
	return &NoopConnection{logger: logger}
}

func (n *NoopConnection) Start() {
	n.logger.Info("messaging disabled, using no-op broker connection")
}

func (n *NoopConnection) IsConnected() bool {
	return true
}

func (n *NoopConnection) AwaitReachable(ctx context.Context) (bool, error) {
	return true, nil
}

func (n *NoopConnection) OpenChannel(recipe Recipe) (Chan, error) {
	return noopChan{}, nil
}

func (n *NoopConnection) Close() error {
	return nil
}

type noopChan struct{}

func (noopChan) Publish(ctx context.Context, routingKey string, body []byte, opts ...PublishOption) error {
	return nil
}

func (noopChan) SendToQueue(ctx context.Context, queue string, body []byte, opts ...PublishOption) error {
	return nil
}

func (noopChan) Raw() *amqp.Channel { return nil }

func (noopChan) Close() error { return nil }
