package amqpline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/amqpline/amqpline/internal/rabbitmq"
)

// workerConfig holds worker-queue pattern options
type workerConfig struct {
	prefetch     int
	exchangeKind string
}

// WorkerOption configures the worker-queue pattern
type WorkerOption func(*workerConfig)

// WithPrefetch sets how many unacknowledged messages the worker may hold
func WithPrefetch(count int) WorkerOption {
	return func(cfg *workerConfig) {
		cfg.prefetch = count
	}
}

// WithWorkerExchangeKind overrides the topic exchange kind
func WithWorkerExchangeKind(kind string) WorkerOption {
	return func(cfg *workerConfig) {
		cfg.exchangeKind = kind
	}
}

// WorkerQueue sets up the competing-consumers pattern: a durable quorum queue
// shared by any number of instances, each message delivered to exactly one of
// them. Prefetch defaults to 1, which is the sole backpressure mechanism.
// The setup is replayed automatically after every reconnect.
func (c *Client) WorkerQueue(queue, exchange string, bindings []string, handler Handler, opts ...WorkerOption) (Chan, error) {
	cfg := workerConfig{
		prefetch:     1,
		exchangeKind: "topic",
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return c.conn.OpenChannel(rabbitmq.Recipe{
		Exchange: rabbitmq.ExchangeSpec{
			Name:    exchange,
			Kind:    cfg.exchangeKind,
			Durable: true,
		},
		Queue: rabbitmq.QueueSpec{
			Name:    queue,
			Durable: true,
			Args:    amqp.Table{"x-queue-type": "quorum"},
		},
		Bindings: bindings,
		Prefetch: cfg.prefetch,
		Handler:  handler,
	})
}

// subscribeConfig holds pub-sub pattern options
type subscribeConfig struct {
	durable      bool
	exclusive    bool
	exchangeKind string
	noAck        bool
	prefetch     int
}

// SubscribeOption configures the pub-sub pattern
type SubscribeOption func(*subscribeConfig)

// WithDurableSubscription makes the subscription queue durable
func WithDurableSubscription() SubscribeOption {
	return func(cfg *subscribeConfig) {
		cfg.durable = true
	}
}

// WithExclusive sets the exclusivity of the subscription queue
func WithExclusive(exclusive bool) SubscribeOption {
	return func(cfg *subscribeConfig) {
		cfg.exclusive = exclusive
	}
}

// WithSubscribeExchangeKind overrides the topic exchange kind
func WithSubscribeExchangeKind(kind string) SubscribeOption {
	return func(cfg *subscribeConfig) {
		cfg.exchangeKind = kind
	}
}

// WithNoAck delivers messages without requiring acknowledgment
func WithNoAck() SubscribeOption {
	return func(cfg *subscribeConfig) {
		cfg.noAck = true
	}
}

// WithSubscribePrefetch sets the subscription prefetch count
func WithSubscribePrefetch(count int) SubscribeOption {
	return func(cfg *subscribeConfig) {
		cfg.prefetch = count
	}
}

// Subscribe sets up the pub-sub pattern: an ephemeral exclusive queue whose
// name gets a fresh unique suffix per subscription, auto-deleted when the
// owning connection ends. Every subscribed instance receives its own copy of
// matching messages. Defaults may be overridden through options.
func (c *Client) Subscribe(queuePrefix, exchange string, bindings []string, handler Handler, opts ...SubscribeOption) (Chan, error) {
	cfg := subscribeConfig{
		exclusive:    true,
		exchangeKind: "topic",
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return c.conn.OpenChannel(rabbitmq.Recipe{
		Exchange: rabbitmq.ExchangeSpec{
			Name:    exchange,
			Kind:    cfg.exchangeKind,
			Durable: true,
		},
		Queue: rabbitmq.QueueSpec{
			Name:       fmt.Sprintf("%s.%s", queuePrefix, uuid.New().String()),
			Durable:    cfg.durable,
			AutoDelete: true,
			Exclusive:  cfg.exclusive,
		},
		Bindings: bindings,
		Prefetch: cfg.prefetch,
		Handler:  handler,
		NoAck:    cfg.noAck,
	})
}

// channelConfig holds publish/plain channel options
type channelConfig struct {
	exchangeKind string
	durable      bool
}

// ChannelOption configures a publish or plain channel
type ChannelOption func(*channelConfig)

// WithExchangeKind overrides the topic exchange kind
func WithExchangeKind(kind string) ChannelOption {
	return func(cfg *channelConfig) {
		cfg.exchangeKind = kind
	}
}

// WithNonDurableExchange declares the exchange non-durable
func WithNonDurableExchange() ChannelOption {
	return func(cfg *channelConfig) {
		cfg.durable = false
	}
}

// Publisher publishes JSON messages to one exchange. Outbound messages are
// persistent with contentType application/json, a fresh message id and the
// current timestamp; WithType, WithAppID and the other publish options
// override the defaults per call.
type Publisher struct {
	ch Chan
}

// Publish marshals content to JSON and sends it under routingKey.
func (p *Publisher) Publish(ctx context.Context, routingKey string, content any, opts ...PublishOption) error {
	body, err := json.Marshal(content)
	if err != nil {
		return fmt.Errorf("amqpline: failed to marshal message: %w", err)
	}
	return p.ch.Publish(ctx, routingKey, body, opts...)
}

// SendToQueue marshals content to JSON and sends it directly to a queue.
func (p *Publisher) SendToQueue(ctx context.Context, queue string, content any, opts ...PublishOption) error {
	body, err := json.Marshal(content)
	if err != nil {
		return fmt.Errorf("amqpline: failed to marshal message: %w", err)
	}
	return p.ch.SendToQueue(ctx, queue, body, opts...)
}

// Channel exposes the underlying channel handle.
func (p *Publisher) Channel() Chan {
	return p.ch
}

// PublishChannel declares the exchange (topic, durable by default) and
// returns a JSON publisher bound to it.
func (c *Client) PublishChannel(exchange string, opts ...ChannelOption) (*Publisher, error) {
	ch, err := c.PlainChannel(exchange, opts...)
	if err != nil {
		return nil, err
	}
	return &Publisher{ch: ch}, nil
}

// PlainChannel declares the exchange (topic, durable by default) and returns
// the raw channel handle, for callers that manage their own framing.
func (c *Client) PlainChannel(exchange string, opts ...ChannelOption) (Chan, error) {
	cfg := channelConfig{
		exchangeKind: "topic",
		durable:      true,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return c.conn.OpenChannel(rabbitmq.Recipe{
		Exchange: rabbitmq.ExchangeSpec{
			Name:    exchange,
			Kind:    cfg.exchangeKind,
			Durable: cfg.durable,
		},
	})
}
