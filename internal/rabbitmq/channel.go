package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// brokerChannel is the subset of *amqp.Channel a Recipe is applied against.
type brokerChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	Qos(prefetchCount, prefetchSize int, global bool) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// ExchangeSpec declares an exchange
type ExchangeSpec struct {
	Name       string
	Kind       string
	Durable    bool
	AutoDelete bool
}

// QueueSpec declares a queue
type QueueSpec struct {
	Name       string
	Durable    bool
	AutoDelete bool
	Exclusive  bool
	Args       amqp.Table
}

// Recipe is the declarative channel setup: exchange, queue, bindings,
// prefetch and an optional consumer. It is pure data with no captured state,
// which is what makes replaying it after a reconnect safe. Declaring an
// exchange, queue or binding that already exists is a broker-side no-op.
type Recipe struct {
	Exchange ExchangeSpec
	Queue    QueueSpec
	Bindings []string
	Prefetch int
	Handler  Handler
	NoAck    bool

	// RequeueDelay is the cooldown applied when a handler fails before the
	// message is nacked back for retry. Zero means DefaultRequeueDelay.
	RequeueDelay time.Duration
}

func (r Recipe) requeueDelay() time.Duration {
	if r.RequeueDelay > 0 {
		return r.RequeueDelay
	}
	return DefaultRequeueDelay
}

// Chan is the channel handle returned to application code.
type Chan interface {
	// Publish sends body to the channel's exchange under routingKey.
	Publish(ctx context.Context, routingKey string, body []byte, opts ...PublishOption) error

	// SendToQueue sends body directly to a queue via the default exchange.
	SendToQueue(ctx context.Context, queue string, body []byte, opts ...PublishOption) error

	// Raw exposes the underlying AMQP channel, nil when not connected.
	Raw() *amqp.Channel

	// Close closes the current underlying channel.
	Close() error
}

// Channel binds a Recipe to whatever broker channel is current. The owning
// ConnectionManager re-applies the recipe on every reconnect, so the handle
// stays valid across connection loss.
type Channel struct {
	logger *slog.Logger
	recipe Recipe

	mu     sync.Mutex
	ch     brokerChannel
	closed bool
}

func newChannel(logger *slog.Logger, recipe Recipe) *Channel {
	return &Channel{
		logger: logger,
		recipe: recipe,
	}
}

// apply opens a fresh AMQP channel on conn and applies the recipe to it.
func (c *Channel) apply(conn *amqp.Connection) error {
	raw, err := conn.Channel()
	if err != nil {
		return &SetupError{
			Step:      "open channel for",
			Name:      c.recipe.Queue.Name,
			Err:       err,
			Timestamp: time.Now(),
		}
	}
	return c.applyTo(raw)
}

// applyTo runs the recipe against bc: exchange declare, queue declare,
// bindings, then prefetch and consume. The declares have no ordering
// dependency between each other; prefetch and consume must follow the queue
// declaration.
func (c *Channel) applyTo(bc brokerChannel) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	r := c.recipe

	if r.Exchange.Name != "" {
		kind := r.Exchange.Kind
		if kind == "" {
			kind = "topic"
		}
		err := bc.ExchangeDeclare(r.Exchange.Name, kind, r.Exchange.Durable, r.Exchange.AutoDelete, false, false, nil)
		if err != nil {
			return &SetupError{Step: "declare exchange", Name: r.Exchange.Name, Err: err, Timestamp: time.Now()}
		}
	}

	if r.Queue.Name != "" || r.Handler != nil {
		q, err := bc.QueueDeclare(r.Queue.Name, r.Queue.Durable, r.Queue.AutoDelete, r.Queue.Exclusive, false, r.Queue.Args)
		if err != nil {
			return &SetupError{Step: "declare queue", Name: r.Queue.Name, Err: err, Timestamp: time.Now()}
		}
		queue := q.Name

		if r.Exchange.Name != "" {
			for _, key := range r.Bindings {
				if err := bc.QueueBind(queue, key, r.Exchange.Name, false, nil); err != nil {
					return &SetupError{Step: "bind queue", Name: queue, Err: err, Timestamp: time.Now()}
				}
			}
		}

		if r.Prefetch > 0 {
			if err := bc.Qos(r.Prefetch, 0, false); err != nil {
				return &SetupError{Step: "set prefetch on", Name: queue, Err: err, Timestamp: time.Now()}
			}
		}

		if r.Handler != nil {
			tag := "amqpline-" + uuid.New().String()
			deliveries, err := bc.Consume(queue, tag, r.NoAck, r.Queue.Exclusive, false, false, nil)
			if err != nil {
				return &SetupError{Step: "consume from", Name: queue, Err: err, Timestamp: time.Now()}
			}
			if !c.setCurrent(bc) {
				return bc.Close()
			}
			go c.consume(queue, tag, deliveries)
			return nil
		}
	}

	if !c.setCurrent(bc) {
		return bc.Close()
	}
	return nil
}

// setCurrent installs bc as the live broker channel. It reports false when
// Close landed after applyTo's initial check; the fresh channel must not
// outlive the handle, so the caller discards it.
func (c *Channel) setCurrent(bc brokerChannel) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.ch = bc
	return true
}

func (c *Channel) current() (brokerChannel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrChannelClosed
	}
	if c.ch == nil {
		return nil, ErrConnectionLost
	}
	return c.ch, nil
}

// consume drains deliveries until the broker cancels the consumer or the
// channel dies. Either way the loop ends here: recovery happens solely
// through the recipe replay on the next reconnect, never by retrying the
// consume in place.
func (c *Channel) consume(queue, tag string, deliveries <-chan amqp.Delivery) {
	for d := range deliveries {
		c.dispatch(context.Background(), d)
	}

	c.logger.Warn("consumer stopped, awaiting reconnect",
		"queue", queue,
		"consumerTag", tag,
		"error", &ConsumerError{
			Queue:       queue,
			ConsumerTag: tag,
			Op:          "consume",
			Err:         ErrConsumerCancelled,
			Timestamp:   time.Now(),
		})
}

// dispatch invokes the handler for one delivery. A returned error or a panic
// is caught here and converted into a delayed nack with requeue, so a broken
// handler cycles the message back for retry instead of dropping it or
// crashing the process.
func (c *Channel) dispatch(ctx context.Context, raw amqp.Delivery) {
	d := newDelivery(raw, c, c.logger)

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("handler panic: %v", r)
			}
		}()
		return c.recipe.Handler(ctx, d)
	}()

	if err == nil {
		return
	}

	c.logger.Error("message handler failed",
		"messageId", d.Properties.MessageID,
		"routingKey", d.RoutingKey,
		"error", err)

	if c.recipe.NoAck {
		return
	}
	if nackErr := d.Nack(c.recipe.requeueDelay(), true); nackErr != nil && !errors.Is(nackErr, ErrAlreadySettled) {
		c.logger.Error("failed to nack after handler failure",
			"messageId", d.Properties.MessageID,
			"error", nackErr)
	}
}

// Publish sends body to the channel's exchange under routingKey.
func (c *Channel) Publish(ctx context.Context, routingKey string, body []byte, opts ...PublishOption) error {
	bc, err := c.current()
	if err != nil {
		return err
	}
	props := NewProperties(opts...)
	return bc.PublishWithContext(ctx, c.recipe.Exchange.Name, routingKey, false, false, props.publishing(body))
}

// SendToQueue sends body directly to a queue via the default exchange.
func (c *Channel) SendToQueue(ctx context.Context, queue string, body []byte, opts ...PublishOption) error {
	bc, err := c.current()
	if err != nil {
		return err
	}
	props := NewProperties(opts...)
	return bc.PublishWithContext(ctx, "", queue, false, false, props.publishing(body))
}

// redirect declares queue durable and copies a delivery's payload and
// properties onto it. Used by Delivery.Redirect for dead-lettering.
func (c *Channel) redirect(ctx context.Context, queue string, body []byte, props Properties) error {
	bc, err := c.current()
	if err != nil {
		return err
	}
	if _, err := bc.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return &SetupError{Step: "declare queue", Name: queue, Err: err, Timestamp: time.Now()}
	}
	return bc.PublishWithContext(ctx, "", queue, false, false, props.publishing(body))
}

// Raw exposes the current underlying AMQP channel, nil when not connected.
func (c *Channel) Raw() *amqp.Channel {
	c.mu.Lock()
	defer c.mu.Unlock()
	if raw, ok := c.ch.(*amqp.Channel); ok {
		return raw
	}
	return nil
}

// Close closes the current underlying channel. The recipe stays registered
// with the connection manager; Close is for handles the application is done
// with before shutdown.
func (c *Channel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if c.ch != nil {
		return c.ch.Close()
	}
	return nil
}
