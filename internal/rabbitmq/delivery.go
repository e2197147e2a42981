package rabbitmq

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// DefaultRequeueDelay is the cooldown before a failed message is nacked back
// onto its queue for retry.
const DefaultRequeueDelay = 10 * time.Second

// Handler processes one delivery. Returning an error (or panicking) makes the
// dispatch boundary nack the message back for retry after the channel's
// requeue delay; a handler that succeeds is expected to have settled the
// delivery itself via Ack, Nack or Redirect.
type Handler func(ctx context.Context, d *Delivery) error

// redirector copies a delivery onto another queue. Implemented by Channel.
type redirector interface {
	redirect(ctx context.Context, queue string, body []byte, props Properties) error
}

// Delivery is the per-message disposition handle passed to consumer handlers.
// It is owned by the channel it came from, which outlives any in-flight
// delivery. Exactly one disposition takes effect: the first of Ack, Nack or
// Redirect wins and later calls return ErrAlreadySettled.
type Delivery struct {
	Body        []byte
	Properties  Properties
	Redelivered bool
	RoutingKey  string
	Exchange    string

	tag     uint64
	acker   amqp.Acknowledger
	ch      redirector
	logger  *slog.Logger
	settled atomic.Bool
}

func newDelivery(raw amqp.Delivery, ch redirector, logger *slog.Logger) *Delivery {
	return &Delivery{
		Body:        raw.Body,
		Properties:  propertiesFrom(raw),
		Redelivered: raw.Redelivered,
		RoutingKey:  raw.RoutingKey,
		Exchange:    raw.Exchange,
		tag:         raw.DeliveryTag,
		acker:       raw.Acknowledger,
		ch:          ch,
		logger:      logger,
	}
}

// Ack immediately and permanently acknowledges the message.
func (d *Delivery) Ack() error {
	if !d.settled.CompareAndSwap(false, true) {
		return ErrAlreadySettled
	}
	return d.acker.Ack(d.tag, false)
}

// Nack negatively acknowledges the message after delay elapses. With requeue
// the broker puts the message back on its queue; without it the message is
// discarded (or dead-lettered by queue policy). The settled state is taken
// immediately so a concurrent Ack cannot also fire.
func (d *Delivery) Nack(delay time.Duration, requeue bool) error {
	if !d.settled.CompareAndSwap(false, true) {
		return ErrAlreadySettled
	}
	d.schedule(delay, func() {
		if err := d.acker.Nack(d.tag, false, requeue); err != nil {
			d.logger.Error("failed to nack message",
				"messageId", d.Properties.MessageID,
				"requeue", requeue,
				"error", err)
		}
	})
	return nil
}

// Redirect declares queue durable, copies the payload and properties onto it
// after delay elapses, then nacks the original without requeue. If the copy
// fails the original is requeued instead, so the message is never dropped.
func (d *Delivery) Redirect(delay time.Duration, queue string) error {
	if !d.settled.CompareAndSwap(false, true) {
		return ErrAlreadySettled
	}
	d.schedule(delay, func() {
		requeue := false
		if err := d.ch.redirect(context.Background(), queue, d.Body, d.Properties); err != nil {
			d.logger.Error("failed to redirect message, requeueing original",
				"messageId", d.Properties.MessageID,
				"queue", queue,
				"error", err)
			requeue = true
		}
		if err := d.acker.Nack(d.tag, false, requeue); err != nil {
			d.logger.Error("failed to nack redirected message",
				"messageId", d.Properties.MessageID,
				"error", err)
		}
	})
	return nil
}

// schedule runs fn after delay. Pending timers are not cancelled on shutdown;
// they die with the process, matching the at-most-once disposition contract.
func (d *Delivery) schedule(delay time.Duration, fn func()) {
	if delay <= 0 {
		fn()
		return
	}
	time.AfterFunc(delay, fn)
}
