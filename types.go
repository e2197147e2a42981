package amqpline

import (
	"github.com/amqpline/amqpline/internal/rabbitmq"
)

// Aliases re-export the broker-facing types so applications never import the
// internal package.

// Handler processes one delivery; see rabbitmq.Handler for the disposition
// contract.
type Handler = rabbitmq.Handler

// Delivery is the per-message ack/nack/redirect handle.
type Delivery = rabbitmq.Delivery

// Chan is a channel handle bound to a replayed setup recipe.
type Chan = rabbitmq.Chan

// Properties is the broker-agnostic message envelope.
type Properties = rabbitmq.Properties

// PublishOption overrides an outbound message property.
type PublishOption = rabbitmq.PublishOption

// DefaultRequeueDelay is the cooldown before a failed message is retried.
const DefaultRequeueDelay = rabbitmq.DefaultRequeueDelay

// Publish property overrides.
var (
	WithContentType = rabbitmq.WithContentType
	WithMessageID   = rabbitmq.WithMessageID
	WithType        = rabbitmq.WithType
	WithAppID       = rabbitmq.WithAppID
	WithTimestamp   = rabbitmq.WithTimestamp
	WithTransient   = rabbitmq.WithTransient
	WithHeaders     = rabbitmq.WithHeaders
)

// Connectivity conditions surfaced by Reachable.
var (
	ErrNotYetConnected = rabbitmq.ErrNotYetConnected
	ErrConnectionLost  = rabbitmq.ErrConnectionLost
)

// ErrAlreadySettled reports a second disposition on the same delivery.
var ErrAlreadySettled = rabbitmq.ErrAlreadySettled

// ErrInvalidConfiguration matches every configuration rejection, ErrNoHosts
// included.
var ErrInvalidConfiguration = rabbitmq.ErrInvalidConfiguration
