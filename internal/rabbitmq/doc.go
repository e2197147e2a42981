// Package rabbitmq provides the broker connection internals: multi-endpoint
// connection supervision with automatic reconnect, declarative channel setup
// recipes replayed after every reconnect, and per-message disposition handles
// for consumer callbacks.
//
// This package is internal to amqpline. Applications use the root package,
// which wires configuration into these components.
package rabbitmq
