package amqpline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	t.Run("active client without hosts is rejected", func(t *testing.T) {
		_, err := NewClient(Config{Active: true})
		assert.ErrorIs(t, err, ErrNoHosts)
	})

	t.Run("inactive client runs against the no-op stub", func(t *testing.T) {
		client, err := NewClient(Config{Active: false}, WithLogger(testLogger()))
		require.NoError(t, err)

		ok, err := client.Reachable(context.Background())
		assert.NoError(t, err)
		assert.True(t, ok)
	})
}

func TestInactiveClientSurface(t *testing.T) {
	newInactive := func(t *testing.T) *Client {
		client, err := NewClient(Config{Active: false}, WithLogger(testLogger()))
		require.NoError(t, err)
		return client
	}

	t.Run("worker queue returns a usable handle", func(t *testing.T) {
		client := newInactive(t)
		ch, err := client.WorkerQueue("jobs", "events", []string{"order.*"},
			func(ctx context.Context, d *Delivery) error { return d.Ack() })
		require.NoError(t, err)
		assert.NoError(t, ch.Publish(context.Background(), "order.created", []byte(`{}`)))
	})

	t.Run("subscribe returns a usable handle", func(t *testing.T) {
		client := newInactive(t)
		ch, err := client.Subscribe("audit", "events", []string{"#"},
			func(ctx context.Context, d *Delivery) error { return d.Ack() },
			WithDurableSubscription(), WithNoAck())
		require.NoError(t, err)
		assert.NoError(t, ch.Close())
	})

	t.Run("publish channel marshals content to JSON", func(t *testing.T) {
		client := newInactive(t)
		pub, err := client.PublishChannel("events")
		require.NoError(t, err)

		err = pub.Publish(context.Background(), "order.created",
			map[string]any{"id": 42}, WithType("order.created"), WithAppID("billing"))
		assert.NoError(t, err)
	})

	t.Run("publish channel surfaces marshal failures", func(t *testing.T) {
		client := newInactive(t)
		pub, err := client.PublishChannel("events")
		require.NoError(t, err)

		err = pub.Publish(context.Background(), "key", make(chan int))
		assert.Error(t, err)
	})

	t.Run("plain channel exposes the raw handle surface", func(t *testing.T) {
		client := newInactive(t)
		ch, err := client.PlainChannel("events", WithExchangeKind("fanout"), WithNonDurableExchange())
		require.NoError(t, err)
		assert.Nil(t, ch.Raw(), "stub has no underlying AMQP channel")
	})

	t.Run("reachable flips to false after shutdown without failing", func(t *testing.T) {
		client := newInactive(t)
		client.GracefulShutdown()

		ok, err := client.Reachable(context.Background())
		assert.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("close is an idempotent shutdown trigger", func(t *testing.T) {
		client := newInactive(t)
		assert.NoError(t, client.Close())
		assert.NoError(t, client.Close())
		assert.True(t, client.Coordinator().ShuttingDown())
	})
}

func TestActiveClient(t *testing.T) {
	t.Run("reachability probe honors its context before the broker appears", func(t *testing.T) {
		client, err := NewClient(Config{
			Active:            true,
			Hosts:             []string{"broker.invalid:5672"},
			ReconnectInterval: 10 * time.Millisecond,
		}, WithLogger(testLogger()))
		require.NoError(t, err)
		defer client.GracefulShutdown()

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		ok, err := client.Reachable(ctx)
		assert.False(t, ok)
		assert.Error(t, err)
	})

	t.Run("shutdown wins over reachability regardless of connection state", func(t *testing.T) {
		client, err := NewClient(Config{
			Active:            true,
			Hosts:             []string{"broker.invalid:5672"},
			ReconnectInterval: 10 * time.Millisecond,
		}, WithLogger(testLogger()))
		require.NoError(t, err)

		client.GracefulShutdown()

		ok, err := client.Reachable(context.Background())
		assert.NoError(t, err)
		assert.False(t, ok)
	})
}
