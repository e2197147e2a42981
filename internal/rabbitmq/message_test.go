package rabbitmq

import (
	"testing"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProperties(t *testing.T) {
	t.Run("defaults are persistent JSON with fresh id and timestamp", func(t *testing.T) {
		before := time.Now()
		p := NewProperties()

		assert.Equal(t, "application/json", p.ContentType)
		assert.True(t, p.Persistent)
		assert.WithinDuration(t, before, p.Timestamp, time.Second)

		_, err := uuid.Parse(p.MessageID)
		require.NoError(t, err, "message id must be a fresh uuid")
	})

	t.Run("every default is overridable", func(t *testing.T) {
		ts := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
		p := NewProperties(
			WithContentType("application/octet-stream"),
			WithMessageID("fixed-id"),
			WithType("order.created"),
			WithAppID("billing"),
			WithTimestamp(ts),
			WithTransient(),
			WithHeaders(amqp.Table{"x-origin": "import"}),
		)

		assert.Equal(t, "application/octet-stream", p.ContentType)
		assert.Equal(t, "fixed-id", p.MessageID)
		assert.Equal(t, "order.created", p.Type)
		assert.Equal(t, "billing", p.AppID)
		assert.Equal(t, ts, p.Timestamp)
		assert.False(t, p.Persistent)
		assert.Equal(t, "import", p.Headers["x-origin"])
	})

	t.Run("publishing maps persistence to delivery mode", func(t *testing.T) {
		pub := NewProperties().publishing([]byte(`{}`))
		assert.Equal(t, amqp.Persistent, pub.DeliveryMode)
		assert.Equal(t, []byte(`{}`), pub.Body)

		transient := NewProperties(WithTransient()).publishing(nil)
		assert.Equal(t, amqp.Transient, transient.DeliveryMode)
	})

	t.Run("inbound properties survive a redirect copy unchanged", func(t *testing.T) {
		ts := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
		props := propertiesFrom(amqp.Delivery{
			ContentType:  "application/json",
			MessageId:    "m-1",
			Type:         "order.created",
			AppId:        "billing",
			Timestamp:    ts,
			DeliveryMode: amqp.Persistent,
			Headers:      amqp.Table{"x-origin": "import"},
		})

		pub := props.publishing([]byte(`{"id":1}`))
		assert.Equal(t, "m-1", pub.MessageId)
		assert.Equal(t, "order.created", pub.Type)
		assert.Equal(t, "billing", pub.AppId)
		assert.Equal(t, ts, pub.Timestamp)
		assert.Equal(t, amqp.Persistent, pub.DeliveryMode)
		assert.Equal(t, "import", pub.Headers["x-origin"])
	})
}
