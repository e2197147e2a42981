package rabbitmq

import (
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Properties is the broker-agnostic message envelope. Outbound messages get
// persistent JSON defaults with a fresh message id and timestamp; every field
// can be overridden per publish.
type Properties struct {
	ContentType string
	MessageID   string
	Type        string
	AppID       string
	Timestamp   time.Time
	Persistent  bool
	Headers     amqp.Table
}

// PublishOption overrides an outbound message property
type PublishOption func(*Properties)

// WithContentType overrides the content type
func WithContentType(contentType string) PublishOption {
	return func(p *Properties) {
		p.ContentType = contentType
	}
}

// WithMessageID overrides the generated message id
func WithMessageID(id string) PublishOption {
	return func(p *Properties) {
		p.MessageID = id
	}
}

// WithType sets the message type property
func WithType(messageType string) PublishOption {
	return func(p *Properties) {
		p.Type = messageType
	}
}

// WithAppID sets the publishing application id
func WithAppID(appID string) PublishOption {
	return func(p *Properties) {
		p.AppID = appID
	}
}

// WithTimestamp overrides the message timestamp
func WithTimestamp(t time.Time) PublishOption {
	return func(p *Properties) {
		p.Timestamp = t
	}
}

// WithTransient marks the message non-persistent
func WithTransient() PublishOption {
	return func(p *Properties) {
		p.Persistent = false
	}
}

// WithHeaders merges headers onto the message
func WithHeaders(headers amqp.Table) PublishOption {
	return func(p *Properties) {
		if p.Headers == nil {
			p.Headers = amqp.Table{}
		}
		for k, v := range headers {
			p.Headers[k] = v
		}
	}
}

// NewProperties builds outbound properties: persistent application/json with
// a fresh message id and current timestamp, then applies overrides.
func NewProperties(opts ...PublishOption) Properties {
	p := Properties{
		ContentType: "application/json",
		MessageID:   uuid.New().String(),
		Timestamp:   time.Now(),
		Persistent:  true,
	}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

// publishing converts the properties and body into an AMQP publishing
func (p Properties) publishing(body []byte) amqp.Publishing {
	mode := amqp.Transient
	if p.Persistent {
		mode = amqp.Persistent
	}
	return amqp.Publishing{
		Headers:      p.Headers,
		ContentType:  p.ContentType,
		DeliveryMode: mode,
		MessageId:    p.MessageID,
		Timestamp:    p.Timestamp,
		Type:         p.Type,
		AppId:        p.AppID,
		Body:         body,
	}
}

// propertiesFrom extracts the envelope properties of an inbound delivery
func propertiesFrom(d amqp.Delivery) Properties {
	return Properties{
		ContentType: d.ContentType,
		MessageID:   d.MessageId,
		Type:        d.Type,
		AppID:       d.AppId,
		Timestamp:   d.Timestamp,
		Persistent:  d.DeliveryMode == amqp.Persistent,
		Headers:     d.Headers,
	}
}
