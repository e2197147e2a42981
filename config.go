package amqpline

import (
	"fmt"
	"time"

	"github.com/amqpline/amqpline/internal/rabbitmq"
)

// Config carries everything the client needs from the configuration
// provider. Parsing configuration files is out of scope; callers populate
// this struct however they load their settings.
type Config struct {
	// Username and Password authenticate against every host.
	Username string
	Password string

	// Hosts is the ordered broker node list. The client shuffles it before
	// connecting so simultaneous process starts spread across the cluster.
	Hosts []string

	// LegacyHosts are the nodes of the previous cluster generation. They are
	// appended to the endpoint list unless DisableLegacyCluster is set.
	LegacyHosts []string

	// VHost is the optional virtual host.
	VHost string

	// TLS switches the connection URIs to amqps.
	TLS bool

	// Heartbeat is the AMQP heartbeat interval. Zero means 10s.
	Heartbeat time.Duration

	// ReconnectInterval is the pause between reconnection rounds. Zero
	// means 5s.
	ReconnectInterval time.Duration

	// Active toggles messaging. When false the client substitutes a no-op
	// connection that reports always-connected and discards all operations.
	Active bool

	// DisableLegacyCluster excludes LegacyHosts from the endpoint list.
	DisableLegacyCluster bool
}

// ErrNoHosts is returned when an active configuration names no broker hosts.
// It matches ErrInvalidConfiguration, so callers rejecting any bad
// configuration need a single errors.Is check.
var ErrNoHosts = fmt.Errorf("amqpline: no broker hosts configured: %w", rabbitmq.ErrInvalidConfiguration)

// Validate checks the configuration for an active client.
func (c Config) Validate() error {
	if !c.Active {
		return nil
	}
	if len(c.endpoints()) == 0 {
		return ErrNoHosts
	}
	return nil
}

// endpoints builds the immutable endpoint list from the configured hosts.
func (c Config) endpoints() []rabbitmq.Endpoint {
	hosts := c.Hosts
	if !c.DisableLegacyCluster {
		hosts = append(append([]string{}, c.Hosts...), c.LegacyHosts...)
	}

	endpoints := make([]rabbitmq.Endpoint, 0, len(hosts))
	for _, host := range hosts {
		if host == "" {
			continue
		}
		endpoints = append(endpoints, rabbitmq.Endpoint{
			Host:     host,
			Username: c.Username,
			Password: c.Password,
			VHost:    c.VHost,
			TLS:      c.TLS,
		})
	}
	return endpoints
}
