package amqpline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig(t *testing.T) {
	t.Run("inactive configuration needs no hosts", func(t *testing.T) {
		assert.NoError(t, Config{Active: false}.Validate())
	})

	t.Run("active configuration without hosts is rejected", func(t *testing.T) {
		err := Config{Active: true}.Validate()
		assert.ErrorIs(t, err, ErrNoHosts)
		assert.ErrorIs(t, err, ErrInvalidConfiguration, "every configuration rejection matches the shared sentinel")
	})

	t.Run("endpoints carry credentials, vhost and TLS", func(t *testing.T) {
		cfg := Config{
			Username: "user",
			Password: "secret",
			Hosts:    []string{"a:5672", "b:5672"},
			VHost:    "orders",
			TLS:      true,
		}

		endpoints := cfg.endpoints()
		require.Len(t, endpoints, 2)
		for _, ep := range endpoints {
			assert.Equal(t, "user", ep.Username)
			assert.Equal(t, "secret", ep.Password)
			assert.Equal(t, "orders", ep.VHost)
			assert.True(t, ep.TLS)
		}
		assert.Equal(t, "a:5672", endpoints[0].Host)
		assert.Equal(t, "b:5672", endpoints[1].Host)
	})

	t.Run("legacy hosts are appended by default", func(t *testing.T) {
		cfg := Config{
			Hosts:       []string{"new-1:5672"},
			LegacyHosts: []string{"old-1:5672", "old-2:5672"},
		}

		endpoints := cfg.endpoints()
		require.Len(t, endpoints, 3)
		assert.Equal(t, "new-1:5672", endpoints[0].Host)
		assert.Equal(t, "old-1:5672", endpoints[1].Host)
		assert.Equal(t, "old-2:5672", endpoints[2].Host)
	})

	t.Run("disabling the legacy cluster drops its hosts", func(t *testing.T) {
		cfg := Config{
			Hosts:                []string{"new-1:5672"},
			LegacyHosts:          []string{"old-1:5672"},
			DisableLegacyCluster: true,
		}

		endpoints := cfg.endpoints()
		require.Len(t, endpoints, 1)
		assert.Equal(t, "new-1:5672", endpoints[0].Host)
	})

	t.Run("blank hosts are skipped", func(t *testing.T) {
		cfg := Config{Hosts: []string{"a:5672", "", "b:5672"}}
		assert.Len(t, cfg.endpoints(), 2)
	})
}
