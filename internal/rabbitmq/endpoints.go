package rabbitmq

import (
	"math/rand"
	"net/url"
	"strings"
)

// Endpoint identifies one broker node together with the credentials and
// virtual host used to reach it. Endpoints are immutable once constructed.
type Endpoint struct {
	Host     string
	Username string
	Password string
	VHost    string
	TLS      bool
}

// URL renders the endpoint as an AMQP connection URI.
func (e Endpoint) URL() string {
	scheme := "amqp"
	if e.TLS {
		scheme = "amqps"
	}

	u := url.URL{
		Scheme: scheme,
		Host:   e.Host,
	}
	if e.Username != "" {
		u.User = url.UserPassword(e.Username, e.Password)
	}
	if e.VHost != "" {
		u.Path = "/" + url.PathEscape(e.VHost)
	}
	return u.String()
}

// Shuffle returns a uniformly random permutation of the given endpoints.
// Randomizing the attempt order spreads initial connections across the
// cluster when many processes start with the same configured host list.
func Shuffle(endpoints []Endpoint) []Endpoint {
	shuffled := make([]Endpoint, len(endpoints))
	copy(shuffled, endpoints)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return shuffled
}

// SanitizeURL removes credentials from a connection URI before logging.
func SanitizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "***"
	}
	if u.User != nil {
		u.User = url.User(u.User.Username())
	}
	return u.String()
}

// SanitizeURLs sanitizes a list of connection URIs for logging.
func SanitizeURLs(raws []string) string {
	sanitized := make([]string, len(raws))
	for i, raw := range raws {
		sanitized[i] = SanitizeURL(raw)
	}
	return strings.Join(sanitized, ", ")
}
