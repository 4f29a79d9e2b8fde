package delivery

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// ClientOption configures a Client at construction.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client. Useful for custom transports,
// proxies, or testing.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithDestination registers a delivery destination. An invalid destination
// panics: destinations come from startup configuration and a malformed one
// must prevent startup.
func WithDestination(d Destination) ClientOption {
	if err := validateDestination(d); err != nil {
		panic(fmt.Sprintf("WithDestination: %v", err))
	}
	return func(c *Client) {
		c.destinations[d.Key] = d
	}
}

// WithRetryPolicy sets the retry policy shared across all sends.
func WithRetryPolicy(p RetryPolicy) ClientOption {
	return func(c *Client) {
		c.policy = p
	}
}

// WithAttemptTimeout sets the per-attempt deadline. Default is 10 seconds.
func WithAttemptTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithCircuitRegistry replaces the default breaker registry, allowing breaker
// parameters to be tuned or shared with health reporting.
func WithCircuitRegistry(r *CircuitRegistry) ClientOption {
	return func(c *Client) {
		if r != nil {
			c.circuits = r
		}
	}
}

// WithRecorder registers an outcome stream consumer. Every physical attempt
// and every short-circuited send produces exactly one recorded outcome.
func WithRecorder(r OutcomeRecorder) ClientOption {
	return func(c *Client) {
		if r != nil {
			c.recorders = append(c.recorders, r)
		}
	}
}

// WithDeliveryHook registers a callback invoked after each delivery attempt.
// Useful for logging and custom instrumentation.
func WithDeliveryHook(h func(Outcome)) ClientOption {
	return func(c *Client) {
		if h != nil {
			c.hooks = append(c.hooks, h)
		}
	}
}

// WithLogger supplies the structured logger used by the client.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// sendOptions contains per-send overrides.
type sendOptions struct {
	correlationID string
	headers       map[string]string
	timeout       time.Duration
	maxAttempts   int
	onDelivery    []func(Outcome)
}

// SendOption configures a single logical send.
type SendOption func(*sendOptions)

// WithCorrelationID pins the correlation ID linking the send to its retries
// and resulting log and metric records. A random UUID is generated when not
// provided.
func WithCorrelationID(id string) SendOption {
	return func(o *sendOptions) {
		if id != "" {
			o.correlationID = id
		}
	}
}

// WithSendHeader adds a header to every attempt of this send.
func WithSendHeader(key, value string) SendOption {
	return func(o *sendOptions) {
		if key == "" || value == "" {
			return
		}
		if o.headers == nil {
			o.headers = make(map[string]string)
		}
		o.headers[key] = value
	}
}

// WithSendTimeout overrides the per-attempt deadline for this send.
func WithSendTimeout(d time.Duration) SendOption {
	return func(o *sendOptions) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithMaxAttempts overrides the policy's attempt budget for this send.
func WithMaxAttempts(n int) SendOption {
	return func(o *sendOptions) {
		if n > 0 {
			o.maxAttempts = n
		}
	}
}

// WithOnDelivery registers a per-send callback invoked after each attempt.
func WithOnDelivery(h func(Outcome)) SendOption {
	return func(o *sendOptions) {
		if h != nil {
			o.onDelivery = append(o.onDelivery, h)
		}
	}
}
