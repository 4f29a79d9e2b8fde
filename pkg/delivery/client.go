package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/hookrelay/pkg/logger"
)

// Client orchestrates reliable webhook delivery: payload validation, circuit
// checking, attempts under a deadline, failure classification, backoff, and
// outcome recording. It never lets an error escape its boundary: Send always
// returns a terminal Outcome, including for exhausted retries.
type Client struct {
	httpClient   *http.Client
	destinations map[string]Destination
	circuits     *CircuitRegistry
	policy       RetryPolicy
	timeout      time.Duration
	recorders    []OutcomeRecorder
	hooks        []func(Outcome)
	log          *slog.Logger
}

// NewClient creates a delivery client. Destinations registered through
// options are validated eagerly; an invalid destination URL is a
// configuration error and panics at construction, consistent with the
// fail-fast startup policy.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		destinations: make(map[string]Destination),
		circuits:     NewCircuitRegistry(0, 0, 0),
		policy:       DefaultRetryPolicy(),
		timeout:      10 * time.Second,
		log:          slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Circuits exposes the per-destination breaker registry for health reporting.
func (c *Client) Circuits() *CircuitRegistry {
	return c.circuits
}

// Send delivers a JSON payload to the destination registered under
// destinationKey. The payload can be any JSON-marshalable value.
//
// Flow: validate -> circuit check -> attempt under deadline -> classify ->
// retry per policy while the error is retryable -> record terminal outcome ->
// update breaker. While the circuit is open the send is short-circuited
// immediately: no network call, no retry budget consumed, and the outcome is
// recorded as failure/CIRCUIT_OPEN so metrics stay accurate.
func (c *Client) Send(ctx context.Context, destinationKey string, payload any, opts ...SendOption) Outcome {
	so := sendOptions{
		timeout:     c.timeout,
		maxAttempts: c.policy.MaxAttempts,
	}
	for _, opt := range opts {
		opt(&so)
	}
	if so.correlationID == "" {
		so.correlationID = uuid.New().String()
	}

	dest, ok := c.destinations[destinationKey]
	if !ok {
		c.log.ErrorContext(ctx, "send to unregistered destination",
			logger.Destination(destinationKey), logger.CorrelationID(so.correlationID))
		return c.terminal(ctx, failureOutcome(so.correlationID, destinationKey, KindValidationError, 0, 0, 0), nil)
	}

	body, err := json.Marshal(payload)
	if err != nil || len(body) == 0 || string(body) == "null" {
		c.log.ErrorContext(ctx, "payload rejected before delivery",
			logger.Destination(destinationKey), logger.CorrelationID(so.correlationID), logger.Error(err))
		return c.terminal(ctx, failureOutcome(so.correlationID, destinationKey, KindValidationError, 0, 0, 0), nil)
	}

	cb := c.circuits.Get(destinationKey)
	if !cb.Allow() {
		c.log.WarnContext(ctx, "delivery short-circuited",
			logger.Destination(destinationKey), logger.CorrelationID(so.correlationID),
			logger.ErrorKind(KindCircuitOpen.String()))
		// The breaker is not updated here: a short-circuit is not evidence
		// about destination health.
		out := failureOutcome(so.correlationID, destinationKey, KindCircuitOpen, 0, 0, 0)
		c.emit(out)
		return out
	}

	var last Classification
	var lastOut Outcome
	maxAttempts := max(so.maxAttempts, 1)

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			delay := c.policy.Delay(attempt - 1)
			// A Retry-After hint from a rate-limited response overrides a
			// shorter computed backoff.
			if last.RetryAfter > delay {
				delay = last.RetryAfter
			}
			select {
			case <-ctx.Done():
				out := failureOutcome(so.correlationID, destinationKey, KindTimeout, 0, attempt-1, lastOut.Latency)
				return c.terminal(ctx, out, cb)
			case <-time.After(delay):
			}
		}

		result, latency := c.attempt(ctx, Request{
			Destination:   dest.Key,
			URL:           dest.URL,
			Payload:       body,
			Headers:       so.headers,
			CorrelationID: so.correlationID,
			Attempt:       attempt,
			Deadline:      time.Now().Add(so.timeout),
		}, dest, so.timeout)

		if result.Kind == "" {
			// Successful attempt.
			out := Outcome{
				CorrelationID: so.correlationID,
				Destination:   destinationKey,
				Status:        StatusSuccess,
				StatusCode:    result.StatusCode,
				Latency:       latency,
				Attempt:       attempt,
				Timestamp:     time.Now(),
			}
			c.emit(out)
			cb.RecordSuccess()
			for _, h := range so.onDelivery {
				h(out)
			}
			return out
		}

		last = result
		lastOut = failureOutcome(so.correlationID, destinationKey, result.Kind, result.StatusCode, attempt, latency)
		c.emit(lastOut)
		for _, h := range so.onDelivery {
			h(lastOut)
		}

		if !result.Retryable {
			break
		}
	}

	// The terminal outcome is the last attempt's outcome, already emitted to
	// the recorders; it is not emitted twice.
	c.log.WarnContext(ctx, "delivery failed",
		logger.Destination(destinationKey), logger.CorrelationID(so.correlationID),
		logger.ErrorKind(last.Kind.String()), logger.Attempt(lastOut.Attempt))
	cb.RecordFailure()
	return lastOut
}

// terminal finalizes a failure outcome that is not attributable to the
// destination (validation, cancelled context): the outcome is emitted but the
// breaker only records failures from real attempts.
func (c *Client) terminal(_ context.Context, out Outcome, cb *CircuitBreaker) Outcome {
	c.emit(out)
	if cb != nil && out.ErrorKind == KindTimeout && out.Attempt > 0 {
		cb.RecordFailure()
	}
	return out
}

// attempt performs a single HTTP call under its own deadline and classifies
// the result. A zero-valued Classification.Kind means success.
func (c *Client) attempt(ctx context.Context, r Request, dest Destination, timeout time.Duration) (Classification, time.Duration) {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, r.URL, bytes.NewReader(r.Payload))
	if err != nil {
		return Classify(err, 0), time.Since(start)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "hookrelay/1.0")
	req.Header.Set("X-Correlation-ID", r.CorrelationID)
	req.Header.Set("X-Delivery-Attempt", fmt.Sprintf("%d", r.Attempt))
	for k, v := range dest.Headers {
		req.Header.Set(k, v)
	}
	for k, v := range r.Headers {
		req.Header.Set(k, v)
	}
	if dest.Secret != "" {
		sig, err := SignPayload(dest.Secret, r.CorrelationID, r.Payload)
		if err != nil {
			return Classify(err, 0), time.Since(start)
		}
		for k, v := range sig {
			req.Header.Set(k, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	latency := time.Since(start)
	if err != nil {
		if reqCtx.Err() == context.DeadlineExceeded {
			return Classify(context.DeadlineExceeded, 0), latency
		}
		return Classify(err, 0), latency
	}
	defer func() { _ = resp.Body.Close() }()

	// 64KB cap prevents memory exhaustion from misbehaving destinations.
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		// A 2xx with an unparseable JSON body is a contract violation on the
		// destination's side, treated as a logic bug rather than transient.
		if len(respBody) > 0 && !json.Valid(respBody) {
			return Classify(ErrMalformedResponse, resp.StatusCode), latency
		}
		return Classification{StatusCode: resp.StatusCode}, latency
	}

	return ClassifyResponse(resp), latency
}

func (c *Client) emit(out Outcome) {
	for _, r := range c.recorders {
		r.Record(out)
	}
	for _, h := range c.hooks {
		h(out)
	}
}

func failureOutcome(correlationID, dest string, kind ErrorKind, statusCode, attempt int, latency time.Duration) Outcome {
	return Outcome{
		CorrelationID: correlationID,
		Destination:   dest,
		Status:        StatusFailure,
		StatusCode:    statusCode,
		ErrorKind:     kind,
		Latency:       latency,
		Attempt:       attempt,
		Timestamp:     time.Now(),
	}
}

// validateDestination rejects malformed destination config at construction.
func validateDestination(d Destination) error {
	if d.Key == "" {
		return fmt.Errorf("%w: destination key is required", ErrInvalidConfiguration)
	}
	if d.URL == "" {
		return fmt.Errorf("%w: URL is required", ErrInvalidURL)
	}
	u, err := url.Parse(d.URL)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	// Restrict to HTTP/HTTPS to prevent SSRF through scheme smuggling.
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: only http and https schemes are supported", ErrInvalidURL)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: host is required", ErrInvalidURL)
	}
	return nil
}
