package delivery

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"
)

// Classification is the result of mapping a raw failure onto the taxonomy.
type Classification struct {
	Kind       ErrorKind
	Retryable  bool
	StatusCode int
	// RetryAfter carries the server's Retry-After hint for RATE_LIMITED
	// results; zero when the server provided none.
	RetryAfter time.Duration
}

// Classify maps a raw error and/or HTTP status code onto the closed taxonomy.
// Rules apply in priority order:
//
//  1. Deadline/cancellation signals are TIMEOUT.
//  2. Network-level failures (connection refused, DNS, TLS) are NETWORK_ERROR.
//  3. 408/429 are RATE_LIMITED.
//  4. 401/403 are AUTH_ERROR, other 4xx are VALIDATION_ERROR.
//  5. 5xx are SERVER_ERROR.
//  6. An unparseable response body is PROTOCOL_ERROR: a logic bug on one
//     side of the contract, not a transient condition.
//
// Anything unclassified defaults to UNKNOWN_ERROR and stays retryable so
// transient issues are never silently dropped.
func Classify(err error, statusCode int) Classification {
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return classification(KindTimeout, statusCode)
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return classification(KindTimeout, statusCode)
		}
		var opErr *net.OpError
		var dnsErr *net.DNSError
		if errors.As(err, &opErr) || errors.As(err, &dnsErr) {
			return classification(KindNetworkError, statusCode)
		}
		if errors.Is(err, ErrMalformedResponse) {
			return classification(KindProtocolError, statusCode)
		}
		if errors.Is(err, ErrCircuitOpen) {
			return classification(KindCircuitOpen, statusCode)
		}
	}

	switch {
	case statusCode == http.StatusRequestTimeout || statusCode == http.StatusTooManyRequests:
		return classification(KindRateLimited, statusCode)
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return classification(KindAuthError, statusCode)
	case statusCode >= 400 && statusCode < 500:
		return classification(KindValidationError, statusCode)
	case statusCode >= 500:
		return classification(KindServerError, statusCode)
	}

	return classification(KindUnknownError, statusCode)
}

// ClassifyResponse classifies a completed HTTP exchange, picking up the
// Retry-After hint on rate-limited responses.
func ClassifyResponse(resp *http.Response) Classification {
	c := Classify(nil, resp.StatusCode)
	if c.Kind == KindRateLimited {
		c.RetryAfter = retryAfterHint(resp.Header)
	}
	return c
}

func classification(kind ErrorKind, statusCode int) Classification {
	return Classification{
		Kind:       kind,
		Retryable:  kind.Retryable(),
		StatusCode: statusCode,
	}
}

// retryAfterHint parses the Retry-After header, supporting both delta-seconds
// and HTTP-date forms. Returns zero when absent or unparseable.
func retryAfterHint(h http.Header) time.Duration {
	v := h.Get("Retry-After")
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}
