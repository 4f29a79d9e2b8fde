package delivery

// ErrorKind is the closed failure taxonomy every raw delivery error maps to.
// The string values appear verbatim in outcome streams, metrics breakdowns,
// and the health endpoint, so they are stable identifiers, not display text.
type ErrorKind string

const (
	KindTimeout         ErrorKind = "TIMEOUT"
	KindNetworkError    ErrorKind = "NETWORK_ERROR"
	KindAuthError       ErrorKind = "AUTH_ERROR"
	KindValidationError ErrorKind = "VALIDATION_ERROR"
	KindRateLimited     ErrorKind = "RATE_LIMITED"
	KindServerError     ErrorKind = "SERVER_ERROR"
	KindProtocolError   ErrorKind = "PROTOCOL_ERROR"
	KindCircuitOpen     ErrorKind = "CIRCUIT_OPEN"
	KindUnknownError    ErrorKind = "UNKNOWN_ERROR"
)

// Retryable reports whether another physical attempt can change the result.
// CIRCUIT_OPEN is deliberately non-retryable: retrying through an open
// breaker would defeat its purpose.
func (k ErrorKind) Retryable() bool {
	switch k {
	case KindTimeout, KindNetworkError, KindRateLimited, KindServerError, KindUnknownError:
		return true
	default:
		return false
	}
}

func (k ErrorKind) String() string {
	return string(k)
}
