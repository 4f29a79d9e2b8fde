package delivery

import "errors"

// Domain errors for delivery operations, designed for error wrapping and
// classification. These provide stable error identities for errors.Is checks
// while allowing detailed context to be wrapped for logging.
var (
	ErrInvalidConfiguration = errors.New("invalid delivery configuration")
	ErrInvalidURL           = errors.New("invalid destination URL")
	ErrInvalidPayload       = errors.New("invalid delivery payload")
	ErrUnknownDestination   = errors.New("unknown destination key")
	ErrCircuitOpen          = errors.New("destination circuit breaker is open")
	ErrMalformedResponse    = errors.New("malformed response body")
	ErrSignatureMismatch    = errors.New("signature mismatch")
	ErrSignatureMissing     = errors.New("signature header missing")
)

// IsCircuitOpen checks if an error indicates the circuit breaker is open.
func IsCircuitOpen(err error) bool {
	return errors.Is(err, ErrCircuitOpen)
}
