// Package delivery provides reliable webhook delivery with failure
// classification, exponential backoff, per-destination circuit breaking, and
// HMAC payload authentication.
//
// The Client orchestrates one logical send end to end and never lets an
// error escape: Send always returns a terminal Outcome, including for
// exhausted retries and short-circuited calls.
//
//	client := delivery.NewClient(
//		delivery.WithDestination(delivery.Destination{
//			Key:    "automation",
//			URL:    cfg.WebhookURL,
//			Secret: cfg.Secret,
//		}),
//		delivery.WithRetryPolicy(delivery.RetryPolicy{
//			MaxAttempts: 5,
//			BaseDelay:   100 * time.Millisecond,
//			Multiplier:  2,
//			Jitter:      true,
//		}),
//		delivery.WithRecorder(aggregator),
//		delivery.WithLogger(log),
//	)
//
//	outcome := client.Send(ctx, "automation", payload)
//	if !outcome.Success() {
//		// outcome.ErrorKind holds the classified failure
//	}
//
// # Failure taxonomy
//
// Every raw failure maps onto a closed set of kinds: TIMEOUT, NETWORK_ERROR,
// AUTH_ERROR, VALIDATION_ERROR, RATE_LIMITED, SERVER_ERROR, PROTOCOL_ERROR,
// CIRCUIT_OPEN, UNKNOWN_ERROR. TIMEOUT, NETWORK_ERROR, RATE_LIMITED,
// SERVER_ERROR, and UNKNOWN_ERROR are retryable; the rest are not.
// RATE_LIMITED honors the server's Retry-After hint when it exceeds the
// computed backoff.
//
// # Circuit breaker
//
// Each destination key gets its own breaker from the CircuitRegistry. After
// failureThreshold consecutive failed sends the circuit opens: subsequent
// sends are short-circuited without any network call and recorded as
// failure/CIRCUIT_OPEN, keeping metrics accurate while the destination
// recovers. After recoveryTimeout the breaker probes with a half-open state.
//
// # Signatures
//
// Outbound payloads are signed with HMAC-SHA256 when the destination carries
// a secret. VerifyHubSignature validates inbound webhook bodies against the
// X-Hub-Signature-256 header with a constant-time comparison.
package delivery
