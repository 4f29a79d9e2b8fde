package delivery

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// HubSignaturePrefix is the scheme prefix carried by the inbound signature
// header, following the convention popularized by GitHub webhooks.
const HubSignaturePrefix = "sha256="

// HubSignatureHeader is the header the inbound webhook endpoints require.
const HubSignatureHeader = "X-Hub-Signature-256"

// SignHubPayload computes the X-Hub-Signature-256 header value for a raw
// request body: "sha256=" followed by the hex HMAC-SHA256 of the body.
func SignHubPayload(secret string, body []byte) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(body)
	return HubSignaturePrefix + hex.EncodeToString(h.Sum(nil))
}

// VerifyHubSignature validates an inbound webhook body against its
// X-Hub-Signature-256 header using a constant-time comparison.
// Returns ErrSignatureMissing for an absent or unprefixed header and
// ErrSignatureMismatch when the HMAC does not match.
func VerifyHubSignature(secret string, body []byte, header string) error {
	if secret == "" {
		return fmt.Errorf("%w: secret is required", ErrInvalidConfiguration)
	}
	if header == "" || !strings.HasPrefix(header, HubSignaturePrefix) {
		return ErrSignatureMissing
	}

	expected := SignHubPayload(secret, body)
	if !hmac.Equal([]byte(expected), []byte(header)) {
		return ErrSignatureMismatch
	}
	return nil
}

// SignPayload computes the outbound signature headers for a payload.
// The signature binds the body to a correlation ID so receivers can reject
// replayed deliveries: HMAC-SHA256(secret, correlationID + "." + payload).
func SignPayload(secret, correlationID string, payload []byte) (map[string]string, error) {
	if secret == "" {
		return nil, fmt.Errorf("%w: secret is required", ErrInvalidConfiguration)
	}
	if len(payload) == 0 {
		return nil, fmt.Errorf("%w: payload cannot be empty", ErrInvalidPayload)
	}

	h := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(h, "%s.", correlationID)
	h.Write(payload)

	return map[string]string{
		HubSignatureHeader: HubSignaturePrefix + hex.EncodeToString(h.Sum(nil)),
		"X-Webhook-ID":     correlationID,
	}, nil
}
