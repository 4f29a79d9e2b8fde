package delivery_test

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/hookrelay/pkg/delivery"
)

func TestSignHubPayload(t *testing.T) {
	t.Parallel()

	body := []byte(`{"action":"completed"}`)
	secret := "test-secret"

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	want := "sha256=" + hex.EncodeToString(mac.Sum(nil))

	assert.Equal(t, want, delivery.SignHubPayload(secret, body))
}

func TestVerifyHubSignature(t *testing.T) {
	t.Parallel()

	body := []byte(`{"zen":"Keep it logically awesome."}`)
	secret := "test-secret"

	t.Run("valid signature", func(t *testing.T) {
		t.Parallel()

		sig := delivery.SignHubPayload(secret, body)
		assert.NoError(t, delivery.VerifyHubSignature(secret, body, sig))
	})

	t.Run("tampered body", func(t *testing.T) {
		t.Parallel()

		sig := delivery.SignHubPayload(secret, body)
		err := delivery.VerifyHubSignature(secret, []byte(`{"zen":"tampered"}`), sig)
		assert.ErrorIs(t, err, delivery.ErrSignatureMismatch)
	})

	t.Run("wrong secret", func(t *testing.T) {
		t.Parallel()

		sig := delivery.SignHubPayload("other-secret", body)
		err := delivery.VerifyHubSignature(secret, body, sig)
		assert.ErrorIs(t, err, delivery.ErrSignatureMismatch)
	})

	t.Run("missing header", func(t *testing.T) {
		t.Parallel()

		err := delivery.VerifyHubSignature(secret, body, "")
		assert.ErrorIs(t, err, delivery.ErrSignatureMissing)
	})

	t.Run("unprefixed header", func(t *testing.T) {
		t.Parallel()

		err := delivery.VerifyHubSignature(secret, body, "deadbeef")
		assert.ErrorIs(t, err, delivery.ErrSignatureMissing)
	})

	t.Run("empty secret", func(t *testing.T) {
		t.Parallel()

		sig := delivery.SignHubPayload(secret, body)
		err := delivery.VerifyHubSignature("", body, sig)
		assert.ErrorIs(t, err, delivery.ErrInvalidConfiguration)
	})
}

func TestSignPayload(t *testing.T) {
	t.Parallel()

	payload := []byte(`{"content":"deploy finished"}`)

	t.Run("binds correlation id", func(t *testing.T) {
		t.Parallel()

		a, err := delivery.SignPayload("secret", "id-1", payload)
		require.NoError(t, err)
		b, err := delivery.SignPayload("secret", "id-2", payload)
		require.NoError(t, err)

		assert.NotEqual(t, a[delivery.HubSignatureHeader], b[delivery.HubSignatureHeader])
		assert.Equal(t, "id-1", a["X-Webhook-ID"])
	})

	t.Run("deterministic", func(t *testing.T) {
		t.Parallel()

		a, err := delivery.SignPayload("secret", "id-1", payload)
		require.NoError(t, err)
		b, err := delivery.SignPayload("secret", "id-1", payload)
		require.NoError(t, err)

		assert.Equal(t, a, b)
	})

	t.Run("requires secret", func(t *testing.T) {
		t.Parallel()

		_, err := delivery.SignPayload("", "id-1", payload)
		assert.ErrorIs(t, err, delivery.ErrInvalidConfiguration)
	})

	t.Run("requires payload", func(t *testing.T) {
		t.Parallel()

		_, err := delivery.SignPayload("secret", "id-1", nil)
		assert.ErrorIs(t, err, delivery.ErrInvalidPayload)
	})
}
