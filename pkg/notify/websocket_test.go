package notify_test

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/hookrelay/pkg/notify"
)

func TestWSHandler_StreamsHubMessages(t *testing.T) {
	t.Parallel()

	hub := notify.NewHub(8)
	defer hub.Close()

	srv := httptest.NewServer(notify.NewWSHandler(hub))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	defer func() { _ = conn.Close() }()

	require.Eventually(t, func() bool {
		return hub.SubscriberCount() == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, hub.Publish(notify.TypeActivityEvent, map[string]string{"destination": "api"}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	var env notify.Envelope
	require.NoError(t, conn.ReadJSON(&env))
	assert.Equal(t, notify.TypeActivityEvent, env.Type)
	assert.JSONEq(t, `{"destination":"api"}`, string(env.Payload))
}

func TestWSHandler_DisconnectPrunesSubscription(t *testing.T) {
	t.Parallel()

	hub := notify.NewHub(8)
	defer hub.Close()

	srv := httptest.NewServer(notify.NewWSHandler(hub))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	require.Eventually(t, func() bool {
		return hub.SubscriberCount() == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, conn.Close())

	// Closing the socket ends the read pump, which closes the subscription;
	// the next publish prunes it from the hub.
	assert.Eventually(t, func() bool {
		hub.Broadcast(notify.Envelope{Type: notify.TypePerformanceUpdate, Payload: []byte(`{}`)})
		return hub.SubscriberCount() == 0
	}, time.Second, 10*time.Millisecond)
}

func TestWSHandler_RejectsPlainHTTP(t *testing.T) {
	t.Parallel()

	hub := notify.NewHub(1)
	defer hub.Close()

	srv := httptest.NewServer(notify.NewWSHandler(hub))
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, 400, resp.StatusCode)
}
