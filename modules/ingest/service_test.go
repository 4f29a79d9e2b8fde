package ingest_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/hookrelay/modules/ingest"
	"github.com/dmitrymomot/hookrelay/pkg/delivery"
	"github.com/dmitrymomot/hookrelay/pkg/fanout"
)

const testSecret = "inbound-secret"

type capture struct {
	outcomes atomic.Int32
}

func (c *capture) Record(delivery.Outcome) { c.outcomes.Add(1) }

type testEnv struct {
	handler  http.Handler
	backend  *atomic.Int32
	recorded *capture
	records  *[]fanout.Record
}

func newTestEnv(t *testing.T, backendStatus int) testEnv {
	t.Helper()

	var backendCalls atomic.Int32
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		backendCalls.Add(1)
		w.WriteHeader(backendStatus)
		_, _ = w.Write([]byte(`{"success":true,"response":"ok","requestId":"req-1"}`))
	}))
	t.Cleanup(backend.Close)

	recorded := &capture{}
	client := delivery.NewClient(
		delivery.WithDestination(delivery.Destination{Key: "automation", URL: backend.URL}),
		delivery.WithRetryPolicy(delivery.RetryPolicy{MaxAttempts: 1, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}),
		delivery.WithRecorder(recorded),
	)

	var records []fanout.Record
	svc := ingest.NewService(testSecret, client, "automation",
		ingest.WithDispatch(func(r fanout.Record) { records = append(records, r) }),
		ingest.WithEnvironment("test"),
	)

	return testEnv{handler: svc.Handler(), backend: &backendCalls, recorded: recorded, records: &records}
}

func signedRequest(t *testing.T, path string, body []byte) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(delivery.HubSignatureHeader, delivery.SignHubPayload(testSecret, body))
	return req
}

func workflowRunBody(t *testing.T) []byte {
	t.Helper()
	b, err := json.Marshal(map[string]any{
		"event":      "workflow_run",
		"repository": "acme/deploy",
		"workflow_run": map[string]string{
			"name":       "release",
			"status":     "completed",
			"conclusion": "success",
			"html_url":   "https://example.com/runs/1",
		},
	})
	require.NoError(t, err)
	return b
}

func TestService_RejectsBadSignature(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, http.StatusOK)
	body := workflowRunBody(t)

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong secret", delivery.SignHubPayload("other-secret", body)},
		{"unprefixed", "deadbeef"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/deploy", bytes.NewReader(body))
			if tt.header != "" {
				req.Header.Set(delivery.HubSignatureHeader, tt.header)
			}
			rec := httptest.NewRecorder()
			env.handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Zero(t, env.backend.Load(), "no downstream call")
			assert.Zero(t, env.recorded.outcomes.Load(), "no metrics mutation")
			assert.Empty(t, *env.records, "no log records")
		})
	}
}

func TestService_PingAlwaysHealthy(t *testing.T) {
	t.Parallel()

	// Even a failing backend does not affect ping.
	env := newTestEnv(t, http.StatusInternalServerError)

	for _, path := range []string{"/deploy", "/logs"} {
		body := []byte(`{"event":"ping"}`)
		rec := httptest.NewRecorder()
		env.handler.ServeHTTP(rec, signedRequest(t, path, body))

		require.Equal(t, http.StatusOK, rec.Code, path)

		var resp struct {
			Status    string    `json:"status"`
			Message   string    `json:"message"`
			Timestamp time.Time `json:"timestamp"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "healthy", resp.Status)
		assert.NotEmpty(t, resp.Message)
		assert.False(t, resp.Timestamp.IsZero())
	}
	assert.Zero(t, env.backend.Load(), "ping never reaches the backend")
}

func TestService_WorkflowRunForwarded(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, http.StatusOK)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, signedRequest(t, "/deploy", workflowRunBody(t)))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success   bool   `json:"success"`
		Response  string `json:"response"`
		RequestID string `json:"requestId"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "delivered", resp.Response)
	assert.NotEmpty(t, resp.RequestID)

	assert.Equal(t, int32(1), env.backend.Load())
	assert.Equal(t, int32(1), env.recorded.outcomes.Load())

	require.Len(t, *env.records, 1)
	record := (*env.records)[0]
	assert.Equal(t, fanout.LevelInfo, record.Level)
	assert.Equal(t, resp.RequestID, record.CorrelationID)
	assert.Equal(t, "acme/deploy", record.Metadata["repository"])
}

func TestService_WorkflowRunForwardFailure(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, http.StatusInternalServerError)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, signedRequest(t, "/deploy", workflowRunBody(t)))

	assert.Equal(t, http.StatusBadGateway, rec.Code)

	var resp struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "SERVER_ERROR", resp.Error)

	require.Len(t, *env.records, 1)
	assert.Equal(t, fanout.LevelError, (*env.records)[0].Level)
}

func TestService_WorkflowRunValidation(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, http.StatusOK)

	tests := []struct {
		name string
		body map[string]any
	}{
		{"missing repository", map[string]any{
			"event":        "workflow_run",
			"workflow_run": map[string]string{"name": "release", "status": "queued"},
		}},
		{"missing name", map[string]any{
			"event":        "workflow_run",
			"repository":   "acme/deploy",
			"workflow_run": map[string]string{"status": "queued"},
		}},
		{"bad status", map[string]any{
			"event":        "workflow_run",
			"repository":   "acme/deploy",
			"workflow_run": map[string]string{"name": "release", "status": "paused"},
		}},
		{"completed without conclusion", map[string]any{
			"event":        "workflow_run",
			"repository":   "acme/deploy",
			"workflow_run": map[string]string{"name": "release", "status": "completed"},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, err := json.Marshal(tt.body)
			require.NoError(t, err)

			rec := httptest.NewRecorder()
			env.handler.ServeHTTP(rec, signedRequest(t, "/deploy", body))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Zero(t, env.backend.Load(), "invalid payloads never reach the backend")
		})
	}
}

func TestService_UnknownEventAcknowledged(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, http.StatusOK)
	body := []byte(`{"event":"deployment_status"}`)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, signedRequest(t, "/logs", body))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Status string `json:"status"`
		Event  string `json:"event"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "acknowledged", resp.Status)
	assert.Equal(t, "deployment_status", resp.Event)
	assert.Zero(t, env.backend.Load(), "acknowledged but not processed")
}

func TestService_MalformedBody(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, http.StatusOK)

	for _, body := range [][]byte{[]byte("not json"), []byte(`{"action":"opened"}`)} {
		rec := httptest.NewRecorder()
		env.handler.ServeHTTP(rec, signedRequest(t, "/deploy", body))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	}
}

func TestClassifyEvent(t *testing.T) {
	t.Parallel()

	assert.Equal(t, ingest.EventPing, ingest.ClassifyEvent("ping").Kind)
	assert.Equal(t, ingest.EventWorkflowRun, ingest.ClassifyEvent("workflow_run").Kind)

	ev := ingest.ClassifyEvent("issues")
	assert.Equal(t, ingest.EventUnsupported, ev.Kind)
	assert.Equal(t, "issues", ev.Name)
	assert.Equal(t, ingest.Unsupported("issues"), ev)
}

func TestNewService_PanicsOnMissingRequirements(t *testing.T) {
	t.Parallel()

	client := delivery.NewClient()
	assert.Panics(t, func() { ingest.NewService("", client, "automation") })
	assert.Panics(t, func() { ingest.NewService("secret", nil, "automation") })
	assert.Panics(t, func() { ingest.NewService("secret", client, "") })
}
