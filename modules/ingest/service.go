package ingest

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dmitrymomot/hookrelay/pkg/delivery"
	"github.com/dmitrymomot/hookrelay/pkg/fanout"
	"github.com/dmitrymomot/hookrelay/pkg/logger"
	"github.com/dmitrymomot/hookrelay/pkg/notify"
)

const maxBodySize = 1 << 20 // 1MB

// Service handles inbound webhooks: signature verification, event dispatch,
// and forwarding workflow runs to the automation backend.
type Service struct {
	secret         string
	client         *delivery.Client
	destinationKey string
	hub            *notify.Hub
	dispatch       func(fanout.Record)
	environment    string
	log            *slog.Logger
	now            func() time.Time
}

// NewService creates the ingest service. The signing secret, delivery
// client, and destination key are required; missing ones panic because the
// endpoints cannot function without them.
func NewService(secret string, client *delivery.Client, destinationKey string, opts ...Option) *Service {
	if secret == "" {
		panic("ingest: signing secret is required")
	}
	if client == nil {
		panic("ingest: delivery client is required")
	}
	if destinationKey == "" {
		panic("ingest: destination key is required")
	}

	s := &Service{
		secret:         secret,
		client:         client,
		destinationKey: destinationKey,
		log:            slog.Default(),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Option configures a Service.
type Option func(*Service)

// WithHub attaches the real-time hub; processed events are published as
// activity_event messages.
func WithHub(hub *notify.Hub) Option {
	return func(s *Service) { s.hub = hub }
}

// WithDispatch attaches the log fan-out; processed events emit one record.
func WithDispatch(fn func(fanout.Record)) Option {
	return func(s *Service) { s.dispatch = fn }
}

// WithEnvironment tags emitted log records with the deployment environment.
func WithEnvironment(env string) Option {
	return func(s *Service) { s.environment = env }
}

// WithLogger supplies the structured logger used by the service.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// Handler returns the module router, meant to be mounted at /webhook.
func (s *Service) Handler() http.Handler {
	r := chi.NewRouter()
	r.Post("/deploy", s.handleWebhook("deploy"))
	r.Post("/logs", s.handleWebhook("logs"))
	return r
}

type pingResponse struct {
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type ackResponse struct {
	Status string `json:"status"`
	Event  string `json:"event"`
}

type forwardResponse struct {
	Success   bool   `json:"success"`
	Response  string `json:"response,omitempty"`
	RequestID string `json:"requestId"`
	Error     string `json:"error,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// handleWebhook verifies the signature before anything else: a request with
// a bad HMAC produces no metrics, no forwarding, and no log records.
func (s *Service) handleWebhook(source string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "failed to read request body"})
			return
		}

		if err := delivery.VerifyHubSignature(s.secret, body, r.Header.Get(delivery.HubSignatureHeader)); err != nil {
			s.log.WarnContext(r.Context(), "webhook rejected",
				slog.String("source", source), logger.Error(err))
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid signature"})
			return
		}

		env, err := parseEnvelope(body)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}

		switch event := ClassifyEvent(env.Event); event.Kind {
		case EventPing:
			writeJSON(w, http.StatusOK, pingResponse{
				Status:    "healthy",
				Message:   "webhook endpoint is operational",
				Timestamp: s.now().UTC(),
			})

		case EventWorkflowRun:
			s.handleWorkflowRun(w, r, source, body)

		default:
			s.log.InfoContext(r.Context(), "unsupported event acknowledged",
				slog.String("source", source), slog.String("event", event.Name))
			writeJSON(w, http.StatusOK, ackResponse{Status: "acknowledged", Event: event.Name})
		}
	}
}

func (s *Service) handleWorkflowRun(w http.ResponseWriter, r *http.Request, source string, body []byte) {
	payload, err := parseWorkflowRun(body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	correlationID := uuid.New().String()
	content := workflowSummary(payload)

	outcome := s.client.Send(r.Context(), s.destinationKey, map[string]any{
		"content": content,
		"metadata": map[string]string{
			"source":  source,
			"context": payload.Repository,
		},
	}, delivery.WithCorrelationID(correlationID))

	s.record(source, payload, outcome)

	if !outcome.Success() {
		status := http.StatusBadGateway
		if outcome.ErrorKind == delivery.KindCircuitOpen {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, forwardResponse{
			Success:   false,
			RequestID: correlationID,
			Error:     string(outcome.ErrorKind),
		})
		return
	}

	writeJSON(w, http.StatusOK, forwardResponse{
		Success:   true,
		Response:  "delivered",
		RequestID: correlationID,
	})
}

// record emits the processed event to the real-time hub and the log fan-out.
func (s *Service) record(source string, payload workflowRunPayload, outcome delivery.Outcome) {
	if s.hub != nil {
		_ = s.hub.Publish(notify.TypeActivityEvent, outcome)
	}
	if s.dispatch != nil {
		level := fanout.LevelInfo
		if !outcome.Success() {
			level = fanout.LevelError
		}
		s.dispatch(fanout.Record{
			Message:       fmt.Sprintf("workflow_run %s forwarded from %s", payload.WorkflowRun.Name, source),
			Level:         level,
			Service:       "hookrelay",
			Timestamp:     s.now(),
			CorrelationID: outcome.CorrelationID,
			Environment:   s.environment,
			Metadata: map[string]any{
				"repository": payload.Repository,
				"status":     payload.WorkflowRun.Status,
				"outcome":    string(outcome.Status),
			},
		})
	}
}

func workflowSummary(p workflowRunPayload) string {
	if p.WorkflowRun.Status == "completed" {
		return fmt.Sprintf("Workflow %q in %s completed: %s", p.WorkflowRun.Name, p.Repository, p.WorkflowRun.Conclusion)
	}
	return fmt.Sprintf("Workflow %q in %s is %s", p.WorkflowRun.Name, p.Repository, p.WorkflowRun.Status)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
