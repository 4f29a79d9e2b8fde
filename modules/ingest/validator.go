package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
)

var ErrInvalidPayload = errors.New("invalid webhook payload")

// eventEnvelope is the minimal shape every inbound body must satisfy.
type eventEnvelope struct {
	Event string `json:"event"`
}

// workflowRunPayload is the body shape for workflow_run events.
type workflowRunPayload struct {
	Event       string `json:"event"`
	Repository  string `json:"repository"`
	WorkflowRun struct {
		Name       string `json:"name"`
		Status     string `json:"status"`
		Conclusion string `json:"conclusion"`
		HTMLURL    string `json:"html_url"`
	} `json:"workflow_run"`
}

// parseEnvelope extracts the event discriminator from a raw body.
func parseEnvelope(body []byte) (eventEnvelope, error) {
	var env eventEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return env, fmt.Errorf("%w: body is not valid JSON", ErrInvalidPayload)
	}
	if env.Event == "" {
		return env, fmt.Errorf("%w: event field is required", ErrInvalidPayload)
	}
	return env, nil
}

var workflowStatuses = map[string]struct{}{
	"queued":      {},
	"in_progress": {},
	"completed":   {},
}

// parseWorkflowRun decodes and validates a workflow_run body. Validation
// failures map to HTTP 400 so the sender can correct the request.
func parseWorkflowRun(body []byte) (workflowRunPayload, error) {
	var p workflowRunPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return p, fmt.Errorf("%w: body is not valid JSON", ErrInvalidPayload)
	}

	if p.Repository == "" {
		return p, fmt.Errorf("%w: repository is required", ErrInvalidPayload)
	}
	if p.WorkflowRun.Name == "" {
		return p, fmt.Errorf("%w: workflow_run.name is required", ErrInvalidPayload)
	}
	if _, ok := workflowStatuses[p.WorkflowRun.Status]; !ok {
		return p, fmt.Errorf("%w: workflow_run.status must be queued, in_progress, or completed", ErrInvalidPayload)
	}
	if p.WorkflowRun.Status == "completed" && p.WorkflowRun.Conclusion == "" {
		return p, fmt.Errorf("%w: workflow_run.conclusion is required for completed runs", ErrInvalidPayload)
	}
	return p, nil
}
