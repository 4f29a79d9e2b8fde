package fanout

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dmitrymomot/hookrelay/pkg/delivery"
)

// WebhookSink forwards record batches to an external collector through the
// delivery client, inheriting its signing, circuit breaking, and outcome
// recording. The sink reports failure to the dispatcher, which owns retries;
// the client is expected to run with a single-attempt budget here to avoid
// nesting retry loops.
type WebhookSink struct {
	name           string
	client         *delivery.Client
	destinationKey string
}

// NewWebhookSink creates a sink delivering batches to the client destination
// registered under destinationKey.
func NewWebhookSink(name string, client *delivery.Client, destinationKey string) *WebhookSink {
	return &WebhookSink{name: name, client: client, destinationKey: destinationKey}
}

func (s *WebhookSink) Name() string { return s.name }

func (s *WebhookSink) Write(ctx context.Context, batch [][]byte) error {
	if len(batch) == 0 {
		return nil
	}

	records := make([]json.RawMessage, len(batch))
	for i, b := range batch {
		records[i] = b
	}

	out := s.client.Send(ctx, s.destinationKey, map[string]any{
		"records": records,
		"count":   len(records),
	}, delivery.WithMaxAttempts(1))
	if !out.Success() {
		return fmt.Errorf("%w: %s responded %s", ErrSinkWrite, s.destinationKey, out.ErrorKind)
	}
	return nil
}
