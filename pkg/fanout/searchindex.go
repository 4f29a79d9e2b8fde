package fanout

import (
	"bytes"
	"context"
	"fmt"

	"github.com/opensearch-project/opensearch-go/v2"
)

// SearchIndexSink bulk-indexes record batches into an OpenSearch index for
// full-text search over delivery logs.
type SearchIndexSink struct {
	name   string
	client *opensearch.Client
	index  string
}

// NewSearchIndexSink creates an OpenSearch-backed sink writing to index.
func NewSearchIndexSink(name string, client *opensearch.Client, index string) *SearchIndexSink {
	return &SearchIndexSink{name: name, client: client, index: index}
}

func (s *SearchIndexSink) Name() string { return s.name }

func (s *SearchIndexSink) Write(ctx context.Context, batch [][]byte) error {
	if len(batch) == 0 {
		return nil
	}

	var body bytes.Buffer
	for _, doc := range batch {
		body.WriteString(`{"index":{}}`)
		body.WriteByte('\n')
		body.Write(doc)
		body.WriteByte('\n')
	}

	resp, err := s.client.Bulk(&body,
		s.client.Bulk.WithIndex(s.index),
		s.client.Bulk.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSinkWrite, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.IsError() {
		return fmt.Errorf("%w: bulk index returned %s", ErrSinkWrite, resp.Status())
	}
	return nil
}
