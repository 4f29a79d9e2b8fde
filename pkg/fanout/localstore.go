package fanout

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// LocalStoreSink keeps the most recent records in a capped Redis list.
// Each flush pushes the batch and trims the list to the cap, so the store
// never grows unbounded.
type LocalStoreSink struct {
	name   string
	client redis.UniversalClient
	key    string
	cap    int64
}

// NewLocalStoreSink creates a Redis-backed sink storing at most cap records
// under key. A non-positive cap defaults to 10000.
func NewLocalStoreSink(name string, client redis.UniversalClient, key string, cap int64) *LocalStoreSink {
	if cap <= 0 {
		cap = 10_000
	}
	return &LocalStoreSink{name: name, client: client, key: key, cap: cap}
}

func (s *LocalStoreSink) Name() string { return s.name }

func (s *LocalStoreSink) Write(ctx context.Context, batch [][]byte) error {
	if len(batch) == 0 {
		return nil
	}

	values := make([]any, len(batch))
	for i, b := range batch {
		values[i] = b
	}

	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, s.key, values...)
	pipe.LTrim(ctx, s.key, 0, s.cap-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrSinkWrite, err)
	}
	return nil
}

// Recent returns up to n of the most recently stored records, newest first.
func (s *LocalStoreSink) Recent(ctx context.Context, n int64) ([]Record, error) {
	raw, err := s.client.LRange(ctx, s.key, 0, n-1).Result()
	if err != nil {
		return nil, fmt.Errorf("read local store: %w", err)
	}

	records := make([]Record, 0, len(raw))
	for _, item := range raw {
		r, err := ParseRecord([]byte(item))
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, nil
}
