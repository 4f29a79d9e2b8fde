package metrics_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/hookrelay/pkg/delivery"
	"github.com/dmitrymomot/hookrelay/pkg/metrics"
)

type fakeHistory struct {
	upserts []metrics.DailyAggregate
}

func (f *fakeHistory) Upsert(_ context.Context, agg metrics.DailyAggregate) error {
	f.upserts = append(f.upserts, agg)
	return nil
}

func (f *fakeHistory) Range(context.Context, string, time.Time, time.Time) ([]metrics.DailyAggregate, error) {
	return f.upserts, nil
}

func TestAggregator_PersistDaily(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	agg := metrics.NewAggregator(metrics.WithClock(func() time.Time { return now }))

	for i := range 10 {
		agg.Record(outcomeAt("api", now, i < 8, delivery.KindTimeout, 100*time.Millisecond))
	}
	agg.Recompute()

	store := &fakeHistory{}
	require.NoError(t, agg.PersistDaily(context.Background(), store))

	require.Len(t, store.upserts, 1)
	row := store.upserts[0]
	assert.Equal(t, "api", row.Destination)
	assert.Equal(t, 10, row.Total)
	assert.Equal(t, 8, row.Successes)
	assert.Equal(t, 2, row.Failures)
	assert.InDelta(t, 80.0, row.SuccessRate, 0.001)
	assert.InDelta(t, 100.0, row.AvgLatencyMs, 0.001)
	assert.Equal(t, 2, row.ErrorBreakdown[string(delivery.KindTimeout)])
}

func TestAggregator_PersistDaily_SkipsEmptyWindows(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	clock := &now
	agg := metrics.NewAggregator(
		metrics.WithWindowSize(time.Minute),
		metrics.WithClock(func() time.Time { return *clock }),
	)

	agg.Record(outcomeAt("api", now, true, "", time.Millisecond))
	*clock = now.Add(5 * time.Minute)
	agg.Recompute()

	store := &fakeHistory{}
	require.NoError(t, agg.PersistDaily(context.Background(), store))
	assert.Empty(t, store.upserts)
}
