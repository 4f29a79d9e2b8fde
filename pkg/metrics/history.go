package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DailyAggregate is one destination-day of delivery history, persisted so the
// analytics endpoint can serve ranges longer than the in-memory window.
type DailyAggregate struct {
	Day            time.Time      `json:"day"`
	Destination    string         `json:"destination"`
	Total          int            `json:"total"`
	Successes      int            `json:"successes"`
	Failures       int            `json:"failures"`
	SuccessRate    float64        `json:"success_rate"`
	AvgLatencyMs   float64        `json:"avg_latency_ms"`
	P95LatencyMs   float64        `json:"p95_latency_ms"`
	ErrorBreakdown map[string]int `json:"error_breakdown,omitempty"`
}

// HistoryStore persists and queries daily delivery aggregates.
type HistoryStore interface {
	Upsert(ctx context.Context, agg DailyAggregate) error
	Range(ctx context.Context, destination string, from, to time.Time) ([]DailyAggregate, error)
}

// PGHistory stores daily aggregates in Postgres. Rows are keyed by
// (day, destination); repeated flushes for the same day overwrite the row
// with the latest counts.
type PGHistory struct {
	pool *pgxpool.Pool
}

// NewPGHistory creates a Postgres-backed history store.
func NewPGHistory(pool *pgxpool.Pool) *PGHistory {
	return &PGHistory{pool: pool}
}

func (h *PGHistory) Upsert(ctx context.Context, agg DailyAggregate) error {
	breakdown, err := json.Marshal(agg.ErrorBreakdown)
	if err != nil {
		return errors.Join(ErrHistoryWrite, err)
	}

	_, err = h.pool.Exec(ctx, `
		INSERT INTO delivery_daily_aggregates
			(day, destination, total, successes, failures, success_rate,
			 avg_latency_ms, p95_latency_ms, error_breakdown)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (day, destination) DO UPDATE SET
			total = EXCLUDED.total,
			successes = EXCLUDED.successes,
			failures = EXCLUDED.failures,
			success_rate = EXCLUDED.success_rate,
			avg_latency_ms = EXCLUDED.avg_latency_ms,
			p95_latency_ms = EXCLUDED.p95_latency_ms,
			error_breakdown = EXCLUDED.error_breakdown`,
		agg.Day.UTC().Truncate(24*time.Hour), agg.Destination, agg.Total,
		agg.Successes, agg.Failures, agg.SuccessRate,
		agg.AvgLatencyMs, agg.P95LatencyMs, breakdown)
	if err != nil {
		return errors.Join(ErrHistoryWrite, err)
	}
	return nil
}

func (h *PGHistory) Range(ctx context.Context, destination string, from, to time.Time) ([]DailyAggregate, error) {
	rows, err := h.pool.Query(ctx, `
		SELECT day, destination, total, successes, failures, success_rate,
		       avg_latency_ms, p95_latency_ms, error_breakdown
		FROM delivery_daily_aggregates
		WHERE destination = $1 AND day >= $2 AND day <= $3
		ORDER BY day`,
		destination, from.UTC(), to.UTC())
	if err != nil {
		return nil, errors.Join(ErrHistoryQuery, err)
	}
	defer rows.Close()

	var aggs []DailyAggregate
	for rows.Next() {
		var agg DailyAggregate
		var breakdown []byte
		if err := rows.Scan(&agg.Day, &agg.Destination, &agg.Total,
			&agg.Successes, &agg.Failures, &agg.SuccessRate,
			&agg.AvgLatencyMs, &agg.P95LatencyMs, &breakdown); err != nil {
			return nil, errors.Join(ErrHistoryQuery, err)
		}
		if len(breakdown) > 0 {
			if err := json.Unmarshal(breakdown, &agg.ErrorBreakdown); err != nil {
				return nil, errors.Join(ErrHistoryQuery, err)
			}
		}
		aggs = append(aggs, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Join(ErrHistoryQuery, err)
	}
	return aggs, nil
}

// PersistDaily converts the latest snapshots into daily aggregate rows and
// upserts them. Intended to be called periodically, typically on the same
// cadence as Recompute.
func (a *Aggregator) PersistDaily(ctx context.Context, store HistoryStore) error {
	now := a.now()
	for dest, s := range a.Snapshots() {
		if s.Total == 0 {
			continue
		}
		agg := DailyAggregate{
			Day:          now,
			Destination:  dest,
			Total:        s.Total,
			Successes:    s.Successes,
			Failures:     s.Failures,
			SuccessRate:  s.SuccessRate,
			AvgLatencyMs: float64(s.AvgLatency.Microseconds()) / 1000.0,
			P95LatencyMs: float64(s.P95Latency.Microseconds()) / 1000.0,
		}
		if len(s.ErrorBreakdown) > 0 {
			agg.ErrorBreakdown = make(map[string]int, len(s.ErrorBreakdown))
			for kind, stat := range s.ErrorBreakdown {
				agg.ErrorBreakdown[string(kind)] = stat.Count
			}
		}
		if err := store.Upsert(ctx, agg); err != nil {
			return fmt.Errorf("persist aggregates for %s: %w", dest, err)
		}
	}
	return nil
}
