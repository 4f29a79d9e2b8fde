// Package metrics aggregates delivery outcomes into sliding-window snapshots
// with success rates, latency percentiles, error breakdowns, and trend
// detection, and evaluates alert rules against every recompute.
//
// The Aggregator implements delivery.OutcomeRecorder, so it plugs straight
// into a delivery client:
//
//	agg := metrics.NewAggregator(
//		metrics.WithWindowSize(5*time.Minute),
//		metrics.WithAlertRule(metrics.AlertRule{
//			Metric:    metrics.MetricSuccessRate,
//			Threshold: 96,
//			Direction: metrics.DirectionBelow,
//			Severity:  metrics.SeverityWarning,
//		}),
//		metrics.WithCircuitStates(client.Circuits().States),
//	)
//	client := delivery.NewClient(delivery.WithRecorder(agg), ...)
//	go agg.Run(ctx)
//
// Snapshots are rebuilt from scratch and swapped atomically on each
// recompute: a reader never sees a success rate from one window paired with
// an error breakdown from another. Outcomes older than the window are dropped
// on arrival and never applied retroactively.
//
// PGHistory persists daily aggregates to Postgres so the analytics endpoints
// can serve time ranges far longer than the in-memory window.
package metrics
