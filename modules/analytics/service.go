package analytics

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/hookrelay/pkg/logger"
	"github.com/dmitrymomot/hookrelay/pkg/metrics"
	"github.com/dmitrymomot/hookrelay/pkg/notify"
)

// timeRanges maps the accepted timeRange query values to lookback windows.
var timeRanges = map[string]time.Duration{
	"1h":  time.Hour,
	"6h":  6 * time.Hour,
	"24h": 24 * time.Hour,
	"7d":  7 * 24 * time.Hour,
	"30d": 30 * 24 * time.Hour,
}

// Service serves the analytics surface: historical aggregates, aggregate
// health, and the real-time WebSocket channel.
type Service struct {
	agg          *metrics.Aggregator
	history      metrics.HistoryStore
	hub          *notify.Hub
	destinations []string
	log          *slog.Logger
	now          func() time.Time
}

// NewService creates the analytics service. The aggregator is required; the
// history store and hub are optional and their endpoints degrade gracefully
// when absent.
func NewService(agg *metrics.Aggregator, opts ...Option) *Service {
	if agg == nil {
		panic("analytics: aggregator is required")
	}
	s := &Service{
		agg: agg,
		log: slog.Default(),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Option configures a Service.
type Option func(*Service)

// WithHistory attaches the persistent aggregate store backing the
// historical endpoint.
func WithHistory(store metrics.HistoryStore) Option {
	return func(s *Service) { s.history = store }
}

// WithHub attaches the real-time hub served on the WebSocket endpoint.
func WithHub(hub *notify.Hub) Option {
	return func(s *Service) { s.hub = hub }
}

// WithDestinations lists the destination keys to include in historical
// queries. Destinations only present in live snapshots are added on top.
func WithDestinations(keys ...string) Option {
	return func(s *Service) { s.destinations = keys }
}

// WithLogger supplies the structured logger used by the service.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// Handler returns the module router, meant to be mounted at the server root.
func (s *Service) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/webhook/analytics/historical", s.handleHistorical)
	r.Get("/health", s.handleHealth)
	if s.hub != nil {
		r.Get("/webhook/ws", notify.NewWSHandler(s.hub, notify.WithWSLogger(s.log)).ServeHTTP)
	}
	return r
}

type destinationHistory struct {
	Destination string                   `json:"destination"`
	Daily       []metrics.DailyAggregate `json:"daily"`
	Current     *metrics.Snapshot        `json:"current,omitempty"`
}

type historicalResponse struct {
	TimeRange    string               `json:"time_range"`
	From         time.Time            `json:"from"`
	To           time.Time            `json:"to"`
	GeneratedAt  time.Time            `json:"generated_at"`
	Destinations []destinationHistory `json:"destinations"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// handleHistorical serves daily aggregates over the requested lookback.
// format=detailed adds per-kind error breakdowns and the live snapshot with
// its trend; the default format reports totals and rates only.
func (s *Service) handleHistorical(w http.ResponseWriter, r *http.Request) {
	rangeKey := r.URL.Query().Get("timeRange")
	if rangeKey == "" {
		rangeKey = "24h"
	}
	lookback, ok := timeRanges[rangeKey]
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "timeRange must be one of 1h, 6h, 24h, 7d, 30d"})
		return
	}
	detailed := r.URL.Query().Get("format") == "detailed"

	now := s.now().UTC()
	from := now.Add(-lookback)

	snapshots := s.agg.Snapshots()
	keys := slices.Clone(s.destinations)
	for dest := range snapshots {
		if !slices.Contains(keys, dest) {
			keys = append(keys, dest)
		}
	}
	slices.Sort(keys)

	resp := historicalResponse{
		TimeRange:    rangeKey,
		From:         from,
		To:           now,
		GeneratedAt:  now,
		Destinations: make([]destinationHistory, 0, len(keys)),
	}

	for _, dest := range keys {
		dh := destinationHistory{Destination: dest, Daily: []metrics.DailyAggregate{}}

		if s.history != nil {
			daily, err := s.history.Range(r.Context(), dest, from, now)
			if err != nil {
				s.log.ErrorContext(r.Context(), "historical query failed",
					logger.Destination(dest), logger.Error(err))
				writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to load delivery history"})
				return
			}
			dh.Daily = daily
		}

		if !detailed {
			for i := range dh.Daily {
				dh.Daily[i].ErrorBreakdown = nil
			}
		} else if snap, ok := snapshots[dest]; ok {
			dh.Current = &snap
		}

		resp.Destinations = append(resp.Destinations, dh)
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleHealth reports aggregate status derived from circuit states and
// recent error rates.
func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.agg.Health()

	status := http.StatusOK
	if report.Status == metrics.HealthUnhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
