package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/hookrelay/modules/analytics"
	"github.com/dmitrymomot/hookrelay/modules/ingest"
	"github.com/dmitrymomot/hookrelay/pkg/config"
	"github.com/dmitrymomot/hookrelay/pkg/delivery"
	"github.com/dmitrymomot/hookrelay/pkg/fanout"
	"github.com/dmitrymomot/hookrelay/pkg/httpserver"
	"github.com/dmitrymomot/hookrelay/pkg/logger"
	"github.com/dmitrymomot/hookrelay/pkg/metrics"
	"github.com/dmitrymomot/hookrelay/pkg/notify"
	"github.com/dmitrymomot/hookrelay/pkg/opensearch"
	"github.com/dmitrymomot/hookrelay/pkg/pg"
	"github.com/dmitrymomot/hookrelay/pkg/redis"
)

const automationDestination = "automation"

func main() {
	var cfg appConfig
	config.MustLoad(&cfg)

	log := logger.New(
		logger.WithLevel(parseLevel(cfg.LogLevel)),
		logger.WithFormat(logger.FormatJSON),
		logger.WithService(cfg.ServiceName),
		logger.WithAttr(slog.String("environment", cfg.Environment)),
	)

	if err := run(context.Background(), cfg, log); err != nil && err != context.Canceled {
		log.Error("service stopped", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg appConfig, log *slog.Logger) error {
	hub := notify.NewHub(cfg.HubBufferSize)
	defer func() { _ = hub.Close() }()

	circuits := delivery.NewCircuitRegistry(
		cfg.CircuitFailureThreshold,
		cfg.CircuitSuccessThreshold,
		cfg.CircuitRecoveryTimeout,
	)

	// Metrics aggregation with a success-rate floor alert published to the
	// real-time channel.
	agg := metrics.NewAggregator(
		metrics.WithWindowSize(cfg.MetricsWindow),
		metrics.WithRecomputeInterval(cfg.MetricsRecompute),
		metrics.WithTrendThreshold(cfg.TrendThreshold),
		metrics.WithCircuitStates(circuits.States),
		metrics.WithAlertRule(metrics.AlertRule{
			Metric:    metrics.MetricSuccessRate,
			Threshold: cfg.SuccessRateAlertFloor,
			Direction: metrics.DirectionBelow,
			Severity:  metrics.SeverityWarning,
		}),
		metrics.WithAlertPublisher(func(e metrics.AlertEvent) {
			_ = hub.Publish(notify.TypeAlertTriggered, e)
		}),
		metrics.WithLogger(log),
	)

	var policy delivery.RetryPolicy
	config.MustLoad(&policy)

	// Webhook log destinations from the file become extra delivery targets,
	// so they must be known before the client is constructed.
	var fileDests []fanout.Destination
	if cfg.LogDestinationsFile != "" {
		var err error
		fileDests, err = fanout.LoadDestinations(cfg.LogDestinationsFile)
		if err != nil {
			return err
		}
	}

	clientOpts := []delivery.ClientOption{
		delivery.WithDestination(delivery.Destination{
			Key:    automationDestination,
			URL:    cfg.AutomationURL,
			Secret: cfg.AutomationSecret,
		}),
		delivery.WithRetryPolicy(policy),
		delivery.WithAttemptTimeout(cfg.AttemptTimeout),
		delivery.WithCircuitRegistry(circuits),
		delivery.WithRecorder(agg),
		delivery.WithDeliveryHook(func(o delivery.Outcome) {
			_ = hub.Publish(notify.TypeActivityEvent, o)
		}),
		delivery.WithLogger(log),
	}
	for _, dest := range fileDests {
		if dest.Type == fanout.DestinationWebhook {
			clientOpts = append(clientOpts, delivery.WithDestination(delivery.Destination{
				Key: "log-" + dest.Name,
				URL: dest.Endpoint,
			}))
		}
	}
	client := delivery.NewClient(clientOpts...)

	dispatcher := fanout.NewDispatcher(
		fanout.WithBatchSize(cfg.LogBatchSize),
		fanout.WithFlushInterval(cfg.LogFlushInterval),
		fanout.WithLogger(log),
	)
	defer func() { _ = dispatcher.Close() }()

	probes, err := registerSinks(ctx, cfg, dispatcher, client, fileDests, log)
	if err != nil {
		return err
	}

	var history metrics.HistoryStore
	if cfg.HistoryEnabled {
		var pgCfg pg.Config
		config.MustLoad(&pgCfg)

		pool, err := pg.Connect(ctx, pgCfg)
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := pg.Migrate(ctx, pool, pgCfg, log); err != nil {
			return err
		}
		history = metrics.NewPGHistory(pool)
		probes["postgres"] = pg.Healthcheck(pool)
	}

	ingestSvc := ingest.NewService(cfg.InboundSecret, client, automationDestination,
		ingest.WithHub(hub),
		ingest.WithDispatch(dispatcher.Dispatch),
		ingest.WithEnvironment(cfg.Environment),
		ingest.WithLogger(log),
	)

	analyticsOpts := []analytics.Option{
		analytics.WithHub(hub),
		analytics.WithDestinations(automationDestination),
		analytics.WithLogger(log),
	}
	if history != nil {
		analyticsOpts = append(analyticsOpts, analytics.WithHistory(history))
	}
	analyticsSvc := analytics.NewService(agg, analyticsOpts...)

	router := newRouter(log)
	router.Get("/healthz", healthzHandler(probes))
	router.Mount("/webhook", ingestSvc.Handler())
	router.Mount("/", analyticsSvc.Handler())

	var srvCfg httpserver.Config
	config.MustLoad(&srvCfg)
	server := httpserver.NewFromConfig(srvCfg, httpserver.WithLogger(log))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return agg.Run(ctx) })
	g.Go(func() error { return dispatcher.Run(ctx) })
	g.Go(func() error {
		// Periodic performance_update pushes keep connected dashboards fresh
		// without polling.
		ticker := time.NewTicker(cfg.MetricsRecompute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				_ = hub.Publish(notify.TypePerformanceUpdate, agg.Snapshots())
			}
		}
	})
	if history != nil {
		g.Go(func() error { return persistHistory(ctx, cfg, agg, history, log) })
	}
	g.Go(func() error { return server.Run(ctx, router) })

	log.InfoContext(ctx, "hookrelay started",
		slog.String("addr", srvCfg.Addr),
		slog.String("environment", cfg.Environment))

	return g.Wait()
}

// registerSinks wires the configured log destinations: console always, the
// Redis local store and OpenSearch index when enabled, plus anything from
// the destinations file. A misconfigured sink fails startup. It returns
// readiness probes for the backing connections it opened.
func registerSinks(ctx context.Context, cfg appConfig, dispatcher *fanout.Dispatcher, client *delivery.Client, fileDests []fanout.Destination, log *slog.Logger) (map[string]func(context.Context) error, error) {
	probes := make(map[string]func(context.Context) error)

	if err := dispatcher.Register(fanout.Destination{
		Type:    fanout.DestinationConsole,
		Name:    "console",
		Enabled: true,
	}, fanout.NewConsoleSink("console", os.Stdout)); err != nil {
		return nil, err
	}

	if cfg.LocalStoreEnabled {
		var redisCfg redis.Config
		config.MustLoad(&redisCfg)

		redisClient, err := redis.Connect(ctx, redisCfg)
		if err != nil {
			return nil, err
		}
		if err := dispatcher.Register(fanout.Destination{
			Type:       fanout.DestinationLocalStore,
			Name:       "local-store",
			Enabled:    true,
			Endpoint:   cfg.LocalStoreKey,
			MaxRetries: 2,
		}, fanout.NewLocalStoreSink("local-store", redisClient, cfg.LocalStoreKey, cfg.LocalStoreCap)); err != nil {
			return nil, err
		}
		probes["redis"] = redis.Healthcheck(redisClient)
	}

	if cfg.SearchIndexEnabled {
		var osCfg opensearch.Config
		config.MustLoad(&osCfg)

		osClient, err := opensearch.New(ctx, osCfg)
		if err != nil {
			return nil, err
		}
		if err := dispatcher.Register(fanout.Destination{
			Type:       fanout.DestinationSearchIndex,
			Name:       "search-index",
			Enabled:    true,
			Endpoint:   cfg.SearchIndex,
			MaxRetries: 2,
		}, fanout.NewSearchIndexSink("search-index", osClient, cfg.SearchIndex)); err != nil {
			return nil, err
		}
		probes["opensearch"] = opensearch.Healthcheck(osClient)
	}

	for _, dest := range fileDests {
		if dest.Type != fanout.DestinationWebhook {
			log.Warn("destinations file entry skipped, only webhook entries are file-configurable",
				slog.String("name", dest.Name), slog.String("type", string(dest.Type)))
			continue
		}
		if err := dispatcher.Register(dest, fanout.NewWebhookSink(dest.Name, client, "log-"+dest.Name)); err != nil {
			return nil, err
		}
	}

	return probes, nil
}

// persistHistory flushes daily aggregates so the analytics endpoint can
// serve ranges beyond the in-memory window.
func persistHistory(ctx context.Context, cfg appConfig, agg *metrics.Aggregator, history metrics.HistoryStore, log *slog.Logger) error {
	ticker := time.NewTicker(cfg.HistoryPersistInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := agg.PersistDaily(ctx, history); err != nil {
				log.ErrorContext(ctx, "failed to persist delivery history", logger.Error(err))
			}
		}
	}
}

func parseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}
