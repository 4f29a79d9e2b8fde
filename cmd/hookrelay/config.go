package main

import "time"

// appConfig is the process-level configuration. Infrastructure packages load
// their own Config structs; this one carries the delivery, metrics, and
// fan-out wiring that is specific to the binary.
type appConfig struct {
	Environment string `env:"APP_ENV" envDefault:"development"`
	ServiceName string `env:"SERVICE_NAME" envDefault:"hookrelay"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// Inbound webhook verification.
	InboundSecret string `env:"WEBHOOK_SECRET,required"`

	// Automation backend destination.
	AutomationURL    string        `env:"AUTOMATION_WEBHOOK_URL,required"`
	AutomationSecret string        `env:"AUTOMATION_WEBHOOK_SECRET"`
	AttemptTimeout   time.Duration `env:"DELIVERY_ATTEMPT_TIMEOUT" envDefault:"10s"`

	// Circuit breaker parameters shared by all destinations.
	CircuitFailureThreshold int           `env:"CIRCUIT_FAILURE_THRESHOLD" envDefault:"5"`
	CircuitSuccessThreshold int           `env:"CIRCUIT_SUCCESS_THRESHOLD" envDefault:"1"`
	CircuitRecoveryTimeout  time.Duration `env:"CIRCUIT_RECOVERY_TIMEOUT" envDefault:"30s"`

	// Metrics aggregation and alerting.
	MetricsWindow          time.Duration `env:"METRICS_WINDOW" envDefault:"5m"`
	MetricsRecompute       time.Duration `env:"METRICS_RECOMPUTE_INTERVAL" envDefault:"30s"`
	TrendThreshold         float64       `env:"METRICS_TREND_THRESHOLD" envDefault:"2"`
	SuccessRateAlertFloor  float64       `env:"ALERT_SUCCESS_RATE_THRESHOLD" envDefault:"95"`
	HistoryEnabled         bool          `env:"METRICS_HISTORY_ENABLED" envDefault:"false"`
	HistoryPersistInterval time.Duration `env:"METRICS_HISTORY_PERSIST_INTERVAL" envDefault:"1m"`

	// Log fan-out.
	LogBatchSize        int           `env:"LOG_BATCH_SIZE" envDefault:"10"`
	LogFlushInterval    time.Duration `env:"LOG_FLUSH_INTERVAL" envDefault:"5s"`
	LogDestinationsFile string        `env:"LOG_DESTINATIONS_FILE"`
	LocalStoreEnabled   bool          `env:"LOG_LOCAL_STORE_ENABLED" envDefault:"false"`
	LocalStoreKey       string        `env:"LOG_LOCAL_STORE_KEY" envDefault:"hookrelay:logs:recent"`
	LocalStoreCap       int64         `env:"LOG_LOCAL_STORE_CAP" envDefault:"10000"`
	SearchIndexEnabled  bool          `env:"LOG_SEARCH_INDEX_ENABLED" envDefault:"false"`
	SearchIndex         string        `env:"LOG_SEARCH_INDEX" envDefault:"hookrelay-logs"`

	// Real-time notifier.
	HubBufferSize int `env:"NOTIFY_BUFFER_SIZE" envDefault:"64"`
}
