// Package pg provides PostgreSQL connectivity for the metrics history store:
// pgx v5 pool creation with startup retries, goose schema migrations, and a
// health probe closure for readiness endpoints.
//
//	var cfg pg.Config
//	config.MustLoad(&cfg)
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil { ... }
//	if err := pg.Migrate(ctx, pool, cfg, log); err != nil { ... }
//
// The pool is handed to metrics.NewPGHistory which persists daily delivery
// aggregates behind the analytics historical endpoint.
package pg
