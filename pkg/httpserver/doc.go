// Package httpserver wraps net/http.Server with functional options, structured
// logging, and signal-aware graceful shutdown.
//
// The webhook ingest and analytics modules mount their chi routers onto a
// single Server instance:
//
//	r := chi.NewRouter()
//	r.Mount("/webhook", ingest.Router(...))
//	r.Mount("/", analytics.Router(...))
//
//	srv := httpserver.NewFromConfig(cfg, httpserver.WithLogger(log))
//	if err := srv.Run(ctx, r); err != nil {
//		log.Error("server exited", logger.Error(err))
//	}
package httpserver
