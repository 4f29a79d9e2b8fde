// Package config loads application configuration from environment variables
// into annotated Go structs.
//
// It wraps github.com/joho/godotenv and github.com/caarlos0/env/v11 to provide
// a small, type-safe API:
//
//   - Loads the default .env file once, if present.
//   - Parses the environment into any struct using `env` field tags.
//   - Caches each successfully parsed configuration type so it is parsed at
//     most once per process.
//   - MustLoad panics on failure for configuration that is required at startup.
//
// Every package in this module declares its own Config struct with env tags
// (delivery, metrics, fanout, pg, redis, opensearch, httpserver) and is loaded
// through this package at process start. Configuration errors are fatal by
// design: a misconfigured log destination or a missing webhook secret must
// prevent startup rather than surface later as delivery failures.
package config
