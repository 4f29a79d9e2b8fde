// Package opensearch wraps the official OpenSearch Go client with type-safe
// configuration, an initial cluster health check, and standardized error
// values.
//
// It backs the fan-out dispatcher's search-index log destination, which bulk
// indexes formatted log records so they are searchable alongside the rest of
// the platform's logs.
//
//	var cfg opensearch.Config
//	config.MustLoad(&cfg)
//	client, err := opensearch.New(ctx, cfg)
package opensearch
