// Package analytics exposes the delivery observability surface: historical
// daily aggregates with trend analysis, the aggregate health endpoint, and
// the real-time WebSocket channel.
package analytics
