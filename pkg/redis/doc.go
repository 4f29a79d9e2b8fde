// Package redis provides connection helpers for the Redis-backed local-store
// log sink: URL-based configuration, startup connection retries, and a health
// probe closure.
//
// The fan-out dispatcher's local-store destination writes batched log records
// to a capped Redis list (LPUSH + LTRIM), which keeps a bounded recent tail of
// records available without an external log system.
package redis
