// Package ingest exposes the inbound webhook endpoints: POST /webhook/deploy
// and POST /webhook/logs. Every request must carry a valid
// X-Hub-Signature-256 header; an invalid signature is rejected with 401
// before any side effect. Bodies are dispatched on their event field: ping
// answers a health acknowledgement, workflow_run is validated and forwarded
// to the automation backend through the delivery client, and anything else
// is acknowledged without processing.
package ingest
