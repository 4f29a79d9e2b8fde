// Package notify streams delivery activity, metrics snapshots, and alerts to
// connected dashboards in real time.
//
// The Hub is an in-memory fan-out: publishing never blocks, subscribers with
// full buffers miss the message and are pruned, and subscriptions are scoped
// to a context. WSHandler bridges the hub onto WebSocket connections.
//
//	hub := notify.NewHub(64)
//	mux.Handle("/webhook/ws", notify.NewWSHandler(hub))
//
//	_ = hub.Publish(notify.TypeActivityEvent, outcome)
package notify
