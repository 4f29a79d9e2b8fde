// Package fanout dispatches log records to multiple destinations: console,
// a capped Redis store, an external webhook collector, an OpenSearch index,
// or custom sinks.
//
// The Dispatcher batches records and flushes each enabled destination in its
// own goroutine with its own retry budget; a slow or failing destination
// never blocks callers or the other destinations. Dispatch has no error
// return on purpose: when every retry is exhausted the batch is dropped with
// a warning, because logging must not take down the paths it observes.
//
//	d := fanout.NewDispatcher(fanout.WithBatchSize(10))
//	_ = d.Register(fanout.Destination{
//		Type:    fanout.DestinationConsole,
//		Name:    "stdout",
//		Enabled: true,
//	}, fanout.NewConsoleSink("stdout", os.Stdout))
//	go d.Run(ctx)
//
//	d.Dispatch(fanout.Record{
//		Message: "delivery completed",
//		Level:   fanout.LevelInfo,
//		Service: "hookrelay",
//	})
//
// Destination configs load from a YAML file via LoadDestinations and are
// validated at startup; a misconfigured destination is fatal rather than
// silently skipped.
package fanout
