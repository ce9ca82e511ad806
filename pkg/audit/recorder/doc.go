// Package recorder writes an audit record for every forwarded request.
//
// Recorder implements proxy.Observer. Each event becomes an audit.Record
// that is queued on a buffered channel and persisted by one worker
// goroutine. A full queue drops the record instead of delaying the request;
// drops are counted and exposed through Dropped for the metrics collector.
//
//	rec := recorder.New(store, cfg.Audit.Recorder, logger)
//	defer rec.Close()
//	collector.RegisterAuditSource(rec)
//	forwarder := proxy.NewForwarder(secretsStore, cfg.Upstream,
//		proxy.WithObserver(proxy.Observers{collector, rec}))
//
// Close drains the queue before returning.
package recorder
