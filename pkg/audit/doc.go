// Package audit records every forwarded request for later inspection.
//
// # Architecture
//
//  1. recorder: turns proxy.ForwardEvent values into Records and queues
//     them for one background writer
//  2. storage: persists Records (memory, SQLite)
//  3. retention: deletes old Records on a cron schedule
//  4. export: writes Records as JSON or CSV for the audit query command
//
// # Records
//
// A Record holds the request ID, the service, the method, the upstream host
// and path, the status, the duration, the outcome, the names of the secret
// keys the request referenced and, on failure, the scrubbed error message.
// Secret values, header values and query strings are never recorded.
//
// # Recording Flow
//
//	Forwarder.Forward
//	     ↓
//	Recorder.ObserveForward (non-blocking)
//	     ↓
//	queue (dropped and counted when full)
//	     ↓
//	worker → Storage.Store
//
// # Basic Usage
//
//	store, err := storage.New(&cfg.Audit)
//	if err != nil {
//		return err
//	}
//	rec := recorder.New(store, cfg.Audit.Recorder, logger)
//	defer rec.Close()
//
//	forwarder := proxy.NewForwarder(secretsStore, cfg.Upstream, proxy.WithObserver(rec))
package audit
