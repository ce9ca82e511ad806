// Package secrets owns the hot-reloadable secrets configuration.
//
// The secrets file maps service names to tables of secret keys:
//
//	billing:
//	  apikey: "XYZ"
//	crm:
//	  Token: abc123
//
// A Store publishes the parsed file as an immutable Snapshot behind an atomic
// pointer. Request handlers call Store.Snapshot and never block, while
// Store.Reload builds a complete new Snapshot and swaps it in. A reload that
// fails to read or parse the file leaves the previous Snapshot in place.
//
// A Watcher drives the Store: one synchronous reload on Start, then debounced
// reloads triggered by fsnotify events on the file's directory and by a
// modification-time poll. When the fsnotify subscription itself fails it is
// re-established with exponential backoff.
//
// Secret keys are case-insensitive; service names are not.
package secrets
