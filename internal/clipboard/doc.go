// Package clipboard isolates access to the operating-system clipboard
// behind a small provider interface and adds a poll-based change watcher
// on top. The system provider shells out to the platform clipboard; the
// in-memory provider backs tests and headless runs.
package clipboard
