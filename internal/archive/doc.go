// Package archive records closed timer sessions to durable storage.
//
// The timer store reports every session it closes locally (pause, stop, or
// preemption by another task) through OnSessionClosed. Recorder queues
// those sessions and flushes them to a Sink in the background. The MySQL
// sink in archive/mysql upserts on (task id, start), so a session flushed
// twice after a partial failure still yields one row.
//
// The archive is optional. It is enabled by setting archive_dsn in
// config.toml; without it the app runs with no recorder attached.
package archive
