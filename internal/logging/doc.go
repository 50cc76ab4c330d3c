// Package logging provides per-module structured logging on top of
// log/slog.
//
// Each module obtains its logger via GetLogger(name). Every module
// logger carries its own slog.LevelVar, so levels can be changed at
// runtime (config hot reload) without recreating loggers. Records fan
// out to stdout (text or JSON), the systemd journal when running under
// systemd, and an in-memory ring buffer that backs the SSE log stream.
package logging
