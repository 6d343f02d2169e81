// Package slogobs implements observability.Provider on top of log/slog.
//
// Spans and metric updates are written as debug records, so a production
// deployment at info level only sees the workflow's own log lines. Format and
// level default to PROSEARCH_LOG_FORMAT and PROSEARCH_LOG_LEVEL.
package slogobs
