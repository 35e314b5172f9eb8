// Package logger provides structured logging functionality for the application
// using Go's standard library log/slog package. Loggers travel with requests in
// the context so that stores and tasks can log with request attributes attached.
package logger
