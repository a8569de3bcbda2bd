// Package logging is the structured logger used by every chatattach package.
// The only implementation is SlogLogger; tests use Discard.
package logging

import "context"

// Logger logs with the request context so handlers can pick up trace values.
// Args are alternating keys and values:
//
//	log.Info(ctx, "attachment uploaded", "message_id", id, "size", n)
type Logger interface {
	// Debug is for progress ticks and cache decisions.
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	// Warn is for failures the caller recovers from, e.g. a staging write
	// that does not block a send.
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With returns a logger that adds args to every record.
	With(args ...any) Logger
}
