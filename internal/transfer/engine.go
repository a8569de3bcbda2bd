// Package transfer moves attachment bytes between the client and the remote
// object store.
//
// Both directions report fractional progress through a ProgressFunc: 0.0 when
// the transfer starts, non-decreasing values proportional to bytes moved, and
// exactly one 1.0 on success. Nothing is reported after a failure or a
// cancellation. Failures surface as *common.TransportError; the engine never
// retries on its own.
package transfer

import (
	"context"
)

// ProgressFunc receives a value in [0, 1].
type ProgressFunc func(progress float64)

// Engine is the remote object store boundary.
type Engine interface {
	// Upload stores data and returns the opaque reference used to download it.
	Upload(ctx context.Context, data []byte, mimeType string, progress ProgressFunc) (string, error)

	// Download returns the bytes stored under ref.
	Download(ctx context.Context, ref string, progress ProgressFunc) ([]byte, error)
}
