// Package attachments is the attachment lifecycle coordinator.
//
// A Service uploads outgoing binaries and hands the message to the delivery
// layer, fetches and decrypts remote attachments, and keeps the decrypted
// bytes in a cache.Store. It owns the AttachmentStatus of every message it
// touches and publishes status and progress events through an observer.Hub.
//
// Concurrent fetches of the same attachment share one download: later
// callers join the in-flight call as waiters. A waiter whose context ends
// gets common.ErrCancelled while the download keeps running for the others;
// the download itself is cancelled once no waiter is left.
package attachments
