// Package common defines shared constants, sentinel errors and the transport
// error type used across the attachment service. Callers should use errors.Is
// to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Fetch was requested for a message that carries no attachment.
	ErrNoAttachment = errors.New("message has no attachment")

	// Local-only lookup found neither a cached nor a staged binary.
	ErrNoLocalBinary = errors.New("no local binary")

	// Downloaded bytes were rejected by the cryptor.
	ErrDecryptionFailure = errors.New("decryption failure")

	// Encryption of an outgoing binary failed.
	ErrEncryptionFailure = errors.New("encryption failure")

	// The caller withdrew from an operation before it completed.
	ErrCancelled = errors.New("cancelled")

	// Network or server failure during upload or download.
	ErrTransport = errors.New("transport error")

	// Send was requested for a message whose attachment is already uploaded.
	ErrAlreadyAttached = errors.New("message already has an uploaded attachment")

	// Send was requested with neither bytes nor a path.
	ErrEmptyBinary = errors.New("empty binary")
)
