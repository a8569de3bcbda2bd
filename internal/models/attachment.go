// Package models defines the chat message and attachment types the
// attachment service works with.
package models

import "time"

// Attachment is a binary payload referenced by a message.
type Attachment struct {
	// ID is the opaque reference assigned by the remote store on upload.
	// Empty while the attachment is a placeholder awaiting upload.
	ID string `json:"id,omitempty"`

	MimeType string `json:"mime_type"`
	Size     int64  `json:"size"`

	// LocalPath points at the pre-upload source file, if any.
	LocalPath string `json:"local_path,omitempty"`
}

// Uploaded reports whether the attachment already has a remote reference.
func (a Attachment) Uploaded() bool {
	return a.ID != ""
}

// Message is owned by the messaging layer; the attachment service only reads
// it and fills in the uploaded attachment during a send.
type Message struct {
	ID          string       `json:"id"`
	DialogID    string       `json:"dialog_id,omitempty"`
	Text        string       `json:"text,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Attachment returns the first attachment of m.
func (m *Message) Attachment() (Attachment, bool) {
	if m == nil || len(m.Attachments) == 0 {
		return Attachment{}, false
	}
	return m.Attachments[0], true
}

// SetAttachment replaces the first attachment (or adds one).
func (m *Message) SetAttachment(a Attachment) {
	if len(m.Attachments) == 0 {
		m.Attachments = []Attachment{a}
		return
	}
	m.Attachments[0] = a
}

// Binary is the source of an outgoing attachment: raw bytes, or a path to a
// local file when Data is nil.
type Binary struct {
	Data     []byte
	Path     string
	MimeType string
}

// StagedStatus tracks a staged binary through upload.
type StagedStatus string

const (
	StagedPending  StagedStatus = "pending"
	StagedUploaded StagedStatus = "uploaded"
)

// StagedAttachment is a pre-upload binary kept on local disk, keyed by the
// message it belongs to.
type StagedAttachment struct {
	MessageID    string
	LocalPath    string
	MimeType     string
	Size         int64
	Status       StagedStatus
	AttachmentID string
	CreatedAt    time.Time
}
