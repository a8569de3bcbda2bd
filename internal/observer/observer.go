// Package observer fans attachment events out to registered listeners.
//
// Events are queued without blocking the publisher and delivered by a single
// dispatcher goroutine, so every observer sees events in publish order. A
// panicking observer is recovered and logged; delivery to the others and the
// publishing operation are unaffected.
package observer

import (
	"github.com/dmitrijs2005/chatattach/internal/models"
)

// Observer receives attachment notifications. Implementations must not block
// for long: all observers share one delivery goroutine.
type Observer interface {
	OnAttachmentStatusChanged(status models.AttachmentStatus, msg models.Message)
	OnDownloadProgress(progress float64, attachmentID string)
	OnUploadProgress(progress float64, messageID string)
}

// Funcs adapts plain functions to Observer; nil fields are skipped.
type Funcs struct {
	StatusChanged    func(status models.AttachmentStatus, msg models.Message)
	DownloadProgress func(progress float64, attachmentID string)
	UploadProgress   func(progress float64, messageID string)
}

var _ Observer = Funcs{}

func (f Funcs) OnAttachmentStatusChanged(status models.AttachmentStatus, msg models.Message) {
	if f.StatusChanged != nil {
		f.StatusChanged(status, msg)
	}
}

func (f Funcs) OnDownloadProgress(progress float64, attachmentID string) {
	if f.DownloadProgress != nil {
		f.DownloadProgress(progress, attachmentID)
	}
}

func (f Funcs) OnUploadProgress(progress float64, messageID string) {
	if f.UploadProgress != nil {
		f.UploadProgress(progress, messageID)
	}
}
