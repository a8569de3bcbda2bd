package staging

import (
	"context"

	"github.com/dmitrijs2005/chatattach/internal/models"
)

// Repository describes persistence of staged attachment records.
type Repository interface {
	// Save inserts or replaces the record for rec.MessageID.
	Save(ctx context.Context, rec *models.StagedAttachment) error

	// GetByMessageID returns common.ErrNotFound when nothing is staged.
	GetByMessageID(ctx context.Context, messageID string) (*models.StagedAttachment, error)

	// ListByStatus returns records in the given state, oldest first.
	ListByStatus(ctx context.Context, status models.StagedStatus) ([]*models.StagedAttachment, error)

	// MarkUploaded records the remote reference and flips the status.
	MarkUploaded(ctx context.Context, messageID, attachmentID string) error

	Delete(ctx context.Context, messageID string) error
}
