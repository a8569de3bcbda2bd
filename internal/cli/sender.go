package cli

import (
	"context"

	"github.com/dmitrijs2005/chatattach/internal/logging"
	"github.com/dmitrijs2005/chatattach/internal/models"
)

// logSender stands in for the messaging layer: delivery is a log line.
type logSender struct {
	logger logging.Logger
}

func (s *logSender) Send(ctx context.Context, msg *models.Message) error {
	att, _ := msg.Attachment()
	s.logger.Info(ctx, "message delivered",
		"message_id", msg.ID,
		"dialog_id", msg.DialogID,
		"attachment_id", att.ID,
		"mime_type", att.MimeType,
	)
	return nil
}
