package attachments

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/dmitrijs2005/chatattach/internal/common"
	"github.com/dmitrijs2005/chatattach/internal/models"
)

// SendWithAttachment uploads src, attaches the returned reference to msg and
// hands msg to the Sender. msg must carry no attachment or a placeholder.
//
// An empty src resends the binary staged for msg by an earlier attempt.
// Upload failures leave msg in Error and never reach the Sender. A delivery
// failure after a successful upload is returned, but msg stays Loaded.
func (s *Service) SendWithAttachment(ctx context.Context, msg *models.Message, src models.Binary) error {
	if att, ok := msg.Attachment(); ok && att.Uploaded() {
		return fmt.Errorf("send %s: %w", msg.ID, common.ErrAlreadyAttached)
	}

	s.setStatus(msg, models.StatusLoading)

	att, err := s.upload(ctx, msg, src)
	s.metrics.uploads.WithLabelValues(resultLabel(err)).Inc()
	if err != nil {
		s.setStatus(msg, models.StatusError)
		s.logger.Warn(ctx, "send failed", "message_id", msg.ID, "error", err)
		return fmt.Errorf("send %s: %w", msg.ID, err)
	}

	msg.SetAttachment(att)
	s.setStatus(msg, models.StatusLoaded)

	if err := s.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("deliver %s: %w", msg.ID, err)
	}

	s.logger.Info(ctx, "attachment sent", "message_id", msg.ID, "attachment_id", att.ID, "size", att.Size)
	return nil
}

func (s *Service) upload(ctx context.Context, msg *models.Message, src models.Binary) (models.Attachment, error) {
	data, mimeType, localPath, err := s.resolve(ctx, msg.ID, src)
	if err != nil {
		return models.Attachment{}, err
	}

	payload, err := s.cryptor.Encrypt(data)
	if err != nil {
		return models.Attachment{}, fmt.Errorf("%w: %w", common.ErrEncryptionFailure, err)
	}

	ref, err := s.engine.Upload(ctx, payload, mimeType, func(p float64) {
		s.hub.UploadProgress(p, msg.ID)
	})
	if err != nil {
		return models.Attachment{}, err
	}

	if err := s.store.Put(ref, data); err != nil {
		s.logger.Warn(ctx, "failed to cache sent attachment", "attachment_id", ref, "error", err)
	}
	if s.staging != nil {
		if err := s.staging.MarkUploaded(ctx, msg.ID, ref); err != nil && !errors.Is(err, common.ErrNotFound) {
			s.logger.Warn(ctx, "failed to mark staged binary uploaded", "message_id", msg.ID, "error", err)
		}
	}

	return models.Attachment{
		ID:        ref,
		MimeType:  mimeType,
		Size:      int64(len(data)),
		LocalPath: localPath,
	}, nil
}

// resolve loads the bytes to send and stages them. A staging failure is
// logged and does not stop the send.
func (s *Service) resolve(ctx context.Context, messageID string, src models.Binary) ([]byte, string, string, error) {
	data, mimeType, localPath := src.Data, src.MimeType, src.Path

	switch {
	case data != nil:
	case src.Path != "":
		b, err := os.ReadFile(src.Path)
		if err != nil {
			return nil, "", "", fmt.Errorf("read %s: %w", src.Path, err)
		}
		data = b
	case s.staging != nil:
		b, rec, err := s.staging.Load(ctx, messageID)
		if errors.Is(err, common.ErrNotFound) {
			return nil, "", "", common.ErrEmptyBinary
		}
		if err != nil {
			return nil, "", "", err
		}
		if mimeType == "" {
			mimeType = rec.MimeType
		}
		return b, mimeType, rec.LocalPath, nil
	default:
		return nil, "", "", common.ErrEmptyBinary
	}

	if len(data) == 0 {
		return nil, "", "", common.ErrEmptyBinary
	}
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}

	if s.staging != nil {
		rec, err := s.staging.Stage(ctx, messageID, data, mimeType)
		if err != nil {
			s.logger.Warn(ctx, "failed to stage binary", "message_id", messageID, "error", err)
		} else if localPath == "" {
			localPath = rec.LocalPath
		}
	}

	return data, mimeType, localPath, nil
}
