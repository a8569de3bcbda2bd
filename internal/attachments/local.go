package attachments

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dmitrijs2005/chatattach/internal/common"
	"github.com/dmitrijs2005/chatattach/internal/filex"
	"github.com/dmitrijs2005/chatattach/internal/models"
)

// LocalBinary returns the attachment bytes without touching the network:
// the cached copy, else the staged pre-upload binary, else the attachment's
// local file. It fails with common.ErrNoLocalBinary when none exists.
func (s *Service) LocalBinary(ctx context.Context, msg *models.Message) ([]byte, error) {
	att, hasAtt := msg.Attachment()

	if hasAtt && att.Uploaded() {
		if data, ok := s.store.Get(att.ID); ok {
			return data, nil
		}
	}

	if s.staging != nil {
		data, _, err := s.staging.Load(ctx, msg.ID)
		switch {
		case err == nil:
			return data, nil
		case !errors.Is(err, common.ErrNotFound):
			return nil, fmt.Errorf("local binary %s: %w", msg.ID, err)
		}
	}

	if hasAtt && att.LocalPath != "" && filex.Exists(att.LocalPath) {
		data, err := os.ReadFile(att.LocalPath)
		if err != nil {
			return nil, fmt.Errorf("local binary %s: %w", msg.ID, err)
		}
		return data, nil
	}

	return nil, common.ErrNoLocalBinary
}

// CachedBinary returns the cached bytes for the message's attachment, or nil.
func (s *Service) CachedBinary(msg *models.Message) []byte {
	att, ok := msg.Attachment()
	if !ok || !att.Uploaded() {
		return nil
	}
	data, _ := s.store.Get(att.ID)
	return data
}
