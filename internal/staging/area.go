package staging

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/chatattach/internal/common"
	"github.com/dmitrijs2005/chatattach/internal/dbx"
	"github.com/dmitrijs2005/chatattach/internal/filex"
	"github.com/dmitrijs2005/chatattach/internal/logging"
	"github.com/dmitrijs2005/chatattach/internal/models"
	"github.com/google/uuid"
)

// Area stores staged binaries as files under dir and tracks them in db.
type Area struct {
	db     *sql.DB
	dir    string
	logger logging.Logger
}

// NewArea creates dir if needed and returns an Area over db. db must already
// be migrated (see OpenDatabase).
func NewArea(db *sql.DB, dir string, logger logging.Logger) (*Area, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	abs, err := filex.EnsureDir(dir)
	if err != nil {
		return nil, fmt.Errorf("staging dir: %w", err)
	}
	return &Area{db: db, dir: abs, logger: logger}, nil
}

// Dir returns the absolute staging directory.
func (a *Area) Dir() string { return a.dir }

// Stage writes data to a fresh file and records it as pending for messageID.
// A previous staged file for the same message is replaced.
func (a *Area) Stage(ctx context.Context, messageID string, data []byte, mimeType string) (*models.StagedAttachment, error) {
	path := filepath.Join(a.dir, uuid.NewString())
	if err := filex.WriteAtomic(path, data); err != nil {
		return nil, fmt.Errorf("stage %s: %w", messageID, err)
	}

	rec := &models.StagedAttachment{
		MessageID: messageID,
		LocalPath: path,
		MimeType:  mimeType,
		Size:      int64(len(data)),
		Status:    models.StagedPending,
		CreatedAt: time.Now(),
	}

	var previous string
	err := dbx.WithTx(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := NewSQLiteRepository(tx)

		old, err := repo.GetByMessageID(ctx, messageID)
		switch {
		case err == nil:
			previous = old.LocalPath
		case !errors.Is(err, common.ErrNotFound):
			return err
		}

		return repo.Save(ctx, rec)
	})
	if err != nil {
		a.removeFile(ctx, path)
		return nil, fmt.Errorf("stage %s: %w", messageID, err)
	}

	if previous != "" && previous != path {
		a.removeFile(ctx, previous)
	}

	a.logger.Debug(ctx, "binary staged", "message_id", messageID, "size", rec.Size)
	return rec, nil
}

// Load returns the staged bytes for messageID, or common.ErrNotFound when
// nothing is staged or the file has gone missing.
func (a *Area) Load(ctx context.Context, messageID string) ([]byte, *models.StagedAttachment, error) {
	rec, err := NewSQLiteRepository(a.db).GetByMessageID(ctx, messageID)
	if err != nil {
		return nil, nil, err
	}

	data, err := os.ReadFile(rec.LocalPath)
	if errors.Is(err, os.ErrNotExist) {
		a.logger.Warn(ctx, "staged file missing", "message_id", messageID, "path", rec.LocalPath)
		return nil, nil, fmt.Errorf("staged file for %s: %w", messageID, common.ErrNotFound)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read staged file for %s: %w", messageID, err)
	}
	return data, rec, nil
}

// MarkUploaded records the remote reference for a staged binary.
func (a *Area) MarkUploaded(ctx context.Context, messageID, attachmentID string) error {
	return NewSQLiteRepository(a.db).MarkUploaded(ctx, messageID, attachmentID)
}

// Pending lists binaries that were staged but never uploaded.
func (a *Area) Pending(ctx context.Context) ([]*models.StagedAttachment, error) {
	return NewSQLiteRepository(a.db).ListByStatus(ctx, models.StagedPending)
}

// PurgeUploaded removes files and records of every uploaded binary and
// returns how many were removed.
func (a *Area) PurgeUploaded(ctx context.Context) (int, error) {
	var purged []*models.StagedAttachment
	err := dbx.WithTx(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := NewSQLiteRepository(tx)

		recs, err := repo.ListByStatus(ctx, models.StagedUploaded)
		if err != nil {
			return err
		}
		for _, rec := range recs {
			if err := repo.Delete(ctx, rec.MessageID); err != nil {
				return err
			}
		}
		purged = recs
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("purge uploaded: %w", err)
	}

	for _, rec := range purged {
		a.removeFile(ctx, rec.LocalPath)
	}
	return len(purged), nil
}

func (a *Area) removeFile(ctx context.Context, path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		a.logger.Warn(ctx, "failed to remove staged file", "path", path, "error", err)
	}
}
