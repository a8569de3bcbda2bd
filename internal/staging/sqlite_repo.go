package staging

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/chatattach/internal/common"
	"github.com/dmitrijs2005/chatattach/internal/dbx"
	"github.com/dmitrijs2005/chatattach/internal/models"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const stagedColumns = `message_id, local_path, mime_type, size, status, attachment_id, created_at`

func (r *SQLiteRepository) Save(ctx context.Context, rec *models.StagedAttachment) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	if rec.Status == "" {
		rec.Status = models.StagedPending
	}

	query := `INSERT INTO staged_attachments (` + stagedColumns + `)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(message_id) DO UPDATE SET
				local_path = excluded.local_path,
				mime_type = excluded.mime_type,
				size = excluded.size,
				status = excluded.status,
				attachment_id = excluded.attachment_id,
				created_at = excluded.created_at
	`
	_, err := r.db.ExecContext(ctx, query,
		rec.MessageID, rec.LocalPath, rec.MimeType, rec.Size,
		string(rec.Status), rec.AttachmentID, rec.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to upsert staged attachment[%s]: %w", rec.MessageID, err)
	}
	return nil
}

func (r *SQLiteRepository) GetByMessageID(ctx context.Context, messageID string) (*models.StagedAttachment, error) {
	query := `SELECT ` + stagedColumns + ` FROM staged_attachments WHERE message_id = ?`
	rec, err := scanStaged(r.db.QueryRowContext(ctx, query, messageID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get staged attachment[%s]: %w", messageID, err)
	}
	return rec, nil
}

func (r *SQLiteRepository) ListByStatus(ctx context.Context, status models.StagedStatus) ([]*models.StagedAttachment, error) {
	query := `SELECT ` + stagedColumns + ` FROM staged_attachments WHERE status = ? ORDER BY created_at, message_id`
	rows, err := r.db.QueryContext(ctx, query, string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to list staged attachments: %w", err)
	}
	defer rows.Close()

	var result []*models.StagedAttachment
	for rows.Next() {
		rec, err := scanStaged(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan staged attachment row: %w", err)
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate staged attachment rows: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) MarkUploaded(ctx context.Context, messageID, attachmentID string) error {
	query := `UPDATE staged_attachments SET status = ?, attachment_id = ? WHERE message_id = ?`
	result, err := r.db.ExecContext(ctx, query, string(models.StagedUploaded), attachmentID, messageID)
	if err != nil {
		return fmt.Errorf("failed to mark staged attachment[%s] uploaded: %w", messageID, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, messageID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM staged_attachments WHERE message_id = ?`, messageID)
	if err != nil {
		return fmt.Errorf("failed to delete staged attachment[%s]: %w", messageID, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStaged(row rowScanner) (*models.StagedAttachment, error) {
	rec := &models.StagedAttachment{}
	var status string
	var created int64
	if err := row.Scan(&rec.MessageID, &rec.LocalPath, &rec.MimeType, &rec.Size,
		&status, &rec.AttachmentID, &created); err != nil {
		return nil, err
	}
	rec.Status = models.StagedStatus(status)
	rec.CreatedAt = time.UnixMilli(created)
	return rec, nil
}
