package repositories

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"chat-gateway/internal/models"
)

// ReceiptRepository persists per-reader delivery and read markers.
type ReceiptRepository interface {
	ListForMessage(ctx context.Context, messageID string) ([]models.Receipt, error)
	MarkDelivered(ctx context.Context, messageID string, readerID string, at time.Time) (bool, error)
	MarkRead(ctx context.Context, messageID string, readerID string, at time.Time) (bool, error)
}

// ReceiptRepo is a sqlx implementation of ReceiptRepository.
type ReceiptRepo struct {
	db *sqlx.DB
}

// NewReceiptRepo constructs a ReceiptRepo.
func NewReceiptRepo(db *sqlx.DB) *ReceiptRepo {
	return &ReceiptRepo{db: db}
}

// ListForMessage returns every receipt recorded for a message.
func (r *ReceiptRepo) ListForMessage(ctx context.Context, messageID string) ([]models.Receipt, error) {
	var receipts []models.Receipt
	err := r.db.SelectContext(ctx, &receipts, r.db.Rebind(`SELECT message_id, reader_id, status, delivered_at, read_at
        FROM message_receipts WHERE message_id=? ORDER BY reader_id`), messageID)
	return receipts, err
}

// MarkDelivered inserts a delivered receipt unless one already exists.
// It reports whether a row was written.
func (r *ReceiptRepo) MarkDelivered(ctx context.Context, messageID string, readerID string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`INSERT INTO message_receipts (message_id, reader_id, status, delivered_at)
        VALUES (?, ?, ?, ?)
        ON CONFLICT (message_id, reader_id) DO NOTHING`), messageID, readerID, string(models.ReceiptDelivered), at)
	if err != nil {
		return false, err
	}
	return affected(res)
}

// MarkRead moves the receipt to read, backfilling delivered_at.
// An already-read receipt is left untouched and false is returned.
func (r *ReceiptRepo) MarkRead(ctx context.Context, messageID string, readerID string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`INSERT INTO message_receipts (message_id, reader_id, status, delivered_at, read_at)
        VALUES (?, ?, ?, ?, ?)
        ON CONFLICT (message_id, reader_id) DO UPDATE SET
            status = EXCLUDED.status,
            read_at = EXCLUDED.read_at,
            delivered_at = COALESCE(message_receipts.delivered_at, EXCLUDED.delivered_at)
        WHERE message_receipts.status <> ?`), messageID, readerID, string(models.ReceiptRead), at, at, string(models.ReceiptRead))
	if err != nil {
		return false, err
	}
	return affected(res)
}
