package models

import "time"

// ReceiptStatus is the persisted per-reader state of a message.
type ReceiptStatus string

const (
	ReceiptDelivered ReceiptStatus = "delivered"
	ReceiptRead      ReceiptStatus = "read"
)

// Rank orders statuses so that a later status never compares lower.
func (s ReceiptStatus) Rank() int {
	switch s {
	case ReceiptRead:
		return 2
	case ReceiptDelivered:
		return 1
	default:
		return 0
	}
}

// Receipt is the delivery/read marker for one (message, reader) pair.
type Receipt struct {
	MessageID   string        `db:"message_id" json:"message_id"`
	ReaderID    string        `db:"reader_id" json:"reader_id"`
	Status      ReceiptStatus `db:"status" json:"status"`
	DeliveredAt *time.Time    `db:"delivered_at" json:"delivered_at,omitempty"`
	ReadAt      *time.Time    `db:"read_at" json:"read_at,omitempty"`
}
