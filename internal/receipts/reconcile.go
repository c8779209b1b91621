// Package receipts reconciles per-reader delivery and read markers into the
// single status a viewer sees for a message.
package receipts

import (
	"time"

	"chat-gateway/internal/models"
)

// Status is the coalesced status shown for a message.
type Status string

const (
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusRead      Status = "read"
)

// View is the status of one message as seen by one viewer.
type View struct {
	MessageID   string     `json:"message_id"`
	Status      Status     `json:"status"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
}

// Reconcile computes viewerID's view of msg from its receipt records.
//
// For the sender the message is read only once every other participant has
// read it. participants may be empty, in which case the readers that left a
// record stand in for the participant set.
func Reconcile(msg models.Message, viewerID string, participants []string, records []models.Receipt) View {
	byReader := partition(msg.ID, records)
	view := View{MessageID: msg.ID, Status: StatusSent}

	if viewerID != msg.SenderID {
		own, ok := byReader[viewerID]
		if !ok {
			return view
		}
		view.Status = statusOf(own.Status)
		view.DeliveredAt = own.DeliveredAt
		view.ReadAt = own.ReadAt
		return view
	}

	others := make(map[string]models.Receipt, len(byReader))
	for reader, rec := range byReader {
		if reader != msg.SenderID {
			others[reader] = rec
		}
	}
	if len(others) == 0 {
		return view
	}

	expected := make([]string, 0, len(participants))
	for _, p := range participants {
		if p != msg.SenderID {
			expected = append(expected, p)
		}
	}
	if len(expected) == 0 {
		for reader := range others {
			expected = append(expected, reader)
		}
	}

	allRead := true
	for _, reader := range expected {
		rec, ok := others[reader]
		if !ok || rec.Status != models.ReceiptRead {
			allRead = false
			break
		}
	}

	for _, rec := range others {
		view.DeliveredAt = earliest(view.DeliveredAt, rec.DeliveredAt)
		if allRead {
			view.ReadAt = latest(view.ReadAt, rec.ReadAt)
		}
	}
	if allRead {
		view.Status = StatusRead
	} else {
		view.Status = StatusDelivered
	}
	return view
}

// partition keeps the most advanced record per reader.
func partition(messageID string, records []models.Receipt) map[string]models.Receipt {
	byReader := make(map[string]models.Receipt, len(records))
	for _, rec := range records {
		if rec.MessageID != "" && rec.MessageID != messageID {
			continue
		}
		if current, ok := byReader[rec.ReaderID]; ok && current.Status.Rank() >= rec.Status.Rank() {
			continue
		}
		byReader[rec.ReaderID] = rec
	}
	return byReader
}

func statusOf(s models.ReceiptStatus) Status {
	switch s {
	case models.ReceiptRead:
		return StatusRead
	case models.ReceiptDelivered:
		return StatusDelivered
	default:
		return StatusSent
	}
}

func earliest(a, b *time.Time) *time.Time {
	if a == nil {
		return b
	}
	if b != nil && b.Before(*a) {
		return b
	}
	return a
}

func latest(a, b *time.Time) *time.Time {
	if a == nil {
		return b
	}
	if b != nil && b.After(*a) {
		return b
	}
	return a
}
