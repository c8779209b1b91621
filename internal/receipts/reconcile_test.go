package receipts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"chat-gateway/internal/models"
)

var (
	t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	t1 = t0.Add(time.Minute)
	t2 = t0.Add(2 * time.Minute)
)

func delivered(reader string, at time.Time) models.Receipt {
	return models.Receipt{MessageID: "m1", ReaderID: reader, Status: models.ReceiptDelivered, DeliveredAt: &at}
}

func read(reader string, deliveredAt, readAt time.Time) models.Receipt {
	return models.Receipt{MessageID: "m1", ReaderID: reader, Status: models.ReceiptRead, DeliveredAt: &deliveredAt, ReadAt: &readAt}
}

var m1 = models.Message{ID: "m1", ConversationID: "c1", SenderID: "u1"}

func TestSenderViewWithoutReceiptsIsSent(t *testing.T) {
	view := Reconcile(m1, "u1", []string{"u1", "u2"}, nil)
	assert.Equal(t, StatusSent, view.Status)
	assert.Nil(t, view.DeliveredAt)
}

func TestSenderViewIgnoresOwnReceipt(t *testing.T) {
	view := Reconcile(m1, "u1", []string{"u1", "u2"}, []models.Receipt{read("u1", t0, t0)})
	assert.Equal(t, StatusSent, view.Status)
}

func TestSenderViewOneOfTwoReadIsDelivered(t *testing.T) {
	records := []models.Receipt{read("u2", t0, t1), delivered("u3", t2)}
	view := Reconcile(m1, "u1", []string{"u1", "u2", "u3"}, records)
	assert.Equal(t, StatusDelivered, view.Status)
	assert.Equal(t, t0, *view.DeliveredAt)
	assert.Nil(t, view.ReadAt)
}

func TestSenderViewCountsParticipantsWithoutRecords(t *testing.T) {
	view := Reconcile(m1, "u1", []string{"u1", "u2", "u3"}, []models.Receipt{read("u2", t0, t1)})
	assert.Equal(t, StatusDelivered, view.Status)
}

func TestSenderViewAllReadIsRead(t *testing.T) {
	records := []models.Receipt{read("u2", t0, t1), read("u3", t0, t2)}
	view := Reconcile(m1, "u1", []string{"u1", "u2", "u3"}, records)
	assert.Equal(t, StatusRead, view.Status)
	assert.Equal(t, t2, *view.ReadAt)
}

func TestSenderViewWithoutParticipantListUsesReaders(t *testing.T) {
	view := Reconcile(m1, "u1", nil, []models.Receipt{read("u2", t0, t1)})
	assert.Equal(t, StatusRead, view.Status)

	view = Reconcile(m1, "u1", nil, []models.Receipt{read("u2", t0, t1), delivered("u3", t0)})
	assert.Equal(t, StatusDelivered, view.Status)
}

func TestRecipientView(t *testing.T) {
	records := []models.Receipt{read("u2", t0, t1), delivered("u3", t2)}

	view := Reconcile(m1, "u2", nil, records)
	assert.Equal(t, StatusRead, view.Status)
	assert.Equal(t, t1, *view.ReadAt)

	view = Reconcile(m1, "u3", nil, records)
	assert.Equal(t, StatusDelivered, view.Status)
	assert.Nil(t, view.ReadAt)

	view = Reconcile(m1, "u4", nil, records)
	assert.Equal(t, StatusSent, view.Status)
}

func TestDuplicateReaderKeepsMostAdvancedRecord(t *testing.T) {
	records := []models.Receipt{read("u2", t0, t1), delivered("u2", t2)}
	view := Reconcile(m1, "u2", nil, records)
	assert.Equal(t, StatusRead, view.Status)
}

func TestRecordsForOtherMessagesAreIgnored(t *testing.T) {
	other := read("u2", t0, t1)
	other.MessageID = "m2"
	view := Reconcile(m1, "u1", []string{"u1", "u2"}, []models.Receipt{other})
	assert.Equal(t, StatusSent, view.Status)
}
