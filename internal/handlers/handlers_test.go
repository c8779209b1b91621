package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chat-gateway/internal/gateway"
	"chat-gateway/internal/middleware"
	"chat-gateway/internal/mocks"
	"chat-gateway/internal/models"
	"chat-gateway/internal/protocol"
	"chat-gateway/internal/receipts"
	"chat-gateway/internal/repositories"
)

func setupRouter(userID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if userID != "" {
			c.Set(middleware.UserIDKey, userID)
		}
		c.Next()
	})
	return r
}

func serve(router http.Handler, method, path string, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

type statusEnv struct {
	router   *gin.Engine
	convRepo *mocks.ConversationRepositoryMock
	msgRepo  *mocks.MessageRepositoryMock
	rcptRepo *mocks.ReceiptRepositoryMock
}

func newStatusEnv(userID string) *statusEnv {
	convRepo := new(mocks.ConversationRepositoryMock)
	msgRepo := new(mocks.MessageRepositoryMock)
	rcptRepo := new(mocks.ReceiptRepositoryMock)
	handler := NewMessageHandler(convRepo, msgRepo, receipts.NewService(rcptRepo, msgRepo, convRepo))

	router := setupRouter(userID)
	router.GET("/conversations/:conversation_id/messages/:message_id/status", handler.GetMessageStatus)
	return &statusEnv{router: router, convRepo: convRepo, msgRepo: msgRepo, rcptRepo: rcptRepo}
}

const statusPath = "/conversations/c1/messages/m1/status"

func TestGetMessageStatusForSender(t *testing.T) {
	env := newStatusEnv("alice")
	readAt := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	deliveredAt := readAt.Add(-time.Minute)

	env.convRepo.On("IsParticipant", mock.Anything, "c1", "alice").Return(true, nil).Once()
	env.msgRepo.On("GetMessage", mock.Anything, "m1").Return(models.Message{ID: "m1", ConversationID: "c1", SenderID: "alice"}, nil).Once()
	env.convRepo.On("Participants", mock.Anything, "c1").Return([]string{"alice", "bob", "carol"}, nil).Once()
	env.rcptRepo.On("ListForMessage", mock.Anything, "m1").Return([]models.Receipt{
		{MessageID: "m1", ReaderID: "bob", Status: models.ReceiptRead, DeliveredAt: &deliveredAt, ReadAt: &readAt},
		{MessageID: "m1", ReaderID: "carol", Status: models.ReceiptDelivered, DeliveredAt: &deliveredAt},
	}, nil).Once()

	rec := serve(env.router, http.MethodGet, statusPath, "")

	require.Equal(t, http.StatusOK, rec.Code)
	var view receipts.View
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&view))
	assert.Equal(t, "m1", view.MessageID)
	assert.Equal(t, receipts.StatusDelivered, view.Status)
	env.convRepo.AssertExpectations(t)
	env.msgRepo.AssertExpectations(t)
	env.rcptRepo.AssertExpectations(t)
}

func TestGetMessageStatusNotMember(t *testing.T) {
	env := newStatusEnv("mallory")
	env.convRepo.On("IsParticipant", mock.Anything, "c1", "mallory").Return(false, nil).Once()

	rec := serve(env.router, http.MethodGet, statusPath, "")

	assert.Equal(t, http.StatusForbidden, rec.Code)
	env.msgRepo.AssertNotCalled(t, "GetMessage", mock.Anything, mock.Anything)
}

func TestGetMessageStatusErrors(t *testing.T) {
	t.Run("membership lookup fails", func(t *testing.T) {
		env := newStatusEnv("alice")
		env.convRepo.On("IsParticipant", mock.Anything, "c1", "alice").Return(false, assert.AnError).Once()
		assert.Equal(t, http.StatusInternalServerError, serve(env.router, http.MethodGet, statusPath, "").Code)
	})

	t.Run("unknown message", func(t *testing.T) {
		env := newStatusEnv("alice")
		env.convRepo.On("IsParticipant", mock.Anything, "c1", "alice").Return(true, nil).Once()
		env.msgRepo.On("GetMessage", mock.Anything, "m1").Return(nil, repositories.ErrMessageNotFound).Once()
		assert.Equal(t, http.StatusNotFound, serve(env.router, http.MethodGet, statusPath, "").Code)
	})

	t.Run("message from another conversation", func(t *testing.T) {
		env := newStatusEnv("alice")
		env.convRepo.On("IsParticipant", mock.Anything, "c1", "alice").Return(true, nil).Once()
		env.msgRepo.On("GetMessage", mock.Anything, "m1").Return(models.Message{ID: "m1", ConversationID: "c2"}, nil).Once()
		assert.Equal(t, http.StatusBadRequest, serve(env.router, http.MethodGet, statusPath, "").Code)
	})

	t.Run("receipt store fails", func(t *testing.T) {
		env := newStatusEnv("alice")
		env.convRepo.On("IsParticipant", mock.Anything, "c1", "alice").Return(true, nil).Once()
		env.msgRepo.On("GetMessage", mock.Anything, "m1").Return(models.Message{ID: "m1", ConversationID: "c1", SenderID: "alice"}, nil).Once()
		env.convRepo.On("Participants", mock.Anything, "c1").Return([]string{"alice", "bob"}, nil).Once()
		env.rcptRepo.On("ListForMessage", mock.Anything, "m1").Return(nil, errors.New("db down")).Once()
		assert.Equal(t, http.StatusInternalServerError, serve(env.router, http.MethodGet, statusPath, "").Code)
	})
}

type presenceSet map[string]bool

func (p presenceSet) IsOnline(userID string) bool { return p[userID] }

func TestGetPresence(t *testing.T) {
	router := setupRouter("alice")
	router.GET("/presence/:user_id", NewPresenceHandler(presenceSet{"bob": true}).GetPresence)

	rec := serve(router, http.MethodGet, "/presence/bob", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user_id":"bob","online":true}`, rec.Body.String())

	rec = serve(router, http.MethodGet, "/presence/carol", "")
	assert.JSONEq(t, `{"user_id":"carol","online":false}`, rec.Body.String())
}

func setupRelayRouter(relay *mocks.BroadcasterMock, audit gateway.Auditor) *gin.Engine {
	router := setupRouter("")
	handler := NewRelayHandler(relay, audit)
	router.POST("/internal/messages", handler.PostMessage)
	router.POST("/internal/conversations/:conversation_id/updated", handler.PostConversationUpdated)
	return router
}

func TestRelayMessage(t *testing.T) {
	relay := new(mocks.BroadcasterMock)
	audit := new(mocks.AuditorMock)
	router := setupRelayRouter(relay, audit)

	createdAt := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	relay.On("RelayMessage", mock.Anything, models.Message{
		ID: "m1", ConversationID: "c1", SenderID: "alice", Content: "hi", CreatedAt: createdAt,
	}).Once()
	audit.On("Emit", mock.Anything, "INFO", "Message relayed", mock.AnythingOfType("string"), (*string)(nil)).Once()

	rec := serve(router, http.MethodPost, "/internal/messages",
		`{"id":"m1","conversation_id":"c1","sender_id":"alice","content":"hi","created_at":"2024-03-01T12:00:00Z"}`)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	relay.AssertExpectations(t)
	audit.AssertExpectations(t)
}

func TestRelayMessageValidation(t *testing.T) {
	relay := new(mocks.BroadcasterMock)
	router := setupRelayRouter(relay, nil)

	rec := serve(router, http.MethodPost, "/internal/messages", `{"id":"m1","content":"hi"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	relay.AssertNotCalled(t, "RelayMessage", mock.Anything, mock.Anything)
}

func TestRelayConversationUpdated(t *testing.T) {
	relay := new(mocks.BroadcasterMock)
	router := setupRelayRouter(relay, nil)

	relay.On("RelayConversationUpdate", mock.Anything, mock.MatchedBy(func(u protocol.ConversationUpdated) bool {
		return u.ConversationID == "c1" && u.TotalMessageCount == 7 && u.LastMessageID == "m7" && u.LastMessageAt != nil
	})).Once()

	rec := serve(router, http.MethodPost, "/internal/conversations/c1/updated",
		`{"total_message_count":7,"last_message_id":"m7","last_message_at":"2024-03-01T12:00:00Z"}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)

	rec = serve(router, http.MethodPost, "/internal/conversations/c1/updated", `{"total_message_count":-1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	relay.AssertExpectations(t)
}

func TestHealthHandler(t *testing.T) {
	router := setupRouter("")
	healthy := NewHealthHandler(map[string]Check{
		"database": func(context.Context) error { return nil },
	})
	failing := NewHealthHandler(map[string]Check{
		"database": func(context.Context) error { return nil },
		"identity": func(context.Context) error { return errors.New("connection refused") },
	})
	router.GET("/healthz", healthy.Live)
	router.GET("/readyz", healthy.Ready)
	router.GET("/readyz-failing", failing.Ready)

	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/healthz", "").Code)

	rec := serve(router, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","checks":{"database":"ok"}}`, rec.Body.String())

	rec = serve(router, http.MethodGet, "/readyz-failing", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"unavailable","checks":{"database":"ok","identity":"connection refused"}}`, rec.Body.String())
}

func TestDebugRoutes(t *testing.T) {
	audit := new(mocks.AuditorMock)
	router := setupRouter("alice")
	RegisterDebugRoutes(router, audit, nil, true)

	audit.On("Emit", mock.Anything, "INFO", "audit test", "req-1", mock.MatchedBy(func(uid *string) bool {
		return uid != nil && *uid == "alice"
	})).Once()

	req := httptest.NewRequest(http.MethodGet, "/debug/audit-test", nil)
	req.Header.Set("X-Request-ID", "req-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	audit.AssertExpectations(t)

	disabled := setupRouter("")
	RegisterDebugRoutes(disabled, audit, nil, false)
	assert.Equal(t, http.StatusNotFound, serve(disabled, http.MethodGet, "/debug/audit-test", "").Code)
}
