package ws

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"chat-gateway/internal/gateway"
	"chat-gateway/internal/identity"
	"chat-gateway/internal/observability"
	"chat-gateway/internal/tracing"
)

// Options bounds what a single connection may cost the gateway.
type Options struct {
	EventsPerSecond float64
	EventBurst      int
	SendBuffer      int
	MaxDecodeErrors int
}

func (o Options) withDefaults() Options {
	if o.EventsPerSecond <= 0 {
		o.EventsPerSecond = 20
	}
	if o.EventBurst <= 0 {
		o.EventBurst = 40
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = 64
	}
	if o.MaxDecodeErrors <= 0 {
		o.MaxDecodeErrors = 10
	}
	return o
}

// WebSocketHandler authenticates the handshake and runs the connection.
type WebSocketHandler struct {
	gateway *gateway.Gateway
	auth    identity.Authenticator
	auditor gateway.Auditor
	opts    Options
}

// NewWebSocketHandler constructs a WebSocketHandler. auditor may be nil.
func NewWebSocketHandler(gw *gateway.Gateway, auth identity.Authenticator, auditor gateway.Auditor, opts Options) *WebSocketHandler {
	return &WebSocketHandler{gateway: gw, auth: auth, auditor: auditor, opts: opts.withDefaults()}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle upgrades the connection and serves it until it closes.
func (h *WebSocketHandler) Handle(c *gin.Context) {
	requestID := observability.RequestIDFromRequest(c.Request)
	ctx := observability.WithRequestID(c.Request.Context(), requestID)
	ctx, span := tracing.Tracer("ws").Start(ctx, "ws.handshake")

	token := tokenFromRequest(c)
	claims, err := h.auth.Authenticate(token)
	if err != nil {
		err = fmt.Errorf("%w: %v", gateway.ErrAuthentication, err)
		log.Printf("websocket handshake refused request_id=%s ip=%s: %v", requestID, observability.IPFromRequest(c.Request), err)
		observability.IncWSEvent("chat", "auth_refused")
		if h.auditor != nil {
			h.auditor.Emit(ctx, "WARN", "websocket handshake refused", requestID, nil)
		}
		span.End()
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		span.End()
		return
	}
	info := ConnInfo{
		ConnID:      newConnID(),
		Subject:     claims.Subject,
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   requestID,
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}
	span.End()

	client := newClient(conn, info, h.opts)
	session := h.gateway.Connect(client, token, claims.Subject)

	observability.IncWSActive("chat")
	publishLifecycle(ctx, info, "", "ws_connect", "")
	log.Printf("websocket connected conn_id=%s subject=%s ip=%s", info.ConnID, info.Subject, info.IP)

	go client.writePump()
	reason := h.readPump(ctx, client, session)

	client.Close(reason)
	h.gateway.Disconnect(session)
	observability.DecWSActive("chat")
	publishLifecycle(ctx, info, session.UserID(), "ws_disconnect", reason)
}

// readPump feeds frames to the gateway until the socket fails or the client
// exceeds its rate or decode error budget. It returns the close reason.
func (h *WebSocketHandler) readPump(ctx context.Context, client *Client, session *gateway.Session) string {
	conn := client.conn
	conn.SetReadLimit(maxFrameSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	decodeErrors := 0
	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				publishLifecycle(ctx, client.info, session.UserID(), "ws_error", err.Error())
			}
			return err.Error()
		}

		if !client.allow() {
			log.Printf("websocket rate limit exceeded conn_id=%s", client.ID())
			return "rate limit exceeded"
		}

		if err := h.gateway.HandleFrame(ctx, session, frame); err != nil && errors.Is(err, gateway.ErrProtocol) {
			decodeErrors++
			if decodeErrors >= h.opts.MaxDecodeErrors {
				log.Printf("websocket decode error budget exhausted conn_id=%s", client.ID())
				return "too many malformed events"
			}
		}
	}
}
