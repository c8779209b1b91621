package ws

import (
	"context"
	"time"

	"chat-gateway/internal/observability"
)

const wsRoutingKey = "ws_events.chat"

type ConnInfo struct {
	ConnID      string
	Subject     string
	DeviceID    string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}

// publishLifecycle reports a connect, disconnect or error for the connection.
func publishLifecycle(ctx context.Context, info ConnInfo, userID, event, reason string) {
	observability.IncWSEvent("chat", event)
	_ = observability.PublishEvent(ctx, wsRoutingKey, observability.EventEnvelope{
		EventType: "ws_events",
		EventName: event,
		Payload: map[string]interface{}{
			"ws": map[string]interface{}{
				"kind":        "chat",
				"event":       event,
				"conn_id":     info.ConnID,
				"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
				"reason":      reason,
			},
			"identity": map[string]interface{}{
				"subject":   info.Subject,
				"user_id":   userID,
				"device_id": info.DeviceID,
				"ip":        info.IP,
			},
		},
	}, observability.BuildHeaders(info.RequestID, info.TraceID))
}
