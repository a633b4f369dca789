package ws

import (
	"time"

	"github.com/google/uuid"
)

func newConnID() string {
	return uuid.NewString()
}

// lifecyclePayload is the body of ws_events published for a connection.
func lifecyclePayload(info ConnInfo, event, reason string) map[string]interface{} {
	var duration int64
	if !info.ConnectedAt.IsZero() {
		duration = time.Since(info.ConnectedAt).Milliseconds()
	}
	return map[string]interface{}{
		"ws": map[string]interface{}{
			"event":       event,
			"conn_id":     info.ConnID,
			"duration_ms": duration,
			"reason":      reason,
		},
		"identity": map[string]interface{}{
			"user_id":   info.UserID,
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}
}
