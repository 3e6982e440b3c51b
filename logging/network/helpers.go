package network

import (
	"context"

	"rundash/server/logging"
)

const (
	// EventMalformedMessage is emitted when a client payload fails decoding.
	EventMalformedMessage logging.EventType = "network.malformed_message"
	// EventBroadcastFailed is emitted when a room write to a member socket fails.
	EventBroadcastFailed logging.EventType = "network.broadcast_failed"
	// EventUpgradeRejected is emitted when a websocket upgrade is refused.
	EventUpgradeRejected logging.EventType = "network.upgrade_rejected"
)

// MalformedMessagePayload captures decode failure details.
type MalformedMessagePayload struct {
	RoomID string `json:"roomId,omitempty"`
	Reason string `json:"reason"`
	Bytes  int    `json:"bytes"`
}

// BroadcastFailedPayload captures a failed fan-out write.
type BroadcastFailedPayload struct {
	RoomID      string `json:"roomId"`
	MessageType string `json:"messageType"`
	Error       string `json:"error"`
}

// UpgradeRejectedPayload captures why an upgrade request was refused.
type UpgradeRejectedPayload struct {
	Reason     string `json:"reason"`
	RemoteAddr string `json:"remoteAddr,omitempty"`
}

// MalformedMessage publishes a warning for an undecodable client payload.
func MalformedMessage(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload MalformedMessagePayload, extra map[string]any) {
	publish(ctx, pub, EventMalformedMessage, logging.SeverityWarn, actor, payload, extra)
}

// BroadcastFailed publishes a warning when a member socket rejects a write.
func BroadcastFailed(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload BroadcastFailedPayload, extra map[string]any) {
	publish(ctx, pub, EventBroadcastFailed, logging.SeverityWarn, actor, payload, extra)
}

// UpgradeRejected publishes a warning when a websocket upgrade is refused.
func UpgradeRejected(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload UpgradeRejectedPayload, extra map[string]any) {
	publish(ctx, pub, EventUpgradeRejected, logging.SeverityWarn, actor, payload, extra)
}

func publish(ctx context.Context, pub logging.Publisher, eventType logging.EventType, severity logging.Severity, actor logging.EntityRef, payload any, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     eventType,
		Actor:    actor,
		Severity: severity,
		Category: logging.CategoryNetwork,
		Payload:  payload,
		Extra:    extra,
	})
}
