package lifecycle

import (
	"context"

	"rundash/server/logging"
)

const (
	// EventRoomCreated is emitted when the registry materialises a new room.
	EventRoomCreated logging.EventType = "lifecycle.room_created"
	// EventRoomClosed is emitted when the last member leaves and the room is torn down.
	EventRoomClosed logging.EventType = "lifecycle.room_closed"
	// EventPlayerJoined is emitted when a player joins a room.
	EventPlayerJoined logging.EventType = "lifecycle.player_joined"
	// EventPlayerLeft is emitted when a player leaves a room or its socket drops.
	EventPlayerLeft logging.EventType = "lifecycle.player_left"
	// EventRunStarted is emitted when a room transitions into a live run.
	EventRunStarted logging.EventType = "lifecycle.run_started"
	// EventRunFinished is emitted when the last surviving participant crashes.
	EventRunFinished logging.EventType = "lifecycle.run_finished"
)

// RoomPayload carries room identity details.
type RoomPayload struct {
	RoomID    string `json:"roomId"`
	SessionID string `json:"sessionId,omitempty"`
}

// PlayerJoinedPayload captures join metadata.
type PlayerJoinedPayload struct {
	RoomID  string `json:"roomId"`
	Name    string `json:"name"`
	Members int    `json:"members"`
}

// PlayerLeftPayload captures the reason a player left.
type PlayerLeftPayload struct {
	RoomID  string `json:"roomId"`
	Reason  string `json:"reason"`
	Members int    `json:"members"`
}

// RunStartedPayload captures the parameters of a new run.
type RunStartedPayload struct {
	RoomID  string `json:"roomId"`
	Seed    uint32 `json:"seed"`
	Players int    `json:"players"`
}

// RunFinishedPayload captures the outcome of a completed run.
type RunFinishedPayload struct {
	RoomID   string  `json:"roomId"`
	Players  int     `json:"players"`
	Winner   string  `json:"winner"`
	Distance float64 `json:"distance"`
}

// RoomCreated publishes a room creation event.
func RoomCreated(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload RoomPayload, extra map[string]any) {
	publish(ctx, pub, EventRoomCreated, actor, payload, extra)
}

// RoomClosed publishes a room teardown event.
func RoomClosed(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload RoomPayload, extra map[string]any) {
	publish(ctx, pub, EventRoomClosed, actor, payload, extra)
}

// PlayerJoined publishes a player join event.
func PlayerJoined(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload PlayerJoinedPayload, extra map[string]any) {
	publish(ctx, pub, EventPlayerJoined, actor, payload, extra)
}

// PlayerLeft publishes a player departure event.
func PlayerLeft(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload PlayerLeftPayload, extra map[string]any) {
	publish(ctx, pub, EventPlayerLeft, actor, payload, extra)
}

// RunStarted publishes a run start event.
func RunStarted(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload RunStartedPayload, extra map[string]any) {
	publish(ctx, pub, EventRunStarted, actor, payload, extra)
}

// RunFinished publishes a run completion event.
func RunFinished(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload RunFinishedPayload, extra map[string]any) {
	publish(ctx, pub, EventRunFinished, actor, payload, extra)
}

func publish(ctx context.Context, pub logging.Publisher, eventType logging.EventType, actor logging.EntityRef, payload any, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     eventType,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryLifecycle,
		Payload:  payload,
		Extra:    extra,
	})
}
