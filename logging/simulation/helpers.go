package simulation

import (
	"context"

	"rundash/server/logging"
)

const (
	// EventInputDropped is emitted when a queued input misses its target frame
	// or carries an action the engine does not recognise.
	EventInputDropped logging.EventType = "simulation.input_dropped"
	// EventBacklogDiscarded is emitted when the fixed-step loop falls too far
	// behind wall time and throws away the excess backlog.
	EventBacklogDiscarded logging.EventType = "simulation.backlog_discarded"
)

// InputDroppedPayload captures why an input never reached an engine.
type InputDroppedPayload struct {
	Frame       uint64 `json:"frame"`
	CurrentTick uint64 `json:"currentTick"`
	Action      string `json:"action"`
	Reason      string `json:"reason"`
}

// BacklogDiscardedPayload captures how much simulated time was abandoned.
type BacklogDiscardedPayload struct {
	PendingTicks int `json:"pendingTicks"`
	MaxCatchup   int `json:"maxCatchup"`
}

// InputDropped publishes a warning for an input that could not be applied.
func InputDropped(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload InputDroppedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventInputDropped,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityWarn,
		Category: logging.CategorySimulation,
		Payload:  payload,
		Extra:    extra,
	})
}

// BacklogDiscarded publishes a warning when the loop clamps its catch-up work.
func BacklogDiscarded(ctx context.Context, pub logging.Publisher, tick uint64, payload BacklogDiscardedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventBacklogDiscarded,
		Tick:     tick,
		Severity: logging.SeverityWarn,
		Category: logging.CategorySimulation,
		Payload:  payload,
		Extra:    extra,
	})
}
