package coord

import (
	"context"
	"math"

	"rundash/server/internal/sim"
	logsim "rundash/server/logging/simulation"
)

// DefaultCatchupMaxTicks bounds how many simulation steps a single Advance
// call may drain. A long stall (tab in background, debugger pause) otherwise
// turns into a burst of hundreds of ticks.
const DefaultCatchupMaxTicks = 10

// Loop decouples simulation cadence from render cadence: callers feed it
// wall-clock elapsed time, it drains whole fixed-size ticks from an
// accumulator. Simulation progress is therefore exactly reproducible no
// matter how irregular the caller's callback timing is.
type Loop struct {
	coordinator *Coordinator
	accumulator float64
	maxCatchup  int
	afterTick   func(WorldSnapshot)
}

// NewLoop wraps a coordinator with a fixed-step accumulator. afterTick may
// be nil; when set it observes the snapshot after every drained tick.
func NewLoop(c *Coordinator, maxCatchup int, afterTick func(WorldSnapshot)) *Loop {
	if maxCatchup <= 0 {
		maxCatchup = DefaultCatchupMaxTicks
	}
	return &Loop{coordinator: c, maxCatchup: maxCatchup, afterTick: afterTick}
}

// Coordinator returns the wrapped coordinator.
func (l *Loop) Coordinator() *Coordinator { return l.coordinator }

// Advance accumulates elapsed wall-clock milliseconds and drains them in
// whole tick-sized steps, returning the number of ticks executed. Residual
// time below one tick stays in the accumulator. When the clamp truncates a
// backlog the excess is discarded rather than carried, so a stalled client
// falls behind instead of fast-forwarding forever.
func (l *Loop) Advance(elapsedMS float64) int {
	if elapsedMS < 0 {
		elapsedMS = 0
	}
	l.accumulator += elapsedMS

	ticks := 0
	for l.accumulator >= sim.TickMS && ticks < l.maxCatchup {
		l.accumulator -= sim.TickMS
		l.coordinator.Tick()
		if l.afterTick != nil {
			l.afterTick(l.coordinator.Snapshot())
		}
		ticks++
	}
	if l.accumulator >= sim.TickMS {
		if pub := l.coordinator.publisher; pub != nil {
			logsim.BacklogDiscarded(context.Background(), pub, l.coordinator.frame,
				logsim.BacklogDiscardedPayload{
					PendingTicks: int(math.Floor(l.accumulator / sim.TickMS)),
					MaxCatchup:   l.maxCatchup,
				}, nil)
		}
		l.accumulator = 0
	}
	return ticks
}
