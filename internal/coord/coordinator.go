// Package coord runs one deterministic simulation engine per race
// participant and keeps them advancing in lockstep. Peers exchange only
// frame-tagged inputs; every coordinator that sees the same seed, the same
// participant set, and the same ordered input stream reconstructs the same
// sequence of world snapshots without any state transmission.
package coord

import (
	"context"

	"rundash/server/internal/sim"
	"rundash/server/logging"
	logsim "rundash/server/logging/simulation"
)

// InputDelayFrames is the fixed scheduling delay applied to local inputs.
// Tagging an input with a future frame gives every peer the same window to
// receive and apply it, absorbing network jitter without rollback.
const InputDelayFrames = 3

// InputEvent is one frame-tagged action for one participant. Transient: it
// is consumed exactly once, at its target frame.
type InputEvent struct {
	Frame    uint64     `json:"frame"`
	Action   sim.Action `json:"action"`
	PlayerID string     `json:"playerId"`
}

// ParticipantInfo names a race member at session start.
type ParticipantInfo struct {
	ID   string
	Name string
	Skin string
}

type participant struct {
	info     ParticipantInfo
	engine   *sim.Engine
	alive    bool
	score    int
	distance float64
}

// Coordinator owns the per-participant engines for one race session. It is
// advanced on a single goroutine by whatever drives the frame cadence; none
// of its methods are safe for concurrent use, and none of them needs to be.
type Coordinator struct {
	seed    uint32
	frame   uint64
	pending map[uint64][]InputEvent

	order []string
	byID  map[string]*participant

	publisher logging.Publisher
}

// New builds a coordinator with one engine per participant, all from the
// shared session seed.
func New(seed uint32, infos []ParticipantInfo) *Coordinator {
	c := &Coordinator{
		seed:    seed,
		pending: make(map[uint64][]InputEvent),
		byID:    make(map[string]*participant, len(infos)),
	}
	for _, info := range infos {
		if _, exists := c.byID[info.ID]; exists {
			continue
		}
		c.order = append(c.order, info.ID)
		c.byID[info.ID] = &participant{
			info:   info,
			engine: sim.NewEngine(seed),
			alive:  true,
		}
	}
	return c
}

// SetPublisher attaches an event publisher for dropped-input diagnostics.
// A nil publisher keeps the coordinator silent.
func (c *Coordinator) SetPublisher(pub logging.Publisher) {
	c.publisher = pub
}

// Seed returns the shared session seed.
func (c *Coordinator) Seed() uint32 { return c.seed }

// Frame returns the shared frame counter.
func (c *Coordinator) Frame() uint64 { return c.frame }

// QueueInput buffers a frame-tagged event until the simulation reaches its
// target frame. Events tagged at or before the current frame can never fire;
// they are dropped, and the resulting divergence between peers is neither
// detected nor corrected here. That is the acknowledged cost of relay-based
// lockstep without reconciliation.
func (c *Coordinator) QueueInput(ev InputEvent) {
	if !sim.ValidAction(ev.Action) {
		c.reportDrop(ev, "unknown action")
		return
	}
	if ev.Frame <= c.frame {
		c.reportDrop(ev, "frame already simulated")
		return
	}
	c.pending[ev.Frame] = append(c.pending[ev.Frame], ev)
}

func (c *Coordinator) reportDrop(ev InputEvent, reason string) {
	if c.publisher == nil {
		return
	}
	logsim.InputDropped(context.Background(), c.publisher, c.frame,
		logging.EntityRef{ID: ev.PlayerID, Kind: logging.EntityKindParticipant},
		logsim.InputDroppedPayload{
			Frame:       ev.Frame,
			CurrentTick: c.frame,
			Action:      string(ev.Action),
			Reason:      reason,
		}, nil)
}

// QueueLocal schedules a local action at the standard input delay and
// returns the tagged event so the caller can forward the identical payload
// to the relay. Local and remote copies of the event land on the same frame
// on every peer.
func (c *Coordinator) QueueLocal(playerID string, action sim.Action) (InputEvent, bool) {
	if !sim.ValidAction(action) {
		return InputEvent{}, false
	}
	ev := InputEvent{
		Frame:    c.frame + InputDelayFrames,
		Action:   action,
		PlayerID: playerID,
	}
	c.QueueInput(ev)
	return ev, true
}

// Tick advances the shared frame: due inputs are released to their owners'
// engines, every still-alive engine steps exactly once, and per-participant
// standings are recomputed. Participants whose own engine reports game over
// are marked dead the same tick.
func (c *Coordinator) Tick() {
	c.frame++

	if due, ok := c.pending[c.frame]; ok {
		for _, ev := range due {
			p, known := c.byID[ev.PlayerID]
			if !known || !p.alive {
				continue
			}
			p.engine.Apply(ev.Action)
		}
		delete(c.pending, c.frame)
	}

	for _, id := range c.order {
		p := c.byID[id]
		if !p.alive {
			continue
		}
		p.engine.Step()
		p.score = p.engine.Score()
		p.distance = p.engine.Distance()
		if p.engine.GameOver() {
			p.alive = false
		}
	}
}

// MarkDead terminates a participant out of band, carrying the final
// standings reported by the remote peer instead of the local simulation of
// that participant.
func (c *Coordinator) MarkDead(playerID string, score int, distance float64) {
	p, ok := c.byID[playerID]
	if !ok || !p.alive {
		return
	}
	p.alive = false
	p.score = score
	p.distance = distance
}

// Finished reports whether the session has ended: no participant alive.
func (c *Coordinator) Finished() bool {
	for _, id := range c.order {
		if c.byID[id].alive {
			return false
		}
	}
	return true
}

// referenceEngine picks the engine whose world view backs the snapshot. All
// engines share the seed so their obstacle streams are interchangeable; the
// first still-alive one keeps the track moving after others have crashed.
func (c *Coordinator) referenceEngine() *sim.Engine {
	var fallback *sim.Engine
	for _, id := range c.order {
		p := c.byID[id]
		if fallback == nil {
			fallback = p.engine
		}
		if p.alive {
			return p.engine
		}
	}
	return fallback
}

// WorldSnapshot is the aggregate per-tick view consumed by the renderer.
type WorldSnapshot struct {
	Frame        uint64                 `json:"frame"`
	Seed         uint32                 `json:"seed"`
	Speed        float64                `json:"speed"`
	GroundOffset int                    `json:"groundOffset"`
	Finished     bool                   `json:"finished"`
	Obstacles    []sim.ObstacleSnapshot `json:"obstacles"`
	Clouds       []sim.CloudSnapshot    `json:"clouds"`
	Participants []ParticipantSnapshot  `json:"participants"`
}

// ParticipantSnapshot is one participant's standing and physics state.
type ParticipantSnapshot struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Skin      string  `json:"skin"`
	Y         int     `json:"y"`
	VelocityY float64 `json:"velocityY"`
	Jumping   bool    `json:"jumping"`
	Ducking   bool    `json:"ducking"`
	Alive     bool    `json:"alive"`
	Score     int     `json:"score"`
	Distance  float64 `json:"distance"`
}

// Snapshot rebuilds the aggregate view from scratch. Nothing in it aliases
// live engine state.
func (c *Coordinator) Snapshot() WorldSnapshot {
	snap := WorldSnapshot{
		Frame:        c.frame,
		Seed:         c.seed,
		Finished:     c.Finished(),
		Participants: make([]ParticipantSnapshot, 0, len(c.order)),
	}

	if ref := c.referenceEngine(); ref != nil {
		world := ref.Snapshot()
		snap.Speed = world.Speed
		snap.GroundOffset = world.GroundOffset
		snap.Obstacles = world.Obstacles
		snap.Clouds = world.Clouds
	}

	for _, id := range c.order {
		p := c.byID[id]
		actor := p.engine.ActorSnapshot()
		snap.Participants = append(snap.Participants, ParticipantSnapshot{
			ID:        p.info.ID,
			Name:      p.info.Name,
			Skin:      p.info.Skin,
			Y:         actor.Y,
			VelocityY: actor.VelocityY,
			Jumping:   actor.Jumping,
			Ducking:   actor.Ducking,
			Alive:     p.alive,
			Score:     p.score,
			Distance:  p.distance,
		})
	}
	return snap
}
