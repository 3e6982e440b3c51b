package sim

import "math"

// Action is a discrete input to one actor's engine.
type Action string

const (
	ActionJump      Action = "jump"
	ActionDuckStart Action = "duck_start"
	ActionDuckEnd   Action = "duck_end"
)

// ValidAction reports whether the tag names a known input.
func ValidAction(a Action) bool {
	switch a {
	case ActionJump, ActionDuckStart, ActionDuckEnd:
		return true
	}
	return false
}

// Engine is the per-actor deterministic state machine: physics integration,
// obstacle spawning, collision, and scoring for one runner. It performs no
// I/O and never consults the wall clock; the same seed and the same ordered
// inputs reproduce the exact same run, bit for bit. Engines are advanced
// synchronously one tick at a time by their coordinator on a single
// goroutine, so no locking happens here.
type Engine struct {
	seed uint32
	rng  *Rand

	actor     Actor
	obstacles []Obstacle
	clouds    []Cloud

	typeHistory []ObstacleType
	obstacleSeq uint64

	tick          uint64
	runningTimeMS float64
	speed         float64
	distance      float64
	groundOffset  int
	over          bool
}

// NewEngine builds an engine from the shared session seed. Every participant
// in a race gets one engine each, all from the same seed, so obstacle
// placement matches across peers by construction.
func NewEngine(seed uint32) *Engine {
	return &Engine{
		seed:  seed,
		rng:   NewRand(seed),
		actor: newActor(),
		speed: StartSpeed,
	}
}

// Seed returns the seed this engine was built from.
func (e *Engine) Seed() uint32 { return e.seed }

// Tick returns the number of completed steps.
func (e *Engine) Tick() uint64 { return e.tick }

// GameOver reports whether the run has ended. A stopped engine ignores all
// further inputs and steps; game over is terminal and never retried.
func (e *Engine) GameOver() bool { return e.over }

// Speed returns the current global speed.
func (e *Engine) Speed() float64 { return e.speed }

// Distance returns the raw distance accumulator.
func (e *Engine) Distance() float64 { return e.distance }

// Score derives the displayed score from distance.
func (e *Engine) Score() int {
	return int(math.Round(e.distance * distanceCoefficient))
}

// Apply feeds one discrete input into the actor. Inputs that are invalid in
// the current state (a jump while airborne, any input after game over) are
// silent no-ops by design: they are never queued, surfaced, or retried.
func (e *Engine) Apply(action Action) {
	if e.over {
		return
	}
	switch action {
	case ActionJump:
		e.actor.startJump(e.speed)
	case ActionDuckStart:
		e.actor.startDuck()
	case ActionDuckEnd:
		e.actor.endDuck()
	}
}

// Step advances the simulation by exactly one fixed tick. The pipeline order
// is part of the determinism contract: animation, actor physics, obstacle
// motion, ground scroll, spawning, collision, then scoring.
func (e *Engine) Step() {
	if e.over {
		return
	}
	const scale = 1.0
	const elapsedMS = TickMS

	e.tick++
	e.runningTimeMS += elapsedMS

	e.actor.updateAnimation(elapsedMS)
	e.actor.updateJump(scale)

	e.updateObstacles(scale, elapsedMS)
	e.scrollGround(scale)

	if e.runningTimeMS > clearTimeMS {
		e.maybeSpawn()
	}
	e.updateClouds(scale)

	if e.checkCollision() {
		e.over = true
		return
	}

	e.distance += e.speed * scale
	if e.speed < SpeedCap {
		e.speed += acceleration * scale
		if e.speed > SpeedCap {
			e.speed = SpeedCap
		}
	}
}

// updateObstacles moves every instance left and drops the ones that have
// fully scrolled off-screen. Motion preserves the ascending-x ordering:
// per-instance speed offsets are fixed at spawn and the flying type's
// magnitude is far smaller than any rolled gap.
func (e *Engine) updateObstacles(scale, elapsedMS float64) {
	kept := e.obstacles[:0]
	for i := range e.obstacles {
		if e.obstacles[i].update(e.speed, scale, elapsedMS) {
			kept = append(kept, e.obstacles[i])
		}
	}
	e.obstacles = kept
}

// scrollGround advances the ground/decoration offset by the same whole-pixel
// distance obstacles moved this tick. The two must match exactly or hitboxes
// drift against the drawn track.
func (e *Engine) scrollGround(scale float64) {
	delta := int(math.Floor(e.speed * scale))
	e.groundOffset = (e.groundOffset + delta) % CanvasWidth
}

// maybeSpawn attempts an obstacle spawn. Only one pending off-screen
// obstacle may exist, and a new spawn is gated until the previous obstacle
// plus its rolled gap has crossed the visible canvas width.
func (e *Engine) maybeSpawn() {
	if len(e.obstacles) == 0 {
		e.spawnObstacle()
		return
	}
	last := e.obstacles[len(e.obstacles)-1]
	if last.x+last.width+last.gap < CanvasWidth {
		e.spawnObstacle()
	}
}

// checkCollision runs the two-phase test against the nearest obstacle only.
// Outer bounds are inset one pixel as a forgiveness margin; if they overlap,
// every translated actor hitbox is tested against every translated obstacle
// sub-hitbox with half-open intervals, so touching edges never collide.
func (e *Engine) checkCollision() bool {
	if len(e.obstacles) == 0 {
		return false
	}
	nearest := &e.obstacles[0]

	actorBounds := e.actor.bounds().Inset(collisionInset)
	obstacleBounds := nearest.bounds().Inset(collisionInset)
	if !actorBounds.Overlaps(obstacleBounds) {
		return false
	}

	for _, ab := range e.actor.hitboxes() {
		actorBox := ab.Translate(ActorX, e.actor.y)
		for _, ob := range nearest.hitboxes {
			if actorBox.Overlaps(ob.Translate(nearest.x, nearest.y)) {
				return true
			}
		}
	}
	return false
}
