package sim

import "math"

// Actor is the per-participant physics state. It is owned exclusively by one
// Engine and mutated only inside that engine's tick; everything callers see
// goes through value snapshots.
type Actor struct {
	y              int
	velocityY      float64
	jumping        bool
	ducking        bool
	speedDrop      bool
	reachedMin     bool
	groundY        int
	animTimerMS    float64
	animFrame      int
}

func newActor() Actor {
	return Actor{y: GroundY, groundY: GroundY}
}

// startJump begins a jump from the running state. A jump while airborne or
// while ducking is a silent no-op: invalid input is never queued or reported.
func (a *Actor) startJump(speed float64) {
	if a.jumping || a.ducking {
		return
	}
	a.jumping = true
	a.speedDrop = false
	a.reachedMin = false
	a.velocityY = initialJumpVelocity - speed/10
}

// startDuck either enters the ducking state on the ground or, mid-air,
// switches to the speed-drop fast fall that forces a duck on landing.
func (a *Actor) startDuck() {
	if a.jumping {
		a.speedDrop = true
		return
	}
	a.ducking = true
}

// endDuck leaves the ducking state and cancels a pending speed drop.
func (a *Actor) endDuck() {
	a.ducking = false
	a.speedDrop = false
}

// updateJump integrates one tick of vertical motion. scale is elapsed time in
// tick units, nominally 1.
func (a *Actor) updateJump(scale float64) {
	if !a.jumping {
		return
	}

	velocity := a.velocityY
	if a.speedDrop {
		velocity *= speedDropCoefficient
	}
	a.y += int(math.Round(velocity * scale))
	a.velocityY += gravity * scale

	// Cap the ascent so the apex never exceeds the configured jump height.
	apexY := a.groundY - maxJumpHeight
	if a.y < apexY {
		a.y = apexY
		if a.velocityY < 0 {
			a.velocityY = 0
		}
	}

	if a.y <= a.groundY-minJumpHeight || a.speedDrop {
		a.reachedMin = true
	}
	if a.reachedMin && a.velocityY > terminalVelocity {
		a.velocityY = terminalVelocity
	}

	if a.y >= a.groundY {
		a.land()
	}
}

// land snaps the actor to the ground and resolves the post-jump state. A
// speed drop converts into a duck, matching the mid-air duck_start intent.
func (a *Actor) land() {
	a.y = a.groundY
	a.velocityY = 0
	a.jumping = false
	a.reachedMin = false
	if a.speedDrop {
		a.speedDrop = false
		a.ducking = true
	}
}

// updateAnimation advances the run-cycle timer. The frame index only feeds
// the renderer snapshot; it never influences physics.
func (a *Actor) updateAnimation(elapsedMS float64) {
	a.animTimerMS += elapsedMS
	const frameMS = 1000.0 / 12.0
	for a.animTimerMS >= frameMS {
		a.animTimerMS -= frameMS
		a.animFrame = (a.animFrame + 1) % 2
	}
}

// bounds returns the outer collision box. Ducking swaps in the shorter,
// wider silhouette, offset down to the crouched posture.
func (a *Actor) bounds() Box {
	if a.ducking {
		return Box{
			X: ActorX,
			Y: a.y + actorDuckYShift,
			W: actorDuckWidth,
			H: actorHeight - actorDuckYShift,
		}
	}
	return Box{X: ActorX, Y: a.y, W: actorWidth, H: actorHeight}
}

// hitboxes returns the precise hitbox set for the current posture, still at
// the local origin.
func (a *Actor) hitboxes() []Box {
	if a.ducking {
		return actorDuckingHitboxes
	}
	return actorRunningHitboxes
}
