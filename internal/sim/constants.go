package sim

// Fixed tuning for the runner. Every peer compiles the same numbers; the
// lockstep contract breaks if any of these differ between builds, which is
// why they are constants rather than runtime configuration.
const (
	// CanvasWidth and CanvasHeight bound the visible playfield in pixels.
	CanvasWidth  = 600
	CanvasHeight = 150

	// TickMS is the fixed simulation step (60 ticks per second).
	TickMS = 1000.0 / 60.0

	// ActorX is the fixed horizontal position of every runner.
	ActorX = 25

	// GroundY is the top of a grounded, running actor.
	GroundY = 93

	actorWidth      = 44
	actorHeight     = 47
	actorDuckWidth  = 59
	actorDuckYShift = 18

	gravity              = 0.6
	initialJumpVelocity  = -10.0
	speedDropCoefficient = 3.0
	terminalVelocity     = 12.0
	minJumpHeight        = 30
	maxJumpHeight        = 80

	// StartSpeed and SpeedCap bound the monotonic global speed.
	StartSpeed = 6.0
	SpeedCap   = 13.0

	acceleration = 0.001

	// clearTimeMS is the grace period before the first spawn attempt.
	clearTimeMS = 3000.0

	gapCoefficient     = 0.6
	maxGapMultiplier   = 1.5
	maxTypeDuplication = 2

	distanceCoefficient = 0.025

	cloudFrequency = 0.5
	maxClouds      = 6
	cloudWidth     = 46
	cloudSpeed     = 0.2
	cloudMinGap    = 100
	cloudMaxGap    = 400
	cloudMinY      = 30
	cloudMaxY      = 71

	collisionInset = 1
)

// actorRunningHitboxes is the precise hitbox set for a running or airborne
// actor, at a local origin.
var actorRunningHitboxes = []Box{
	{X: 22, Y: 0, W: 17, H: 16},
	{X: 1, Y: 18, W: 30, H: 9},
	{X: 10, Y: 35, W: 14, H: 8},
	{X: 1, Y: 24, W: 29, H: 5},
	{X: 5, Y: 30, W: 21, H: 4},
	{X: 9, Y: 34, W: 15, H: 4},
}

// actorDuckingHitboxes is the single wide, low box used while ducking.
var actorDuckingHitboxes = []Box{
	{X: 1, Y: 18, W: 55, H: 25},
}
