package sim

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"testing"
)

const scenarioSeed = 12345

// runUntilGameOver steps the engine up to maxTicks, invoking observe after
// every tick, and returns the tick at which the run ended (0 if it never
// did).
func runUntilGameOver(t *testing.T, e *Engine, maxTicks int, observe func(Snapshot)) uint64 {
	t.Helper()
	for i := 0; i < maxTicks; i++ {
		e.Step()
		if observe != nil {
			observe(e.Snapshot())
		}
		if e.GameOver() {
			return e.Tick()
		}
	}
	return 0
}

func TestIdleRunEndsOnFirstObstacle(t *testing.T) {
	e := NewEngine(scenarioSeed)

	sawObstacles := false
	overTick := runUntilGameOver(t, e, 1000, func(snap Snapshot) {
		if snap.Actor.Jumping || snap.Actor.Y != GroundY {
			t.Fatalf("actor airborne at tick %d without input", snap.Tick)
		}
		if float64(snap.Tick)*TickMS <= clearTimeMS && len(snap.Obstacles) > 0 {
			t.Fatalf("obstacle spawned during clear time at tick %d", snap.Tick)
		}
		if float64(snap.Tick)*TickMS > clearTimeMS+500 && len(snap.Obstacles) == 0 && !snap.GameOver {
			t.Fatalf("no obstacle on track at tick %d", snap.Tick)
		}
		if len(snap.Obstacles) > 0 {
			sawObstacles = true
		}
	})

	if !sawObstacles {
		t.Fatal("track never produced an obstacle")
	}
	if overTick == 0 {
		t.Fatal("idle run should collide within 1000 ticks")
	}
	// The frozen state still shows the precise overlap that ended the run.
	if !e.checkCollision() {
		t.Fatal("game over reported without a precise hitbox overlap")
	}
}

func TestJumpArc(t *testing.T) {
	e := NewEngine(scenarioSeed)

	e.Apply(ActionJump)
	e.Step()
	if snap := e.Snapshot(); !snap.Actor.Jumping {
		t.Fatal("actor not airborne on the tick after a grounded jump")
	}

	apexLimit := GroundY - maxJumpHeight
	landed := false
	for i := 0; i < 200; i++ {
		e.Step()
		snap := e.Snapshot()
		if snap.Actor.Y < apexLimit {
			t.Fatalf("jump exceeded max height: y=%d limit=%d", snap.Actor.Y, apexLimit)
		}
		if !snap.Actor.Jumping {
			if snap.Actor.Y != GroundY {
				t.Fatalf("landed away from ground: y=%d", snap.Actor.Y)
			}
			landed = true
			break
		}
	}
	if !landed {
		t.Fatal("jump never returned to ground")
	}
}

func TestJumpWhileAirborneIsSilentNoOp(t *testing.T) {
	e := NewEngine(scenarioSeed)

	e.Apply(ActionJump)
	e.Step()
	velocityBefore := e.actor.velocityY

	e.Apply(ActionJump)
	if e.actor.velocityY != velocityBefore {
		t.Fatal("mid-air jump altered velocity")
	}
}

func TestMidAirDuckForcesSpeedDropThenDuck(t *testing.T) {
	e := NewEngine(scenarioSeed)

	e.Apply(ActionJump)
	for i := 0; i < 5; i++ {
		e.Step()
	}
	if !e.actor.jumping {
		t.Fatal("actor should still be airborne")
	}

	e.Apply(ActionDuckStart)
	if !e.actor.speedDrop {
		t.Fatal("mid-air duck_start should trigger a speed drop")
	}
	if e.actor.ducking {
		t.Fatal("actor must not duck while airborne")
	}

	for i := 0; i < 100 && e.actor.jumping; i++ {
		e.Step()
	}
	if e.actor.jumping {
		t.Fatal("speed drop never landed")
	}
	if !e.actor.ducking {
		t.Fatal("speed drop should force a duck on landing")
	}

	e.Apply(ActionDuckEnd)
	if e.actor.ducking || e.actor.speedDrop {
		t.Fatal("duck_end should clear the crouch")
	}
}

func TestJumpingAndDuckingMutuallyExclusive(t *testing.T) {
	e := NewEngine(987)
	script := NewRand(4242)

	for i := 0; i < 600 && !e.GameOver(); i++ {
		switch script.IntN(0, 5) {
		case 0:
			e.Apply(ActionJump)
		case 1:
			e.Apply(ActionDuckStart)
		case 2:
			e.Apply(ActionDuckEnd)
		}
		e.Step()
		if e.actor.jumping && e.actor.ducking {
			t.Fatalf("jumping and ducking both true at tick %d", e.Tick())
		}
	}
}

func TestSpeedIsMonotonicAndCapped(t *testing.T) {
	e := NewEngine(555)
	prev := e.Speed()
	for i := 0; i < 1000 && !e.GameOver(); i++ {
		e.Step()
		if e.Speed() < prev {
			t.Fatalf("speed decreased at tick %d: %v -> %v", e.Tick(), prev, e.Speed())
		}
		if e.Speed() > SpeedCap {
			t.Fatalf("speed exceeded cap at tick %d: %v", e.Tick(), e.Speed())
		}
		prev = e.Speed()
	}

	e.speed = SpeedCap - 0.0005
	e.over = false
	e.obstacles = nil
	e.Step()
	e.Step()
	if e.Speed() != SpeedCap {
		t.Fatalf("speed should settle exactly at the cap, got %v", e.Speed())
	}
}

func TestObstacleDuplicationBound(t *testing.T) {
	e := NewEngine(31337)
	e.speed = 10 // every catalog type is eligible

	types := make([]ObstacleType, 0, 80)
	for i := 0; i < 80; i++ {
		e.spawnObstacle()
		types = append(types, e.obstacles[len(e.obstacles)-1].typ)
	}

	run := 1
	for i := 1; i < len(types); i++ {
		if types[i] == types[i-1] {
			run++
		} else {
			run = 1
		}
		if run > maxTypeDuplication {
			t.Fatalf("type %s spawned %d times in a row", types[i], run)
		}
	}
}

func TestObstacleListInvariants(t *testing.T) {
	e := NewEngine(2024)
	for i := 0; i < 1500 && !e.GameOver(); i++ {
		e.Step()

		pending := 0
		for j := range e.obstacles {
			if j > 0 && e.obstacles[j-1].x > e.obstacles[j].x {
				t.Fatalf("obstacle list out of order at tick %d", e.Tick())
			}
			if e.obstacles[j].x+e.obstacles[j].width > CanvasWidth {
				pending++
			}
		}
		if pending > 1 {
			t.Fatalf("%d off-screen pending obstacles at tick %d", pending, e.Tick())
		}
	}
}

func TestMinimumSpeedGatesFlyingType(t *testing.T) {
	e := NewEngine(60)
	desc, _ := Descriptor(ObstaclePterodactyl)

	for i := 0; i < 60; i++ {
		e.spawnObstacle()
		newest := e.obstacles[len(e.obstacles)-1]
		if newest.typ == ObstaclePterodactyl && e.speed < desc.MinSpeed {
			t.Fatalf("flying obstacle spawned below its minimum speed (%v < %v)", e.speed, desc.MinSpeed)
		}
	}
}

func TestGameOverIsTerminal(t *testing.T) {
	e := NewEngine(scenarioSeed)
	overTick := runUntilGameOver(t, e, 2000, nil)
	if overTick == 0 {
		t.Fatal("run never ended")
	}

	before := e.Snapshot()
	e.Apply(ActionJump)
	e.Step()
	after := e.Snapshot()

	if after.Tick != before.Tick {
		t.Fatal("stopped engine advanced its tick")
	}
	if after.Actor != before.Actor {
		t.Fatal("stopped engine mutated actor state")
	}
	if len(after.Obstacles) != len(before.Obstacles) {
		t.Fatal("stopped engine mutated obstacle list")
	}
}

func TestSnapshotIsValueCopy(t *testing.T) {
	e := NewEngine(scenarioSeed)
	for i := 0; i < 250; i++ {
		e.Step()
	}

	snap := e.Snapshot()
	if len(snap.Obstacles) == 0 {
		t.Fatal("expected obstacles on track")
	}
	snap.Obstacles[0].X = -9999
	snap.Actor.Y = -9999

	fresh := e.Snapshot()
	if fresh.Obstacles[0].X == -9999 || fresh.Actor.Y == -9999 {
		t.Fatal("snapshot mutation leaked into engine state")
	}
}

// replayChecksum drives a scripted run and hashes every per-tick snapshot,
// in the same spirit as a lockstep client re-simulating a race.
func replayChecksum(t *testing.T, seed uint32, ticks int, script map[uint64]Action) (string, uint64) {
	t.Helper()
	e := NewEngine(seed)
	hasher := sha256.New()
	overTick := uint64(0)

	for i := 0; i < ticks; i++ {
		if action, ok := script[e.Tick()]; ok {
			e.Apply(action)
		}
		e.Step()
		data, err := json.Marshal(e.Snapshot())
		if err != nil {
			t.Fatalf("marshal snapshot: %v", err)
		}
		hasher.Write(data)
		if e.GameOver() && overTick == 0 {
			overTick = e.Tick()
		}
	}
	return hex.EncodeToString(hasher.Sum(nil)), overTick
}

func TestReplayDeterminism(t *testing.T) {
	script := map[uint64]Action{
		30:  ActionJump,
		120: ActionDuckStart,
		140: ActionDuckEnd,
		200: ActionJump,
		260: ActionJump,
		261: ActionDuckStart,
		340: ActionDuckEnd,
		400: ActionJump,
	}

	firstSum, firstOver := replayChecksum(t, scenarioSeed, 1200, script)
	secondSum, secondOver := replayChecksum(t, scenarioSeed, 1200, script)

	if firstSum != secondSum {
		t.Fatalf("replays diverged: %s != %s", firstSum, secondSum)
	}
	if firstOver != secondOver {
		t.Fatalf("game-over tick diverged: %d != %d", firstOver, secondOver)
	}

	otherSum, _ := replayChecksum(t, scenarioSeed+1, 1200, script)
	if otherSum == firstSum {
		t.Fatal("different seed reproduced the identical run")
	}
}
