package sim

import (
	"fmt"
	"math"
)

// Obstacle is one live instance on the track. Created by the spawn pass,
// destroyed once fully scrolled off the left edge. The engine keeps its list
// ordered nearest-first (ascending x), so index 0 is always the next threat.
type Obstacle struct {
	id          string
	typ         ObstacleType
	x           int
	y           int
	width       int
	height      int
	gap         int
	speedOffset float64
	hitboxes    []Box
	numFrames   int
	frameRateMS float64
	frameTimer  float64
	frame       int
}

// update moves the obstacle left by the whole-pixel distance for this tick
// and advances its animation. Returns false once the obstacle is fully off
// the visible canvas and should be dropped.
func (o *Obstacle) update(speed, scale, elapsedMS float64) bool {
	o.x -= int(math.Floor((speed + o.speedOffset) * scale))
	if o.numFrames > 1 && o.frameRateMS > 0 {
		o.frameTimer += elapsedMS
		for o.frameTimer >= o.frameRateMS {
			o.frameTimer -= o.frameRateMS
			o.frame = (o.frame + 1) % o.numFrames
		}
	}
	return o.x+o.width > 0
}

// bounds returns the outer collision box.
func (o *Obstacle) bounds() Box {
	return Box{X: o.x, Y: o.y, W: o.width, H: o.height}
}

// spawnObstacle rolls a type, placement, and gap from the engine's random
// stream and appends the instance off the right edge of the canvas. The roll
// retries within the tick when the candidate type is gated by minimum speed
// or by the consecutive-duplication bound.
func (e *Engine) spawnObstacle() {
	var desc TypeDescriptor
	for {
		candidate := ObstacleTypes[e.rng.IntN(0, len(ObstacleTypes)-1)]
		desc, _ = Descriptor(candidate)
		if e.speed < desc.MinSpeed {
			continue
		}
		if e.duplicateRun(candidate) {
			continue
		}
		break
	}

	y := desc.YPositions[0]
	if len(desc.YPositions) > 1 {
		y = desc.YPositions[e.rng.IntN(0, len(desc.YPositions)-1)]
	}

	speedOffset := 0.0
	if desc.SpeedOffset != 0 {
		if e.rng.Float64() > 0.5 {
			speedOffset = desc.SpeedOffset
		} else {
			speedOffset = -desc.SpeedOffset
		}
	}

	e.obstacleSeq++
	obstacle := Obstacle{
		id:          fmt.Sprintf("obstacle-%d", e.obstacleSeq),
		typ:         desc.Type,
		x:           CanvasWidth,
		y:           y,
		width:       desc.Width,
		height:      desc.Height,
		gap:         e.rollGap(desc),
		speedOffset: speedOffset,
		hitboxes:    desc.Hitboxes,
		numFrames:   desc.NumFrames,
		frameRateMS: desc.FrameRateMS,
	}
	e.obstacles = append(e.obstacles, obstacle)

	e.typeHistory = append([]ObstacleType{desc.Type}, e.typeHistory...)
	if len(e.typeHistory) > maxTypeDuplication {
		e.typeHistory = e.typeHistory[:maxTypeDuplication]
	}
}

// duplicateRun reports whether spawning the candidate would extend a run of
// identical consecutive types past the configured maximum.
func (e *Engine) duplicateRun(candidate ObstacleType) bool {
	if len(e.typeHistory) < maxTypeDuplication {
		return false
	}
	for _, t := range e.typeHistory {
		if t != candidate {
			return false
		}
	}
	return true
}

// rollGap computes the pixel gap trailing a freshly spawned obstacle. Gaps
// shrink as the global speed rises but never drop below the type minimum or
// three obstacle widths; the upper bound adds up to half the minimum again.
func (e *Engine) rollGap(desc TypeDescriptor) int {
	width := float64(desc.Width)
	base := math.Max(width*(SpeedCap-e.speed), width*3)
	minGap := int(math.Round(base + float64(desc.MinGap)*gapCoefficient))
	maxGap := int(math.Round(float64(minGap) * maxGapMultiplier))
	return e.rng.IntN(minGap, maxGap)
}

// Cloud is a purely decorative background element. It still draws from the
// shared random stream, so cloud placement is part of the determinism
// contract even though clouds never collide.
type Cloud struct {
	x   int
	y   int
	gap int
}

// updateClouds scrolls the cloud layer at a fraction of the global speed and
// probabilistically spawns a new cloud once the last one has cleared its gap.
func (e *Engine) updateClouds(scale float64) {
	delta := int(math.Ceil(cloudSpeed * e.speed * scale))
	kept := e.clouds[:0]
	for _, c := range e.clouds {
		c.x -= delta
		if c.x+cloudWidth > 0 {
			kept = append(kept, c)
		}
	}
	e.clouds = kept

	if len(e.clouds) >= maxClouds {
		return
	}
	if len(e.clouds) == 0 || CanvasWidth-e.clouds[len(e.clouds)-1].x > e.clouds[len(e.clouds)-1].gap {
		if e.rng.Float64() < cloudFrequency {
			e.clouds = append(e.clouds, Cloud{
				x:   CanvasWidth,
				y:   e.rng.IntN(cloudMinY, cloudMaxY),
				gap: e.rng.IntN(cloudMinGap, cloudMaxGap),
			})
		}
	}
}
