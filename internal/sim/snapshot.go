package sim

// Snapshot is the per-tick value copy handed to renderers and coordinators.
// Engine internals are immutable to callers: every access returns fresh
// copies, never references into live state.
type Snapshot struct {
	Tick         uint64             `json:"tick"`
	Seed         uint32             `json:"seed"`
	Speed        float64            `json:"speed"`
	Score        int                `json:"score"`
	Distance     float64            `json:"distance"`
	GroundOffset int                `json:"groundOffset"`
	Running      bool               `json:"running"`
	GameOver     bool               `json:"gameOver"`
	Actor        ActorSnapshot      `json:"actor"`
	Obstacles    []ObstacleSnapshot `json:"obstacles"`
	Clouds       []CloudSnapshot    `json:"clouds"`
}

// ActorSnapshot is the value copy of one actor's physics state.
type ActorSnapshot struct {
	X         int     `json:"x"`
	Y         int     `json:"y"`
	VelocityY float64 `json:"velocityY"`
	Jumping   bool    `json:"jumping"`
	Ducking   bool    `json:"ducking"`
	SpeedDrop bool    `json:"speedDrop"`
	Frame     int     `json:"frame"`
}

// ObstacleSnapshot is the value copy of one live obstacle.
type ObstacleSnapshot struct {
	ID     string       `json:"id"`
	Type   ObstacleType `json:"type"`
	X      int          `json:"x"`
	Y      int          `json:"y"`
	Width  int          `json:"width"`
	Height int          `json:"height"`
	Frame  int          `json:"frame"`
}

// CloudSnapshot is the value copy of one decorative cloud.
type CloudSnapshot struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Snapshot builds the current value copy.
func (e *Engine) Snapshot() Snapshot {
	snap := Snapshot{
		Tick:         e.tick,
		Seed:         e.seed,
		Speed:        e.speed,
		Score:        e.Score(),
		Distance:     e.distance,
		GroundOffset: e.groundOffset,
		Running:      !e.over,
		GameOver:     e.over,
		Actor:        e.ActorSnapshot(),
		Obstacles:    e.ObstacleSnapshots(),
		Clouds:       make([]CloudSnapshot, 0, len(e.clouds)),
	}
	for _, c := range e.clouds {
		snap.Clouds = append(snap.Clouds, CloudSnapshot{X: c.x, Y: c.y})
	}
	return snap
}

// ActorSnapshot copies the actor's physics state.
func (e *Engine) ActorSnapshot() ActorSnapshot {
	return ActorSnapshot{
		X:         ActorX,
		Y:         e.actor.y,
		VelocityY: e.actor.velocityY,
		Jumping:   e.actor.jumping,
		Ducking:   e.actor.ducking,
		SpeedDrop: e.actor.speedDrop,
		Frame:     e.actor.animFrame,
	}
}

// ObstacleSnapshots copies the live obstacle list, nearest first.
func (e *Engine) ObstacleSnapshots() []ObstacleSnapshot {
	obstacles := make([]ObstacleSnapshot, 0, len(e.obstacles))
	for i := range e.obstacles {
		o := &e.obstacles[i]
		obstacles = append(obstacles, ObstacleSnapshot{
			ID:     o.id,
			Type:   o.typ,
			X:      o.x,
			Y:      o.y,
			Width:  o.width,
			Height: o.height,
			Frame:  o.frame,
		})
	}
	return obstacles
}
