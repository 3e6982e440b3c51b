// Package relay implements the room bookkeeping half of the server. Rooms
// never simulate physics; they assign the shared seed, track membership and
// readiness, fan gameplay messages out to peers, and tally the final
// placements from self-reported standings.
package relay

import (
	"math/rand"
	"sync"
	"time"

	"rundash/server/internal/telemetry"
	"rundash/server/logging"
)

// Registry owns the live rooms. Lookups and creation are serialized so a
// room id always maps to at most one live room goroutine.
type Registry interface {
	// GetOrCreate returns the live room for id, creating it when absent. A
	// room that began teardown is replaced by a fresh one.
	GetOrCreate(id string) *Room
	// Get returns the live room for id, if any.
	Get(id string) (*Room, bool)
	// Summaries reports the current rooms for the debug surface.
	Summaries() []RoomSummary
	// Len reports the number of live rooms.
	Len() int
}

// Options tunes registry-created rooms.
type Options struct {
	// Countdown is the delay between a start request and the live run.
	Countdown time.Duration
	// Seeder produces the shared session seed for each run. Defaults to
	// the process-global math/rand source.
	Seeder    func() uint32
	Publisher logging.Publisher
	Metrics   telemetry.Metrics
}

func (o Options) withDefaults() Options {
	if o.Countdown < 0 {
		o.Countdown = 0
	}
	if o.Seeder == nil {
		o.Seeder = rand.Uint32
	}
	if o.Publisher == nil {
		o.Publisher = logging.NopPublisher()
	}
	return o
}

type memoryRegistry struct {
	mu    sync.Mutex
	rooms map[string]*Room
	opts  Options
}

// NewRegistry builds an in-memory registry. Rooms remove themselves when
// their last member leaves.
func NewRegistry(opts Options) Registry {
	return &memoryRegistry{
		rooms: make(map[string]*Room),
		opts:  opts.withDefaults(),
	}
}

func (reg *memoryRegistry) GetOrCreate(id string) *Room {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if room, ok := reg.rooms[id]; ok && !room.closedNow() {
		return room
	}
	var room *Room
	room = newRoom(id, reg.opts, func() { reg.remove(id, room) })
	reg.rooms[id] = room
	if reg.opts.Metrics != nil {
		reg.opts.Metrics.Add("relay_rooms_created", 1)
	}
	return room
}

func (reg *memoryRegistry) Get(id string) (*Room, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	room, ok := reg.rooms[id]
	if !ok || room.closedNow() {
		return nil, false
	}
	return room, true
}

// remove drops a torn-down room from the map. The identity check matters:
// GetOrCreate may already have minted a replacement under the same id, and
// the old room's teardown must not evict it.
func (reg *memoryRegistry) remove(id string, room *Room) {
	reg.mu.Lock()
	if current, ok := reg.rooms[id]; ok && current == room {
		delete(reg.rooms, id)
	}
	reg.mu.Unlock()
	if reg.opts.Metrics != nil {
		reg.opts.Metrics.Add("relay_rooms_closed", 1)
	}
}

func (reg *memoryRegistry) Summaries() []RoomSummary {
	reg.mu.Lock()
	rooms := make([]*Room, 0, len(reg.rooms))
	for _, room := range reg.rooms {
		rooms = append(rooms, room)
	}
	reg.mu.Unlock()

	summaries := make([]RoomSummary, 0, len(rooms))
	for _, room := range rooms {
		if summary, ok := room.Summary(); ok {
			summaries = append(summaries, summary)
		}
	}
	return summaries
}

func (reg *memoryRegistry) Len() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return len(reg.rooms)
}
