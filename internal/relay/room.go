package relay

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"rundash/server/internal/coord"
	"rundash/server/internal/net/proto"
	"rundash/server/internal/sim"
	"rundash/server/internal/telemetry"
	"rundash/server/logging"
	"rundash/server/logging/lifecycle"
	lognet "rundash/server/logging/network"
)

// ErrRoomClosed reports a post to a room whose goroutine has shut down.
// Callers should fetch a fresh room from the registry and retry.
var ErrRoomClosed = errors.New("relay: room closed")

// Sender delivers one encoded payload to a single member connection.
// Implementations must be safe for use from the room goroutine while the
// owning read loop is running.
type Sender interface {
	Send(payload []byte) error
	Close()
}

// Status is the room lifecycle phase.
type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusStarting Status = "starting"
	StatusInGame   Status = "in-game"
	StatusFinished Status = "finished"
)

// RoomSummary is the debug-surface view of one live room.
type RoomSummary struct {
	ID        string `json:"id"`
	SessionID string `json:"sessionId"`
	Status    Status `json:"status"`
	Seed      uint32 `json:"seed"`
	Members   int    `json:"members"`
}

type member struct {
	id       string
	name     string
	skin     string
	ready    bool
	alive    bool
	score    int
	distance float64
	sender   Sender
}

type cmdKind int

const (
	cmdJoin cmdKind = iota
	cmdMessage
	cmdLeave
	cmdCountdownDone
	cmdSummary
)

type command struct {
	kind     cmdKind
	playerID string
	name     string
	skin     string
	reason   string
	sender   Sender
	msg      proto.ClientMessage
	runSeq   uint64
	reply    chan RoomSummary
}

// Room serializes all bookkeeping for one lobby on a single goroutine. The
// websocket read loops post commands; nothing outside the goroutine touches
// member state, so the room needs no lock around it.
type Room struct {
	id        string
	sessionID string
	countdown time.Duration
	seeder    func() uint32
	publisher logging.Publisher
	metrics   telemetry.Metrics
	onEmpty   func()
	now       func() time.Time

	commands chan command
	done     chan struct{}

	postMu sync.RWMutex
	closed bool

	// goroutine-owned state below
	seed       uint32
	status     Status
	runSeq     uint64
	members    []*member
	everJoined bool
}

func newRoom(id string, opts Options, onEmpty func()) *Room {
	r := &Room{
		id:        id,
		sessionID: uuid.NewString(),
		countdown: opts.Countdown,
		seeder:    opts.Seeder,
		publisher: logging.WithFields(opts.Publisher, map[string]any{"roomId": id}),
		metrics:   opts.Metrics,
		onEmpty:   onEmpty,
		now:       time.Now,
		commands:  make(chan command, 64),
		done:      make(chan struct{}),
		seed:      opts.Seeder(),
		status:    StatusWaiting,
	}
	lifecycle.RoomCreated(context.Background(), r.publisher, r.entityRef(),
		lifecycle.RoomPayload{RoomID: id, SessionID: r.sessionID}, nil)
	go r.run()
	return r
}

// ID returns the lobby identifier.
func (r *Room) ID() string { return r.id }

// Join registers a member connection. The welcome snapshot and the roster
// broadcast happen asynchronously on the room goroutine.
func (r *Room) Join(playerID, name, skin string, sender Sender) error {
	return r.post(command{kind: cmdJoin, playerID: playerID, name: name, skin: skin, sender: sender})
}

// Handle dispatches one decoded client message.
func (r *Room) Handle(playerID string, msg proto.ClientMessage) error {
	return r.post(command{kind: cmdMessage, playerID: playerID, msg: msg})
}

// Leave removes a member, typically after its socket closed.
func (r *Room) Leave(playerID, reason string) error {
	return r.post(command{kind: cmdLeave, playerID: playerID, reason: reason})
}

// Summary reports the room's current phase and membership. ok is false when
// the room shut down before answering.
func (r *Room) Summary() (RoomSummary, bool) {
	reply := make(chan RoomSummary, 1)
	if err := r.post(command{kind: cmdSummary, reply: reply}); err != nil {
		return RoomSummary{}, false
	}
	select {
	case summary := <-reply:
		return summary, true
	case <-r.done:
		return RoomSummary{}, false
	}
}

func (r *Room) post(cmd command) error {
	r.postMu.RLock()
	defer r.postMu.RUnlock()
	if r.closed {
		return ErrRoomClosed
	}
	select {
	case r.commands <- cmd:
		return nil
	case <-r.done:
		return ErrRoomClosed
	}
}

func (r *Room) closedNow() bool {
	r.postMu.RLock()
	defer r.postMu.RUnlock()
	return r.closed
}

func (r *Room) run() {
	for cmd := range r.commands {
		switch cmd.kind {
		case cmdJoin:
			r.handleJoin(cmd)
		case cmdMessage:
			r.handleMessage(cmd.playerID, cmd.msg)
		case cmdLeave:
			r.handleLeave(cmd.playerID, cmd.reason)
		case cmdCountdownDone:
			r.handleCountdownDone(cmd.runSeq)
		case cmdSummary:
			cmd.reply <- RoomSummary{
				ID:        r.id,
				SessionID: r.sessionID,
				Status:    r.status,
				Seed:      r.seed,
				Members:   len(r.members),
			}
		}
		if r.everJoined && len(r.members) == 0 && r.drainedEmpty() {
			r.teardown()
			return
		}
	}
}

// drainedEmpty reports whether teardown may proceed: membership only ever
// changes on this goroutine, so an empty member list is final once every
// queued command has been looked at. Pending commands may still contain a
// join, so teardown waits for the queue to empty.
func (r *Room) drainedEmpty() bool {
	return len(r.commands) == 0
}

// teardown closes the room to new posts, answers any command that slipped
// in during the handoff, and removes the room from the registry.
func (r *Room) teardown() {
	r.postMu.Lock()
	r.closed = true
	r.postMu.Unlock()
	close(r.done)

	for {
		select {
		case cmd := <-r.commands:
			if cmd.kind == cmdJoin && cmd.sender != nil {
				cmd.sender.Close()
			}
		default:
			if r.onEmpty != nil {
				r.onEmpty()
			}
			lifecycle.RoomClosed(context.Background(), r.publisher, r.entityRef(),
				lifecycle.RoomPayload{RoomID: r.id, SessionID: r.sessionID}, nil)
			return
		}
	}
}

func (r *Room) handleJoin(cmd command) {
	r.everJoined = true
	if existing := r.memberByID(cmd.playerID); existing != nil {
		// Reconnect: the new socket replaces the old one, standings persist.
		existing.sender.Close()
		existing.sender = cmd.sender
		r.sendRoomJoined(existing)
		return
	}

	m := &member{
		id:     cmd.playerID,
		name:   cmd.name,
		skin:   cmd.skin,
		alive:  r.status == StatusWaiting || r.status == StatusFinished,
		sender: cmd.sender,
	}
	r.members = append(r.members, m)

	r.sendRoomJoined(m)
	r.broadcastRoster(proto.TypePlayerJoined, m.id, m.id)

	lifecycle.PlayerJoined(context.Background(), r.publisher, participantRef(m.id),
		lifecycle.PlayerJoinedPayload{RoomID: r.id, Name: m.name, Members: len(r.members)}, nil)
}

func (r *Room) handleMessage(playerID string, msg proto.ClientMessage) {
	m := r.memberByID(playerID)
	if m == nil {
		return
	}
	if r.metrics != nil {
		r.metrics.Add("relay_messages_total", 1)
	}

	switch msg.Type {
	case proto.TypeReady:
		m.ready = true
		r.broadcastRoster(proto.TypePlayerReady, m.id, m.id)

	case proto.TypeStart:
		r.handleStart()

	case proto.TypeInput:
		payload, err := proto.EncodeGameInput(proto.GameInput{Input: coord.InputEvent{
			Frame:    msg.Frame,
			Action:   sim.Action(msg.Action),
			PlayerID: playerID,
		}})
		if err != nil {
			return
		}
		if r.metrics != nil {
			r.metrics.Add("relay_inputs_relayed", 1)
		}
		r.broadcastExcept(playerID, proto.TypeInput, payload)

	case proto.TypeState:
		if msg.State == nil {
			r.sendError(m, "game:state requires a state payload")
			return
		}
		m.alive = msg.State.IsAlive
		m.score = msg.State.Score
		m.distance = msg.State.Distance
		payload, err := proto.EncodePlayerState(proto.PlayerState{PlayerID: playerID, State: *msg.State})
		if err != nil {
			return
		}
		r.broadcastExcept(playerID, proto.TypePlayerState, payload)

	case proto.TypeGameOver:
		r.handleGameOver(m, msg.Score, msg.Distance)

	case proto.TypePing:
		payload, err := proto.EncodePong(r.now().UnixMilli())
		if err != nil {
			return
		}
		r.sendTo(m, proto.TypePong, payload)
	}
}

func (r *Room) handleStart() {
	if r.status == StatusStarting || r.status == StatusInGame {
		return
	}

	r.seed = r.seeder()
	r.runSeq++
	for _, m := range r.members {
		m.alive = true
		m.score = 0
		m.distance = 0
	}

	payload, err := proto.EncodeGameStart(proto.GameStart{Seed: r.seed, Players: r.roster()})
	if err != nil {
		return
	}
	r.broadcastAll(proto.TypeGameStart, payload)

	lifecycle.RunStarted(context.Background(), r.publisher, r.entityRef(),
		lifecycle.RunStartedPayload{RoomID: r.id, Seed: r.seed, Players: len(r.members)}, nil)

	if r.countdown <= 0 {
		r.status = StatusInGame
		return
	}
	r.status = StatusStarting
	seq := r.runSeq
	time.AfterFunc(r.countdown, func() {
		_ = r.post(command{kind: cmdCountdownDone, runSeq: seq})
	})
}

func (r *Room) handleCountdownDone(seq uint64) {
	if r.status != StatusStarting || seq != r.runSeq {
		return
	}
	r.status = StatusInGame
}

func (r *Room) handleGameOver(m *member, score int, distance float64) {
	if !m.alive {
		return
	}
	m.alive = false
	m.score = score
	m.distance = distance

	payload, err := proto.EncodePlayerGameOver(proto.PlayerGameOver{
		PlayerID: m.id,
		Score:    score,
		Distance: distance,
	})
	if err == nil {
		r.broadcastExcept(m.id, proto.TypePlayerGameOver, payload)
	}
	r.checkFinished()
}

// checkFinished ends the run once nobody is alive. The status transition to
// finished guarantees the placement table is broadcast exactly once per run.
func (r *Room) checkFinished() {
	if r.status != StatusInGame && r.status != StatusStarting {
		return
	}
	for _, m := range r.members {
		if m.alive {
			return
		}
	}
	r.status = StatusFinished

	results := r.placements()
	payload, err := proto.EncodeGameFinished(proto.GameFinished{Results: results})
	if err == nil {
		r.broadcastAll(proto.TypeGameFinished, payload)
	}

	winner, bestDistance := "", 0.0
	if len(results) > 0 {
		winner, bestDistance = results[0].PlayerID, results[0].Distance
	}
	lifecycle.RunFinished(context.Background(), r.publisher, r.entityRef(),
		lifecycle.RunFinishedPayload{
			RoomID:   r.id,
			Players:  len(r.members),
			Winner:   winner,
			Distance: bestDistance,
		}, nil)
}

// placements sorts members by descending distance, breaking ties by score
// and then join order.
func (r *Room) placements() []proto.Result {
	ordered := append([]*member(nil), r.members...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].distance != ordered[j].distance {
			return ordered[i].distance > ordered[j].distance
		}
		return ordered[i].score > ordered[j].score
	})

	results := make([]proto.Result, 0, len(ordered))
	for i, m := range ordered {
		results = append(results, proto.Result{
			Place:    i + 1,
			PlayerID: m.id,
			Name:     m.name,
			Score:    m.score,
			Distance: m.distance,
		})
	}
	return results
}

func (r *Room) handleLeave(playerID, reason string) {
	m := r.memberByID(playerID)
	if m == nil {
		return
	}
	wasAlive := m.alive

	for i, other := range r.members {
		if other == m {
			r.members = append(r.members[:i], r.members[i+1:]...)
			break
		}
	}
	m.sender.Close()

	r.broadcastRoster(proto.TypePlayerLeft, m.id, "")

	lifecycle.PlayerLeft(context.Background(), r.publisher, participantRef(m.id),
		lifecycle.PlayerLeftPayload{RoomID: r.id, Reason: reason, Members: len(r.members)}, nil)

	// A mid-run disconnect counts as a crash at the member's last reported
	// standing so the survivors can still finish the race.
	if wasAlive && r.status == StatusInGame {
		payload, err := proto.EncodePlayerGameOver(proto.PlayerGameOver{
			PlayerID: m.id,
			Score:    m.score,
			Distance: m.distance,
		})
		if err == nil {
			r.broadcastAll(proto.TypePlayerGameOver, payload)
		}
	}
	if r.status == StatusInGame {
		r.checkFinished()
	}
}

// catalogHash is static per build; the fingerprint only changes when the
// obstacle catalog itself does.
var catalogHash = sync.OnceValue(func() string {
	hash, err := sim.CatalogFingerprint()
	if err != nil {
		return ""
	}
	return hash
})

func (r *Room) sendRoomJoined(m *member) {
	payload, err := proto.EncodeRoomJoined(proto.RoomJoined{
		LobbyID:     r.id,
		PlayerID:    m.id,
		Seed:        r.seed,
		Status:      string(r.status),
		CatalogHash: catalogHash(),
		Players:     r.roster(),
	})
	if err != nil {
		return
	}
	r.sendTo(m, proto.TypeRoomJoined, payload)
}

func (r *Room) broadcastRoster(typ, playerID, exclude string) {
	payload, err := proto.EncodeRoster(typ, proto.Roster{PlayerID: playerID, Players: r.roster()})
	if err != nil {
		return
	}
	if exclude == "" {
		r.broadcastAll(typ, payload)
		return
	}
	r.broadcastExcept(exclude, typ, payload)
}

func (r *Room) roster() []proto.PlayerInfo {
	roster := make([]proto.PlayerInfo, 0, len(r.members))
	for _, m := range r.members {
		roster = append(roster, proto.PlayerInfo{
			ID:       m.id,
			Name:     m.name,
			Skin:     m.skin,
			Ready:    m.ready,
			Alive:    m.alive,
			Score:    m.score,
			Distance: m.distance,
		})
	}
	return roster
}

func (r *Room) broadcastAll(messageType string, payload []byte) {
	r.deliver("", messageType, payload)
}

func (r *Room) broadcastExcept(excludeID, messageType string, payload []byte) {
	r.deliver(excludeID, messageType, payload)
}

// deliver writes payload to every member except excludeID. Failed writes
// are collected during the sweep and the members evicted afterwards, so the
// member list is never mutated mid-iteration.
func (r *Room) deliver(excludeID, messageType string, payload []byte) {
	var failed []string
	for _, m := range r.members {
		if m.id == excludeID {
			continue
		}
		if err := m.sender.Send(payload); err != nil {
			failed = append(failed, m.id)
			r.reportSendFailure(m.id, messageType, err)
		}
	}
	for _, id := range failed {
		r.handleLeave(id, "write failed")
	}
}

func (r *Room) sendTo(m *member, messageType string, payload []byte) {
	if err := m.sender.Send(payload); err != nil {
		r.reportSendFailure(m.id, messageType, err)
		r.handleLeave(m.id, "write failed")
	}
}

func (r *Room) sendError(m *member, message string) {
	payload, err := proto.EncodeError(message)
	if err != nil {
		return
	}
	r.sendTo(m, proto.TypeError, payload)
}

func (r *Room) reportSendFailure(playerID, messageType string, err error) {
	if r.metrics != nil {
		r.metrics.Add("relay_broadcast_failures", 1)
	}
	lognet.BroadcastFailed(context.Background(), r.publisher, participantRef(playerID),
		lognet.BroadcastFailedPayload{RoomID: r.id, MessageType: messageType, Error: err.Error()}, nil)
}

func (r *Room) memberByID(id string) *member {
	for _, m := range r.members {
		if m.id == id {
			return m
		}
	}
	return nil
}

func (r *Room) entityRef() logging.EntityRef {
	return logging.EntityRef{ID: r.id, Kind: logging.EntityKindRoom}
}

func participantRef(id string) logging.EntityRef {
	return logging.EntityRef{ID: id, Kind: logging.EntityKindParticipant}
}
