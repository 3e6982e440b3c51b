// Package proto defines the JSON wire protocol between runner clients and
// the relay. Every payload carries a type tag; the relay dispatches on it
// and fans most gameplay messages out verbatim, so the client and server
// halves of the protocol share their shapes.
package proto

import (
	"encoding/json"
	"fmt"

	"rundash/server/internal/coord"
	"rundash/server/internal/sim"
)

// Client message type identifiers.
const (
	TypeReady    = "game:ready"
	TypeStart    = "game:start"
	TypeInput    = "game:input"
	TypeState    = "game:state"
	TypeGameOver = "game:over"
	TypePing     = "ping"
)

// Server message type identifiers.
const (
	TypeRoomJoined     = "room:joined"
	TypePlayerJoined   = "player:joined"
	TypePlayerLeft     = "player:left"
	TypePlayerReady    = "player:ready"
	TypeGameStart      = TypeStart
	TypeGameInput      = TypeInput
	TypePlayerState    = "player:state"
	TypePlayerGameOver = "player:gameover"
	TypeGameFinished   = "game:finished"
	TypeError          = "error"
	TypePong           = "pong"
)

// ClientMessage captures an inbound websocket payload from a client.
type ClientMessage struct {
	Type     string  `json:"type"`
	Frame    uint64  `json:"frame,omitempty"`
	Action   string  `json:"action,omitempty"`
	SentAt   int64   `json:"sentAt,omitempty"`
	Score    int     `json:"score,omitempty"`
	Distance float64 `json:"distance,omitempty"`
	State    *State  `json:"state,omitempty"`
}

// State mirrors one participant's broadcast physics standing.
type State struct {
	Y         int     `json:"y"`
	IsAlive   bool    `json:"isAlive"`
	Score     int     `json:"score"`
	Distance  float64 `json:"distance"`
	IsJumping bool    `json:"isJumping"`
	IsDucking bool    `json:"isDucking"`
}

// DecodeClientMessage parses a raw websocket frame. A syntactically valid
// frame with an unknown or missing type is an error too: the relay answers
// both cases with a typed error event instead of dropping the connection.
func DecodeClientMessage(payload []byte) (ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return msg, fmt.Errorf("malformed message: %w", err)
	}
	switch msg.Type {
	case TypeReady, TypeStart, TypeInput, TypeState, TypeGameOver, TypePing:
	default:
		return msg, fmt.Errorf("unknown message type %q", msg.Type)
	}
	if msg.Type == TypeInput && !sim.ValidAction(sim.Action(msg.Action)) {
		return msg, fmt.Errorf("unknown input action %q", msg.Action)
	}
	return msg, nil
}

// PlayerInfo is the roster entry shared by every membership message.
type PlayerInfo struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Skin     string  `json:"skin"`
	Ready    bool    `json:"ready"`
	Alive    bool    `json:"alive"`
	Score    int     `json:"score"`
	Distance float64 `json:"distance"`
}

// RoomJoined is the full room snapshot sent to every new connection, enough
// for a late joiner to reconstruct an identical coordinator.
type RoomJoined struct {
	Type        string       `json:"type"`
	LobbyID     string       `json:"lobbyId"`
	PlayerID    string       `json:"playerId"`
	Seed        uint32       `json:"seed"`
	Status      string       `json:"status"`
	CatalogHash string       `json:"catalogHash"`
	Players     []PlayerInfo `json:"players"`
}

// Roster notifies membership changes: player:joined, player:left, and
// player:ready all carry the refreshed roster.
type Roster struct {
	Type     string       `json:"type"`
	PlayerID string       `json:"playerId"`
	Players  []PlayerInfo `json:"players"`
}

// GameStart announces the race: a fresh seed and the final roster.
type GameStart struct {
	Type    string       `json:"type"`
	Seed    uint32       `json:"seed"`
	Players []PlayerInfo `json:"players"`
}

// GameInput relays one frame-tagged input verbatim to every other member.
type GameInput struct {
	Type  string           `json:"type"`
	Input coord.InputEvent `json:"input"`
}

// PlayerState relays one participant's self-reported standing.
type PlayerState struct {
	Type     string `json:"type"`
	PlayerID string `json:"playerId"`
	State    State  `json:"state"`
}

// PlayerGameOver announces one participant's crash.
type PlayerGameOver struct {
	Type     string  `json:"type"`
	PlayerID string  `json:"playerId"`
	Score    int     `json:"score"`
	Distance float64 `json:"distance"`
}

// Result is one row of the final placement table.
type Result struct {
	Place    int     `json:"place"`
	PlayerID string  `json:"playerId"`
	Name     string  `json:"name"`
	Score    int     `json:"score"`
	Distance float64 `json:"distance"`
}

// GameFinished carries the placement table, sorted by descending distance.
type GameFinished struct {
	Type    string   `json:"type"`
	Results []Result `json:"results"`
}

// ErrorMessage answers a malformed or unknown payload. The connection
// stays open.
type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Pong echoes a ping with the server timestamp.
type Pong struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
}

// EncodeRoomJoined renders the join snapshot.
func EncodeRoomJoined(msg RoomJoined) ([]byte, error) {
	msg.Type = TypeRoomJoined
	return json.Marshal(msg)
}

// EncodeRoster renders a membership update with the given type tag.
func EncodeRoster(typ string, msg Roster) ([]byte, error) {
	msg.Type = typ
	return json.Marshal(msg)
}

// EncodeGameStart renders the race announcement.
func EncodeGameStart(msg GameStart) ([]byte, error) {
	msg.Type = TypeGameStart
	return json.Marshal(msg)
}

// EncodeGameInput renders a relayed input.
func EncodeGameInput(msg GameInput) ([]byte, error) {
	msg.Type = TypeGameInput
	return json.Marshal(msg)
}

// EncodePlayerState renders a relayed standing.
func EncodePlayerState(msg PlayerState) ([]byte, error) {
	msg.Type = TypePlayerState
	return json.Marshal(msg)
}

// EncodePlayerGameOver renders a crash announcement.
func EncodePlayerGameOver(msg PlayerGameOver) ([]byte, error) {
	msg.Type = TypePlayerGameOver
	return json.Marshal(msg)
}

// EncodeGameFinished renders the placement table.
func EncodeGameFinished(msg GameFinished) ([]byte, error) {
	msg.Type = TypeGameFinished
	return json.Marshal(msg)
}

// EncodeError renders a typed error reply.
func EncodeError(message string) ([]byte, error) {
	return json.Marshal(ErrorMessage{Type: TypeError, Message: message})
}

// EncodePong renders a ping reply.
func EncodePong(timestamp int64) ([]byte, error) {
	return json.Marshal(Pong{Type: TypePong, Timestamp: timestamp})
}
