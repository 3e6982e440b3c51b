// Package ws owns the websocket edge: upgrade validation, the per-socket
// read loop, and the Sender adapter the relay writes through. Everything
// game-shaped is decoded here and handed to the room; the socket layer
// never interprets gameplay semantics.
package ws

import (
	"context"
	"errors"
	"log"
	nethttp "net/http"

	"github.com/gorilla/websocket"

	"rundash/server/internal/net/proto"
	"rundash/server/internal/relay"
	"rundash/server/internal/telemetry"
	"rundash/server/logging"
	lognet "rundash/server/logging/network"
)

type HandlerConfig struct {
	Logger    *log.Logger
	Publisher logging.Publisher
	Metrics   telemetry.Metrics
}

type Handler struct {
	registry  relay.Registry
	logger    *log.Logger
	publisher logging.Publisher
	metrics   telemetry.Metrics
	upgrader  websocket.Upgrader
}

func NewHandler(registry relay.Registry, cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	publisher := cfg.Publisher
	if publisher == nil {
		publisher = logging.NopPublisher()
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *nethttp.Request) bool {
			return true
		},
	}

	return &Handler{
		registry:  registry,
		logger:    logger,
		publisher: publisher,
		metrics:   cfg.Metrics,
		upgrader:  upgrader,
	}
}

// Handle upgrades one client connection and runs its read loop until the
// socket closes. Identity travels in the query string; a connection without
// a lobby and player id is refused before the upgrade.
func (h *Handler) Handle(w nethttp.ResponseWriter, r *nethttp.Request) {
	query := r.URL.Query()
	lobbyID := query.Get("lobbyId")
	playerID := query.Get("playerId")
	if lobbyID == "" || playerID == "" {
		lognet.UpgradeRejected(context.Background(), h.publisher, logging.EntityRef{ID: playerID, Kind: logging.EntityKindParticipant},
			lognet.UpgradeRejectedPayload{Reason: "missing lobbyId or playerId", RemoteAddr: r.RemoteAddr}, nil)
		nethttp.Error(w, "missing lobbyId or playerId", nethttp.StatusBadRequest)
		return
	}
	name := query.Get("name")
	if name == "" {
		name = playerID
	}
	skin := query.Get("skin")
	if skin == "" {
		skin = "default"
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("upgrade failed for %s: %v", playerID, err)
		return
	}
	sender := newConnSender(conn)

	room, err := h.joinRoom(lobbyID, playerID, name, skin, sender)
	if err != nil {
		h.logger.Printf("join failed for %s in %s: %v", playerID, lobbyID, err)
		message := websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "room unavailable")
		conn.WriteMessage(websocket.CloseMessage, message)
		conn.Close()
		return
	}

	h.readLoop(room, playerID, conn, sender)
}

// joinRoom retries once when the fetched room tears down between lookup and
// join; the registry replaces closed rooms on the next lookup.
func (h *Handler) joinRoom(lobbyID, playerID, name, skin string, sender relay.Sender) (*relay.Room, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		room := h.registry.GetOrCreate(lobbyID)
		lastErr = room.Join(playerID, name, skin, sender)
		if lastErr == nil {
			return room, nil
		}
		if !errors.Is(lastErr, relay.ErrRoomClosed) {
			return nil, lastErr
		}
	}
	return nil, lastErr
}

func (h *Handler) readLoop(room *relay.Room, playerID string, conn *websocket.Conn, sender *connSender) {
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			room.Leave(playerID, "socket closed")
			return
		}

		msg, err := proto.DecodeClientMessage(payload)
		if err != nil {
			if h.metrics != nil {
				h.metrics.Add("ws_malformed_messages", 1)
			}
			lognet.MalformedMessage(context.Background(), h.publisher,
				logging.EntityRef{ID: playerID, Kind: logging.EntityKindParticipant},
				lognet.MalformedMessagePayload{RoomID: room.ID(), Reason: err.Error(), Bytes: len(payload)}, nil)
			reply, encodeErr := proto.EncodeError(err.Error())
			if encodeErr != nil {
				continue
			}
			if sendErr := sender.Send(reply); sendErr != nil {
				room.Leave(playerID, "write failed")
				return
			}
			continue
		}

		if err := room.Handle(playerID, msg); err != nil {
			conn.Close()
			return
		}
	}
}
