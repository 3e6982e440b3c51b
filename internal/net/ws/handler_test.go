package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"rundash/server/internal/net/proto"
	"rundash/server/internal/relay"
)

func newTestServer(t *testing.T) (*httptest.Server, relay.Registry) {
	t.Helper()
	registry := relay.NewRegistry(relay.Options{Countdown: 0})
	handler := NewHandler(registry, HandlerConfig{})
	srv := httptest.NewServer(http.HandlerFunc(handler.Handle))
	t.Cleanup(srv.Close)
	return srv, registry
}

func websocketURL(t *testing.T, base, lobbyID, playerID string) string {
	t.Helper()
	parsed, err := url.Parse(base)
	if err != nil {
		t.Fatalf("failed to parse server URL: %v", err)
	}
	parsed.Scheme = "ws"
	values := parsed.Query()
	values.Set("lobbyId", lobbyID)
	values.Set("playerId", playerID)
	parsed.RawQuery = values.Encode()
	return parsed.String()
}

func dial(t *testing.T, srv *httptest.Server, lobbyID, playerID string) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(websocketURL(t, srv.URL, lobbyID, playerID), nil)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		t.Fatalf("failed to open websocket connection: %v", err)
	}
	t.Cleanup(func() {
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
		if resp != nil {
			resp.Body.Close()
		}
	})
	return conn
}

// readUntil drains messages until one with the wanted type arrives. Rooms
// interleave roster broadcasts with gameplay traffic, so tests skip past
// whatever they are not asserting on.
func readUntil(t *testing.T, conn *websocket.Conn, messageType string) map[string]any {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("reading until %q: %v", messageType, err)
		}
		var decoded map[string]any
		if err := json.Unmarshal(payload, &decoded); err != nil {
			t.Fatalf("undecodable server payload: %v", err)
		}
		if decoded["type"] == messageType {
			return decoded
		}
	}
}

func TestHandleRejectsMissingIdentity(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "?playerId=p1")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing lobbyId, got %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "?lobbyId=lobby-1")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing playerId, got %d", resp.StatusCode)
	}
}

func TestHandleDeliversWelcomeSnapshot(t *testing.T) {
	srv, _ := newTestServer(t)

	conn := dial(t, srv, "lobby-welcome", "p1")
	welcome := readUntil(t, conn, proto.TypeRoomJoined)

	if welcome["playerId"] != "p1" || welcome["lobbyId"] != "lobby-welcome" {
		t.Fatalf("welcome snapshot misaddressed: %v", welcome)
	}
	if welcome["status"] != string(relay.StatusWaiting) {
		t.Fatalf("fresh room should be waiting, got %v", welcome["status"])
	}
	if hash, _ := welcome["catalogHash"].(string); len(hash) != 64 {
		t.Fatalf("welcome should carry the catalog fingerprint, got %q", hash)
	}
}

func TestHandleRelaysInputBetweenSockets(t *testing.T) {
	srv, _ := newTestServer(t)

	first := dial(t, srv, "lobby-race", "p1")
	readUntil(t, first, proto.TypeRoomJoined)
	second := dial(t, srv, "lobby-race", "p2")
	readUntil(t, second, proto.TypeRoomJoined)
	readUntil(t, first, proto.TypePlayerJoined)

	input := map[string]any{"type": proto.TypeInput, "frame": 31, "action": "duck_start"}
	if err := first.WriteJSON(input); err != nil {
		t.Fatalf("failed to send input: %v", err)
	}

	relayed := readUntil(t, second, proto.TypeGameInput)
	event := relayed["input"].(map[string]any)
	if event["playerId"] != "p1" || event["frame"].(float64) != 31 || event["action"] != "duck_start" {
		t.Fatalf("relayed input mutated: %v", event)
	}
}

func TestHandleAnswersMalformedPayloadWithError(t *testing.T) {
	srv, _ := newTestServer(t)

	conn := dial(t, srv, "lobby-garbage", "p1")
	readUntil(t, conn, proto.TypeRoomJoined)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("failed to send garbage: %v", err)
	}
	reply := readUntil(t, conn, proto.TypeError)
	if msg, _ := reply["message"].(string); !strings.Contains(msg, "malformed") {
		t.Fatalf("error reply should name the problem, got %q", msg)
	}

	// Unknown types earn an error too, and the connection survives both.
	if err := conn.WriteJSON(map[string]any{"type": "game:teleport"}); err != nil {
		t.Fatalf("failed to send unknown type: %v", err)
	}
	reply = readUntil(t, conn, proto.TypeError)
	if msg, _ := reply["message"].(string); !strings.Contains(msg, "game:teleport") {
		t.Fatalf("error reply should echo the unknown type, got %q", msg)
	}

	if err := conn.WriteJSON(map[string]any{"type": proto.TypePing, "sentAt": 1}); err != nil {
		t.Fatalf("failed to ping after errors: %v", err)
	}
	readUntil(t, conn, proto.TypePong)
}

func TestHandleLeaveOnSocketClose(t *testing.T) {
	srv, registry := newTestServer(t)

	first := dial(t, srv, "lobby-close", "p1")
	readUntil(t, first, proto.TypeRoomJoined)
	second := dial(t, srv, "lobby-close", "p2")
	readUntil(t, second, proto.TypeRoomJoined)
	readUntil(t, first, proto.TypePlayerJoined)

	second.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	second.Close()

	left := readUntil(t, first, proto.TypePlayerLeft)
	if left["playerId"] != "p2" {
		t.Fatalf("expected p2 departure, got %v", left["playerId"])
	}

	room, ok := registry.Get("lobby-close")
	if !ok {
		t.Fatalf("room should survive while a member remains")
	}
	summary, ok := room.Summary()
	if !ok || summary.Members != 1 {
		t.Fatalf("expected one remaining member, got %+v ok=%v", summary, ok)
	}
}
