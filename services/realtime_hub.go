package services

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Publisher pushes a named event to everyone in a room.
type Publisher interface {
	Publish(room, event string, data any)
}

func PacienteRoom(id uuid.UUID) string      { return "paciente_" + id.String() }
func NutricionistaRoom(id uuid.UUID) string { return "nutricionista_" + id.String() }

type WSClient struct {
	PrincipalID uuid.UUID
	Kind        string
	Conn        *websocket.Conn
	Send        chan []byte

	rooms map[string]struct{}
	once  sync.Once
}

func NewWSClient(conn *websocket.Conn, principalID uuid.UUID, kind string) *WSClient {
	return &WSClient{
		PrincipalID: principalID,
		Kind:        kind,
		Conn:        conn,
		Send:        make(chan []byte, 64),
		rooms:       make(map[string]struct{}),
	}
}

type RealtimeHub struct {
	mu    sync.RWMutex
	rooms map[string]map[*WSClient]struct{}
	log   zerolog.Logger
}

func NewRealtimeHub(log zerolog.Logger) *RealtimeHub {
	return &RealtimeHub{rooms: make(map[string]map[*WSClient]struct{}), log: log}
}

func (h *RealtimeHub) Join(c *WSClient, room string) {
	h.mu.Lock()
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*WSClient]struct{})
	}
	h.rooms[room][c] = struct{}{}
	c.rooms[room] = struct{}{}
	h.mu.Unlock()
}

func (h *RealtimeHub) Leave(c *WSClient, room string) {
	h.mu.Lock()
	h.leaveLocked(c, room)
	h.mu.Unlock()
}

func (h *RealtimeHub) leaveLocked(c *WSClient, room string) {
	if set := h.rooms[room]; set != nil {
		delete(set, c)
		if len(set) == 0 {
			delete(h.rooms, room)
		}
	}
	delete(c.rooms, room)
}

// Unregister drops the client from every room and closes its send channel.
func (h *RealtimeHub) Unregister(c *WSClient) {
	h.mu.Lock()
	for room := range c.rooms {
		h.leaveLocked(c, room)
	}
	h.mu.Unlock()
	c.once.Do(func() { close(c.Send) })
}

func (h *RealtimeHub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

func (h *RealtimeHub) Publish(room, event string, data any) {
	msg, err := json.Marshal(map[string]any{
		"event":     event,
		"data":      data,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		h.log.Error().Err(err).Str("event", event).Msg("realtime payload not serialisable")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[room] {
		select {
		case c.Send <- msg:
		default:
			h.log.Warn().Str("room", room).Str("event", event).Msg("realtime client too slow, dropping message")
		}
	}
}
