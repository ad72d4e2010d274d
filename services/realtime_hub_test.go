package services

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func TestRealtimeHub_PublishReachesRoomMembersOnly(t *testing.T) {
	hub := NewRealtimeHub(zerolog.Nop())
	pid := uuid.New()
	in := NewWSClient(nil, uuid.New(), "nutricionista")
	out := NewWSClient(nil, uuid.New(), "nutricionista")
	hub.Join(in, PacienteRoom(pid))
	hub.Join(out, NutricionistaRoom(out.PrincipalID))

	hub.Publish(PacienteRoom(pid), "nova_mensagem", map[string]string{"conteudo": "oi"})

	select {
	case raw := <-in.Send:
		var msg struct {
			Event     string            `json:"event"`
			Data      map[string]string `json:"data"`
			Timestamp string            `json:"timestamp"`
		}
		if err := json.Unmarshal(raw, &msg); err != nil {
			t.Fatal(err)
		}
		if msg.Event != "nova_mensagem" || msg.Data["conteudo"] != "oi" || msg.Timestamp == "" {
			t.Fatalf("msg = %+v", msg)
		}
	default:
		t.Fatal("member got nothing")
	}
	if len(out.Send) != 0 {
		t.Fatal("non-member received the event")
	}
}

func TestRealtimeHub_UnregisterLeavesAllRoomsAndClosesOnce(t *testing.T) {
	hub := NewRealtimeHub(zerolog.Nop())
	c := NewWSClient(nil, uuid.New(), "paciente")
	hub.Join(c, "a")
	hub.Join(c, "b")
	hub.Leave(c, "a")
	if hub.RoomSize("a") != 0 || hub.RoomSize("b") != 1 {
		t.Fatalf("sizes a=%d b=%d", hub.RoomSize("a"), hub.RoomSize("b"))
	}

	hub.Unregister(c)
	hub.Unregister(c)
	if hub.RoomSize("b") != 0 {
		t.Fatal("client still in room")
	}
	if _, ok := <-c.Send; ok {
		t.Fatal("send channel not closed")
	}
	// publishing to an empty room is a no-op
	hub.Publish("b", "x", nil)
}

func TestRealtimeHub_SlowClientDropsInsteadOfBlocking(t *testing.T) {
	hub := NewRealtimeHub(zerolog.Nop())
	c := NewWSClient(nil, uuid.New(), "paciente")
	hub.Join(c, "r")
	for i := 0; i < cap(c.Send)+10; i++ {
		hub.Publish("r", "tick", i)
	}
	if len(c.Send) != cap(c.Send) {
		t.Fatalf("buffered %d of %d", len(c.Send), cap(c.Send))
	}
}
