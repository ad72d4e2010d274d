package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestEvolutionClient_DisabledWithoutCredentials(t *testing.T) {
	e := NewEvolutionClient("", "")
	if e.Enabled() {
		t.Fatal("expected disabled client")
	}
	if _, err := e.ConnectionState(context.Background(), "x"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("err = %v", err)
	}
}

func TestEvolutionClient_SendTextFormatsNumber(t *testing.T) {
	var gotPath, gotKey string
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotKey = r.URL.Path, r.Header.Get("apikey")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"key":{"id":"ABC123"}}`))
	}))
	defer srv.Close()

	e := NewEvolutionClient(srv.URL+"/", "k")
	reply, err := e.SendText(context.Background(), "nuttro_1", "(11) 98765-4321", "oi")
	if err != nil {
		t.Fatal(err)
	}
	if gotPath != "/message/sendText/nuttro_1" || gotKey != "k" {
		t.Fatalf("path=%q apikey=%q", gotPath, gotKey)
	}
	if body["number"] != "5511987654321" || body["text"] != "oi" {
		t.Fatalf("body = %v", body)
	}
	if SentMessageID(reply) != "ABC123" {
		t.Fatalf("reply = %v", reply)
	}

	if _, err := e.SendText(context.Background(), "nuttro_1", "5511987654321@s.whatsapp.net", "oi"); err != nil {
		t.Fatal(err)
	}
	if body["number"] != "5511987654321" {
		t.Fatalf("jid number = %v", body["number"])
	}
}

func TestEvolutionClient_UnexpectedStatusIsGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewEvolutionClient(srv.URL, "k").ConnectionState(context.Background(), "x")
	if !errors.Is(err, ErrGateway) {
		t.Fatalf("err = %v", err)
	}
}

func TestEvolutionClient_FindChatsSkipsGroupsAndSortsByRecency(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[
			{"remoteJid":"120363@g.us","name":"Grupo"},
			{"remoteJid":"5511111111111@s.whatsapp.net","pushName":"Ana",
			 "lastMessage":{"message":{"conversation":"oi"},"messageTimestamp":"100"}},
			{"id":"5522222222222@s.whatsapp.net",
			 "lastMessage":{"message":{"imageMessage":{}},"messageTimestamp":200}}
		]`))
	}))
	defer srv.Close()

	chats, err := NewEvolutionClient(srv.URL, "k").FindChats(context.Background(), "x")
	if err != nil {
		t.Fatal(err)
	}
	if len(chats) != 2 {
		t.Fatalf("chats = %+v", chats)
	}
	if chats[0].Phone != "5522222222222" || chats[0].LastMessage != "[Mídia]" || chats[0].Name != "5522222222222" {
		t.Fatalf("first = %+v", chats[0])
	}
	if chats[1].Name != "Ana" || chats[1].LastMessage != "oi" || chats[1].LastMessageTime != 100 {
		t.Fatalf("second = %+v", chats[1])
	}
}

func TestEvolutionClient_FindChatsLogsNonListPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"error","response":{"message":"instance not connected"}}`))
	}))
	defer srv.Close()

	var logs bytes.Buffer
	chats, err := NewEvolutionClient(srv.URL, "k").WithLogger(zerolog.New(&logs)).FindChats(context.Background(), "nuttro_x")
	if err != nil {
		t.Fatal(err)
	}
	if chats == nil || len(chats) != 0 {
		t.Fatalf("chats = %#v, want empty list", chats)
	}
	out := logs.String()
	if !strings.Contains(out, `"level":"warn"`) || !strings.Contains(out, "instance not connected") || !strings.Contains(out, "nuttro_x") {
		t.Fatalf("log = %s", out)
	}
}

func TestEvolutionClient_FindMessagesAcceptsPagedEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"messages":{"records":[
			{"key":{"id":"2","fromMe":true,"remoteJid":"j"},"message":{"extendedTextMessage":{"text":"tchau"}},"messageTimestamp":20},
			{"key":{"id":"1","remoteJid":"j"},"messageType":"conversation","message":{"conversation":"oi"},"messageTimestamp":10}
		]}}`))
	}))
	defer srv.Close()

	msgs, err := NewEvolutionClient(srv.URL, "k").FindMessages(context.Background(), "x", "j", 50)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 || msgs[0].ID != "1" || msgs[0].Type != "text" || msgs[1].Content != "tchau" || !msgs[1].FromMe {
		t.Fatalf("msgs = %+v", msgs)
	}
}
