package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/nuttroadm/backendnuttro/utils"
	"github.com/rs/zerolog"
)

const (
	evolutionCreateTimeout = 30 * time.Second
	evolutionStateTimeout  = 10 * time.Second
	evolutionChatsTimeout  = 60 * time.Second
	evolutionSendTimeout   = 30 * time.Second

	maxLoggedBody = 500
)

// EvolutionClient talks to an Evolution API server. Every call carries its own deadline and is never retried.
type EvolutionClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	log     zerolog.Logger
}

func NewEvolutionClient(baseURL, apiKey string) *EvolutionClient {
	return &EvolutionClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{},
		log:     zerolog.Nop(),
	}
}

// WithLogger sets the logger used for unexpected gateway payloads.
func (e *EvolutionClient) WithLogger(log zerolog.Logger) *EvolutionClient {
	e.log = log.With().Str("component", "evolution").Logger()
	return e
}

func (e *EvolutionClient) Enabled() bool { return e != nil && e.baseURL != "" && e.apiKey != "" }

// InstanceName is the Evolution instance owned by a nutricionista.
func InstanceName(nutricionistaID fmt.Stringer) string {
	return "nuttro_" + nutricionistaID.String()
}

func (e *EvolutionClient) do(ctx context.Context, timeout time.Duration, method, path string, body any, accept ...int) ([]byte, error) {
	if !e.Enabled() {
		return nil, ErrNotConfigured
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, e.baseURL+path, rd)
	if err != nil {
		return nil, err
	}
	req.Header.Set("apikey", e.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: evolution %s %s: %v", ErrGateway, method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read evolution response: %v", ErrGateway, err)
	}
	if len(accept) == 0 {
		accept = []int{http.StatusOK}
	}
	for _, code := range accept {
		if resp.StatusCode == code {
			return raw, nil
		}
	}
	return nil, fmt.Errorf("%w: evolution %s %s returned %d: %s", ErrGateway, method, path, resp.StatusCode, truncate(string(raw), 300))
}

type CreateInstanceResult struct {
	InstanceName string
	InstanceID   string
}

func (e *EvolutionClient) CreateInstance(ctx context.Context, name string) (*CreateInstanceResult, error) {
	raw, err := e.do(ctx, evolutionCreateTimeout, http.MethodPost, "/instance/create", map[string]any{
		"instanceName": name,
		"qrcode":       true,
		"integration":  "WHATSAPP-BAILEYS",
	}, http.StatusCreated)
	if err != nil {
		return nil, err
	}
	var out struct {
		Instance struct {
			InstanceName string `json:"instanceName"`
			InstanceID   string `json:"instanceId"`
		} `json:"instance"`
	}
	_ = json.Unmarshal(raw, &out)
	return &CreateInstanceResult{InstanceName: name, InstanceID: out.Instance.InstanceID}, nil
}

type ConnectResult struct {
	Code        string
	Base64      string
	PairingCode string
	State       string
}

func (e *EvolutionClient) Connect(ctx context.Context, name string) (*ConnectResult, error) {
	raw, err := e.do(ctx, evolutionCreateTimeout, http.MethodGet, "/instance/connect/"+url.PathEscape(name), nil)
	if err != nil {
		return nil, err
	}
	var out struct {
		Code        string `json:"code"`
		Base64      string `json:"base64"`
		PairingCode string `json:"pairingCode"`
		Instance    struct {
			State string `json:"state"`
		} `json:"instance"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: decode connect response: %v", ErrGateway, err)
	}
	return &ConnectResult{Code: out.Code, Base64: out.Base64, PairingCode: out.PairingCode, State: out.Instance.State}, nil
}

// ConnectionState returns "open", "close", "connecting" or whatever the gateway reports.
func (e *EvolutionClient) ConnectionState(ctx context.Context, name string) (string, error) {
	raw, err := e.do(ctx, evolutionStateTimeout, http.MethodGet, "/instance/connectionState/"+url.PathEscape(name), nil)
	if err != nil {
		return "", err
	}
	var out struct {
		State    string `json:"state"`
		Instance struct {
			State string `json:"state"`
		} `json:"instance"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("%w: decode state response: %v", ErrGateway, err)
	}
	if out.State != "" {
		return out.State, nil
	}
	return out.Instance.State, nil
}

func (e *EvolutionClient) Logout(ctx context.Context, name string) error {
	_, err := e.do(ctx, evolutionStateTimeout, http.MethodDelete, "/instance/logout/"+url.PathEscape(name), nil)
	return err
}

// Chat is a WhatsApp conversation as listed by the gateway.
type Chat struct {
	ID              string `json:"id"`
	Phone           string `json:"phone"`
	Name            string `json:"name"`
	LastMessage     string `json:"lastMessage"`
	LastMessageTime int64  `json:"lastMessageTime"`
	UnreadCount     int    `json:"unreadCount"`
	ProfilePicURL   string `json:"profilePicUrl,omitempty"`
	IsGroup         bool   `json:"isGroup"`
	UpdatedAt       string `json:"updatedAt,omitempty"`
}

type waMessage struct {
	Key struct {
		ID        string `json:"id"`
		FromMe    bool   `json:"fromMe"`
		RemoteJID string `json:"remoteJid"`
	} `json:"key"`
	PushName         string         `json:"pushName"`
	Message          map[string]any `json:"message"`
	MessageType      string         `json:"messageType"`
	MessageTimestamp flexTimestamp  `json:"messageTimestamp"`
	Status           any            `json:"status"`
}

// flexTimestamp accepts seconds as a number or a numeric string.
type flexTimestamp int64

func (t *flexTimestamp) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*t = 0
		return nil
	}
	var f float64
	if _, err := fmt.Sscanf(s, "%g", &f); err != nil {
		*t = 0
		return nil
	}
	*t = flexTimestamp(f)
	return nil
}

// messageText extracts the text of a WhatsApp message payload.
func messageText(m map[string]any) string {
	if m == nil {
		return ""
	}
	if s, ok := m["conversation"].(string); ok && s != "" {
		return s
	}
	for _, k := range []string{"extendedTextMessage", "imageMessage", "videoMessage"} {
		sub, ok := m[k].(map[string]any)
		if !ok {
			continue
		}
		field := "caption"
		if k == "extendedTextMessage" {
			field = "text"
		}
		if s, ok := sub[field].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func (e *EvolutionClient) FindChats(ctx context.Context, name string) ([]Chat, error) {
	raw, err := e.do(ctx, evolutionChatsTimeout, http.MethodPost, "/chat/findChats/"+url.PathEscape(name), map[string]any{})
	if err != nil {
		return nil, err
	}
	var list []struct {
		ID            string     `json:"id"`
		RemoteJID     string     `json:"remoteJid"`
		JID           string     `json:"jid"`
		PushName      string     `json:"pushName"`
		Name          string     `json:"name"`
		Notify        string     `json:"notify"`
		UnreadCount   int        `json:"unreadCount"`
		ProfilePicURL string     `json:"profilePicUrl"`
		UpdatedAt     string     `json:"updatedAt"`
		LastMessage   *waMessage `json:"lastMessage"`
	}
	if err := json.Unmarshal(raw, &list); err != nil {
		// the gateway answers an object (error or empty state) instead of a list; show no chats
		e.log.Warn().Err(err).Str("instance", name).Str("body", truncate(string(raw), maxLoggedBody)).
			Msg("findChats returned a non-list payload")
		return []Chat{}, nil
	}

	chats := make([]Chat, 0, len(list))
	for _, c := range list {
		jid := firstNonEmpty(c.RemoteJID, c.ID, c.JID)
		if !utils.IsDirectChatJID(jid) {
			continue
		}
		phone := utils.JIDToPhone(jid)
		chat := Chat{
			ID:            jid,
			Phone:         phone,
			Name:          firstNonEmpty(c.PushName, c.Name, c.Notify, phone),
			UnreadCount:   c.UnreadCount,
			ProfilePicURL: c.ProfilePicURL,
			UpdatedAt:     c.UpdatedAt,
		}
		if c.LastMessage != nil {
			chat.LastMessage = firstNonEmpty(messageText(c.LastMessage.Message), "[Mídia]")
			chat.LastMessageTime = int64(c.LastMessage.MessageTimestamp)
		}
		chats = append(chats, chat)
	}
	sort.SliceStable(chats, func(i, j int) bool { return chats[i].LastMessageTime > chats[j].LastMessageTime })
	return chats, nil
}

// WAChatMessage is one message of a WhatsApp conversation, oldest first in listings.
type WAChatMessage struct {
	ID        string `json:"id"`
	FromMe    bool   `json:"fromMe"`
	RemoteJID string `json:"remoteJid"`
	Content   string `json:"content"`
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
	Status    any    `json:"status"`
	PushName  string `json:"pushName"`
}

func (e *EvolutionClient) FindMessages(ctx context.Context, name, remoteJID string, limit int) ([]WAChatMessage, error) {
	raw, err := e.do(ctx, evolutionChatsTimeout, http.MethodPost, "/chat/findMessages/"+url.PathEscape(name), map[string]any{
		"where": map[string]any{"key": map[string]any{"remoteJid": remoteJID}},
		"limit": limit,
	})
	if err != nil {
		return nil, err
	}

	var records []waMessage
	var wrapped struct {
		Messages json.RawMessage `json:"messages"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && len(wrapped.Messages) > 0 {
		var page struct {
			Records []waMessage `json:"records"`
		}
		if json.Unmarshal(wrapped.Messages, &page) == nil && page.Records != nil {
			records = page.Records
		} else {
			_ = json.Unmarshal(wrapped.Messages, &records)
		}
	} else {
		_ = json.Unmarshal(raw, &records)
	}

	out := make([]WAChatMessage, 0, len(records))
	for _, m := range records {
		typ := orDefault(m.MessageType, "text")
		if typ == "conversation" {
			typ = "text"
		}
		out = append(out, WAChatMessage{
			ID:        m.Key.ID,
			FromMe:    m.Key.FromMe,
			RemoteJID: m.Key.RemoteJID,
			Content:   firstNonEmpty(messageText(m.Message), "[Mídia]"),
			Type:      typ,
			Timestamp: int64(m.MessageTimestamp),
			Status:    m.Status,
			PushName:  m.PushName,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out, nil
}

// SendText sends a text to a phone number or JID and returns the gateway's reply.
func (e *EvolutionClient) SendText(ctx context.Context, name, to, text string) (map[string]any, error) {
	var number string
	if strings.Contains(to, "@") {
		number = utils.JIDToPhone(to)
	} else {
		number = utils.FormatPhoneBR(to)
	}
	raw, err := e.do(ctx, evolutionSendTimeout, http.MethodPost, "/message/sendText/"+url.PathEscape(name), map[string]any{
		"number": number,
		"text":   text,
	}, http.StatusOK, http.StatusCreated)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	_ = json.Unmarshal(raw, &out)
	return out, nil
}

// SentMessageID returns key.id from a sendText reply.
func SentMessageID(reply map[string]any) string {
	key, _ := reply["key"].(map[string]any)
	id, _ := key["id"].(string)
	return id
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
