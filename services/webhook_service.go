package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nuttroadm/backendnuttro/models"
	"github.com/nuttroadm/backendnuttro/utils"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

const (
	EventMessagesUpsert   = "messages.upsert"
	EventConnectionUpdate = "connection.update"
)

// EvolutionEvent is the envelope Evolution API posts to the webhook.
type EvolutionEvent struct {
	Event    string          `json:"event"`
	Instance string          `json:"instance"`
	Data     json.RawMessage `json:"data"`
}

type WebhookService struct {
	db  *gorm.DB
	rt  Publisher
	log zerolog.Logger
}

func NewWebhookService(db *gorm.DB, rt Publisher, log zerolog.Logger) *WebhookService {
	return &WebhookService{db: db, rt: rt, log: log}
}

// Handle processes one webhook delivery. Unknown events and foreign instances are ignored.
func (s *WebhookService) Handle(ctx context.Context, ev EvolutionEvent) error {
	s.log.Info().Str("event", ev.Event).Str("instance", ev.Instance).Msg("evolution webhook")

	nutriID, ok := ownerFromInstance(ev.Instance)
	if !ok {
		return nil
	}
	switch ev.Event {
	case EventMessagesUpsert:
		msgs, err := upsertMessages(ev.Data)
		if err != nil {
			return err
		}
		for _, m := range msgs {
			if err := s.incoming(ctx, nutriID, m); err != nil {
				return err
			}
		}
	case EventConnectionUpdate:
		var d struct {
			State string `json:"state"`
		}
		if len(ev.Data) > 0 {
			if err := json.Unmarshal(ev.Data, &d); err != nil {
				return fmt.Errorf("decode connection.update: %w", err)
			}
		}
		return s.connectionUpdate(ctx, ev.Instance, d.State)
	}
	return nil
}

func ownerFromInstance(instance string) (uuid.UUID, bool) {
	raw, ok := strings.CutPrefix(instance, "nuttro_")
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	return id, err == nil
}

// upsertMessages accepts data as a single message object or an array of them.
func upsertMessages(data json.RawMessage) ([]waMessage, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}
	if strings.HasPrefix(trimmed, "[") {
		var list []waMessage
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, fmt.Errorf("decode messages.upsert: %w", err)
		}
		return list, nil
	}
	var one waMessage
	if err := json.Unmarshal(data, &one); err != nil {
		return nil, fmt.Errorf("decode messages.upsert: %w", err)
	}
	return []waMessage{one}, nil
}

func (s *WebhookService) incoming(ctx context.Context, nutriID uuid.UUID, m waMessage) error {
	if m.Key.FromMe || !utils.IsDirectChatJID(m.Key.RemoteJID) {
		return nil
	}
	phone := utils.JIDToPhone(m.Key.RemoteJID)
	conteudo := messageText(m.Message)

	c, err := findConversaByPhone(ctx, s.db, nutriID, phone)
	if errors.Is(err, ErrNotFound) {
		c, err = s.conversaFromPaciente(ctx, nutriID, phone, m.PushName)
	}
	if err != nil {
		return err
	}
	if c == nil {
		s.log.Debug().Str("phone", phone).Msg("no conversation for incoming message")
		return nil
	}

	now := time.Now().UTC()
	msg := &models.Mensagem{
		ConversaID:      c.ID,
		NutricionistaID: nutriID,
		PacienteID:      c.PacienteID,
		Remetente:       "paciente",
		Conteudo:        conteudo,
		Tipo:            "texto",
		WhatsAppID:      m.Key.ID,
	}
	if m.MessageTimestamp > 0 {
		ts := time.Unix(int64(m.MessageTimestamp), 0).UTC()
		msg.WhatsAppTimestamp = &ts
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		return tx.Model(c).Updates(map[string]any{
			"last_message_at":      now,
			"last_message_preview": truncate(conteudo, previewLen),
			"unread_count":         gorm.Expr("unread_count + ?", 1),
		}).Error
	})
	if err != nil {
		return err
	}

	if s.rt != nil {
		pid := ""
		if c.PacienteID != nil {
			pid = c.PacienteID.String()
			s.rt.Publish(PacienteRoom(*c.PacienteID), EventNovaMensagem, mensagemEvent(msg, pid))
		}
		event := mensagemEvent(msg, pid)
		event["conversa_id"] = c.ID.String()
		event["telefone"] = c.Telefone
		s.rt.Publish(NutricionistaRoom(nutriID), EventNovaMensagem, event)
	}
	return nil
}

// conversaFromPaciente opens a conversation when the sender is a known patient of the nutricionista.
func (s *WebhookService) conversaFromPaciente(ctx context.Context, nutriID uuid.UUID, phone, pushName string) (*models.Conversa, error) {
	suffix := utils.PhoneSuffix(phone, phoneMatchDigits)
	if suffix == "" {
		return nil, nil
	}
	var p models.Paciente
	err := s.db.WithContext(ctx).
		Where("nutricionista_id = ? AND telefone LIKE ?", nutriID, "%"+suffix+"%").
		Order("updated_at DESC").First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	c := &models.Conversa{
		NutricionistaID: nutriID,
		PacienteID:      &p.ID,
		Telefone:        utils.DigitsOnly(phone),
		NomeContato:     firstNonEmpty(p.Nome, pushName, phone),
	}
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, err
	}
	return c, nil
}

func (s *WebhookService) connectionUpdate(ctx context.Context, instance, state string) error {
	updates := map[string]any{}
	switch state {
	case "open":
		updates["status"] = "connected"
		updates["last_connection_at"] = time.Now().UTC()
	case "close":
		updates["status"] = "disconnected"
	default:
		return nil
	}
	return s.db.WithContext(ctx).Model(&models.WhatsAppSession{}).
		Where("instance_name = ?", instance).Updates(updates).Error
}
