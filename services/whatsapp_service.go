package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nuttroadm/backendnuttro/models"
	"github.com/nuttroadm/backendnuttro/utils"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

const (
	EventNovaMensagem = "nova_mensagem"
	qrCodeTTL         = 2 * time.Minute
	previewLen        = 100
	phoneMatchDigits  = 8
)

type WhatsAppService struct {
	db   *gorm.DB
	evo  *EvolutionClient
	rt   Publisher
	push PushNotifier
	log  zerolog.Logger
}

func NewWhatsAppService(db *gorm.DB, evo *EvolutionClient, rt Publisher, push PushNotifier, log zerolog.Logger) *WhatsAppService {
	return &WhatsAppService{db: db, evo: evo, rt: rt, push: push, log: log}
}

func (s *WhatsAppService) session(ctx context.Context, nutriID uuid.UUID) (*models.WhatsAppSession, error) {
	var sess models.WhatsAppSession
	if err := s.db.WithContext(ctx).Where("nutricionista_id = ?", nutriID).First(&sess).Error; err != nil {
		return nil, err
	}
	return &sess, nil
}

// upsertSession records a freshly created instance as pending.
func (s *WhatsAppService) upsertSession(ctx context.Context, nutriID uuid.UUID, res *CreateInstanceResult) (*models.WhatsAppSession, error) {
	sess, err := s.session(ctx, nutriID)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		sess = &models.WhatsAppSession{
			NutricionistaID: nutriID,
			InstanceName:    res.InstanceName,
			InstanceID:      res.InstanceID,
			Status:          "pending",
		}
		err = s.db.WithContext(ctx).Create(sess).Error
	case err == nil:
		sess.InstanceName = res.InstanceName
		if res.InstanceID != "" {
			sess.InstanceID = res.InstanceID
		}
		sess.Status = "pending"
		err = s.db.WithContext(ctx).Save(sess).Error
	}
	return sess, err
}

func (s *WhatsAppService) CreateInstance(ctx context.Context, nutriID uuid.UUID) (map[string]any, error) {
	name := InstanceName(nutriID)
	res, err := s.evo.CreateInstance(ctx, name)
	if err != nil {
		return nil, err
	}
	if _, err := s.upsertSession(ctx, nutriID, res); err != nil {
		return nil, err
	}
	return map[string]any{"message": "Instância criada", "instance_name": name}, nil
}

type QRCodeResult struct {
	QRCode       *string `json:"qr_code"`
	QRCodeBase64 *string `json:"qr_code_base64"`
	PairingCode  *string `json:"pairing_code,omitempty"`
	Status       string  `json:"status"`
	Message      string  `json:"message"`
}

// QRCode creates the instance on first use and returns a fresh pairing QR code.
func (s *WhatsAppService) QRCode(ctx context.Context, nutriID uuid.UUID) (*QRCodeResult, error) {
	name := InstanceName(nutriID)
	sess, err := s.session(ctx, nutriID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		s.log.Info().Str("instance", name).Msg("creating whatsapp instance")
		res, err := s.evo.CreateInstance(ctx, name)
		if err != nil {
			return nil, err
		}
		if sess, err = s.upsertSession(ctx, nutriID, res); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	conn, err := s.evo.Connect(ctx, name)
	if err != nil {
		return nil, err
	}

	if conn.Code != "" || conn.Base64 != "" {
		expires := time.Now().UTC().Add(qrCodeTTL)
		sess.QRCode = firstNonEmpty(conn.Base64, conn.Code)
		sess.QRCodeExpiresAt = &expires
		sess.Status = "pending"
		if err := s.db.WithContext(ctx).Save(sess).Error; err != nil {
			return nil, err
		}
		return &QRCodeResult{
			QRCode:       strPtr(conn.Code),
			QRCodeBase64: strPtr(conn.Base64),
			PairingCode:  strPtr(conn.PairingCode),
			Status:       "pending",
			Message:      "Escaneie o QR Code com seu WhatsApp",
		}, nil
	}

	if conn.State == "open" {
		now := time.Now().UTC()
		sess.Status = "connected"
		sess.LastConnectionAt = &now
		if err := s.db.WithContext(ctx).Save(sess).Error; err != nil {
			return nil, err
		}
		return &QRCodeResult{Status: "connected", Message: "WhatsApp já conectado"}, nil
	}
	return &QRCodeResult{Status: "waiting", Message: "Aguardando geração do QR Code..."}, nil
}

type WhatsAppStatus struct {
	Connected bool   `json:"connected"`
	Status    string `json:"status"`
	Phone     string `json:"phone,omitempty"`
	PhoneName string `json:"phone_name,omitempty"`
	Message   string `json:"message,omitempty"`
}

// Status never fails: gateway problems are reported as status "error".
func (s *WhatsAppService) Status(ctx context.Context, nutriID uuid.UUID) *WhatsAppStatus {
	sess, err := s.session(ctx, nutriID)
	if err != nil {
		return &WhatsAppStatus{Status: "disconnected", Message: "Nenhuma instância WhatsApp criada"}
	}

	state, err := s.evo.ConnectionState(ctx, sess.InstanceName)
	if err != nil {
		s.log.Warn().Err(err).Str("instance", sess.InstanceName).Msg("whatsapp connection state")
		return &WhatsAppStatus{Status: "error", Message: "Erro ao verificar status"}
	}
	if state != "open" {
		return &WhatsAppStatus{Status: orDefault(state, "disconnected"), Message: "Estado atual: " + state}
	}

	now := time.Now().UTC()
	if err := s.db.WithContext(ctx).Model(sess).Updates(map[string]any{
		"status":             "connected",
		"last_connection_at": now,
	}).Error; err != nil {
		s.log.Error().Err(err).Msg("update whatsapp session")
	}
	return &WhatsAppStatus{Connected: true, Status: "connected", Phone: sess.Phone, PhoneName: sess.PhoneName}
}

func (s *WhatsAppService) Disconnect(ctx context.Context, nutriID uuid.UUID) error {
	name := InstanceName(nutriID)
	if err := s.evo.Logout(ctx, name); err != nil {
		s.log.Warn().Err(err).Str("instance", name).Msg("whatsapp logout")
	}
	return s.db.WithContext(ctx).Model(&models.WhatsAppSession{}).
		Where("nutricionista_id = ?", nutriID).
		Updates(map[string]any{"status": "disconnected", "qr_code": ""}).Error
}

func (s *WhatsAppService) Chats(ctx context.Context, nutriID uuid.UUID) ([]Chat, error) {
	return s.evo.FindChats(ctx, InstanceName(nutriID))
}

func (s *WhatsAppService) Messages(ctx context.Context, nutriID uuid.UUID, remoteJID string, limit int) ([]WAChatMessage, error) {
	remoteJID = strings.TrimPrefix(remoteJID, "/")
	if remoteJID == "" {
		return nil, invalid("remoteJid é obrigatório")
	}
	if limit <= 0 {
		limit = 50
	}
	return s.evo.FindMessages(ctx, InstanceName(nutriID), remoteJID, limit)
}

type SendInput struct {
	RemoteJID string `json:"remoteJid"`
	Phone     string `json:"phone"`
	Message   string `json:"message"`
	Text      string `json:"text"`
	Content   string `json:"content"`
}

func (s *WhatsAppService) Send(ctx context.Context, nutriID uuid.UUID, in SendInput) (map[string]any, error) {
	to := firstNonEmpty(in.RemoteJID, in.Phone)
	text := firstNonEmpty(in.Message, in.Text, in.Content)
	if to == "" || text == "" {
		return nil, invalid("remoteJid e message são obrigatórios")
	}
	reply, err := s.evo.SendText(ctx, InstanceName(nutriID), utils.PhoneToJID(to), text)
	if err != nil {
		return nil, err
	}
	return map[string]any{"success": true, "message": "Mensagem enviada com sucesso", "data": reply}, nil
}

// ---------- conversas ----------

func normalizeMarcacao(v *string) *string {
	if v == nil {
		return nil
	}
	m := strings.TrimSpace(*v)
	if m == "" || m == "null" {
		return nil
	}
	return &m
}

// findConversaByPhone matches the normalised number exactly first, then by its last
// eight digits; among several suffix matches the most recently active conversation wins.
func findConversaByPhone(ctx context.Context, db *gorm.DB, nutriID uuid.UUID, phone string) (*models.Conversa, error) {
	raw := strings.TrimSpace(phone)
	digits := utils.DigitsOnly(utils.JIDToPhone(raw))
	if digits == "" {
		return nil, ErrNotFound
	}

	var c models.Conversa
	err := db.WithContext(ctx).
		Where("nutricionista_id = ? AND telefone IN ?", nutriID, []string{raw, digits, utils.FormatPhoneBR(digits)}).
		Order("updated_at DESC").First(&c).Error
	if err == nil {
		return &c, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	suffix := utils.PhoneSuffix(digits, phoneMatchDigits)
	err = db.WithContext(ctx).
		Where("nutricionista_id = ? AND telefone LIKE ?", nutriID, "%"+suffix+"%").
		Order("last_message_at IS NULL, last_message_at DESC, updated_at DESC").
		First(&c).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

// conversaForPhone returns the conversation for phone, creating it when missing.
func (s *WhatsAppService) conversaForPhone(ctx context.Context, nutriID uuid.UUID, phone string) (*models.Conversa, error) {
	c, err := findConversaByPhone(ctx, s.db, nutriID, phone)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	digits := utils.DigitsOnly(utils.JIDToPhone(phone))
	if digits == "" {
		return nil, invalid("Telefone inválido")
	}
	c = &models.Conversa{NutricionistaID: nutriID, Telefone: digits, NomeContato: digits}
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, err
	}
	return c, nil
}

type MarcacaoInfo struct {
	ConversaID  uuid.UUID `json:"conversa_id"`
	Marcacao    *string   `json:"marcacao"`
	NomeContato string    `json:"nome_contato"`
}

// Marcacoes maps telefone to the conversation's marcação.
func (s *WhatsAppService) Marcacoes(ctx context.Context, nutriID uuid.UUID) (map[string]MarcacaoInfo, error) {
	var list []models.Conversa
	if err := s.db.WithContext(ctx).
		Where("nutricionista_id = ? AND marcacao IS NOT NULL", nutriID).Find(&list).Error; err != nil {
		return nil, err
	}
	out := make(map[string]MarcacaoInfo, len(list))
	for _, c := range list {
		out[c.Telefone] = MarcacaoInfo{ConversaID: c.ID, Marcacao: c.Marcacao, NomeContato: c.NomeContato}
	}
	return out, nil
}

func (s *WhatsAppService) SetMarcacaoByPhone(ctx context.Context, nutriID uuid.UUID, phone string, marcacao *string) (*models.Conversa, error) {
	c, err := s.conversaForPhone(ctx, nutriID, phone)
	if err != nil {
		return nil, err
	}
	c.Marcacao = normalizeMarcacao(marcacao)
	if err := s.db.WithContext(ctx).Model(c).Select("marcacao", "updated_at").Updates(c).Error; err != nil {
		return nil, err
	}
	return c, nil
}

func (s *WhatsAppService) SetObservacoesByPhone(ctx context.Context, nutriID uuid.UUID, phone, observacoes string) (*models.Conversa, error) {
	c, err := s.conversaForPhone(ctx, nutriID, phone)
	if err != nil {
		return nil, err
	}
	c.Observacoes = observacoes
	if err := s.db.WithContext(ctx).Model(c).Select("observacoes", "updated_at").Updates(c).Error; err != nil {
		return nil, err
	}
	return c, nil
}

func (s *WhatsAppService) SetConversaMarcacao(ctx context.Context, nutriID, conversaID uuid.UUID, marcacao *string) (*models.Conversa, error) {
	var c models.Conversa
	if err := s.db.WithContext(ctx).Where("id = ? AND nutricionista_id = ?", conversaID, nutriID).First(&c).Error; err != nil {
		return nil, notFound(err)
	}
	c.Marcacao = normalizeMarcacao(marcacao)
	if err := s.db.WithContext(ctx).Model(&c).Select("marcacao", "updated_at").Updates(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// SetMensagemMarcacao tags the conversation the message belongs to.
func (s *WhatsAppService) SetMensagemMarcacao(ctx context.Context, nutriID, mensagemID uuid.UUID, marcacao *string) (*models.Conversa, error) {
	var m models.Mensagem
	if err := s.db.WithContext(ctx).Where("id = ? AND nutricionista_id = ?", mensagemID, nutriID).First(&m).Error; err != nil {
		return nil, notFound(err)
	}
	return s.SetConversaMarcacao(ctx, nutriID, m.ConversaID, marcacao)
}

type MensagemView struct {
	ID         uuid.UUID  `json:"id"`
	PacienteID *uuid.UUID `json:"paciente_id"`
	Remetente  string     `json:"remetente"`
	Conteudo   string     `json:"conteudo"`
	Tipo       string     `json:"tipo"`
	MidiaURL   string     `json:"midia_url"`
	Lida       bool       `json:"lida"`
	Timestamp  time.Time  `json:"timestamp"`
	Marcacao   *string    `json:"marcacao"`
}

func (s *WhatsAppService) ListMensagens(ctx context.Context, nutriID, pacienteID uuid.UUID, limit int) ([]MensagemView, error) {
	if limit <= 0 {
		limit = 50
	}
	var c models.Conversa
	err := s.db.WithContext(ctx).Where("nutricionista_id = ? AND paciente_id = ?", nutriID, pacienteID).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return []MensagemView{}, nil
	}
	if err != nil {
		return nil, err
	}

	var msgs []models.Mensagem
	if err := s.db.WithContext(ctx).Where("conversa_id = ?", c.ID).
		Order("created_at ASC").Limit(limit).Find(&msgs).Error; err != nil {
		return nil, err
	}
	out := make([]MensagemView, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, MensagemView{
			ID: m.ID, PacienteID: m.PacienteID, Remetente: m.Remetente, Conteudo: m.Conteudo,
			Tipo: m.Tipo, MidiaURL: m.MidiaURL, Lida: m.Lida, Timestamp: m.CreatedAt, Marcacao: c.Marcacao,
		})
	}
	return out, nil
}

type MensagemInput struct {
	PacienteID string `json:"paciente_id" binding:"required"`
	Conteudo   string `json:"conteudo" binding:"required"`
	Tipo       string `json:"tipo"`
}

type MensagemEnviada struct {
	ID      uuid.UUID `json:"id"`
	Enviada bool      `json:"enviada"`
	Message string    `json:"message"`
}

// SendMensagem sends a text to a patient over WhatsApp and keeps a copy in the conversation.
// A gateway failure is logged and the message is still stored.
func (s *WhatsAppService) SendMensagem(ctx context.Context, nutriID uuid.UUID, in MensagemInput) (*MensagemEnviada, error) {
	pid, err := ParseID(in.PacienteID)
	if err != nil {
		return nil, err
	}
	p, err := ownedPaciente(ctx, s.db, nutriID, pid)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(p.Telefone) == "" {
		return nil, ErrNoPhone
	}
	tipo := orDefault(in.Tipo, "texto")

	var c models.Conversa
	err = s.db.WithContext(ctx).Where("nutricionista_id = ? AND paciente_id = ?", nutriID, p.ID).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c = models.Conversa{
			NutricionistaID: nutriID,
			PacienteID:      &p.ID,
			Telefone:        utils.DigitsOnly(p.Telefone),
			NomeContato:     p.Nome,
		}
		err = s.db.WithContext(ctx).Create(&c).Error
	}
	if err != nil {
		return nil, err
	}

	enviada := true
	var waID string
	reply, err := s.evo.SendText(ctx, InstanceName(nutriID), p.Telefone, in.Conteudo)
	if err != nil {
		enviada = false
		s.log.Error().Err(err).Str("paciente_id", p.ID.String()).Msg("whatsapp send failed")
	} else {
		waID = SentMessageID(reply)
	}

	now := time.Now().UTC()
	m := &models.Mensagem{
		ConversaID:      c.ID,
		NutricionistaID: nutriID,
		PacienteID:      &p.ID,
		Remetente:       "nutricionista",
		Conteudo:        in.Conteudo,
		Tipo:            tipo,
		WhatsAppID:      waID,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(m).Error; err != nil {
			return err
		}
		return tx.Model(&c).Updates(map[string]any{
			"last_message_at":      now,
			"last_message_preview": truncate(in.Conteudo, previewLen),
		}).Error
	})
	if err != nil {
		return nil, err
	}

	event := mensagemEvent(m, p.ID.String())
	if s.rt != nil {
		s.rt.Publish(PacienteRoom(p.ID), EventNovaMensagem, event)
	}
	if s.push != nil {
		s.push.PushToPaciente(ctx, p.ID, "Nova mensagem da sua nutricionista", truncate(in.Conteudo, previewLen),
			map[string]string{"type": EventNovaMensagem, "mensagem_id": m.ID.String()})
	}

	msg := "Mensagem enviada com sucesso"
	if !enviada {
		msg = "Mensagem salva, mas não foi possível enviar pelo WhatsApp"
	}
	return &MensagemEnviada{ID: m.ID, Enviada: enviada, Message: msg}, nil
}

func mensagemEvent(m *models.Mensagem, pacienteID string) map[string]any {
	var pid any
	if pacienteID != "" {
		pid = pacienteID
	}
	return map[string]any{
		"id":          m.ID.String(),
		"paciente_id": pid,
		"remetente":   m.Remetente,
		"conteudo":    m.Conteudo,
		"tipo":        m.Tipo,
		"timestamp":   m.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
