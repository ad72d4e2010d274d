package models

import (
	"time"

	"github.com/google/uuid"
)

// WhatsAppSession tracks the Evolution API instance owned by a nutricionista.
type WhatsAppSession struct {
	Base
	NutricionistaID  uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex" json:"nutricionista_id"`
	InstanceName     string     `gorm:"size:100;uniqueIndex;not null" json:"instance_name"`
	InstanceID       string     `gorm:"size:255" json:"instance_id"`
	Status           string     `gorm:"size:20;default:disconnected" json:"status"` // disconnected | pending | connected
	Phone            string     `gorm:"size:20" json:"phone"`
	PhoneName        string     `gorm:"size:255" json:"phone_name"`
	QRCode           string     `gorm:"type:text" json:"-"`
	QRCodeExpiresAt  *time.Time `json:"qr_code_expires_at"`
	LastConnectionAt *time.Time `json:"last_connection_at"`
}

func (WhatsAppSession) TableName() string { return "whatsapp_sessions" }

type Conversa struct {
	Base
	NutricionistaID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"nutricionista_id"`
	PacienteID          *uuid.UUID `gorm:"type:uuid;index" json:"paciente_id"`
	Telefone            string     `gorm:"size:20;not null;index" json:"telefone"`
	NomeContato         string     `gorm:"size:255" json:"nome_contato"`
	FotoContato         string     `gorm:"type:text" json:"foto_contato"`
	StatusPersonalizado string     `gorm:"size:50" json:"status_personalizado"`
	Marcacao            *string    `gorm:"size:50" json:"marcacao"`
	Observacoes         string     `gorm:"type:text" json:"observacoes"`
	UnreadCount         int        `gorm:"default:0" json:"unread_count"`
	LastMessageAt       *time.Time `gorm:"index" json:"last_message_at"`
	LastMessagePreview  string     `gorm:"size:255" json:"last_message_preview"`

	Mensagens []Mensagem `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

func (Conversa) TableName() string { return "conversas" }

type Mensagem struct {
	Base
	ConversaID        uuid.UUID  `gorm:"type:uuid;not null;index" json:"conversa_id"`
	NutricionistaID   uuid.UUID  `gorm:"type:uuid;not null" json:"nutricionista_id"`
	PacienteID        *uuid.UUID `gorm:"type:uuid" json:"paciente_id"`
	Remetente         string     `gorm:"size:20;not null" json:"remetente"` // paciente | nutricionista
	Conteudo          string     `gorm:"type:text;not null" json:"conteudo"`
	Tipo              string     `gorm:"size:20;default:texto" json:"tipo"`
	MidiaURL          string     `gorm:"type:text" json:"midia_url"`
	WhatsAppID        string     `gorm:"column:whatsapp_id;size:255;index" json:"whatsapp_id"`
	WhatsAppTimestamp *time.Time `gorm:"column:whatsapp_timestamp" json:"whatsapp_timestamp"`
	Lida              bool       `gorm:"default:false" json:"lida"`
	LidaEm            *time.Time `json:"lida_em"`
}

func (Mensagem) TableName() string { return "mensagens" }
