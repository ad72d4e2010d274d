package models

import (
	"time"

	"github.com/google/uuid"
)

type Nutricionista struct {
	Base
	Email          string     `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Nome           string     `gorm:"size:255;not null" json:"nome"`
	SenhaHash      string     `gorm:"size:255" json:"-"`
	CRN            *string    `gorm:"size:50;uniqueIndex" json:"crn"`
	Especialidades StringList `json:"especialidades"`
	Telefone       string     `gorm:"size:20" json:"telefone"`
	FotoURL        string     `gorm:"type:text" json:"foto_url"`
	Bio            string     `gorm:"type:text" json:"bio"`
	GoogleID       *string    `gorm:"size:255;uniqueIndex" json:"-"`
	Ativo          bool       `json:"ativo"`
	Plano          string     `gorm:"size:20;default:free" json:"plano"` // free | pro | enterprise
	LastLoginAt    *time.Time `json:"last_login_at"`

	Pacientes            []Paciente            `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Agendamentos         []Agendamento         `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Consultas            []Consulta            `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	StatusPersonalizados []StatusPersonalizado `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Conversas            []Conversa            `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Alertas              []Alert               `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	WhatsAppSession      *WhatsAppSession      `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

func (Nutricionista) TableName() string { return "nutricionistas" }

// NutricionistaView is the public shape returned by the API.
type NutricionistaView struct {
	ID             uuid.UUID  `json:"id"`
	Email          string     `json:"email"`
	Nome           string     `json:"nome"`
	CRN            *string    `json:"crn"`
	Especialidades []string   `json:"especialidades"`
	Telefone       string     `json:"telefone"`
	FotoURL        string     `json:"foto_url"`
	Bio            string     `json:"bio"`
	Ativo          bool       `json:"ativo"`
	Plano          string     `json:"plano"`
	LastLoginAt    *time.Time `json:"last_login_at"`
	CreatedAt      time.Time  `json:"created_at"`
}
