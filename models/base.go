package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Base replaces gorm.Model for every table: UUID keys, UTC timestamps, no soft delete.
type Base struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// StringList is a JSON array column.
type StringList = datatypes.JSONType[[]string]

func NewStringList(v []string) StringList {
	if v == nil {
		v = []string{}
	}
	return datatypes.NewJSONType(v)
}

// All lists every table in migration order.
func All() []any {
	return []any{
		&Nutricionista{},
		&Paciente{},
		&CheckIn{},
		&Refeicao{},
		&Meta{},
		&PlanoAlimentar{},
		&Consulta{},
		&Agendamento{},
		&ChatMessage{},
		&WhatsAppSession{},
		&StatusPersonalizado{},
		&Conversa{},
		&Mensagem{},
		&IAHistorico{},
		&Alert{},
		&PacienteDevice{},
	}
}
