package models

import "github.com/google/uuid"

// Alert is raised for the nutricionista when a check-in analysis asks for attention.
type Alert struct {
	Base
	NutricionistaID uuid.UUID `gorm:"type:uuid;not null;index" json:"nutricionista_id"`
	PacienteID      uuid.UUID `gorm:"type:uuid;not null;index" json:"paciente_id"`
	Tipo            string    `gorm:"size:30" json:"tipo"` // checkin | info
	Mensagem        string    `gorm:"type:text" json:"mensagem"`
	Lido            bool      `gorm:"default:false;index" json:"lido"`
}

func (Alert) TableName() string { return "alertas" }
