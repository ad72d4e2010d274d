package models

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// IAHistorico is the audit trail of every LLM round-trip.
type IAHistorico struct {
	Base
	PacienteID      *uuid.UUID     `gorm:"type:uuid;index" json:"paciente_id"`
	NutricionistaID *uuid.UUID     `gorm:"type:uuid;index" json:"nutricionista_id"`
	Tipo            string         `gorm:"size:50;not null" json:"tipo"`
	InputData       datatypes.JSON `json:"input_data"`
	OutputData      datatypes.JSON `json:"output_data"`
	ModeloUsado     string         `gorm:"size:100" json:"modelo_usado"`
	TokensUsados    int            `json:"tokens_usados"`
	TempoRespostaMS int64          `gorm:"column:tempo_resposta_ms" json:"tempo_resposta_ms"`
	Sucesso         bool           `json:"sucesso"`
	Erro            string         `gorm:"type:text" json:"erro"`
}

func (IAHistorico) TableName() string { return "ia_historico" }
