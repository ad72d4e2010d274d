package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type PlanoAlimentar struct {
	Base
	PacienteID      uuid.UUID                           `gorm:"type:uuid;not null;index" json:"paciente_id"`
	NutricionistaID *uuid.UUID                          `gorm:"type:uuid" json:"nutricionista_id"`
	Titulo          string                              `gorm:"size:255;not null" json:"titulo"`
	Descricao       string                              `gorm:"type:text" json:"descricao"`
	Objetivo        string                              `gorm:"size:100" json:"objetivo"`
	CaloriasDiarias *int                                `json:"calorias_diarias"`
	MacrosAlvo      datatypes.JSONType[Macros]          `json:"macros_alvo"`
	Refeicoes       datatypes.JSONType[[]RefeicaoPlano] `json:"refeicoes"`
	Orientacoes     StringList                          `json:"orientacoes"`
	Observacoes     string                              `gorm:"type:text" json:"observacoes"`
	Ativo           bool                                `gorm:"index" json:"ativo"`
	DataInicio      *time.Time                          `json:"data_inicio"`
	DataFim         *time.Time                          `json:"data_fim"`
	GeradoPorIA     bool                                `gorm:"column:gerado_por_ia" json:"gerado_por_ia"`

	Consultas []Consulta `gorm:"foreignKey:PlanoAlimentarID;constraint:OnDelete:SET NULL" json:"-"`
}

func (PlanoAlimentar) TableName() string { return "planos_alimentares" }
