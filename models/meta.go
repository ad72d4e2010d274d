package models

import (
	"time"

	"github.com/google/uuid"
)

type Meta struct {
	Base
	PacienteID          uuid.UUID  `gorm:"type:uuid;not null;index" json:"paciente_id"`
	NutricionistaID     *uuid.UUID `gorm:"type:uuid" json:"nutricionista_id"`
	Tipo                string     `gorm:"size:50" json:"tipo"`
	Titulo              string     `gorm:"size:255;not null" json:"titulo"`
	Descricao           string     `gorm:"type:text" json:"descricao"`
	MetaValor           *float64   `json:"meta_valor"`
	ValorAtual          float64    `json:"valor_atual"`
	Unidade             string     `gorm:"size:20" json:"unidade"`
	Periodo             string     `gorm:"size:20" json:"periodo"`
	DataInicio          *time.Time `json:"data_inicio"`
	DataFim             *time.Time `json:"data_fim"`
	Status              string     `gorm:"size:20;default:ativa" json:"status"` // ativa | concluida | pausada
	ProgressoPercentual int        `json:"progresso_percentual"`
	CriadaPor           string     `gorm:"size:20;default:nutricionista" json:"criada_por"`
}

func (Meta) TableName() string { return "metas" }

// RecalcProgress derives progresso_percentual from the current and target values.
func (m *Meta) RecalcProgress() {
	if m.MetaValor == nil || *m.MetaValor <= 0 {
		return
	}
	p := int(m.ValorAtual / *m.MetaValor * 100)
	if p > 100 {
		p = 100
	}
	if p < 0 {
		p = 0
	}
	m.ProgressoPercentual = p
	// only an active goal moves to concluida
	if p == 100 && m.Status == "ativa" {
		m.Status = "concluida"
	}
}
