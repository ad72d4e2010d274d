package models

import (
	"time"

	"github.com/google/uuid"
)

type Agendamento struct {
	Base
	NutricionistaID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"nutricionista_id"`
	PacienteID          *uuid.UUID `gorm:"type:uuid;index" json:"paciente_id"`
	Titulo              string     `gorm:"size:255" json:"titulo"`
	DataHora            time.Time  `gorm:"not null;index" json:"data_hora"`
	DuracaoMinutos      int        `gorm:"default:60" json:"duracao_minutos"`
	Tipo                string     `gorm:"size:30;default:consulta" json:"tipo"`
	Status              string     `gorm:"size:20;default:agendado" json:"status"` // agendado | confirmado | realizado | cancelado | remarcado
	Observacoes         string     `gorm:"type:text" json:"observacoes"`
	LinkVideochamada    string     `gorm:"type:text" json:"link_videochamada"`
	LembreteEnviado     bool       `gorm:"default:false" json:"lembrete_enviado"`
	ConfirmacaoPaciente bool       `gorm:"default:false" json:"confirmacao_paciente"`

	PacienteNome string `gorm:"-" json:"paciente_nome,omitempty"`
}

func (Agendamento) TableName() string { return "agendamentos" }
