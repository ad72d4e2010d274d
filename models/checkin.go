package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// CheckIn is a daily self-report. Scales are 1..3; nullable ones are optional in the app.
type CheckIn struct {
	Base
	PacienteID          uuid.UUID                            `gorm:"type:uuid;not null;index" json:"paciente_id"`
	Data                time.Time                            `gorm:"not null;index" json:"data"`
	ConsistenciaPlano   int                                  `json:"consistencia_plano"`
	FrequenciaRefeicoes int                                  `json:"frequencia_refeicoes"`
	TempoRefeicao       *int                                 `json:"tempo_refeicao"`
	VegetaisFrutas      int                                  `json:"vegetais_frutas"`
	IngestaoLiquido     int                                  `json:"ingestao_liquido"`
	EnergiaFisica       int                                  `json:"energia_fisica"`
	AtividadeFisica     *int                                 `json:"atividade_fisica"`
	QualidadeSono       int                                  `json:"qualidade_sono"`
	ConfiancaJornada    int                                  `json:"confianca_jornada"`
	SatisfacaoCorpo     *int                                 `json:"satisfacao_corpo"`
	Comportamental      datatypes.JSONMap                    `json:"comportamental"`
	Humor               string                               `gorm:"size:50" json:"humor"`
	Notas               string                               `gorm:"type:text" json:"notas"`
	AnaliseIA           *datatypes.JSONType[CheckinAnalysis] `json:"analise_ia"`
}

func (CheckIn) TableName() string { return "checkins" }
