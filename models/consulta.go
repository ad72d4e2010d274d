package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Consulta struct {
	Base
	PacienteID              uuid.UUID                            `gorm:"type:uuid;not null;index" json:"paciente_id"`
	NutricionistaID         uuid.UUID                            `gorm:"type:uuid;not null;index" json:"nutricionista_id"`
	Tipo                    string                               `gorm:"size:30;default:acompanhamento" json:"tipo"` // primeira_consulta | retorno | acompanhamento
	DataConsulta            time.Time                            `gorm:"index" json:"data_consulta"`
	DuracaoMinutos          int                                  `gorm:"default:60" json:"duracao_minutos"`
	Status                  string                               `gorm:"size:20;default:em_andamento" json:"status"`
	Anamnese                datatypes.JSONMap                    `json:"anamnese"`
	AvaliacaoFisica         datatypes.JSONMap                    `json:"avaliacao_fisica"`
	AvaliacaoEmocional      datatypes.JSONMap                    `json:"avaliacao_emocional"`
	AvaliacaoComportamental datatypes.JSONMap                    `json:"avaliacao_comportamental"`
	AvaliacaoBemEstar       datatypes.JSONMap                    `json:"avaliacao_bem_estar"`
	PlanoAlimentarID        *uuid.UUID                           `gorm:"type:uuid" json:"plano_alimentar_id"`
	MetasDefinidas          datatypes.JSONType[[]map[string]any] `json:"metas_definidas"`
	Observacoes             string                               `gorm:"type:text" json:"observacoes"`
	ProximosPassos          StringList                           `json:"proximos_passos"`
	InsightsIA              *datatypes.JSONType[ConsultaInsight] `gorm:"column:insights_ia" json:"insights_ia"`
	RecomendacoesIA         StringList                           `gorm:"column:recomendacoes_ia" json:"recomendacoes_ia"`

	PacienteNome string `gorm:"-" json:"paciente_nome,omitempty"`
}

func (Consulta) TableName() string { return "consultas" }
