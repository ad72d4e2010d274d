package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Refeicao struct {
	Base
	PacienteID         uuid.UUID                  `gorm:"type:uuid;not null;index" json:"paciente_id"`
	Tipo               string                     `gorm:"size:30" json:"tipo"`
	DataHora           time.Time                  `gorm:"index" json:"data_hora"`
	FotoBase64         string                     `gorm:"type:text" json:"-"`
	FotoURL            string                     `gorm:"type:text" json:"foto_url"`
	Descricao          string                     `gorm:"type:text" json:"descricao"`
	ItensIdentificados StringList                 `json:"itens_identificados"`
	Porcoes            datatypes.JSONMap          `json:"porcoes"`
	Macros             datatypes.JSONType[Macros] `json:"macros"`
	CaloriasEstimadas  int                        `json:"calorias_estimadas"`
	FeedbackIA         string                     `gorm:"column:feedback_ia;type:text" json:"feedback_ia"`
	SugestoesIA        StringList                 `gorm:"column:sugestoes_ia" json:"sugestoes_ia"`
	AlinhamentoPlano   string                     `gorm:"size:20" json:"alinhamento_plano"`
}

func (Refeicao) TableName() string { return "refeicoes" }
