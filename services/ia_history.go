package services

import (
	"context"
	"encoding/json"

	"github.com/nuttroadm/backendnuttro/agents"
	"github.com/nuttroadm/backendnuttro/models"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// IAHistoryRecorder writes one ia_historico row per LLM call.
type IAHistoryRecorder struct {
	db  *gorm.DB
	log zerolog.Logger
}

func NewIAHistoryRecorder(db *gorm.DB, log zerolog.Logger) *IAHistoryRecorder {
	return &IAHistoryRecorder{db: db, log: log}
}

func (r *IAHistoryRecorder) Record(ctx context.Context, call agents.Call) {
	input, _ := json.Marshal(call.Input)
	output, _ := json.Marshal(map[string]string{"content": call.Output})

	row := &models.IAHistorico{
		PacienteID:      call.PacienteID,
		NutricionistaID: call.NutricionistaID,
		Tipo:            call.Kind,
		InputData:       datatypes.JSON(input),
		OutputData:      datatypes.JSON(output),
		ModeloUsado:     call.Model,
		TokensUsados:    call.Tokens,
		TempoRespostaMS: call.Latency.Milliseconds(),
		Sucesso:         call.Err == nil,
	}
	if call.Err != nil {
		row.Erro = call.Err.Error()
	}

	// the request may already be cancelled; the audit row is still wanted
	if err := r.db.WithContext(context.WithoutCancel(ctx)).Create(row).Error; err != nil {
		r.log.Warn().Err(err).Str("kind", call.Kind).Msg("ia_historico insert failed")
	}
}
