package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/nuttroadm/backendnuttro/models"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

const EventAlertaCriado = "alerta.criado"

type AlertBus struct {
	db  *gorm.DB
	rt  Publisher
	log zerolog.Logger
}

func NewAlertBus(db *gorm.DB, rt Publisher, log zerolog.Logger) *AlertBus {
	return &AlertBus{db: db, rt: rt, log: log}
}

// Emit stores the alert and notifies the nutricionista's live sessions.
func (b *AlertBus) Emit(ctx context.Context, nutricionistaID, pacienteID uuid.UUID, tipo, mensagem string) (*models.Alert, error) {
	a := &models.Alert{
		NutricionistaID: nutricionistaID,
		PacienteID:      pacienteID,
		Tipo:            tipo,
		Mensagem:        mensagem,
	}
	if err := b.db.WithContext(ctx).Create(a).Error; err != nil {
		return nil, fmt.Errorf("create alert: %w", err)
	}

	if b.rt != nil {
		b.rt.Publish(NutricionistaRoom(nutricionistaID), EventAlertaCriado, a)
	}
	b.log.Info().Str("nutricionista_id", nutricionistaID.String()).Str("paciente_id", pacienteID.String()).
		Str("tipo", tipo).Msg("alert emitted")
	return a, nil
}

func (b *AlertBus) List(ctx context.Context, nutricionistaID uuid.UUID, lido *bool) ([]models.Alert, error) {
	q := b.db.WithContext(ctx).Where("nutricionista_id = ?", nutricionistaID)
	if lido != nil {
		q = q.Where("lido = ?", *lido)
	}
	var alerts []models.Alert
	err := q.Order("created_at desc").Limit(200).Find(&alerts).Error
	return alerts, err
}

func (b *AlertBus) MarkRead(ctx context.Context, nutricionistaID, id uuid.UUID) error {
	res := b.db.WithContext(ctx).Model(&models.Alert{}).
		Where("id = ? AND nutricionista_id = ?", id, nutricionistaID).
		Update("lido", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
