package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/nuttroadm/backendnuttro/models"
	"gorm.io/gorm"
)

const defaultStatusCor = "#6B2FFF"

// StatusView is one column of the conversation board. Built-in entries have no id.
type StatusView struct {
	ID     *uuid.UUID `json:"id"`
	Nome   string     `json:"nome"`
	Cor    string     `json:"cor"`
	Icone  string     `json:"icone"`
	Ordem  int        `json:"ordem"`
	Padrao bool       `json:"padrao"`
}

var builtinStatuses = []StatusView{
	{Nome: "agendado", Cor: "#3B82F6", Icone: "calendar", Ordem: -3, Padrao: true},
	{Nome: "ainda_a_agendar", Cor: "#F59E0B", Icone: "clock", Ordem: -2, Padrao: true},
	{Nome: "aguardando_resposta", Cor: "#8B5CF6", Icone: "message-circle", Ordem: -1, Padrao: true},
}

type StatusInput struct {
	Nome  *string `json:"nome"`
	Cor   *string `json:"cor"`
	Icone *string `json:"icone"`
	Ordem *int    `json:"ordem"`
	Ativo *bool   `json:"ativo"`
}

type StatusService struct {
	db *gorm.DB
}

func NewStatusService(db *gorm.DB) *StatusService {
	return &StatusService{db: db}
}

// List returns the built-in statuses followed by the active custom ones.
func (s *StatusService) List(ctx context.Context, nutriID uuid.UUID) ([]StatusView, error) {
	var custom []models.StatusPersonalizado
	if err := s.db.WithContext(ctx).
		Where("nutricionista_id = ? AND ativo = ?", nutriID, true).
		Order("ordem ASC").Find(&custom).Error; err != nil {
		return nil, err
	}

	out := make([]StatusView, 0, len(builtinStatuses)+len(custom))
	out = append(out, builtinStatuses...)
	for _, c := range custom {
		id := c.ID
		out = append(out, StatusView{ID: &id, Nome: c.Nome, Cor: c.Cor, Icone: c.Icone, Ordem: c.Ordem})
	}
	return out, nil
}

func (s *StatusService) Create(ctx context.Context, nutriID uuid.UUID, in StatusInput) (*models.StatusPersonalizado, error) {
	if in.Nome == nil || strings.TrimSpace(*in.Nome) == "" {
		return nil, invalid("Nome é obrigatório")
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.StatusPersonalizado{}).
		Where("nutricionista_id = ?", nutriID).Count(&count).Error; err != nil {
		return nil, err
	}

	st := &models.StatusPersonalizado{
		NutricionistaID: nutriID,
		Nome:            strings.TrimSpace(*in.Nome),
		Cor:             defaultStatusCor,
		Ordem:           int(count) + 1,
		Ativo:           true,
	}
	if in.Cor != nil && *in.Cor != "" {
		st.Cor = *in.Cor
	}
	setIf(&st.Icone, in.Icone)
	if err := s.db.WithContext(ctx).Create(st).Error; err != nil {
		return nil, err
	}
	return st, nil
}

func (s *StatusService) Update(ctx context.Context, nutriID, id uuid.UUID, in StatusInput) (*models.StatusPersonalizado, error) {
	var st models.StatusPersonalizado
	if err := s.db.WithContext(ctx).Where("id = ? AND nutricionista_id = ?", id, nutriID).First(&st).Error; err != nil {
		return nil, notFound(err)
	}
	if in.Nome != nil {
		if strings.TrimSpace(*in.Nome) == "" {
			return nil, invalid("Nome é obrigatório")
		}
		st.Nome = strings.TrimSpace(*in.Nome)
	}
	setIf(&st.Cor, in.Cor)
	setIf(&st.Icone, in.Icone)
	setIf(&st.Ordem, in.Ordem)
	setIf(&st.Ativo, in.Ativo)
	if err := s.db.WithContext(ctx).Save(&st).Error; err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *StatusService) Delete(ctx context.Context, nutriID, id uuid.UUID) error {
	res := s.db.WithContext(ctx).Where("id = ? AND nutricionista_id = ?", id, nutriID).Delete(&models.StatusPersonalizado{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
