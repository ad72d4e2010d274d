package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nuttroadm/backendnuttro/models"
	"github.com/nuttroadm/backendnuttro/utils"
	"gorm.io/gorm"
)

type MetaInput struct {
	Tipo       string   `json:"tipo"`
	Titulo     string   `json:"titulo"`
	Descricao  string   `json:"descricao"`
	MetaValor  *float64 `json:"meta_valor"`
	ValorAtual *float64 `json:"valor_atual"`
	Unidade    string   `json:"unidade"`
	Periodo    string   `json:"periodo"`
	DataInicio string   `json:"data_inicio"`
	DataFim    string   `json:"data_fim"`
	Status     string   `json:"status"`
}

var metaStatuses = map[string]bool{"ativa": true, "concluida": true, "pausada": true}

type MetaService struct {
	db *gorm.DB
}

func NewMetaService(db *gorm.DB) *MetaService {
	return &MetaService{db: db}
}

func (s *MetaService) ListForPaciente(ctx context.Context, nutriID, pacienteID uuid.UUID) ([]models.Meta, error) {
	if _, err := ownedPaciente(ctx, s.db, nutriID, pacienteID); err != nil {
		return nil, err
	}
	return pacienteMetas(ctx, s.db, pacienteID, "")
}

func pacienteMetas(ctx context.Context, db *gorm.DB, pacienteID uuid.UUID, status string) ([]models.Meta, error) {
	q := db.WithContext(ctx).Where("paciente_id = ?", pacienteID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	metas := []models.Meta{}
	if err := q.Order("created_at DESC").Find(&metas).Error; err != nil {
		return nil, err
	}
	return metas, nil
}

func (s *MetaService) Create(ctx context.Context, nutriID, pacienteID uuid.UUID, in MetaInput) (*models.Meta, error) {
	if _, err := ownedPaciente(ctx, s.db, nutriID, pacienteID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Titulo) == "" {
		return nil, invalid("Título é obrigatório")
	}

	m := &models.Meta{
		PacienteID:      pacienteID,
		NutricionistaID: &nutriID,
		Tipo:            orDefault(in.Tipo, "geral"),
		Titulo:          strings.TrimSpace(in.Titulo),
		Descricao:       in.Descricao,
		MetaValor:       in.MetaValor,
		Unidade:         in.Unidade,
		Periodo:         in.Periodo,
		Status:          orDefault(in.Status, "ativa"),
		CriadaPor:       "nutricionista",
	}
	if in.ValorAtual != nil {
		m.ValorAtual = *in.ValorAtual
	}
	if err := applyMetaDates(m, in); err != nil {
		return nil, err
	}
	if !metaStatuses[m.Status] {
		return nil, invalid("Status inválido")
	}
	if m.DataInicio == nil {
		now := time.Now().UTC()
		m.DataInicio = &now
	}
	m.RecalcProgress()

	if err := s.db.WithContext(ctx).Create(m).Error; err != nil {
		return nil, err
	}
	return m, nil
}

func applyMetaDates(m *models.Meta, in MetaInput) error {
	if in.DataInicio != "" {
		d, err := utils.ParseDataFlex(in.DataInicio)
		if err != nil {
			return invalid("data_inicio inválida")
		}
		m.DataInicio = &d
	}
	if in.DataFim != "" {
		d, err := utils.ParseDataFlex(in.DataFim)
		if err != nil {
			return invalid("data_fim inválida")
		}
		m.DataFim = &d
	}
	return nil
}

// owned loads a meta whose patient belongs to nutriID.
func (s *MetaService) owned(ctx context.Context, nutriID, id uuid.UUID) (*models.Meta, error) {
	var m models.Meta
	err := s.db.WithContext(ctx).
		Joins("JOIN pacientes ON pacientes.id = metas.paciente_id").
		Where("metas.id = ? AND pacientes.nutricionista_id = ?", id, nutriID).
		First(&m).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &m, nil
}

func (s *MetaService) Update(ctx context.Context, nutriID, id uuid.UUID, in MetaInput) (*models.Meta, error) {
	m, err := s.owned(ctx, nutriID, id)
	if err != nil {
		return nil, err
	}
	setIfNotEmpty(&m.Tipo, in.Tipo)
	setIfNotEmpty(&m.Titulo, in.Titulo)
	setIfNotEmpty(&m.Descricao, in.Descricao)
	setIfNotEmpty(&m.Unidade, in.Unidade)
	setIfNotEmpty(&m.Periodo, in.Periodo)
	if in.MetaValor != nil {
		m.MetaValor = in.MetaValor
	}
	if in.ValorAtual != nil {
		m.ValorAtual = *in.ValorAtual
	}
	if in.Status != "" {
		if !metaStatuses[in.Status] {
			return nil, invalid("Status inválido")
		}
		m.Status = in.Status
	}
	if err := applyMetaDates(m, in); err != nil {
		return nil, err
	}
	m.RecalcProgress()

	if err := s.db.WithContext(ctx).Save(m).Error; err != nil {
		return nil, err
	}
	return m, nil
}

func (s *MetaService) Delete(ctx context.Context, nutriID, id uuid.UUID) error {
	m, err := s.owned(ctx, nutriID, id)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Delete(m).Error
}

func setIfNotEmpty(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
