package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/nuttroadm/backendnuttro/models"
	"github.com/nuttroadm/backendnuttro/utils"
	"gorm.io/gorm"
)

var agendamentoStatuses = map[string]bool{
	"agendado": true, "confirmado": true, "realizado": true, "cancelado": true, "remarcado": true,
}

type AgendamentoInput struct {
	PacienteID          *string `json:"paciente_id"`
	Titulo              *string `json:"titulo"`
	DataHora            string  `json:"data_hora"`
	DuracaoMinutos      *int    `json:"duracao_minutos"`
	Tipo                *string `json:"tipo"`
	Status              *string `json:"status"`
	Observacoes         *string `json:"observacoes"`
	LinkVideochamada    *string `json:"link_videochamada"`
	ConfirmacaoPaciente *bool   `json:"confirmacao_paciente"`
}

type AgendamentoFilter struct {
	DataInicio string `form:"data_inicio"`
	DataFim    string `form:"data_fim"`
	PacienteID string `form:"paciente_id"`
	Status     string `form:"status"`
}

type AgendamentoService struct {
	db *gorm.DB
}

func NewAgendamentoService(db *gorm.DB) *AgendamentoService {
	return &AgendamentoService{db: db}
}

type agendamentoRow struct {
	models.Agendamento
	NomePaciente *string
}

func (s *AgendamentoService) List(ctx context.Context, nutriID uuid.UUID, f AgendamentoFilter) ([]models.Agendamento, error) {
	q := s.db.WithContext(ctx).Model(&models.Agendamento{}).
		Select("agendamentos.*, pacientes.nome AS nome_paciente").
		Joins("LEFT JOIN pacientes ON pacientes.id = agendamentos.paciente_id").
		Where("agendamentos.nutricionista_id = ?", nutriID)

	if f.DataInicio != "" {
		t, err := utils.ParseISO(f.DataInicio)
		if err != nil {
			return nil, invalid("data_inicio inválida")
		}
		q = q.Where("agendamentos.data_hora >= ?", t)
	}
	if f.DataFim != "" {
		t, err := utils.ParseISO(f.DataFim)
		if err != nil {
			return nil, invalid("data_fim inválida")
		}
		q = q.Where("agendamentos.data_hora <= ?", t)
	}
	if f.PacienteID != "" {
		pid, err := ParseID(f.PacienteID)
		if err != nil {
			return nil, err
		}
		q = q.Where("agendamentos.paciente_id = ?", pid)
	}
	if f.Status != "" {
		q = q.Where("agendamentos.status = ?", f.Status)
	}

	var rows []agendamentoRow
	if err := q.Order("agendamentos.data_hora ASC").Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]models.Agendamento, 0, len(rows))
	for _, r := range rows {
		a := r.Agendamento
		if r.NomePaciente != nil {
			a.PacienteNome = *r.NomePaciente
		}
		out = append(out, a)
	}
	return out, nil
}

func (s *AgendamentoService) Create(ctx context.Context, nutriID uuid.UUID, in AgendamentoInput) (*models.Agendamento, error) {
	if in.DataHora == "" {
		return nil, invalid("data_hora é obrigatória")
	}
	a := &models.Agendamento{
		NutricionistaID: nutriID,
		DuracaoMinutos:  60,
		Tipo:            "consulta",
		Status:          "agendado",
	}
	if err := s.apply(ctx, nutriID, a, in); err != nil {
		return nil, err
	}
	// new appointments always start agendado
	a.Status = "agendado"
	if a.Titulo == "" {
		a.Titulo = "Consulta"
		if a.PacienteNome != "" {
			a.Titulo = "Consulta - " + a.PacienteNome
		}
	}
	if err := s.db.WithContext(ctx).Create(a).Error; err != nil {
		return nil, err
	}
	return a, nil
}

func (s *AgendamentoService) apply(ctx context.Context, nutriID uuid.UUID, a *models.Agendamento, in AgendamentoInput) error {
	if in.PacienteID != nil {
		if *in.PacienteID == "" {
			a.PacienteID = nil
			a.PacienteNome = ""
		} else {
			pid, err := ParseID(*in.PacienteID)
			if err != nil {
				return err
			}
			p, err := ownedPaciente(ctx, s.db, nutriID, pid)
			if err != nil {
				return err
			}
			a.PacienteID = &p.ID
			a.PacienteNome = p.Nome
		}
	}
	if in.DataHora != "" {
		t, err := utils.ParseISO(in.DataHora)
		if err != nil {
			return invalid("data_hora inválida")
		}
		if !a.DataHora.IsZero() && !t.Equal(a.DataHora) {
			a.LembreteEnviado = false
		}
		a.DataHora = t
	}
	if in.Status != nil {
		if !agendamentoStatuses[*in.Status] {
			return invalid("Status inválido")
		}
		a.Status = *in.Status
	}
	if in.DuracaoMinutos != nil {
		if *in.DuracaoMinutos <= 0 {
			return invalid("duracao_minutos inválida")
		}
		a.DuracaoMinutos = *in.DuracaoMinutos
	}
	setIf(&a.Titulo, in.Titulo)
	setIf(&a.Tipo, in.Tipo)
	setIf(&a.Observacoes, in.Observacoes)
	setIf(&a.LinkVideochamada, in.LinkVideochamada)
	setIf(&a.ConfirmacaoPaciente, in.ConfirmacaoPaciente)
	return nil
}

func (s *AgendamentoService) owned(ctx context.Context, nutriID, id uuid.UUID) (*models.Agendamento, error) {
	var a models.Agendamento
	if err := s.db.WithContext(ctx).Where("id = ? AND nutricionista_id = ?", id, nutriID).First(&a).Error; err != nil {
		return nil, notFound(err)
	}
	if a.PacienteID != nil {
		var p models.Paciente
		if err := s.db.WithContext(ctx).Select("nome").First(&p, "id = ?", *a.PacienteID).Error; err == nil {
			a.PacienteNome = p.Nome
		}
	}
	return &a, nil
}

func (s *AgendamentoService) Get(ctx context.Context, nutriID, id uuid.UUID) (*models.Agendamento, error) {
	return s.owned(ctx, nutriID, id)
}

func (s *AgendamentoService) Update(ctx context.Context, nutriID, id uuid.UUID, in AgendamentoInput) (*models.Agendamento, error) {
	a, err := s.owned(ctx, nutriID, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, nutriID, a, in); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Save(a).Error; err != nil {
		return nil, err
	}
	return a, nil
}

func (s *AgendamentoService) Delete(ctx context.Context, nutriID, id uuid.UUID) error {
	res := s.db.WithContext(ctx).Where("id = ? AND nutricionista_id = ?", id, nutriID).Delete(&models.Agendamento{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CountToday counts appointments of the current UTC day that are not cancelled.
func (s *AgendamentoService) CountToday(ctx context.Context, nutriID uuid.UUID, now time.Time) (int64, error) {
	start, end := utils.DayBounds(now)
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Agendamento{}).
		Where("nutricionista_id = ? AND data_hora >= ? AND data_hora < ? AND status <> ?", nutriID, start, end, "cancelado").
		Count(&n).Error
	return n, err
}
