package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/nuttroadm/backendnuttro/agents"
	"github.com/nuttroadm/backendnuttro/models"
	"gorm.io/gorm"
)

type AnalisarRefeicaoInput struct {
	Descricao  string `json:"descricao" binding:"required"`
	PacienteID string `json:"paciente_id"`
}

type SugestoesPlanoInput struct {
	Objetivo                string         `json:"objetivo" binding:"required"`
	PacienteID              string         `json:"paciente_id"`
	PesoAtual               *float64       `json:"peso_atual"`
	PesoMeta                *float64       `json:"peso_meta"`
	Altura                  *float64       `json:"altura"`
	AtividadeFisica         string         `json:"atividade_fisica"`
	Restricoes              []string       `json:"restricoes"`
	Anamnese                map[string]any `json:"anamnese"`
	AvaliacaoFisica         map[string]any `json:"avaliacao_fisica"`
	AvaliacaoEmocional      map[string]any `json:"avaliacao_emocional"`
	AvaliacaoComportamental map[string]any `json:"avaliacao_comportamental"`
	AvaliacaoBemEstar       map[string]any `json:"avaliacao_bem_estar"`
}

type CoachInput struct {
	Desafios   string `json:"desafios" binding:"required"`
	PacienteID string `json:"paciente_id"`
}

type ChatIAInput struct {
	Message    string `json:"message" binding:"required"`
	PacienteID string `json:"paciente_id"`
}

const coachTemplate = `Com base nos desafios descritos: %s

Orientações:
1. Estabeleça pequenas metas alcançáveis
2. Crie rotinas consistentes
3. Celebre pequenas vitórias
4. Busque apoio quando necessário
5. Mantenha foco no progresso, não na perfeição

Lembre-se: mudanças duradouras acontecem gradualmente.`

// IAService backs the nutricionista's free-form assistant endpoints.
type IAService struct {
	db     *gorm.DB
	agents *agents.Agents
}

func NewIAService(db *gorm.DB, a *agents.Agents) *IAService {
	return &IAService{db: db, agents: a}
}

// optionalPaciente resolves an optional paciente_id. Unknown or foreign ids yield nil, like an absent one.
func (s *IAService) optionalPaciente(ctx context.Context, nutriID uuid.UUID, raw string) (*models.Paciente, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	id, err := ParseID(raw)
	if err != nil {
		return nil, err
	}
	p, err := ownedPaciente(ctx, s.db, nutriID, id)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return p, err
}

func (s *IAService) AnalisarRefeicao(ctx context.Context, nutriID uuid.UUID, in AnalisarRefeicaoInput) (models.MealAnalysis, error) {
	p, err := s.optionalPaciente(ctx, nutriID, in.PacienteID)
	if err != nil {
		return models.MealAnalysis{}, err
	}
	meal := agents.MealInput{Descricao: in.Descricao}
	var pid *uuid.UUID
	if p != nil {
		pid = &p.ID
		meal.Paciente = pacienteContext(p)
	}
	return s.agents.Meal.Analyze(agents.WithScope(ctx, pid, &nutriID), meal), nil
}

// SugestoesPlano drafts a plan without storing it. Assessments in the request win over the
// patient's last consultation.
func (s *IAService) SugestoesPlano(ctx context.Context, nutriID uuid.UUID, in SugestoesPlanoInput) (models.GeneratedMealPlan, error) {
	p, err := s.optionalPaciente(ctx, nutriID, in.PacienteID)
	if err != nil {
		return models.GeneratedMealPlan{}, err
	}

	plan := agents.MealPlanInput{
		Objetivo:        in.Objetivo,
		AtividadeFisica: in.AtividadeFisica,
		Restricoes:      in.Restricoes,
	}
	var pid *uuid.UUID
	if p != nil {
		pid = &p.ID
		plan.Paciente = p
		var last []models.Consulta
		if err := s.db.WithContext(ctx).Where("paciente_id = ?", p.ID).Order("data_consulta DESC").
			Limit(1).Find(&last).Error; err != nil {
			return models.GeneratedMealPlan{}, err
		}
		if len(last) == 1 {
			c := last[0]
			plan.Anamnese = c.Anamnese
			plan.AvaliacaoFisica = c.AvaliacaoFisica
			plan.AvaliacaoEmocional = c.AvaliacaoEmocional
			plan.AvaliacaoComportamental = c.AvaliacaoComportamental
			plan.AvaliacaoBemEstar = c.AvaliacaoBemEstar
		}
	} else {
		plan.Paciente = &models.Paciente{Nome: "Paciente", Objetivo: in.Objetivo, PesoAtualKG: in.PesoAtual, AlturaCM: in.Altura, PesoMetaKG: in.PesoMeta}
	}

	if len(in.Anamnese) > 0 || len(in.AvaliacaoFisica) > 0 {
		plan.Anamnese = in.Anamnese
		plan.AvaliacaoFisica = in.AvaliacaoFisica
		plan.AvaliacaoEmocional = in.AvaliacaoEmocional
		plan.AvaliacaoComportamental = in.AvaliacaoComportamental
		plan.AvaliacaoBemEstar = in.AvaliacaoBemEstar
	}
	return s.agents.Plan.Generate(agents.WithScope(ctx, pid, &nutriID), plan), nil
}

func (s *IAService) Coach(in CoachInput) string {
	return fmt.Sprintf(coachTemplate, strings.TrimSpace(in.Desafios))
}

func (s *IAService) Chat(ctx context.Context, nutriID uuid.UUID, in ChatIAInput) (string, error) {
	p, err := s.optionalPaciente(ctx, nutriID, in.PacienteID)
	if err != nil {
		return "", err
	}
	var (
		pc  agents.ChatContext
		pid *uuid.UUID
	)
	if p != nil {
		pid = &p.ID
		pc = agents.ChatContext{
			Nome:        p.Nome,
			Objetivo:    orDefault(p.Objetivo, "Não definido"),
			DiasJornada: p.DiasJornada,
			NivelAdesao: orDefault(p.NivelAdesao, "média"),
		}
	}
	return s.agents.Chat.Reply(agents.WithScope(ctx, pid, &nutriID), in.Message, pc, nil), nil
}
