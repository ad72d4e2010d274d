package services

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nuttroadm/backendnuttro/agents"
	"github.com/nuttroadm/backendnuttro/models"
	"github.com/nuttroadm/backendnuttro/utils"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type PlanoInput struct {
	Titulo          string                  `json:"titulo"`
	Descricao       *string                 `json:"descricao"`
	Objetivo        *string                 `json:"objetivo"`
	CaloriasDiarias *int                    `json:"calorias_diarias"`
	MacrosAlvo      *models.Macros          `json:"macros_alvo"`
	Refeicoes       *[]models.RefeicaoPlano `json:"refeicoes"`
	Orientacoes     *[]string               `json:"orientacoes"`
	Observacoes     *string                 `json:"observacoes"`
	Ativo           *bool                   `json:"ativo"`
	DataInicio      string                  `json:"data_inicio"`
	DataFim         string                  `json:"data_fim"`
}

// GerarPlanoInput feeds the meal-plan agent. When ConsultaID is set its assessments fill
// whatever the request leaves empty.
type GerarPlanoInput struct {
	ConsultaID              string         `json:"consulta_id"`
	Objetivo                string         `json:"objetivo"`
	AtividadeFisica         string         `json:"atividade_fisica"`
	Restricoes              []string       `json:"restricoes"`
	Anamnese                map[string]any `json:"anamnese"`
	AvaliacaoFisica         map[string]any `json:"avaliacao_fisica"`
	AvaliacaoEmocional      map[string]any `json:"avaliacao_emocional"`
	AvaliacaoComportamental map[string]any `json:"avaliacao_comportamental"`
	AvaliacaoBemEstar       map[string]any `json:"avaliacao_bem_estar"`
}

type GerarPlanoResult struct {
	Plano    *models.PlanoAlimentar   `json:"plano"`
	Sugestao models.GeneratedMealPlan `json:"sugestao"`
}

type PlanoService struct {
	db     *gorm.DB
	agents *agents.Agents
}

func NewPlanoService(db *gorm.DB, a *agents.Agents) *PlanoService {
	return &PlanoService{db: db, agents: a}
}

func (s *PlanoService) ListForPaciente(ctx context.Context, nutriID, pacienteID uuid.UUID) ([]models.PlanoAlimentar, error) {
	if _, err := ownedPaciente(ctx, s.db, nutriID, pacienteID); err != nil {
		return nil, err
	}
	planos := []models.PlanoAlimentar{}
	err := s.db.WithContext(ctx).Where("paciente_id = ?", pacienteID).Order("created_at DESC").Find(&planos).Error
	return planos, err
}

func (s *PlanoService) Create(ctx context.Context, nutriID, pacienteID uuid.UUID, in PlanoInput) (*models.PlanoAlimentar, error) {
	if _, err := ownedPaciente(ctx, s.db, nutriID, pacienteID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Titulo) == "" {
		return nil, invalid("Título é obrigatório")
	}

	p := &models.PlanoAlimentar{
		PacienteID:      pacienteID,
		NutricionistaID: &nutriID,
		Titulo:          strings.TrimSpace(in.Titulo),
		MacrosAlvo:      datatypes.NewJSONType(models.Macros{}),
		Refeicoes:       datatypes.NewJSONType([]models.RefeicaoPlano{}),
		Orientacoes:     models.NewStringList(nil),
		Ativo:           true,
	}
	if err := applyPlano(p, in); err != nil {
		return nil, err
	}
	if err := s.save(ctx, p, true); err != nil {
		return nil, err
	}
	return p, nil
}

func applyPlano(p *models.PlanoAlimentar, in PlanoInput) error {
	if strings.TrimSpace(in.Titulo) != "" {
		p.Titulo = strings.TrimSpace(in.Titulo)
	}
	setIf(&p.Descricao, in.Descricao)
	setIf(&p.Objetivo, in.Objetivo)
	setIf(&p.Observacoes, in.Observacoes)
	setIf(&p.Ativo, in.Ativo)
	if in.CaloriasDiarias != nil {
		p.CaloriasDiarias = in.CaloriasDiarias
	}
	if in.MacrosAlvo != nil {
		p.MacrosAlvo = datatypes.NewJSONType(*in.MacrosAlvo)
	}
	if in.Refeicoes != nil {
		p.Refeicoes = datatypes.NewJSONType(*in.Refeicoes)
	}
	if in.Orientacoes != nil {
		p.Orientacoes = models.NewStringList(*in.Orientacoes)
	}
	if in.DataInicio != "" {
		d, err := utils.ParseDataFlex(in.DataInicio)
		if err != nil {
			return invalid("data_inicio inválida")
		}
		p.DataInicio = &d
	}
	if in.DataFim != "" {
		d, err := utils.ParseDataFlex(in.DataFim)
		if err != nil {
			return invalid("data_fim inválida")
		}
		p.DataFim = &d
	}
	return nil
}

// save writes the plan; an active plan deactivates the patient's other plans.
func (s *PlanoService) save(ctx context.Context, p *models.PlanoAlimentar, create bool) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if create {
			err = tx.Create(p).Error
		} else {
			err = tx.Save(p).Error
		}
		if err != nil {
			return err
		}
		if !p.Ativo {
			return nil
		}
		return tx.Model(&models.PlanoAlimentar{}).
			Where("paciente_id = ? AND id <> ? AND ativo = ?", p.PacienteID, p.ID, true).
			Update("ativo", false).Error
	})
}

func (s *PlanoService) Gerar(ctx context.Context, nutriID, pacienteID uuid.UUID, in GerarPlanoInput) (*GerarPlanoResult, error) {
	pac, err := ownedPaciente(ctx, s.db, nutriID, pacienteID)
	if err != nil {
		return nil, err
	}

	if in.ConsultaID != "" {
		cid, err := ParseID(in.ConsultaID)
		if err != nil {
			return nil, err
		}
		var c models.Consulta
		if err := s.db.WithContext(ctx).Where("id = ? AND nutricionista_id = ?", cid, nutriID).First(&c).Error; err != nil {
			return nil, notFound(err)
		}
		in.Anamnese = firstMap(in.Anamnese, c.Anamnese)
		in.AvaliacaoFisica = firstMap(in.AvaliacaoFisica, c.AvaliacaoFisica)
		in.AvaliacaoEmocional = firstMap(in.AvaliacaoEmocional, c.AvaliacaoEmocional)
		in.AvaliacaoComportamental = firstMap(in.AvaliacaoComportamental, c.AvaliacaoComportamental)
		in.AvaliacaoBemEstar = firstMap(in.AvaliacaoBemEstar, c.AvaliacaoBemEstar)
	}

	restricoes := in.Restricoes
	if len(restricoes) == 0 {
		restricoes = append(pac.RestricoesAlimentares.Data(), pac.Alergias.Data()...)
	}

	ctx = agents.WithScope(ctx, &pac.ID, &nutriID)
	gen := s.agents.Plan.Generate(ctx, agents.MealPlanInput{
		Paciente:                pac,
		Objetivo:                orDefault(in.Objetivo, pac.Objetivo),
		AtividadeFisica:         in.AtividadeFisica,
		Restricoes:              restricoes,
		Anamnese:                in.Anamnese,
		AvaliacaoFisica:         in.AvaliacaoFisica,
		AvaliacaoEmocional:      in.AvaliacaoEmocional,
		AvaliacaoComportamental: in.AvaliacaoComportamental,
		AvaliacaoBemEstar:       in.AvaliacaoBemEstar,
	})

	kcal := int(gen.CaloriasDiarias)
	plano := &models.PlanoAlimentar{
		PacienteID:      pac.ID,
		NutricionistaID: &nutriID,
		Titulo:          "Plano gerado por IA - " + time.Now().UTC().Format("02/01/2006"),
		Objetivo:        orDefault(in.Objetivo, pac.Objetivo),
		CaloriasDiarias: &kcal,
		MacrosAlvo:      datatypes.NewJSONType(gen.Macros),
		Refeicoes:       datatypes.NewJSONType(gen.Refeicoes),
		Orientacoes:     models.NewStringList(gen.OrientacoesGerais),
		Observacoes:     gen.ProximaConsultaJustificativa,
		Ativo:           true,
		GeradoPorIA:     true,
	}
	if err := s.save(ctx, plano, true); err != nil {
		return nil, err
	}
	return &GerarPlanoResult{Plano: plano, Sugestao: gen}, nil
}

func (s *PlanoService) owned(ctx context.Context, nutriID, id uuid.UUID) (*models.PlanoAlimentar, error) {
	var p models.PlanoAlimentar
	err := s.db.WithContext(ctx).
		Joins("JOIN pacientes ON pacientes.id = planos_alimentares.paciente_id").
		Where("planos_alimentares.id = ? AND pacientes.nutricionista_id = ?", id, nutriID).
		First(&p).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (s *PlanoService) Get(ctx context.Context, nutriID, id uuid.UUID) (*models.PlanoAlimentar, error) {
	return s.owned(ctx, nutriID, id)
}

func (s *PlanoService) Update(ctx context.Context, nutriID, id uuid.UUID, in PlanoInput) (*models.PlanoAlimentar, error) {
	p, err := s.owned(ctx, nutriID, id)
	if err != nil {
		return nil, err
	}
	if err := applyPlano(p, in); err != nil {
		return nil, err
	}
	if err := s.save(ctx, p, false); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *PlanoService) Delete(ctx context.Context, nutriID, id uuid.UUID) error {
	p, err := s.owned(ctx, nutriID, id)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Delete(p).Error
}

// PDF renders the plan and returns a download file name.
func (s *PlanoService) PDF(ctx context.Context, nutri *models.Nutricionista, id uuid.UUID, w io.Writer) (string, error) {
	p, err := s.owned(ctx, nutri.ID, id)
	if err != nil {
		return "", err
	}
	var pac models.Paciente
	if err := s.db.WithContext(ctx).Select("nome").First(&pac, "id = ?", p.PacienteID).Error; err != nil {
		return "", err
	}
	if err := utils.RenderPlanoPDF(w, p, pac.Nome, nutri.Nome); err != nil {
		return "", fmt.Errorf("render plano pdf: %w", err)
	}
	return fmt.Sprintf("plano_%s.pdf", p.ID.String()[:8]), nil
}

// ActivePlano returns the patient's active plan or ErrNotFound.
func ActivePlano(ctx context.Context, db *gorm.DB, pacienteID uuid.UUID) (*models.PlanoAlimentar, error) {
	var p models.PlanoAlimentar
	err := db.WithContext(ctx).Where("paciente_id = ? AND ativo = ?", pacienteID, true).
		Order("created_at DESC").First(&p).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func firstMap(a map[string]any, b datatypes.JSONMap) map[string]any {
	if len(a) > 0 {
		return a
	}
	return map[string]any(b)
}
