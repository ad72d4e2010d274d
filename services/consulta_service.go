package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/nuttroadm/backendnuttro/agents"
	"github.com/nuttroadm/backendnuttro/models"
	"github.com/nuttroadm/backendnuttro/utils"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	consultaTipos    = map[string]bool{"primeira_consulta": true, "retorno": true, "acompanhamento": true}
	consultaStatuses = map[string]bool{"em_andamento": true, "concluida": true, "cancelada": true}
)

type ConsultaInput struct {
	PacienteID              string            `json:"paciente_id"`
	Tipo                    *string           `json:"tipo"`
	DataConsulta            string            `json:"data_consulta"`
	DuracaoMinutos          *int              `json:"duracao_minutos"`
	Status                  *string           `json:"status"`
	Anamnese                map[string]any    `json:"anamnese"`
	AvaliacaoFisica         map[string]any    `json:"avaliacao_fisica"`
	AvaliacaoEmocional      map[string]any    `json:"avaliacao_emocional"`
	AvaliacaoComportamental map[string]any    `json:"avaliacao_comportamental"`
	AvaliacaoBemEstar       map[string]any    `json:"avaliacao_bem_estar"`
	PlanoAlimentarID        *string           `json:"plano_alimentar_id"`
	MetasDefinidas          *[]map[string]any `json:"metas_definidas"`
	Observacoes             *string           `json:"observacoes"`
	ProximosPassos          *[]string         `json:"proximos_passos"`
}

type ConsultaFilter struct {
	PacienteID string `form:"paciente_id"`
	Tipo       string `form:"tipo"`
	Status     string `form:"status"`
}

type ConsultaService struct {
	db     *gorm.DB
	agents *agents.Agents
}

func NewConsultaService(db *gorm.DB, a *agents.Agents) *ConsultaService {
	return &ConsultaService{db: db, agents: a}
}

type consultaRow struct {
	models.Consulta
	NomePaciente *string
}

func (s *ConsultaService) List(ctx context.Context, nutriID uuid.UUID, f ConsultaFilter) ([]models.Consulta, error) {
	q := s.db.WithContext(ctx).Model(&models.Consulta{}).
		Select("consultas.*, pacientes.nome AS nome_paciente").
		Joins("LEFT JOIN pacientes ON pacientes.id = consultas.paciente_id").
		Where("consultas.nutricionista_id = ?", nutriID)
	if f.PacienteID != "" {
		pid, err := ParseID(f.PacienteID)
		if err != nil {
			return nil, err
		}
		q = q.Where("consultas.paciente_id = ?", pid)
	}
	if f.Tipo != "" {
		q = q.Where("consultas.tipo = ?", f.Tipo)
	}
	if f.Status != "" {
		q = q.Where("consultas.status = ?", f.Status)
	}

	var rows []consultaRow
	if err := q.Order("consultas.data_consulta DESC").Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]models.Consulta, 0, len(rows))
	for _, r := range rows {
		c := r.Consulta
		if r.NomePaciente != nil {
			c.PacienteNome = *r.NomePaciente
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *ConsultaService) Create(ctx context.Context, nutriID uuid.UUID, in ConsultaInput) (*models.Consulta, error) {
	pid, err := ParseID(in.PacienteID)
	if err != nil {
		return nil, err
	}
	p, err := ownedPaciente(ctx, s.db, nutriID, pid)
	if err != nil {
		return nil, err
	}

	c := &models.Consulta{
		PacienteID:      p.ID,
		NutricionistaID: nutriID,
		Tipo:            "acompanhamento",
		DataConsulta:    time.Now().UTC(),
		DuracaoMinutos:  60,
		Status:          "em_andamento",
		MetasDefinidas:  datatypes.NewJSONType([]map[string]any{}),
		ProximosPassos:  models.NewStringList(nil),
		RecomendacoesIA: models.NewStringList(nil),
		PacienteNome:    p.Nome,
	}
	if err := s.apply(ctx, nutriID, c, in); err != nil {
		return nil, err
	}
	c.Status = "em_andamento"
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, err
	}
	return c, nil
}

func (s *ConsultaService) apply(ctx context.Context, nutriID uuid.UUID, c *models.Consulta, in ConsultaInput) error {
	if in.Tipo != nil {
		if !consultaTipos[*in.Tipo] {
			return invalid("Tipo de consulta inválido")
		}
		c.Tipo = *in.Tipo
	}
	if in.Status != nil {
		if !consultaStatuses[*in.Status] {
			return invalid("Status inválido")
		}
		c.Status = *in.Status
	}
	if in.DataConsulta != "" {
		t, err := utils.ParseISO(in.DataConsulta)
		if err != nil {
			return invalid("data_consulta inválida")
		}
		c.DataConsulta = t
	}
	if in.DuracaoMinutos != nil {
		c.DuracaoMinutos = *in.DuracaoMinutos
	}
	if in.Anamnese != nil {
		c.Anamnese = datatypes.JSONMap(in.Anamnese)
	}
	if in.AvaliacaoFisica != nil {
		c.AvaliacaoFisica = datatypes.JSONMap(in.AvaliacaoFisica)
	}
	if in.AvaliacaoEmocional != nil {
		c.AvaliacaoEmocional = datatypes.JSONMap(in.AvaliacaoEmocional)
	}
	if in.AvaliacaoComportamental != nil {
		c.AvaliacaoComportamental = datatypes.JSONMap(in.AvaliacaoComportamental)
	}
	if in.AvaliacaoBemEstar != nil {
		c.AvaliacaoBemEstar = datatypes.JSONMap(in.AvaliacaoBemEstar)
	}
	if in.PlanoAlimentarID != nil {
		if *in.PlanoAlimentarID == "" {
			c.PlanoAlimentarID = nil
		} else {
			id, err := ParseID(*in.PlanoAlimentarID)
			if err != nil {
				return err
			}
			var n int64
			if err := s.db.WithContext(ctx).Model(&models.PlanoAlimentar{}).
				Where("id = ? AND paciente_id = ?", id, c.PacienteID).Count(&n).Error; err != nil {
				return err
			}
			if n == 0 {
				return ErrNotFound
			}
			c.PlanoAlimentarID = &id
		}
	}
	if in.MetasDefinidas != nil {
		c.MetasDefinidas = datatypes.NewJSONType(*in.MetasDefinidas)
	}
	if in.ProximosPassos != nil {
		c.ProximosPassos = models.NewStringList(*in.ProximosPassos)
	}
	setIf(&c.Observacoes, in.Observacoes)
	return nil
}

func (s *ConsultaService) owned(ctx context.Context, nutriID, id uuid.UUID) (*models.Consulta, error) {
	var c models.Consulta
	if err := s.db.WithContext(ctx).Where("id = ? AND nutricionista_id = ?", id, nutriID).First(&c).Error; err != nil {
		return nil, notFound(err)
	}
	var p models.Paciente
	if err := s.db.WithContext(ctx).Select("nome").First(&p, "id = ?", c.PacienteID).Error; err == nil {
		c.PacienteNome = p.Nome
	}
	return &c, nil
}

func (s *ConsultaService) Get(ctx context.Context, nutriID, id uuid.UUID) (*models.Consulta, error) {
	return s.owned(ctx, nutriID, id)
}

func (s *ConsultaService) Update(ctx context.Context, nutriID, id uuid.UUID, in ConsultaInput) (*models.Consulta, error) {
	c, err := s.owned(ctx, nutriID, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, nutriID, c, in); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Save(c).Error; err != nil {
		return nil, err
	}
	return c, nil
}

func (s *ConsultaService) Delete(ctx context.Context, nutriID, id uuid.UUID) error {
	res := s.db.WithContext(ctx).Where("id = ? AND nutricionista_id = ?", id, nutriID).Delete(&models.Consulta{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Insights runs the consultation-insight agent over the patient's history and stores the result.
func (s *ConsultaService) Insights(ctx context.Context, nutriID, id uuid.UUID) (*models.Consulta, error) {
	c, err := s.owned(ctx, nutriID, id)
	if err != nil {
		return nil, err
	}
	var p models.Paciente
	if err := s.db.WithContext(ctx).First(&p, "id = ?", c.PacienteID).Error; err != nil {
		return nil, notFound(err)
	}

	var checkins []models.CheckIn
	if err := s.db.WithContext(ctx).Where("paciente_id = ?", p.ID).Order("data DESC").Limit(30).Find(&checkins).Error; err != nil {
		return nil, err
	}
	reverseCheckins(checkins)

	var refeicoes []models.Refeicao
	if err := s.db.WithContext(ctx).Where("paciente_id = ?", p.ID).Order("data_hora DESC").Limit(30).Find(&refeicoes).Error; err != nil {
		return nil, err
	}
	for i, j := 0, len(refeicoes)-1; i < j; i, j = i+1, j-1 {
		refeicoes[i], refeicoes[j] = refeicoes[j], refeicoes[i]
	}

	metas, err := pacienteMetas(ctx, s.db, p.ID, "")
	if err != nil {
		return nil, err
	}

	var ultima map[string]any
	var prev models.Consulta
	err = s.db.WithContext(ctx).
		Where("paciente_id = ? AND id <> ? AND data_consulta < ?", p.ID, c.ID, c.DataConsulta).
		Order("data_consulta DESC").First(&prev).Error
	if err == nil {
		ultima = map[string]any{
			"data":            prev.DataConsulta.Format("02/01/2006"),
			"tipo":            prev.Tipo,
			"observacoes":     prev.Observacoes,
			"proximos_passos": prev.ProximosPassos.Data(),
		}
	}

	ctx = agents.WithScope(ctx, &p.ID, &nutriID)
	insight := s.agents.Insight.Generate(ctx, agents.InsightInput{
		Paciente:       pacienteContext(&p),
		Checkins:       checkins,
		Refeicoes:      refeicoes,
		Metas:          metas,
		UltimaConsulta: ultima,
	})

	stored := datatypes.NewJSONType(insight)
	c.InsightsIA = &stored
	c.RecomendacoesIA = models.NewStringList(insight.RecomendacoesPlano)
	if err := s.db.WithContext(ctx).Model(c).Select("insights_ia", "recomendacoes_ia").Updates(c).Error; err != nil {
		return nil, err
	}
	return c, nil
}

// pacienteContext is the patient summary given to the agents.
func pacienteContext(p *models.Paciente) map[string]any {
	m := map[string]any{
		"nome":                   p.Nome,
		"objetivo":               p.Objetivo,
		"dias_jornada":           p.DiasJornada,
		"nivel_adesao":           p.NivelAdesao,
		"restricoes_alimentares": p.RestricoesAlimentares.Data(),
		"alergias":               p.Alergias.Data(),
	}
	if p.PesoAtualKG != nil {
		m["peso_atual_kg"] = *p.PesoAtualKG
	}
	if p.PesoMetaKG != nil {
		m["peso_meta_kg"] = *p.PesoMetaKG
	}
	if p.AlturaCM != nil {
		m["altura_cm"] = *p.AlturaCM
	}
	if p.DataNascimento != nil {
		m["idade"] = utils.Age(*p.DataNascimento, time.Now())
	}
	return m
}

func reverseCheckins(c []models.CheckIn) {
	for i, j := 0, len(c)-1; i < j; i, j = i+1, j-1 {
		c[i], c[j] = c[j], c[i]
	}
}
