package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nuttroadm/backendnuttro/agents"
	"github.com/nuttroadm/backendnuttro/models"
	"github.com/nuttroadm/backendnuttro/utils"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	checkinAnalysisWindow = 7
	chatHistoryTurns      = 20
)

type CheckinInput struct {
	Data                string         `json:"data"`
	ConsistenciaPlano   int            `json:"consistencia_plano"`
	FrequenciaRefeicoes int            `json:"frequencia_refeicoes"`
	TempoRefeicao       *int           `json:"tempo_refeicao"`
	VegetaisFrutas      int            `json:"vegetais_frutas"`
	IngestaoLiquido     int            `json:"ingestao_liquido"`
	EnergiaFisica       int            `json:"energia_fisica"`
	AtividadeFisica     *int           `json:"atividade_fisica"`
	QualidadeSono       int            `json:"qualidade_sono"`
	ConfiancaJornada    int            `json:"confianca_jornada"`
	SatisfacaoCorpo     *int           `json:"satisfacao_corpo"`
	Comportamental      map[string]any `json:"comportamental"`
	Humor               string         `json:"humor"`
	Notas               string         `json:"notas"`
}

type CheckinResult struct {
	ID        uuid.UUID              `json:"id"`
	Message   string                 `json:"message"`
	AnaliseIA models.CheckinAnalysis `json:"analise_ia"`
}

type RefeicaoInput struct {
	Tipo       string `json:"tipo" binding:"required"`
	FotoBase64 string `json:"foto_base64"`
	Descricao  string `json:"descricao"`
}

// RefeicaoView keeps the short keys the app reads next to the stored column names.
type RefeicaoView struct {
	ID               uuid.UUID      `json:"id"`
	Tipo             string         `json:"tipo"`
	DataHora         time.Time      `json:"data_hora"`
	FotoURL          string         `json:"foto_url,omitempty"`
	Descricao        string         `json:"descricao,omitempty"`
	Itens            []string       `json:"itens"`
	Porcoes          map[string]any `json:"porcoes,omitempty"`
	Macros           models.Macros  `json:"macros"`
	Calorias         int            `json:"calorias"`
	Feedback         string         `json:"feedback"`
	Sugestoes        []string       `json:"sugestoes,omitempty"`
	Alinhamento      string         `json:"alinhamento"`
	AlinhamentoPlano string         `json:"alinhamento_plano"`
}

type MobileStats struct {
	DiasJornada     int   `json:"dias_jornada"`
	TotalCheckins   int64 `json:"total_checkins"`
	TotalRefeicoes  int64 `json:"total_refeicoes"`
	MetasConcluidas int64 `json:"metas_concluidas"`
}

type MobileDashboard struct {
	Paciente      models.PacienteView `json:"paciente"`
	Stats         MobileStats         `json:"stats"`
	UltimoCheckin *models.CheckIn     `json:"ultimo_checkin"`
}

// MobileService serves everything the patient app does on its own records.
type MobileService struct {
	db       *gorm.DB
	agents   *agents.Agents
	uploader ImageUploader
	alerts   *AlertBus
	log      zerolog.Logger
}

func NewMobileService(db *gorm.DB, a *agents.Agents, uploader ImageUploader, alerts *AlertBus, log zerolog.Logger) *MobileService {
	return &MobileService{db: db, agents: a, uploader: uploader, alerts: alerts, log: log}
}

func (s *MobileService) Dashboard(ctx context.Context, p *models.Paciente) (*MobileDashboard, error) {
	view, err := utils.ToPacienteView(p)
	if err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)
	out := &MobileDashboard{
		Paciente: view,
		Stats:    MobileStats{DiasJornada: p.DiasJornada},
	}
	if err := db.Model(&models.CheckIn{}).Where("paciente_id = ?", p.ID).Count(&out.Stats.TotalCheckins).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Refeicao{}).Where("paciente_id = ?", p.ID).Count(&out.Stats.TotalRefeicoes).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Meta{}).Where("paciente_id = ? AND status = ?", p.ID, "concluida").
		Count(&out.Stats.MetasConcluidas).Error; err != nil {
		return nil, err
	}

	var last []models.CheckIn
	if err := db.Where("paciente_id = ?", p.ID).Order("data DESC").Limit(1).Find(&last).Error; err != nil {
		return nil, err
	}
	if len(last) == 1 {
		out.UltimoCheckin = &last[0]
	}
	return out, nil
}

// Checkin stores the report, advances the journey and runs the analysis over the last week of reports.
// Check-in answers are scored 1 (worst) to 3 (best).
const (
	escalaMin = 1
	escalaMax = 3
)

// validate rejects missing required scores and anything outside the 1..3 scale.
func (in CheckinInput) validate() error {
	required := []struct {
		campo string
		valor int
	}{
		{"consistencia_plano", in.ConsistenciaPlano},
		{"frequencia_refeicoes", in.FrequenciaRefeicoes},
		{"vegetais_frutas", in.VegetaisFrutas},
		{"ingestao_liquido", in.IngestaoLiquido},
		{"energia_fisica", in.EnergiaFisica},
		{"qualidade_sono", in.QualidadeSono},
		{"confianca_jornada", in.ConfiancaJornada},
	}
	for _, r := range required {
		if r.valor == 0 {
			return invalid(r.campo + " é obrigatório")
		}
		if r.valor < escalaMin || r.valor > escalaMax {
			return invalid(fmt.Sprintf("%s deve estar entre %d e %d", r.campo, escalaMin, escalaMax))
		}
	}
	optional := []struct {
		campo string
		valor *int
	}{
		{"tempo_refeicao", in.TempoRefeicao},
		{"atividade_fisica", in.AtividadeFisica},
		{"satisfacao_corpo", in.SatisfacaoCorpo},
	}
	for _, o := range optional {
		if o.valor != nil && (*o.valor < escalaMin || *o.valor > escalaMax) {
			return invalid(fmt.Sprintf("%s deve estar entre %d e %d", o.campo, escalaMin, escalaMax))
		}
	}
	return nil
}

func (s *MobileService) Checkin(ctx context.Context, p *models.Paciente, in CheckinInput) (*CheckinResult, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	data := now
	if strings.TrimSpace(in.Data) != "" {
		t, err := utils.ParseISO(in.Data)
		if err != nil {
			return nil, invalid("Data inválida")
		}
		data = t.UTC()
	}

	c := &models.CheckIn{
		PacienteID:          p.ID,
		Data:                data,
		ConsistenciaPlano:   in.ConsistenciaPlano,
		FrequenciaRefeicoes: in.FrequenciaRefeicoes,
		TempoRefeicao:       in.TempoRefeicao,
		VegetaisFrutas:      in.VegetaisFrutas,
		IngestaoLiquido:     in.IngestaoLiquido,
		EnergiaFisica:       in.EnergiaFisica,
		AtividadeFisica:     in.AtividadeFisica,
		QualidadeSono:       in.QualidadeSono,
		ConfiancaJornada:    in.ConfiancaJornada,
		SatisfacaoCorpo:     in.SatisfacaoCorpo,
		Comportamental:      datatypes.JSONMap(in.Comportamental),
		Humor:               in.Humor,
		Notas:               in.Notas,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(c).Error; err != nil {
			return err
		}
		return tx.Model(&models.Paciente{}).Where("id = ?", p.ID).Updates(map[string]any{
			"last_checkin_at": now,
			"dias_jornada":    gorm.Expr("dias_jornada + 1"),
		}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("create checkin: %w", err)
	}
	p.LastCheckinAt = &now
	p.DiasJornada++

	var recent []models.CheckIn
	if err := s.db.WithContext(ctx).Where("paciente_id = ?", p.ID).Order("data DESC").
		Limit(checkinAnalysisWindow).Find(&recent).Error; err != nil {
		return nil, err
	}
	reverseCheckins(recent)
	metas, err := pacienteMetas(ctx, s.db, p.ID, "ativa")
	if err != nil {
		return nil, err
	}

	actx := agents.WithScope(ctx, &p.ID, &p.NutricionistaID)
	analise := s.agents.Checkin.Analyze(actx, recent, pacienteContext(p), metas)
	stored := datatypes.NewJSONType(analise)
	if err := s.db.WithContext(ctx).Model(c).Update("analise_ia", &stored).Error; err != nil {
		return nil, fmt.Errorf("store checkin analysis: %w", err)
	}

	if analise.AlertaNutricionista && s.alerts != nil {
		motivo := "Check-in requer atenção"
		if analise.MotivoAlerta != nil && *analise.MotivoAlerta != "" {
			motivo = *analise.MotivoAlerta
		}
		if _, err := s.alerts.Emit(ctx, p.NutricionistaID, p.ID, "checkin", p.Nome+": "+motivo); err != nil {
			s.log.Error().Err(err).Str("paciente_id", p.ID.String()).Msg("checkin alert not stored")
		}
	}

	return &CheckinResult{ID: c.ID, Message: "Check-in registrado com sucesso!", AnaliseIA: analise}, nil
}

func (s *MobileService) Checkins(ctx context.Context, pacienteID uuid.UUID, limit int) ([]models.CheckIn, error) {
	var out []models.CheckIn
	err := s.db.WithContext(ctx).Where("paciente_id = ?", pacienteID).Order("data DESC").
		Limit(clampLimit(limit, 30)).Find(&out).Error
	return out, err
}

// Refeicao analyses the meal when a photo or description is present and stores it either way.
func (s *MobileService) Refeicao(ctx context.Context, p *models.Paciente, in RefeicaoInput) (*RefeicaoView, error) {
	if strings.TrimSpace(in.Tipo) == "" {
		return nil, invalid("Tipo de refeição é obrigatório")
	}

	r := &models.Refeicao{
		Base:       models.Base{ID: uuid.New()},
		PacienteID: p.ID,
		Tipo:       in.Tipo,
		DataHora:   time.Now().UTC(),
		Descricao:  strings.TrimSpace(in.Descricao),
	}

	analise := agents.MealFallback()
	if r.Descricao != "" || in.FotoBase64 != "" {
		plano := map[string]any{}
		if ativo, err := ActivePlano(ctx, s.db, p.ID); err == nil {
			plano = planoContext(ativo)
		}
		actx := agents.WithScope(ctx, &p.ID, &p.NutricionistaID)
		analise = s.agents.Meal.Analyze(actx, agents.MealInput{
			FotoBase64: in.FotoBase64,
			Descricao:  r.Descricao,
			Paciente:   pacienteContext(p),
			Plano:      plano,
		})
	}

	if in.FotoBase64 != "" {
		if s.uploader != nil {
			url, err := s.uploader.UploadBase64Image(ctx, in.FotoBase64, "refeicoes/"+p.ID.String())
			if err != nil {
				s.log.Warn().Err(err).Str("paciente_id", p.ID.String()).Msg("meal photo upload failed, keeping inline copy")
				r.FotoBase64 = in.FotoBase64
			} else {
				r.FotoURL = url
			}
		} else {
			r.FotoBase64 = in.FotoBase64
		}
	}

	r.ItensIdentificados = models.NewStringList(analise.Itens)
	r.Porcoes = datatypes.JSONMap(analise.Porcoes)
	r.Macros = datatypes.NewJSONType(analise.Macros)
	r.CaloriasEstimadas = int(analise.CaloriasEstimadas)
	r.FeedbackIA = analise.Feedback
	r.SugestoesIA = models.NewStringList(analise.Sugestoes)
	r.AlinhamentoPlano = models.NormalizeAlinhamento(analise.AlinhamentoPlano)

	if err := s.db.WithContext(ctx).Create(r).Error; err != nil {
		return nil, fmt.Errorf("create refeicao: %w", err)
	}
	v := refeicaoView(r)
	return &v, nil
}

func (s *MobileService) Refeicoes(ctx context.Context, pacienteID uuid.UUID, limit int) ([]RefeicaoView, error) {
	var list []models.Refeicao
	if err := s.db.WithContext(ctx).Where("paciente_id = ?", pacienteID).Order("data_hora DESC").
		Limit(clampLimit(limit, 20)).Find(&list).Error; err != nil {
		return nil, err
	}
	out := make([]RefeicaoView, 0, len(list))
	for i := range list {
		v := refeicaoView(&list[i])
		v.Porcoes, v.Sugestoes = nil, nil
		out = append(out, v)
	}
	return out, nil
}

func refeicaoView(r *models.Refeicao) RefeicaoView {
	itens := r.ItensIdentificados.Data()
	if itens == nil {
		itens = []string{}
	}
	return RefeicaoView{
		ID:               r.ID,
		Tipo:             r.Tipo,
		DataHora:         r.DataHora,
		FotoURL:          r.FotoURL,
		Descricao:        r.Descricao,
		Itens:            itens,
		Porcoes:          map[string]any(r.Porcoes),
		Macros:           r.Macros.Data(),
		Calorias:         r.CaloriasEstimadas,
		Feedback:         r.FeedbackIA,
		Sugestoes:        r.SugestoesIA.Data(),
		Alinhamento:      r.AlinhamentoPlano,
		AlinhamentoPlano: r.AlinhamentoPlano,
	}
}

// Chat answers the patient with the last turns as history and stores both sides of the exchange.
func (s *MobileService) Chat(ctx context.Context, p *models.Paciente, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", invalid("Mensagem vazia")
	}

	db := s.db.WithContext(ctx)
	var history []models.ChatMessage
	if err := db.Where("paciente_id = ?", p.ID).Order("created_at DESC").Limit(chatHistoryTurns).
		Find(&history).Error; err != nil {
		return "", err
	}
	turns := make([]agents.ChatTurn, 0, len(history))
	for i := len(history) - 1; i >= 0; i-- {
		turns = append(turns, agents.ChatTurn{Role: history[i].Role, Content: history[i].Content})
	}

	pc, err := s.chatContext(ctx, p)
	if err != nil {
		return "", err
	}
	actx := agents.WithScope(ctx, &p.ID, &p.NutricionistaID)
	reply := s.agents.Chat.Reply(actx, message, pc, turns)

	// created_at must order the pair even when both land in the same clock tick
	now := time.Now().UTC()
	msgs := []models.ChatMessage{
		{Base: models.Base{CreatedAt: now}, PacienteID: p.ID, Role: "user", Content: message},
		{Base: models.Base{CreatedAt: now.Add(time.Millisecond)}, PacienteID: p.ID, Role: "assistant", Content: reply},
	}
	if err := db.Create(&msgs).Error; err != nil {
		return "", fmt.Errorf("store chat: %w", err)
	}
	return reply, nil
}

func (s *MobileService) chatContext(ctx context.Context, p *models.Paciente) (agents.ChatContext, error) {
	db := s.db.WithContext(ctx)
	pc := agents.ChatContext{
		Nome:           p.Nome,
		Objetivo:       orDefault(p.Objetivo, "não definido"),
		DiasJornada:    p.DiasJornada,
		NivelAdesao:    orDefault(p.NivelAdesao, "média"),
		UltimaConsulta: "não registrada",
		Metas:          []string{},
	}

	metas, err := pacienteMetas(ctx, s.db, p.ID, "ativa")
	if err != nil {
		return pc, err
	}
	for _, m := range metas {
		pc.Metas = append(pc.Metas, m.Titulo)
	}

	var recent int64
	if err := db.Model(&models.CheckIn{}).Where("paciente_id = ? AND data >= ?", p.ID, time.Now().UTC().AddDate(0, 0, -7)).
		Count(&recent).Error; err != nil {
		return pc, err
	}
	pc.CheckinsResumo = fmt.Sprintf("%d check-ins recentes", recent)

	var meals []models.Refeicao
	if err := db.Where("paciente_id = ?", p.ID).Order("data_hora DESC").Limit(10).Find(&meals).Error; err != nil {
		return pc, err
	}
	if len(meals) > 0 {
		sum := agents.SummarizeMeals(meals)
		pc.RefeicoesResumo = fmt.Sprintf("%d refeições recentes, média de %d kcal", sum.TotalRefeicoes, sum.CaloriasMedia)
	}

	var last []models.Consulta
	if err := db.Where("paciente_id = ?", p.ID).Order("data_consulta DESC").Limit(1).Find(&last).Error; err != nil {
		return pc, err
	}
	if len(last) == 1 {
		pc.UltimaConsulta = last[0].DataConsulta.Format("02/01/2006")
	}
	return pc, nil
}

func (s *MobileService) ChatHistory(ctx context.Context, pacienteID uuid.UUID, limit int) ([]models.ChatMessage, error) {
	var out []models.ChatMessage
	err := s.db.WithContext(ctx).Where("paciente_id = ?", pacienteID).Order("created_at DESC").
		Limit(clampLimit(limit, 50)).Find(&out).Error
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (s *MobileService) Metas(ctx context.Context, pacienteID uuid.UUID) ([]models.Meta, error) {
	return pacienteMetas(ctx, s.db, pacienteID, "")
}

func (s *MobileService) Plano(ctx context.Context, pacienteID uuid.UUID) (*models.PlanoAlimentar, error) {
	return ActivePlano(ctx, s.db, pacienteID)
}

func planoContext(p *models.PlanoAlimentar) map[string]any {
	return map[string]any{
		"titulo":           p.Titulo,
		"objetivo":         p.Objetivo,
		"calorias_diarias": p.CaloriasDiarias,
		"macros_alvo":      p.MacrosAlvo.Data(),
		"refeicoes":        p.Refeicoes.Data(),
	}
}

func clampLimit(n, def int) int {
	if n <= 0 {
		return def
	}
	if n > 200 {
		return 200
	}
	return n
}
