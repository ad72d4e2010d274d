package services

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/nuttroadm/backendnuttro/models"
	"gorm.io/gorm"
)

type DashboardService struct{ db *gorm.DB }

func NewDashboardService(db *gorm.DB) *DashboardService { return &DashboardService{db: db} }

type DashboardStats struct {
	TotalPacientes    int64   `json:"total_pacientes"`
	PacientesAtivos   int64   `json:"pacientes_ativos"`
	PacientesInativos int64   `json:"pacientes_inativos"`
	EngajamentoMedio  float64 `json:"engajamento_medio"`
	AgendamentosHoje  int64   `json:"agendamentos_hoje"`
	AlertasNaoLidos   int64   `json:"alertas_nao_lidos"`
}

func (s *DashboardService) Stats(ctx context.Context, nutriID uuid.UUID, now time.Time) (*DashboardStats, error) {
	db := s.db.WithContext(ctx)
	out := &DashboardStats{}

	pacientes := func() *gorm.DB {
		return db.Model(&models.Paciente{}).Where("nutricionista_id = ?", nutriID)
	}
	if err := pacientes().Count(&out.TotalPacientes).Error; err != nil {
		return nil, err
	}
	if err := pacientes().Where("status = ?", "ativo").Count(&out.PacientesAtivos).Error; err != nil {
		return nil, err
	}
	if err := pacientes().Where("status = ?", "inativo").Count(&out.PacientesInativos).Error; err != nil {
		return nil, err
	}

	// engagement: share of active patients with a check-in in the last 7 days
	if out.PacientesAtivos > 0 {
		var engajados int64
		err := pacientes().
			Where("status = ?", "ativo").
			Where("EXISTS (SELECT 1 FROM checkins WHERE checkins.paciente_id = pacientes.id AND checkins.data >= ?)", now.UTC().AddDate(0, 0, -7)).
			Count(&engajados).Error
		if err != nil {
			return nil, err
		}
		out.EngajamentoMedio = round1(float64(engajados) / float64(out.PacientesAtivos) * 100)
	}

	start, end := dayStart(now.UTC()), dayStart(now.UTC()).AddDate(0, 0, 1)
	if err := db.Model(&models.Agendamento{}).
		Where("nutricionista_id = ? AND data_hora >= ? AND data_hora < ? AND status <> ?", nutriID, start, end, "cancelado").
		Count(&out.AgendamentosHoje).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Alert{}).
		Where("nutricionista_id = ? AND lido = ?", nutriID, false).
		Count(&out.AlertasNaoLidos).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ---------- Evolução ----------

type EvolucaoDia struct {
	Data              string             `json:"data"`
	Checkin           map[string]float64 `json:"checkin"`
	Refeicoes         int                `json:"refeicoes"`
	CaloriasEstimadas int                `json:"calorias_estimadas"`
}

type Evolucao struct {
	Range struct {
		From string `json:"from"`
		To   string `json:"to"`
	} `json:"range"`

	Dias   []EvolucaoDia      `json:"dias"`
	Medias map[string]float64 `json:"medias"`

	Metadata struct {
		DiasComCheckin int `json:"dias_com_checkin"`
		DiasContados   int `json:"dias_contados"`
	} `json:"metadata"`
}

// Evolucao returns one entry per day in [from, to] with the check-in scores and meal totals
// of a patient the nutritionist owns.
func (s *DashboardService) Evolucao(ctx context.Context, nutriID, pacienteID uuid.UUID, from, to time.Time) (*Evolucao, error) {
	if _, err := ownedPaciente(ctx, s.db, nutriID, pacienteID); err != nil {
		return nil, err
	}
	from, to = dayStart(from.UTC()), dayStart(to.UTC())
	if to.Before(from) {
		return nil, invalid("Intervalo de datas inválido")
	}
	if to.Sub(from) > 366*24*time.Hour {
		return nil, invalid("Intervalo máximo de um ano")
	}

	var checkins []models.CheckIn
	if err := s.db.WithContext(ctx).
		Where("paciente_id = ? AND data >= ? AND data < ?", pacienteID, from, to.AddDate(0, 0, 1)).
		Order("data ASC").Find(&checkins).Error; err != nil {
		return nil, err
	}
	var refeicoes []models.Refeicao
	if err := s.db.WithContext(ctx).
		Where("paciente_id = ? AND data_hora >= ? AND data_hora < ?", pacienteID, from, to.AddDate(0, 0, 1)).
		Find(&refeicoes).Error; err != nil {
		return nil, err
	}

	// index by yyyy-mm-dd; the last check-in of a day wins
	ci := map[string]models.CheckIn{}
	for _, c := range checkins {
		ci[c.Data.UTC().Format("2006-01-02")] = c
	}
	type mealAcc struct{ n, kcal int }
	ri := map[string]*mealAcc{}
	for _, r := range refeicoes {
		k := r.DataHora.UTC().Format("2006-01-02")
		if ri[k] == nil {
			ri[k] = &mealAcc{}
		}
		ri[k].n++
		ri[k].kcal += r.CaloriasEstimadas
	}

	out := &Evolucao{Dias: []EvolucaoDia{}, Medias: map[string]float64{}}
	out.Range.From = from.Format("2006-01-02")
	out.Range.To = to.Format("2006-01-02")

	sums := map[string]float64{}
	counts := map[string]int{}
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		key := d.Format("2006-01-02")
		dia := EvolucaoDia{Data: key, Checkin: map[string]float64{}}
		if c, ok := ci[key]; ok {
			out.Metadata.DiasComCheckin++
			for name, v := range checkinScores(c) {
				dia.Checkin[name] = v
				sums[name] += v
				counts[name]++
			}
		}
		if m := ri[key]; m != nil {
			dia.Refeicoes = m.n
			dia.CaloriasEstimadas = m.kcal
		}
		out.Dias = append(out.Dias, dia)
	}
	out.Metadata.DiasContados = len(out.Dias)
	for name, sum := range sums {
		out.Medias[name] = round1(sum / float64(counts[name]))
	}
	return out, nil
}

func checkinScores(c models.CheckIn) map[string]float64 {
	m := map[string]float64{
		"consistencia_plano":   float64(c.ConsistenciaPlano),
		"frequencia_refeicoes": float64(c.FrequenciaRefeicoes),
		"vegetais_frutas":      float64(c.VegetaisFrutas),
		"ingestao_liquido":     float64(c.IngestaoLiquido),
		"energia_fisica":       float64(c.EnergiaFisica),
		"qualidade_sono":       float64(c.QualidadeSono),
		"confianca_jornada":    float64(c.ConfiancaJornada),
	}
	for k, v := range m {
		if v == 0 {
			delete(m, k)
		}
	}
	opt := map[string]*int{
		"tempo_refeicao":   c.TempoRefeicao,
		"atividade_fisica": c.AtividadeFisica,
		"satisfacao_corpo": c.SatisfacaoCorpo,
	}
	for k, v := range opt {
		if v != nil && *v > 0 {
			m[k] = float64(*v)
		}
	}
	return m
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }

func dayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
