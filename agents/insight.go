package agents

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/nuttroadm/backendnuttro/models"
)

const insightPrompt = `Você é um assistente de IA para nutricionistas.
Prepare insights específicos para a próxima consulta deste paciente.

DADOS DO PACIENTE:
%s

HISTÓRICO DE CHECK-INS:
%s

HISTÓRICO DE REFEIÇÕES:
%s

METAS E PROGRESSO:
%s

ÚLTIMA CONSULTA:
%s

REGRAS:
1. Use apenas os dados deste paciente. Nada de respostas genéricas.
2. Cite números, datas, alimentos e métricas que aparecem nos dados.
3. Compare com a última consulta registrada.
4. Se faltarem dados, diga isso claramente.
5. Recomendações práticas e acionáveis.

Responda APENAS com JSON válido no formato:
{
    "resumo_progresso": "resumo com números e datas",
    "principais_conquistas": ["conquistas"],
    "desafios_identificados": ["desafios observados"],
    "recomendacoes_plano": ["recomendações"],
    "metas_sugeridas": [{"meta": "nome", "prazo": "prazo", "motivo": "motivo"}],
    "pontos_atencao": ["pontos de atenção"]
}`

var checkinMetrics = []string{
	"consistencia_plano", "frequencia_refeicoes", "vegetais_frutas",
	"ingestao_liquido", "energia_fisica", "qualidade_sono",
}

type InsightInput struct {
	Paciente       map[string]any
	Checkins       []models.CheckIn // oldest first
	Refeicoes      []models.Refeicao
	Metas          []models.Meta
	UltimaConsulta map[string]any
}

type InsightAgent struct {
	*runner
}

func InsightFallback() models.ConsultaInsight {
	return models.ConsultaInsight{
		ResumoProgresso:       "Dados insuficientes para análise",
		PrincipaisConquistas:  []string{},
		DesafiosIdentificados: []string{},
		RecomendacoesPlano:    []string{"Coletar mais dados do paciente"},
		MetasSugeridas:        []models.MetaSugerida{},
		PontosAtencao:         []string{},
	}
}

func (a *InsightAgent) Generate(ctx context.Context, in InsightInput) models.ConsultaInsight {
	if !a.enabled() {
		return InsightFallback()
	}

	checkins := "Sem check-ins registrados"
	if len(in.Checkins) > 0 {
		last := in.Checkins
		if len(last) > 5 {
			last = last[len(last)-5:]
		}
		rows := make([]map[string]any, 0, len(last))
		for _, c := range last {
			rows = append(rows, CheckinRow(c))
		}
		checkins = toJSON(SummarizeCheckins(in.Checkins)) + "\n\nÚltimos check-ins detalhados:\n" + toJSON(rows)
	}

	meals := "Sem refeições registradas"
	if len(in.Refeicoes) > 0 {
		last := in.Refeicoes
		if len(last) > 10 {
			last = last[len(last)-10:]
		}
		rows := make([]map[string]any, 0, len(last))
		for _, r := range last {
			rows = append(rows, map[string]any{
				"data":        r.DataHora.UTC().Format(time.RFC3339),
				"itens":       r.ItensIdentificados.Data(),
				"calorias":    r.CaloriasEstimadas,
				"alinhamento": r.AlinhamentoPlano,
			})
		}
		meals = toJSON(SummarizeMeals(in.Refeicoes)) + "\n\nÚltimas refeições detalhadas:\n" + toJSON(rows)
	}

	goals := "Sem metas definidas"
	if len(in.Metas) > 0 {
		goals = toJSON(SummarizeGoals(in.Metas)) + "\n\nMetas detalhadas:\n" + toJSON(metaRows(in.Metas))
	}

	ultima := in.UltimaConsulta
	if ultima == nil {
		ultima = map[string]any{}
	}
	prompt := fmt.Sprintf(insightPrompt, toJSON(in.Paciente), checkins, meals, goals, toJSON(ultima))

	var out models.ConsultaInsight
	if err := a.completeJSON(ctx, KindInsight, Request{
		Messages:    []Message{{Role: RoleUser, Content: prompt}},
		Temperature: 0.5,
	}, map[string]any{"checkins": len(in.Checkins), "refeicoes": len(in.Refeicoes), "metas": len(in.Metas)}, &out); err != nil {
		return InsightFallback()
	}
	if strings.TrimSpace(out.ResumoProgresso) == "" {
		out.ResumoProgresso = "Dados insuficientes para análise"
	}
	out.PrincipaisConquistas = nonNil(out.PrincipaisConquistas)
	out.DesafiosIdentificados = nonNil(out.DesafiosIdentificados)
	out.RecomendacoesPlano = nonNil(out.RecomendacoesPlano)
	out.PontosAtencao = nonNil(out.PontosAtencao)
	if out.MetasSugeridas == nil {
		out.MetasSugeridas = []models.MetaSugerida{}
	}
	return out
}

// SummarizeCheckins averages each metric over the check-ins that recorded it, one decimal.
func SummarizeCheckins(checkins []models.CheckIn) map[string]float64 {
	out := make(map[string]float64)
	for _, metric := range checkinMetrics {
		sum, n := 0, 0
		for _, c := range checkins {
			if v := metricValue(c, metric); v != 0 {
				sum += v
				n++
			}
		}
		if n > 0 {
			out[metric] = math.Round(float64(sum)/float64(n)*10) / 10
		}
	}
	return out
}

func metricValue(c models.CheckIn, metric string) int {
	switch metric {
	case "consistencia_plano":
		return c.ConsistenciaPlano
	case "frequencia_refeicoes":
		return c.FrequenciaRefeicoes
	case "vegetais_frutas":
		return c.VegetaisFrutas
	case "ingestao_liquido":
		return c.IngestaoLiquido
	case "energia_fisica":
		return c.EnergiaFisica
	case "qualidade_sono":
		return c.QualidadeSono
	}
	return 0
}

type MealSummary struct {
	TotalRefeicoes       int `json:"total_refeicoes"`
	CaloriasMedia        int `json:"calorias_media"`
	AlinhamentoExcelente int `json:"alinhamento_excelente"`
	AlinhamentoBom       int `json:"alinhamento_bom"`
	AlinhamentoAtencao   int `json:"alinhamento_atencao"`
}

func SummarizeMeals(refeicoes []models.Refeicao) MealSummary {
	s := MealSummary{TotalRefeicoes: len(refeicoes)}
	if len(refeicoes) == 0 {
		return s
	}
	total := 0
	for _, r := range refeicoes {
		total += r.CaloriasEstimadas
		switch models.NormalizeAlinhamento(r.AlinhamentoPlano) {
		case models.AlinhamentoExcelente:
			s.AlinhamentoExcelente++
		case models.AlinhamentoBom:
			s.AlinhamentoBom++
		default:
			s.AlinhamentoAtencao++
		}
	}
	s.CaloriasMedia = int(math.Round(float64(total) / float64(len(refeicoes))))
	return s
}

type GoalSummary struct {
	Total          int `json:"total"`
	Ativas         int `json:"ativas"`
	Concluidas     int `json:"concluidas"`
	ProgressoMedio int `json:"progresso_medio"`
}

func SummarizeGoals(metas []models.Meta) GoalSummary {
	s := GoalSummary{Total: len(metas)}
	if len(metas) == 0 {
		return s
	}
	sum := 0
	for _, m := range metas {
		switch m.Status {
		case "ativa":
			s.Ativas++
		case "concluida":
			s.Concluidas++
		}
		sum += m.ProgressoPercentual
	}
	s.ProgressoMedio = int(math.Round(float64(sum) / float64(len(metas))))
	return s
}
