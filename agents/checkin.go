package agents

import (
	"context"
	"fmt"
	"time"

	"github.com/nuttroadm/backendnuttro/models"
)

const checkinPrompt = `Você é um analista de dados nutricionais.
Analise os check-ins do paciente para identificar padrões e gerar insights.
As escalas vão de 1 (ruim) a 3 (ótimo).

DADOS DO PACIENTE:
%s

CHECK-INS RECENTES:
%s

METAS ATUAIS:
%s

Avalie:
1. Tendências de cada indicador (melhorando, estável, piorando)
2. Padrões comportamentais e correlações entre métricas
3. Progresso em relação às metas
4. Sinais de alerta que exigem atenção do nutricionista

Responda APENAS com JSON válido no formato:
{
    "pontos_fortes": ["lista"],
    "areas_atencao": ["lista"],
    "tendencias": {"metrica": "melhorando|estavel|piorando"},
    "sugestoes": ["sugestões práticas"],
    "mensagem_motivacional": "mensagem de apoio",
    "alerta_nutricionista": false,
    "motivo_alerta": null
}`

type CheckinAnalyzer struct {
	*runner
}

func CheckinFallback() models.CheckinAnalysis {
	return models.CheckinAnalysis{
		PontosFortes:         []string{"Continue registrando seus check-ins!"},
		AreasAtencao:         []string{},
		Tendencias:           map[string]any{},
		Sugestoes:            []string{"Mantenha a constância nos registros"},
		MensagemMotivacional: "Cada dia é uma nova oportunidade!",
		AlertaNutricionista:  false,
		MotivoAlerta:         nil,
	}
}

// Analyze looks at check-ins in chronological order.
func (a *CheckinAnalyzer) Analyze(ctx context.Context, checkins []models.CheckIn, paciente map[string]any, metas []models.Meta) models.CheckinAnalysis {
	if !a.enabled() || len(checkins) == 0 {
		return CheckinFallback()
	}

	rows := make([]map[string]any, 0, len(checkins))
	for _, c := range checkins {
		rows = append(rows, CheckinRow(c))
	}
	prompt := fmt.Sprintf(checkinPrompt, toJSON(paciente), toJSON(rows), toJSON(metaRows(metas)))

	var out models.CheckinAnalysis
	if err := a.completeJSON(ctx, KindCheckin, Request{
		Messages:    []Message{{Role: RoleUser, Content: prompt}},
		Temperature: 0.4,
	}, map[string]any{"checkins": len(checkins), "metas": len(metas)}, &out); err != nil {
		return CheckinFallback()
	}
	out.PontosFortes = nonNil(out.PontosFortes)
	out.AreasAtencao = nonNil(out.AreasAtencao)
	out.Sugestoes = nonNil(out.Sugestoes)
	if out.Tendencias == nil {
		out.Tendencias = map[string]any{}
	}
	if !out.AlertaNutricionista {
		out.MotivoAlerta = nil
	}
	return out
}

// CheckinRow is the compact prompt representation of a check-in.
func CheckinRow(c models.CheckIn) map[string]any {
	row := map[string]any{
		"data":                 c.Data.UTC().Format(time.RFC3339),
		"consistencia_plano":   c.ConsistenciaPlano,
		"frequencia_refeicoes": c.FrequenciaRefeicoes,
		"vegetais_frutas":      c.VegetaisFrutas,
		"ingestao_liquido":     c.IngestaoLiquido,
		"energia_fisica":       c.EnergiaFisica,
		"qualidade_sono":       c.QualidadeSono,
		"confianca_jornada":    c.ConfiancaJornada,
	}
	if c.TempoRefeicao != nil {
		row["tempo_refeicao"] = *c.TempoRefeicao
	}
	if c.AtividadeFisica != nil {
		row["atividade_fisica"] = *c.AtividadeFisica
	}
	if c.SatisfacaoCorpo != nil {
		row["satisfacao_corpo"] = *c.SatisfacaoCorpo
	}
	if c.Humor != "" {
		row["humor"] = c.Humor
	}
	if c.Notas != "" {
		row["notas"] = c.Notas
	}
	return row
}

func metaRows(metas []models.Meta) []map[string]any {
	rows := make([]map[string]any, 0, len(metas))
	for _, m := range metas {
		rows = append(rows, map[string]any{
			"titulo":               m.Titulo,
			"tipo":                 m.Tipo,
			"status":               m.Status,
			"meta_valor":           m.MetaValor,
			"valor_atual":          m.ValorAtual,
			"unidade":              m.Unidade,
			"progresso_percentual": m.ProgressoPercentual,
		})
	}
	return rows
}
