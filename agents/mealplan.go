package agents

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/nuttroadm/backendnuttro/models"
	"github.com/nuttroadm/backendnuttro/utils"
)

const (
	defaultPesoKG   = 70.0
	defaultAlturaCM = 170.0
	defaultIdade    = 30
)

const mealPlanPrompt = `Você é um nutricionista clínico experiente. Monte um plano alimentar diário completo e personalizado.

PACIENTE:
- Nome: %s
- Idade: %d anos
- Peso atual: %.1f kg
- Altura: %.0f cm
- IMC: %.1f (%s)
- Objetivo: %s
- Atividade física: %s
- Restrições alimentares: %s

ANAMNESE:
%s

AVALIAÇÃO FÍSICA:
%s

AVALIAÇÃO EMOCIONAL:
%s

AVALIAÇÃO COMPORTAMENTAL:
%s

AVALIAÇÃO DE BEM-ESTAR:
%s

REGRAS:
1. Calorias e macros coerentes com objetivo, IMC e nível de atividade.
2. Alimentos comuns no Brasil, com medidas caseiras.
3. Respeite todas as restrições alimentares.
4. Entre 4 e 6 refeições com horário, alimentos, quantidades e calorias.
5. O total de cada refeição é a soma das calorias de seus alimentos.

Responda APENAS com JSON válido no formato:
{
    "calorias_diarias": 0,
    "macros": {"proteinas_g": 0, "carboidratos_g": 0, "gorduras_g": 0, "fibras_g": 0},
    "refeicoes": [
        {"tipo": "Café da manhã", "horario": "07:00",
         "alimentos": [{"nome": "alimento", "quantidade": "medida", "calorias": 0}],
         "total_calorias": 0, "observacoes": "preparo"}
    ],
    "orientacoes_gerais": ["orientação"],
    "hidratacao": {"quantidade_ml": 0, "dicas": ["dica"]},
    "suplementacao": {"recomendada": false, "itens": []},
    "proxima_consulta_dias": 15,
    "proxima_consulta_justificativa": "motivo"
}`

// MealPlanInput gathers what a consultation knows about the patient.
type MealPlanInput struct {
	Paciente                *models.Paciente
	Objetivo                string
	AtividadeFisica         string
	Restricoes              []string
	Anamnese                map[string]any
	AvaliacaoFisica         map[string]any
	AvaliacaoEmocional      map[string]any
	AvaliacaoComportamental map[string]any
	AvaliacaoBemEstar       map[string]any
}

type MealPlanAgent struct {
	*runner
}

func MealPlanFallback() models.GeneratedMealPlan {
	return models.GeneratedMealPlan{
		CaloriasDiarias: 1800,
		Macros:          models.Macros{ProteinasG: 135, CarboidratosG: 180, GordurasG: 60, FibrasG: 25},
		Refeicoes: []models.RefeicaoPlano{{
			Tipo:    "Café da manhã",
			Horario: "07:00",
			Alimentos: []models.AlimentoPlano{
				{Nome: "Aveia", Quantidade: "40g", Calorias: 150},
				{Nome: "Banana", Quantidade: "1 unidade média", Calorias: 90},
				{Nome: "Leite desnatado", Quantidade: "200ml", Calorias: 70},
			},
			TotalCalorias: 310,
			Observacoes:   "Preparar com água morna",
		}},
		OrientacoesGerais: []string{
			"Beba pelo menos 2 litros de água por dia",
			"Faça as refeições em horários regulares",
			"Mastigue bem os alimentos",
		},
		Hidratacao: models.Hidratacao{
			QuantidadeML: 2000,
			Dicas:        []string{"Beba água ao longo do dia", "Evite beber durante as refeições"},
		},
		Suplementacao:                models.Suplementacao{Recomendada: false, Itens: []any{}},
		ProximaConsultaDias:          15,
		ProximaConsultaJustificativa: "Acompanhamento inicial para avaliar adesão ao plano",
	}
}

func (a *MealPlanAgent) Generate(ctx context.Context, in MealPlanInput) models.GeneratedMealPlan {
	if !a.enabled() {
		a.log.Warn().Msg("llm unavailable, returning basic meal plan")
		return MealPlanFallback()
	}

	p := in.Paciente
	if p == nil {
		p = &models.Paciente{}
	}
	peso, altura := Anthropometrics(in.AvaliacaoFisica, p.PesoAtualKG, p.AlturaCM)
	imc, _ := utils.CalculateIMC(altura, peso)
	idade := defaultIdade
	if p.DataNascimento != nil {
		idade = utils.Age(*p.DataNascimento, time.Now())
	}

	nome := p.Nome
	if nome == "" {
		nome = "Paciente"
	}
	objetivo := in.Objetivo
	if objetivo == "" {
		objetivo = p.Objetivo
	}
	atividade := in.AtividadeFisica
	if atividade == "" {
		if v, ok := in.AvaliacaoFisica["atividade_fisica"].(string); ok && v != "" {
			atividade = v
		} else {
			atividade = "Sedentária"
		}
	}
	restricoes := "Nenhuma"
	if len(in.Restricoes) > 0 {
		restricoes = strings.Join(in.Restricoes, ", ")
	}

	prompt := fmt.Sprintf(mealPlanPrompt, nome, idade, peso, altura, math.Round(imc*10)/10, utils.IMCCategoria(imc),
		objetivo, atividade, restricoes,
		toJSON(orEmpty(in.Anamnese)), toJSON(orEmpty(in.AvaliacaoFisica)), toJSON(orEmpty(in.AvaliacaoEmocional)),
		toJSON(orEmpty(in.AvaliacaoComportamental)), toJSON(orEmpty(in.AvaliacaoBemEstar)))

	var out models.GeneratedMealPlan
	if err := a.completeJSON(ctx, KindPlano, Request{
		Messages:    []Message{{Role: RoleUser, Content: prompt}},
		Temperature: 0.7,
	}, map[string]any{"objetivo": objetivo, "peso": peso, "altura": altura, "idade": idade}, &out); err != nil {
		return MealPlanFallback()
	}
	if len(out.Refeicoes) == 0 {
		return MealPlanFallback()
	}
	out.OrientacoesGerais = nonNil(out.OrientacoesGerais)
	out.Hidratacao.Dicas = nonNil(out.Hidratacao.Dicas)
	if out.Suplementacao.Itens == nil {
		out.Suplementacao.Itens = []any{}
	}
	return out
}

// Anthropometrics resolves weight (kg) and height (cm) from the physical assessment,
// then the patient record, then defaults. Heights up to 10 are taken as meters.
func Anthropometrics(avaliacao map[string]any, pesoPaciente, alturaPaciente *float64) (float64, float64) {
	peso := firstPositive(avaliacao, "peso", "peso_kg")
	if peso == 0 && pesoPaciente != nil && *pesoPaciente > 0 {
		peso = *pesoPaciente
	}
	if peso == 0 {
		peso = defaultPesoKG
	}

	altura := firstPositive(avaliacao, "altura", "altura_cm")
	if altura == 0 && alturaPaciente != nil && *alturaPaciente > 0 {
		altura = *alturaPaciente
	}
	if altura == 0 {
		altura = defaultAlturaCM
	}
	if altura <= 10 {
		altura *= 100
	}
	return peso, altura
}

func firstPositive(m map[string]any, keys ...string) float64 {
	for _, k := range keys {
		if f := toFloat(m[k]); f > 0 {
			return f
		}
	}
	return 0
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case string:
		f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(n), ",", "."), 64)
		if err == nil {
			return f
		}
	}
	return 0
}

func orEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
