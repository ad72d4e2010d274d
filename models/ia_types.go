package models

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// FlexInt accepts JSON numbers, floats or numeric strings and keeps the rounded integer.
// Model output is not strict about number formats.
type FlexInt int

func (n *FlexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		*n = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*n = FlexInt(math.Round(f))
	return nil
}

type Macros struct {
	ProteinasG    float64 `json:"proteinas_g"`
	CarboidratosG float64 `json:"carboidratos_g"`
	GordurasG     float64 `json:"gorduras_g"`
	FibrasG       float64 `json:"fibras_g"`
}

// MealAnalysis is the structured result of the meal agent.
type MealAnalysis struct {
	Itens             []string       `json:"itens"`
	Porcoes           map[string]any `json:"porcoes"`
	Macros            Macros         `json:"macros"`
	CaloriasEstimadas FlexInt        `json:"calorias_estimadas"`
	Feedback          string         `json:"feedback"`
	Sugestoes         []string       `json:"sugestoes"`
	AlinhamentoPlano  string         `json:"alinhamento_plano"`
}

type CheckinAnalysis struct {
	PontosFortes         []string       `json:"pontos_fortes"`
	AreasAtencao         []string       `json:"areas_atencao"`
	Tendencias           map[string]any `json:"tendencias"`
	Sugestoes            []string       `json:"sugestoes"`
	MensagemMotivacional string         `json:"mensagem_motivacional"`
	AlertaNutricionista  bool           `json:"alerta_nutricionista"`
	MotivoAlerta         *string        `json:"motivo_alerta"`
}

type MetaSugerida struct {
	Meta   string `json:"meta"`
	Prazo  string `json:"prazo"`
	Motivo string `json:"motivo"`
}

type ConsultaInsight struct {
	ResumoProgresso       string         `json:"resumo_progresso"`
	PrincipaisConquistas  []string       `json:"principais_conquistas"`
	DesafiosIdentificados []string       `json:"desafios_identificados"`
	RecomendacoesPlano    []string       `json:"recomendacoes_plano"`
	MetasSugeridas        []MetaSugerida `json:"metas_sugeridas"`
	PontosAtencao         []string       `json:"pontos_atencao"`
}

type AlimentoPlano struct {
	Nome       string  `json:"nome"`
	Quantidade string  `json:"quantidade"`
	Calorias   FlexInt `json:"calorias"`
}

type RefeicaoPlano struct {
	Tipo          string          `json:"tipo"`
	Horario       string          `json:"horario"`
	Alimentos     []AlimentoPlano `json:"alimentos"`
	TotalCalorias FlexInt         `json:"total_calorias"`
	Observacoes   string          `json:"observacoes"`
}

type Hidratacao struct {
	QuantidadeML FlexInt  `json:"quantidade_ml"`
	Dicas        []string `json:"dicas"`
}

type Suplementacao struct {
	Recomendada bool  `json:"recomendada"`
	Itens       []any `json:"itens"`
}

// GeneratedMealPlan is what the meal plan agent produces before it is stored as a PlanoAlimentar.
type GeneratedMealPlan struct {
	CaloriasDiarias              FlexInt         `json:"calorias_diarias"`
	Macros                       Macros          `json:"macros"`
	Refeicoes                    []RefeicaoPlano `json:"refeicoes"`
	OrientacoesGerais            []string        `json:"orientacoes_gerais"`
	Hidratacao                   Hidratacao      `json:"hidratacao"`
	Suplementacao                Suplementacao   `json:"suplementacao"`
	ProximaConsultaDias          FlexInt         `json:"proxima_consulta_dias"`
	ProximaConsultaJustificativa string          `json:"proxima_consulta_justificativa"`
}

// Alignment values accepted for a meal.
const (
	AlinhamentoExcelente = "excelente"
	AlinhamentoBom       = "bom"
	AlinhamentoAtencao   = "atencao"
)

// NormalizeAlinhamento maps anything outside the accepted set to "atencao".
func NormalizeAlinhamento(v string) string {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case AlinhamentoExcelente:
		return AlinhamentoExcelente
	case AlinhamentoBom:
		return AlinhamentoBom
	default:
		return AlinhamentoAtencao
	}
}

var _ json.Unmarshaler = (*FlexInt)(nil)
