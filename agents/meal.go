package agents

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/nuttroadm/backendnuttro/models"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const mealPrompt = `Você é Nuttro IA, um nutricionista virtual especializado em análise de refeições.
Analise a refeição descrita com precisão, sem supor nada além do que foi informado.

CONTEXTO DO PACIENTE:
%s

PLANO ALIMENTAR ATUAL:
%s

DESCRIÇÃO DA REFEIÇÃO:
%s

REGRAS:
1. Considere apenas os alimentos citados na descrição. Não invente alimentos.
2. Estime porções com medidas caseiras brasileiras. Referências:
   - Arroz branco cozido: 1 concha média (~150g) = ~200 kcal, 45g carboidratos, 4g proteína
   - Ovo: 1 unidade média (~60g) = ~90 kcal, 6g proteína, 6g gordura
   - Frango grelhado: 1 filé médio (~100g) = ~165 kcal, 31g proteína, 3.6g gordura
   - Feijão cozido: 1 concha (~100g) = ~130 kcal, 8g proteína, 23g carboidratos
   - Salada: 1 prato raso (~100g) = 20 a 50 kcal
3. Informe macros em gramas e some as calorias de todos os itens.
4. Avalie o alinhamento com o objetivo do paciente (perda de peso, ganho de massa, manutenção).
5. O feedback deve citar os alimentos reais da refeição. Evite frases genéricas.
6. Seja positivo e realista.

Responda APENAS com JSON válido, sem markdown, no formato:
{
    "itens": ["alimentos citados na descrição"],
    "porcoes": {"alimento": "porção estimada"},
    "macros": {"proteinas_g": 0.0, "carboidratos_g": 0.0, "gorduras_g": 0.0, "fibras_g": 0.0},
    "calorias_estimadas": 0,
    "feedback": "feedback sobre esta refeição",
    "sugestoes": ["sugestões práticas"],
    "alinhamento_plano": "excelente|bom|atencao"
}`

const visionPrompt = `Você é um especialista em nutrição. Observe a foto da refeição e descreva:

1. Todos os alimentos visíveis, de forma específica (arroz branco, feijão preto, frango grelhado...)
2. Porções aproximadas (pouco, médio, bastante)
3. Método de preparo visível (grelhado, frito, cozido, cru)

Responda de forma direta, apenas listando os alimentos.
Exemplo: "Arroz branco (porção média), feijão carioca (1 concha), frango grelhado (1 filé médio), salada de alface e tomate"

Se não houver comida na imagem, diga isso claramente.`

type MealInput struct {
	FotoBase64 string
	Descricao  string
	Paciente   map[string]any
	Plano      map[string]any
}

type MealAnalyzer struct {
	*runner
	labeler ImageLabeler
}

// MealFallback is returned whenever a meal cannot be analysed.
func MealFallback() models.MealAnalysis {
	return models.MealAnalysis{
		Itens:            []string{"Não foi possível analisar"},
		Porcoes:          map[string]any{},
		Macros:           models.Macros{},
		Feedback:         "Não consegui analisar esta imagem. Tente uma foto mais clara!",
		Sugestoes:        []string{"Tire fotos com boa iluminação"},
		AlinhamentoPlano: models.AlinhamentoAtencao,
	}
}

// Analyze prefers the text description and only looks at the photo when there is none.
func (a *MealAnalyzer) Analyze(ctx context.Context, in MealInput) models.MealAnalysis {
	if !a.enabled() {
		return MealFallback()
	}

	descricao := strings.TrimSpace(in.Descricao)
	fromText := descricao != ""
	if !fromText {
		if strings.TrimSpace(in.FotoBase64) == "" {
			a.log.Warn().Msg("meal analysis without description or photo")
			return MealFallback()
		}
		var ok bool
		descricao, ok = a.describeImage(ctx, in.FotoBase64)
		if !ok {
			return MealFallback()
		}
	}

	contexto := "Sem contexto do paciente"
	if len(in.Paciente) > 0 {
		contexto = toJSON(in.Paciente)
	}
	plano := "Sem plano alimentar definido"
	if len(in.Plano) > 0 {
		plano = toJSON(in.Plano)
	}

	prompt := fmt.Sprintf(mealPrompt, contexto, plano, descricao)
	var out models.MealAnalysis
	if err := a.completeJSON(ctx, KindAnaliseRefeicao, Request{
		Messages:    []Message{{Role: RoleUser, Content: prompt}},
		Temperature: 0.3,
	}, map[string]any{"descricao": descricao, "origem_texto": fromText}, &out); err != nil {
		return MealFallback()
	}
	return normalizeMeal(out, descricao, fromText)
}

func (a *MealAnalyzer) describeImage(ctx context.Context, foto string) (string, bool) {
	raw := foto
	if _, after, found := strings.Cut(foto, "base64,"); found {
		raw = after
	}

	resp, err := a.complete(ctx, KindVisaoRefeicao, Request{
		Vision: true,
		Messages: []Message{{
			Role:     RoleUser,
			Content:  visionPrompt,
			ImageURL: "data:image/jpeg;base64," + raw,
		}},
		Temperature: 0.3,
	}, map[string]any{"imagem_bytes": len(raw)})
	if err != nil {
		return "", false
	}
	descricao := strings.TrimSpace(resp.Content)

	if a.labeler != nil {
		labels, err := a.labeler.RecognizeLabels(ctx, "data:image/jpeg;base64,"+raw)
		if err != nil {
			a.log.Warn().Err(err).Msg("image labels unavailable")
		} else if len(labels) > 0 {
			descricao += "\nRótulos detectados na imagem: " + strings.Join(labels, ", ")
		}
	}
	return descricao, descricao != ""
}

func normalizeMeal(out models.MealAnalysis, descricao string, fromText bool) models.MealAnalysis {
	out.AlinhamentoPlano = models.NormalizeAlinhamento(out.AlinhamentoPlano)
	if out.Porcoes == nil {
		out.Porcoes = map[string]any{}
	}
	out.Itens = nonNil(out.Itens)
	out.Sugestoes = nonNil(out.Sugestoes)
	if out.CaloriasEstimadas < 0 {
		out.CaloriasEstimadas = 0
	}

	if fromText {
		words := wordSet(descricao)
		kept := make([]string, 0, len(out.Itens))
		for _, item := range out.Itens {
			if mentioned(item, words) {
				kept = append(kept, item)
			}
		}
		out.Itens = kept
		for k := range out.Porcoes {
			if !mentioned(k, words) {
				delete(out.Porcoes, k)
			}
		}
	}
	return out
}

var stopwords = map[string]bool{
	"com": true, "sem": true, "de": true, "do": true, "da": true, "dos": true, "das": true,
	"e": true, "em": true, "no": true, "na": true, "um": true, "uma": true, "ao": true,
	"cozido": true, "cozida": true, "frito": true, "frita": true, "grelhado": true, "grelhada": true,
	"assado": true, "assada": true, "branco": true, "branca": true, "integral": true,
	"porcao": true, "media": true, "medio": true, "pequeno": true, "grande": true,
}

var folder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// foldWords lower-cases, strips accents and singularises each word.
func foldWords(s string) []string {
	folded, _, err := transform.String(folder, strings.ToLower(s))
	if err != nil {
		folded = strings.ToLower(s)
	}
	fields := strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if len(f) > 3 {
			f = strings.TrimSuffix(f, "s")
		}
		out = append(out, f)
	}
	return out
}

func wordSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range foldWords(s) {
		set[w] = true
	}
	return set
}

// mentioned reports whether a food name shares a significant word with the description.
func mentioned(item string, words map[string]bool) bool {
	for _, w := range foldWords(item) {
		if len(w) < 2 || stopwords[w] {
			continue
		}
		if words[w] {
			return true
		}
	}
	return false
}
