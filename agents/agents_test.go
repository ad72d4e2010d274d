package agents

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nuttroadm/backendnuttro/models"
	"github.com/rs/zerolog"
)

type fakeCompleter struct {
	mu       sync.Mutex
	replies  []string
	err      error
	requests []Request
}

func (f *fakeCompleter) Complete(_ context.Context, req Request) (Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return Response{Model: "fake"}, f.err
	}
	content := ""
	if len(f.replies) > 0 {
		content = f.replies[0]
		if len(f.replies) > 1 {
			f.replies = f.replies[1:]
		}
	}
	return Response{Content: content, Model: "fake", TokensUsed: 42}, nil
}

type memRecorder struct {
	calls []Call
}

func (m *memRecorder) Record(_ context.Context, c Call) { m.calls = append(m.calls, c) }

func newTestAgents(llm Completer, rec Recorder) *Agents {
	if llm == nil {
		return New(nil, Options{Logger: zerolog.Nop()})
	}
	return New(llm, Options{Recorder: rec, Logger: zerolog.Nop()})
}

func TestMealAnalyzer_NoLLMReturnsFallback(t *testing.T) {
	a := newTestAgents(nil, nil)
	got := a.Meal.Analyze(context.Background(), MealInput{Descricao: "arroz com ovo"})

	want := MealFallback()
	if len(got.Itens) != 1 || got.Itens[0] != want.Itens[0] {
		t.Fatalf("expected fallback itens, got %v", got.Itens)
	}
	if got.AlinhamentoPlano != "atencao" {
		t.Errorf("expected atencao, got %q", got.AlinhamentoPlano)
	}
	if got.CaloriasEstimadas != 0 || got.Macros != (models.Macros{}) {
		t.Errorf("expected zero macros and calories, got %+v / %d", got.Macros, got.CaloriasEstimadas)
	}
	if got.Feedback != "Não consegui analisar esta imagem. Tente uma foto mais clara!" {
		t.Errorf("unexpected feedback %q", got.Feedback)
	}
}

func TestMealAnalyzer_TextRestrictsItemsToDescription(t *testing.T) {
	llm := &fakeCompleter{replies: []string{`{
		"itens": ["Arroz branco", "Ovo frito", "Feijão carioca"],
		"porcoes": {"Arroz branco": "1 concha", "Ovo frito": "1 unidade", "Feijão carioca": "1 concha"},
		"macros": {"proteinas_g": 10, "carboidratos_g": 45, "gorduras_g": 6, "fibras_g": 1},
		"calorias_estimadas": 290.6,
		"feedback": "Arroz com ovo é uma combinação simples.",
		"sugestoes": ["Inclua salada"],
		"alinhamento_plano": "ótimo"
	}`}}
	a := newTestAgents(llm, nil)

	got := a.Meal.Analyze(context.Background(), MealInput{Descricao: "arroz com ovo"})

	if len(got.Itens) != 2 || got.Itens[0] != "Arroz branco" || got.Itens[1] != "Ovo frito" {
		t.Fatalf("expected only arroz and ovo, got %v", got.Itens)
	}
	if _, ok := got.Porcoes["Feijão carioca"]; ok {
		t.Errorf("expected feijão portion to be dropped, got %v", got.Porcoes)
	}
	if len(got.Porcoes) != 2 {
		t.Errorf("expected 2 portions, got %d", len(got.Porcoes))
	}
	if got.AlinhamentoPlano != "atencao" {
		t.Errorf("expected unknown alignment to normalise to atencao, got %q", got.AlinhamentoPlano)
	}
	if got.CaloriasEstimadas != 291 {
		t.Errorf("expected rounded calories 291, got %d", got.CaloriasEstimadas)
	}
	if len(llm.requests) != 1 || llm.requests[0].Vision {
		t.Errorf("expected a single text request, got %+v", llm.requests)
	}
	if llm.requests[0].Temperature != 0.3 {
		t.Errorf("expected temperature 0.3, got %v", llm.requests[0].Temperature)
	}
}

func TestMealAnalyzer_DescriptionWinsOverPhoto(t *testing.T) {
	llm := &fakeCompleter{replies: []string{`{"itens":["Maçã"],"alinhamento_plano":"bom"}`}}
	a := newTestAgents(llm, nil)

	got := a.Meal.Analyze(context.Background(), MealInput{Descricao: "uma maçã", FotoBase64: "data:image/jpeg;base64,AAAA"})

	if len(llm.requests) != 1 || llm.requests[0].Vision {
		t.Fatalf("expected no vision call when a description is present")
	}
	if len(got.Itens) != 1 || got.AlinhamentoPlano != "bom" {
		t.Errorf("unexpected analysis %+v", got)
	}
}

func TestMealAnalyzer_PhotoGoesThroughVision(t *testing.T) {
	llm := &fakeCompleter{replies: []string{
		"Arroz branco (porção média), frango grelhado (1 filé)",
		"```json\n{\"itens\":[\"Arroz branco\",\"Frango grelhado\",\"Brócolis\"],\"alinhamento_plano\":\"excelente\"}\n```",
	}}
	a := newTestAgents(llm, nil)

	got := a.Meal.Analyze(context.Background(), MealInput{FotoBase64: "data:image/png;base64,QUJD"})

	if len(llm.requests) != 2 {
		t.Fatalf("expected vision + analysis requests, got %d", len(llm.requests))
	}
	vision := llm.requests[0]
	if !vision.Vision {
		t.Fatalf("expected first request to use the vision model")
	}
	if vision.Messages[0].ImageURL != "data:image/jpeg;base64,QUJD" {
		t.Errorf("unexpected image url %q", vision.Messages[0].ImageURL)
	}
	// image-derived descriptions are not filtered
	if len(got.Itens) != 3 {
		t.Errorf("expected 3 itens, got %v", got.Itens)
	}
	if got.AlinhamentoPlano != "excelente" {
		t.Errorf("expected excelente, got %q", got.AlinhamentoPlano)
	}
}

func TestMealAnalyzer_UnparseableReplyFallsBack(t *testing.T) {
	llm := &fakeCompleter{replies: []string{"não sei responder"}}
	a := newTestAgents(llm, nil)

	got := a.Meal.Analyze(context.Background(), MealInput{Descricao: "pão"})
	if got.Itens[0] != "Não foi possível analisar" {
		t.Errorf("expected fallback, got %v", got.Itens)
	}
}

func TestCheckinAnalyzer_UnparseableReplyIsRecordedAsFailure(t *testing.T) {
	llm := &fakeCompleter{replies: []string{"Tudo certo com o paciente."}}
	rec := &memRecorder{}
	a := newTestAgents(llm, rec)

	got := a.Checkin.Analyze(context.Background(), []models.CheckIn{{QualidadeSono: 2}}, nil, nil)
	if got.MensagemMotivacional != CheckinFallback().MensagemMotivacional {
		t.Errorf("expected fallback, got %+v", got)
	}
	if len(rec.calls) != 1 {
		t.Fatalf("expected one recorded call, got %d", len(rec.calls))
	}
	call := rec.calls[0]
	if !errors.Is(call.Err, ErrUnparseableCompletion) {
		t.Errorf("err = %v, want unparseable completion", call.Err)
	}
	if call.Output != "Tudo certo com o paciente." {
		t.Errorf("raw reply not kept: %q", call.Output)
	}
}

func TestMealAnalyzer_ErrorFallsBackAndIsRecorded(t *testing.T) {
	llm := &fakeCompleter{err: errors.New("boom")}
	rec := &memRecorder{}
	a := newTestAgents(llm, rec)

	pid := uuid.New()
	ctx := WithScope(context.Background(), &pid, nil)
	got := a.Meal.Analyze(ctx, MealInput{Descricao: "pão"})

	if got.AlinhamentoPlano != "atencao" || got.Itens[0] != "Não foi possível analisar" {
		t.Errorf("expected fallback, got %+v", got)
	}
	if len(rec.calls) != 1 {
		t.Fatalf("expected one recorded call, got %d", len(rec.calls))
	}
	call := rec.calls[0]
	if call.Kind != KindAnaliseRefeicao || call.Err == nil {
		t.Errorf("unexpected call %+v", call)
	}
	if call.PacienteID == nil || *call.PacienteID != pid {
		t.Errorf("expected paciente scope to be recorded")
	}
}

func TestChatAgent_Unavailable(t *testing.T) {
	a := newTestAgents(nil, nil)
	if got := a.Chat.Reply(context.Background(), "oi", ChatContext{}, nil); got != ChatUnavailable {
		t.Errorf("expected %q, got %q", ChatUnavailable, got)
	}
}

func TestChatAgent_ErrorMessage(t *testing.T) {
	a := newTestAgents(&fakeCompleter{err: errors.New("timeout")}, nil)
	if got := a.Chat.Reply(context.Background(), "oi", ChatContext{}, nil); got != ChatError {
		t.Errorf("expected %q, got %q", ChatError, got)
	}
}

func TestChatAgent_KeepsLastTenTurns(t *testing.T) {
	llm := &fakeCompleter{replies: []string{"  Olá, Ana!  "}}
	a := newTestAgents(llm, nil)

	var history []ChatTurn
	for i := 0; i < 15; i++ {
		role := RoleUser
		if i%2 == 1 {
			role = RoleAssistant
		}
		history = append(history, ChatTurn{Role: role, Content: "msg"})
	}

	got := a.Chat.Reply(context.Background(), "tudo bem?", ChatContext{Nome: "Ana"}, history)
	if got != "Olá, Ana!" {
		t.Errorf("unexpected reply %q", got)
	}
	msgs := llm.requests[0].Messages
	if len(msgs) != 12 {
		t.Fatalf("expected system + 10 history + 1 message, got %d", len(msgs))
	}
	if msgs[0].Role != RoleSystem || !strings.Contains(msgs[0].Content, "Ana") {
		t.Errorf("expected system prompt with patient name")
	}
	if last := msgs[len(msgs)-1]; last.Role != RoleUser || last.Content != "tudo bem?" {
		t.Errorf("expected current message last, got %+v", last)
	}
}

func TestCheckinAnalyzer_EmptyCheckinsSkipsLLM(t *testing.T) {
	llm := &fakeCompleter{replies: []string{`{"pontos_fortes":["x"]}`}}
	a := newTestAgents(llm, nil)

	got := a.Checkin.Analyze(context.Background(), nil, map[string]any{"nome": "Ana"}, nil)
	if len(llm.requests) != 0 {
		t.Errorf("expected no llm call for empty check-ins")
	}
	if got.PontosFortes[0] != "Continue registrando seus check-ins!" || got.AlertaNutricionista || got.MotivoAlerta != nil {
		t.Errorf("unexpected fallback %+v", got)
	}
	if got.AreasAtencao == nil || len(got.AreasAtencao) != 0 {
		t.Errorf("expected empty areas_atencao list")
	}
}

func TestCheckinAnalyzer_ParsesEmbeddedJSON(t *testing.T) {
	llm := &fakeCompleter{replies: []string{`Segue a análise: {"pontos_fortes":["Sono"],"alerta_nutricionista":true,"motivo_alerta":"Queda de energia"} fim`}}
	a := newTestAgents(llm, nil)

	got := a.Checkin.Analyze(context.Background(), []models.CheckIn{{Data: time.Now(), EnergiaFisica: 1}}, nil, nil)
	if !got.AlertaNutricionista || got.MotivoAlerta == nil || *got.MotivoAlerta != "Queda de energia" {
		t.Errorf("expected alert with reason, got %+v", got)
	}
	if got.Sugestoes == nil || got.Tendencias == nil {
		t.Errorf("expected lists and maps to be non-nil")
	}
}

func TestInsightAgent_Fallback(t *testing.T) {
	got := newTestAgents(nil, nil).Insight.Generate(context.Background(), InsightInput{})
	if got.ResumoProgresso != "Dados insuficientes para análise" {
		t.Errorf("unexpected resumo %q", got.ResumoProgresso)
	}
	if len(got.RecomendacoesPlano) != 1 || got.RecomendacoesPlano[0] != "Coletar mais dados do paciente" {
		t.Errorf("unexpected recomendacoes %v", got.RecomendacoesPlano)
	}
}

func TestSummarizeCheckins_AveragesRecordedValues(t *testing.T) {
	got := SummarizeCheckins([]models.CheckIn{
		{ConsistenciaPlano: 3, QualidadeSono: 2},
		{ConsistenciaPlano: 2, QualidadeSono: 0},
		{ConsistenciaPlano: 2, QualidadeSono: 3},
	})
	if got["consistencia_plano"] != 2.3 {
		t.Errorf("expected 2.3, got %v", got["consistencia_plano"])
	}
	if got["qualidade_sono"] != 2.5 {
		t.Errorf("expected zero values skipped (2.5), got %v", got["qualidade_sono"])
	}
	if _, ok := got["energia_fisica"]; ok {
		t.Errorf("expected metric without values to be absent")
	}
}

func TestSummarizeMealsAndGoals(t *testing.T) {
	meals := SummarizeMeals([]models.Refeicao{
		{CaloriasEstimadas: 500, AlinhamentoPlano: "excelente"},
		{CaloriasEstimadas: 301, AlinhamentoPlano: "bom"},
		{CaloriasEstimadas: 0, AlinhamentoPlano: ""},
	})
	if meals.TotalRefeicoes != 3 || meals.CaloriasMedia != 267 {
		t.Errorf("unexpected meal summary %+v", meals)
	}
	if meals.AlinhamentoExcelente != 1 || meals.AlinhamentoBom != 1 || meals.AlinhamentoAtencao != 1 {
		t.Errorf("unexpected alignment counts %+v", meals)
	}

	goals := SummarizeGoals([]models.Meta{
		{Status: "ativa", ProgressoPercentual: 50},
		{Status: "concluida", ProgressoPercentual: 100},
	})
	if goals.Total != 2 || goals.Ativas != 1 || goals.Concluidas != 1 || goals.ProgressoMedio != 75 {
		t.Errorf("unexpected goal summary %+v", goals)
	}
}

func TestMealPlanAgent_Fallback(t *testing.T) {
	got := newTestAgents(nil, nil).Plan.Generate(context.Background(), MealPlanInput{Objetivo: "emagrecimento"})
	if got.CaloriasDiarias != 1800 || got.Macros.ProteinasG != 135 || got.Macros.FibrasG != 25 {
		t.Errorf("unexpected fallback totals %+v", got)
	}
	if len(got.Refeicoes) != 1 || got.Refeicoes[0].TotalCalorias != 310 || len(got.Refeicoes[0].Alimentos) != 3 {
		t.Fatalf("unexpected fallback meals %+v", got.Refeicoes)
	}
	if got.Hidratacao.QuantidadeML != 2000 || got.ProximaConsultaDias != 15 {
		t.Errorf("unexpected hydration/next visit %+v", got)
	}
}

func TestAnthropometrics(t *testing.T) {
	peso, altura := Anthropometrics(map[string]any{"peso_kg": "82,5", "altura": 1.8}, nil, nil)
	if peso != 82.5 || altura != 180 {
		t.Errorf("expected 82.5kg/180cm, got %v/%v", peso, altura)
	}

	p, a := 64.0, 160.0
	peso, altura = Anthropometrics(nil, &p, &a)
	if peso != 64 || altura != 160 {
		t.Errorf("expected patient values, got %v/%v", peso, altura)
	}

	peso, altura = Anthropometrics(map[string]any{}, nil, nil)
	if peso != 70 || altura != 170 {
		t.Errorf("expected defaults, got %v/%v", peso, altura)
	}
}

func TestDecodeCompletion(t *testing.T) {
	var v struct {
		A int `json:"a"`
	}
	cases := []string{
		`{"a": 1}`,
		"```json\n{\"a\": 1}\n```",
		"```\n{\"a\": 1}\n```",
		`Resposta: {"a": 1} obrigado`,
	}
	for _, c := range cases {
		v.A = 0
		if err := decodeCompletion(c, &v); err != nil || v.A != 1 {
			t.Errorf("decodeCompletion(%q) = %v, a=%d", c, err, v.A)
		}
	}
	if err := decodeCompletion("sem json", &v); err == nil {
		t.Errorf("expected error for text without JSON")
	}
}

func TestGroqCompleter_SendsOpenAICompatibleRequest(t *testing.T) {
	var body map[string]any
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		auth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","created":1,"model":"vision-model",
			"choices":[{"index":0,"message":{"role":"assistant","content":"arroz e feijão"},"finish_reason":"stop"}],
			"usage":{"prompt_tokens":5,"completion_tokens":4,"total_tokens":9}}`))
	}))
	defer srv.Close()

	g := NewGroqCompleter(GroqConfig{
		APIKey: "k", BaseURL: srv.URL, TextModel: "text-model", VisionModel: "vision-model", Timeout: 5 * time.Second,
	})
	resp, err := g.Complete(context.Background(), Request{
		Vision:      true,
		Messages:    []Message{{Role: RoleUser, Content: "descreva", ImageURL: "data:image/jpeg;base64,AAAA"}},
		Temperature: 0.3,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "arroz e feijão" || resp.TokensUsed != 9 || resp.Model != "vision-model" {
		t.Errorf("unexpected response %+v", resp)
	}
	if auth != "Bearer k" {
		t.Errorf("expected bearer auth, got %q", auth)
	}
	if body["model"] != "vision-model" {
		t.Errorf("expected vision model, got %v", body["model"])
	}
	msgs, _ := body["messages"].([]any)
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	parts, ok := msgs[0].(map[string]any)["content"].([]any)
	if !ok || len(parts) != 2 {
		t.Errorf("expected multi-part content, got %v", msgs[0])
	}
}
