package routes

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/nuttroadm/backendnuttro/agents"
	"github.com/nuttroadm/backendnuttro/config"
	"github.com/nuttroadm/backendnuttro/controllers"
	"github.com/nuttroadm/backendnuttro/services"
	"github.com/nuttroadm/backendnuttro/utils"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

type testApp struct {
	router http.Handler
	db     *gorm.DB
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file::memory:?_pragma=foreign_keys(1)"), config.GormConfig())
	if err != nil {
		t.Fatal(err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := config.Migrate(db); err != nil {
		t.Fatal(err)
	}

	log := zerolog.Nop()
	ag := agents.New(nil, agents.Options{Logger: log})
	tokens := utils.NewTokenIssuer("test-secret", time.Hour)
	hub := services.NewRealtimeHub(log)
	alerts := services.NewAlertBus(db, hub, log)
	evo := services.NewEvolutionClient("", "")
	auth := services.NewAuthService(db, tokens, nil, "admin@nuttro.com", log)
	pacientes := services.NewPacienteService(db, nil, log)
	dash := services.NewDashboardService(db)

	r := SetupRouter(Deps{
		Log:         log,
		CORSOrigins: []string{"*"},
		Tokens:      tokens,
		Loader:      auth,

		Auth:          controllers.NewAuthController(auth, services.NewNutricionistaService(db, nil)),
		Pacientes:     controllers.NewPacienteController(pacientes, dash),
		Metas:         controllers.NewMetaController(services.NewMetaService(db)),
		Planos:        controllers.NewPlanoController(services.NewPlanoService(db, ag)),
		Agendamentos:  controllers.NewAgendamentoController(services.NewAgendamentoService(db)),
		Consultas:     controllers.NewConsultaController(services.NewConsultaService(db, ag)),
		Status:        controllers.NewStatusController(services.NewStatusService(db)),
		Analytics:     controllers.NewAnalyticsController(dash, alerts),
		IA:            controllers.NewRecommendationController(services.NewIAService(db, ag)),
		WhatsApp:      controllers.NewWhatsAppController(services.NewWhatsAppService(db, evo, hub, nil, log)),
		Webhooks:      controllers.NewWebhookController(services.NewWebhookService(db, hub, log)),
		Mobile:        controllers.NewMobileController(services.NewMobileService(db, ag, nil, alerts, log)),
		Devices:       controllers.NewDeviceController(nil),
		Notifications: controllers.NewNotificationController(db),
		Uploads:       controllers.NewImageUploadController(nil),
		Realtime:      controllers.NewRealtimeController(hub, pacientes, log),
		Dev:           controllers.NewDevController(nil, pacientes),
	})
	return &testApp{router: r, db: db}
}

func (a *testApp) call(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(raw)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	out := map[string]any{}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w, out
}

func (a *testApp) registerNutri(t *testing.T, email string) string {
	t.Helper()
	w, out := a.call(t, http.MethodPost, "/api/auth/register", "", map[string]any{"email": email, "nome": "Nutri", "senha": "s3nha"})
	if w.Code != http.StatusOK {
		t.Fatalf("register: %d %s", w.Code, w.Body.String())
	}
	return out["access_token"].(string)
}

func TestHealth(t *testing.T) {
	app := newTestApp(t)
	w, out := app.call(t, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK || out["status"] != "ok" {
		t.Fatalf("health: %d %v", w.Code, out)
	}
}

func TestPacienteLifecycleOverHTTP(t *testing.T) {
	app := newTestApp(t)
	tok := app.registerNutri(t, "nutri@test.com")
	otherTok := app.registerNutri(t, "other@test.com")

	w, created := app.call(t, http.MethodPost, "/api/pacientes", tok, map[string]any{
		"cpf": "529.982.247-25", "nome": "Ana", "senha": "123", "telefone": "11987654321",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", w.Code, w.Body.String())
	}
	id := created["id"].(string)
	if _, leaked := created["senha_hash"]; leaked {
		t.Fatal("password hash in response")
	}

	w, out := app.call(t, http.MethodPost, "/api/pacientes", tok, map[string]any{"cpf": "52998224725", "nome": "Dup"})
	if w.Code != http.StatusBadRequest || out["error"] != "CPF já cadastrado" {
		t.Fatalf("duplicate: %d %v", w.Code, out)
	}

	w, out = app.call(t, http.MethodPut, "/api/pacientes/"+id, tok, map[string]any{"kanban_status": "em_acompanhamento"})
	if w.Code != http.StatusOK || out["updated"] != true {
		t.Fatalf("kanban move: %d %v", w.Code, out)
	}

	if w, _ = app.call(t, http.MethodGet, "/api/pacientes/"+id, otherTok, nil); w.Code != http.StatusNotFound {
		t.Fatalf("foreign get: %d", w.Code)
	}
	if w, _ = app.call(t, http.MethodGet, "/api/pacientes/not-a-uuid", tok, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("bad id: %d", w.Code)
	}
	if w, _ = app.call(t, http.MethodGet, "/api/pacientes/"+id+"/evolucao?from=2024-03-01&to=2024-03-07", tok, nil); w.Code != http.StatusOK {
		t.Fatalf("evolucao: %d %s", w.Code, w.Body.String())
	}

	// the patient app signs in with CPF and reaches its own endpoints only
	w, login := app.call(t, http.MethodPost, "/api/auth/paciente/login", "", map[string]any{"cpf": "52998224725", "senha": "123"})
	if w.Code != http.StatusOK {
		t.Fatalf("paciente login: %d %s", w.Code, w.Body.String())
	}
	pacTok := login["access_token"].(string)

	if w, _ = app.call(t, http.MethodGet, "/api/pacientes", pacTok, nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("paciente on web route: %d", w.Code)
	}
	if w, _ = app.call(t, http.MethodPost, "/api/mobile/checkin", pacTok, map[string]any{}); w.Code != http.StatusBadRequest {
		t.Fatalf("empty checkin: %d", w.Code)
	}
	checkin := map[string]any{
		"consistencia_plano": 2, "frequencia_refeicoes": 3, "vegetais_frutas": 2, "ingestao_liquido": 1,
		"energia_fisica": 2, "qualidade_sono": 2, "confianca_jornada": 3,
	}
	checkin["energia_fisica"] = 5
	if w, _ = app.call(t, http.MethodPost, "/api/mobile/checkin", pacTok, checkin); w.Code != http.StatusBadRequest {
		t.Fatalf("out of scale checkin: %d", w.Code)
	}
	checkin["energia_fisica"] = 2
	w, out = app.call(t, http.MethodPost, "/api/mobile/checkin", pacTok, checkin)
	if w.Code != http.StatusOK || out["message"] == nil {
		t.Fatalf("checkin: %d %v", w.Code, out)
	}
	w, out = app.call(t, http.MethodGet, "/api/mobile/dashboard", pacTok, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("dashboard: %d", w.Code)
	}
	if stats := out["stats"].(map[string]any); stats["total_checkins"] != float64(1) {
		t.Fatalf("stats = %v", stats)
	}
	if w, _ = app.call(t, http.MethodGet, "/api/mobile/plano", pacTok, nil); w.Code != http.StatusNotFound {
		t.Fatalf("plano without active plan: %d", w.Code)
	}

	if w, _ = app.call(t, http.MethodDelete, "/api/pacientes/"+id, tok, nil); w.Code != http.StatusOK {
		t.Fatalf("delete: %d", w.Code)
	}
	if w, _ = app.call(t, http.MethodGet, "/api/mobile/me", pacTok, nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("deleted paciente still authenticated: %d", w.Code)
	}
}

func TestUnconfiguredIntegrationsAnswer503(t *testing.T) {
	app := newTestApp(t)
	tok := app.registerNutri(t, "nutri@test.com")

	if w, _ := app.call(t, http.MethodPost, "/api/uploads/imagem", tok, map[string]any{"image_base64": "AAAA"}); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("upload: %d", w.Code)
	}
	if w, _ := app.call(t, http.MethodPost, "/api/auth/google", "", map[string]any{"credential": "x"}); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("google: %d", w.Code)
	}
	if w, _ := app.call(t, http.MethodPost, "/api/whatsapp/create-instance", tok, nil); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("whatsapp: %d", w.Code)
	}
	w, out := app.call(t, http.MethodGet, "/api/whatsapp/status", tok, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("whatsapp status should never fail: %d %v", w.Code, out)
	}
}

func TestWebhookAlwaysAcknowledges(t *testing.T) {
	app := newTestApp(t)
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/evolution", bytes.NewBufferString("{not json"))
	w := httptest.NewRecorder()
	app.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	w, out := app.call(t, http.MethodPost, "/api/webhooks/evolution", "", map[string]any{"event": "presence.update", "instance": "x"})
	if w.Code != http.StatusOK || out["status"] != "ok" {
		t.Fatalf("webhook: %d %v", w.Code, out)
	}
}

func TestDevRoutesOnlyWhenEnabled(t *testing.T) {
	app := newTestApp(t)
	tok := app.registerNutri(t, "nutri@test.com")
	if w, _ := app.call(t, http.MethodPost, "/api/dev/push/00000000-0000-0000-0000-000000000000", tok, map[string]any{}); w.Code != http.StatusNotFound {
		t.Fatalf("dev route exposed: %d", w.Code)
	}
}
