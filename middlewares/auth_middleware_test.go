package middlewares

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nuttroadm/backendnuttro/models"
	"github.com/nuttroadm/backendnuttro/utils"
	"github.com/rs/zerolog"
)

type stubLoader struct {
	nutri    *models.Nutricionista
	paciente *models.Paciente
}

func (s stubLoader) Nutricionista(_ context.Context, id uuid.UUID) (*models.Nutricionista, error) {
	if s.nutri == nil || s.nutri.ID != id {
		return nil, errors.New("not found")
	}
	return s.nutri, nil
}

func (s stubLoader) Paciente(_ context.Context, id uuid.UUID) (*models.Paciente, error) {
	if s.paciente == nil || s.paciente.ID != id {
		return nil, errors.New("not found")
	}
	return s.paciente, nil
}

func newAuthRouter(tokens *utils.TokenIssuer, loader PrincipalLoader) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Recovery(zerolog.Nop()), RequestLogger(zerolog.Nop()))
	r.GET("/nutri", NutricionistaAuth(tokens, loader), func(c *gin.Context) {
		c.String(http.StatusOK, CurrentNutricionista(c).Nome)
	})
	r.GET("/paciente", PacienteAuth(tokens, loader), func(c *gin.Context) {
		c.String(http.StatusOK, CurrentPaciente(c).Nome)
	})
	r.GET("/panic", func(c *gin.Context) { panic("boom") })
	return r
}

func do(r http.Handler, path, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	tokens := utils.NewTokenIssuer("secret", time.Hour)
	nutri := &models.Nutricionista{Base: models.Base{ID: uuid.New()}, Nome: "Nutri"}
	pac := &models.Paciente{Base: models.Base{ID: uuid.New()}, Nome: "Ana"}
	r := newAuthRouter(tokens, stubLoader{nutri: nutri, paciente: pac})

	nutriTok, _ := tokens.Generate(nutri.ID, utils.PrincipalNutricionista)
	pacTok, _ := tokens.Generate(pac.ID, utils.PrincipalPaciente)
	ghostTok, _ := tokens.Generate(uuid.New(), utils.PrincipalNutricionista)

	cases := []struct {
		name, path, header string
		want               int
		body               string
	}{
		{"nutricionista ok", "/nutri", "Bearer " + nutriTok, http.StatusOK, "Nutri"},
		{"lowercase scheme", "/nutri", "bearer " + nutriTok, http.StatusOK, "Nutri"},
		{"paciente ok", "/paciente", "Bearer " + pacTok, http.StatusOK, "Ana"},
		{"query token for websockets", "/paciente?token=" + pacTok, "", http.StatusOK, "Ana"},
		{"missing token", "/nutri", "", http.StatusUnauthorized, ""},
		{"wrong scheme", "/nutri", "Basic " + nutriTok, http.StatusUnauthorized, ""},
		{"paciente token on web route", "/nutri", "Bearer " + pacTok, http.StatusUnauthorized, ""},
		{"nutricionista token on mobile route", "/paciente", "Bearer " + nutriTok, http.StatusUnauthorized, ""},
		{"unknown principal", "/nutri", "Bearer " + ghostTok, http.StatusUnauthorized, ""},
		{"garbage", "/nutri", "Bearer abc", http.StatusUnauthorized, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(r, tc.path, tc.header)
			if w.Code != tc.want {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tc.want, w.Body.String())
			}
			if tc.body != "" && w.Body.String() != tc.body {
				t.Fatalf("body = %q", w.Body.String())
			}
			if w.Header().Get(HeaderRequestID) == "" {
				t.Fatal("missing request id header")
			}
		})
	}
}

func TestRecovery(t *testing.T) {
	r := newAuthRouter(utils.NewTokenIssuer("s", time.Hour), stubLoader{})
	w := do(r, "/panic", "")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestRequestLoggerKeepsIncomingID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestLogger(zerolog.Nop()))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Header().Get(HeaderRequestID) != "abc-123" {
		t.Fatalf("request id = %q", w.Header().Get(HeaderRequestID))
	}
}
