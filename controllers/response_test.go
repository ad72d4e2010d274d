package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/nuttroadm/backendnuttro/services"
)

func TestRespondErrorMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		err  error
		want int
		msg  string
	}{
		{&services.ConflictError{Kind: services.ErrDuplicateCPF, Message: "CPF já cadastrado"}, http.StatusBadRequest, "CPF já cadastrado"},
		{fmt.Errorf("wrapped: %w", services.ErrInvalidCPF), http.StatusBadRequest, ""},
		{services.ErrInvalidID, http.StatusBadRequest, "ID inválido"},
		{services.ErrNoPhone, http.StatusBadRequest, ""},
		{services.ErrInvalidCredentials, http.StatusUnauthorized, ""},
		{services.ErrNotFound, http.StatusNotFound, "Paciente não encontrado"},
		{services.ErrNotConfigured, http.StatusServiceUnavailable, "Integração não configurada"},
		{fmt.Errorf("%w: timeout", services.ErrGateway), http.StatusBadGateway, ""},
		{errors.New("db down"), http.StatusInternalServerError, "Internal server error"},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		respondError(c, tc.err, msgPacienteNotFound)

		if w.Code != tc.want {
			t.Errorf("%v: status = %d, want %d", tc.err, w.Code, tc.want)
			continue
		}
		var body map[string]string
		_ = json.Unmarshal(w.Body.Bytes(), &body)
		if tc.msg != "" && body["error"] != tc.msg {
			t.Errorf("%v: error = %q, want %q", tc.err, body["error"], tc.msg)
		}
		if tc.want >= 500 && len(c.Errors) != 1 {
			t.Errorf("%v: error not recorded on the context", tc.err)
		}
	}
}

func TestQueryInt(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/?limit=5&bad=x&neg=-1", nil)
	if queryInt(c, "limit", 30) != 5 || queryInt(c, "bad", 30) != 30 || queryInt(c, "neg", 30) != 30 || queryInt(c, "none", 7) != 7 {
		t.Fatal("queryInt mismatch")
	}
}
