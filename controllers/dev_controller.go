package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nuttroadm/backendnuttro/middlewares"
	"github.com/nuttroadm/backendnuttro/services"
)

// DevController is only routed when ENV=development.
type DevController struct {
	Push      services.PushNotifier
	Pacientes *services.PacienteService
}

func NewDevController(p services.PushNotifier, ps *services.PacienteService) *DevController {
	return &DevController{Push: p, Pacientes: ps}
}

type devPushInput struct {
	Titulo   string            `json:"title"`
	Mensagem string            `json:"body"`
	Dados    map[string]string `json:"data"`
}

// POST /api/dev/push/:paciente_id
func (d *DevController) PushTest(c *gin.Context) {
	if d.Push == nil {
		respondError(c, services.ErrNotConfigured, "")
		return
	}
	pid, ok := pathID(c, "paciente_id")
	if !ok {
		return
	}
	if _, err := d.Pacientes.Get(c.Request.Context(), middlewares.CurrentNutricionista(c).ID, pid); err != nil {
		respondError(c, err, msgPacienteNotFound)
		return
	}

	var in devPushInput
	if !bindJSON(c, &in) {
		return
	}
	if in.Titulo == "" {
		in.Titulo = "Teste de notificação"
	}
	if in.Mensagem == "" {
		in.Mensagem = "Esta é apenas uma notificação de teste."
	}
	if in.Dados == nil {
		in.Dados = map[string]string{"tipo": "teste"}
	}

	d.Push.PushToPaciente(c.Request.Context(), pid, in.Titulo, in.Mensagem, in.Dados)
	c.JSON(http.StatusOK, gin.H{"enviado": true, "paciente_id": pid})
}
