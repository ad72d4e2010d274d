package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nuttroadm/backendnuttro/middlewares"
	"github.com/nuttroadm/backendnuttro/services"
)

const msgAgendamentoNotFound = "Agendamento não encontrado"

type AgendamentoController struct {
	Agendamentos *services.AgendamentoService
}

func NewAgendamentoController(as *services.AgendamentoService) *AgendamentoController {
	return &AgendamentoController{Agendamentos: as}
}

func (ac *AgendamentoController) List(c *gin.Context) {
	var f services.AgendamentoFilter
	if err := c.ShouldBindQuery(&f); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	list, err := ac.Agendamentos.List(c.Request.Context(), middlewares.CurrentNutricionista(c).ID, f)
	if err != nil {
		respondError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, list)
}

func (ac *AgendamentoController) Create(c *gin.Context) {
	var input services.AgendamentoInput
	if !bindJSON(c, &input) {
		return
	}
	a, err := ac.Agendamentos.Create(c.Request.Context(), middlewares.CurrentNutricionista(c).ID, input)
	if err != nil {
		respondError(c, err, msgPacienteNotFound)
		return
	}
	c.JSON(http.StatusCreated, a)
}

func (ac *AgendamentoController) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	a, err := ac.Agendamentos.Get(c.Request.Context(), middlewares.CurrentNutricionista(c).ID, id)
	if err != nil {
		respondError(c, err, msgAgendamentoNotFound)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (ac *AgendamentoController) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var input services.AgendamentoInput
	if !bindJSON(c, &input) {
		return
	}
	a, err := ac.Agendamentos.Update(c.Request.Context(), middlewares.CurrentNutricionista(c).ID, id, input)
	if err != nil {
		respondError(c, err, msgAgendamentoNotFound)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (ac *AgendamentoController) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := ac.Agendamentos.Delete(c.Request.Context(), middlewares.CurrentNutricionista(c).ID, id); err != nil {
		respondError(c, err, msgAgendamentoNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Agendamento excluído com sucesso"})
}
