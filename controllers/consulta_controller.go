package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nuttroadm/backendnuttro/middlewares"
	"github.com/nuttroadm/backendnuttro/services"
)

const msgConsultaNotFound = "Consulta não encontrada"

type ConsultaController struct {
	Consultas *services.ConsultaService
}

func NewConsultaController(cs *services.ConsultaService) *ConsultaController {
	return &ConsultaController{Consultas: cs}
}

func (cc *ConsultaController) List(c *gin.Context) {
	var f services.ConsultaFilter
	if err := c.ShouldBindQuery(&f); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	list, err := cc.Consultas.List(c.Request.Context(), middlewares.CurrentNutricionista(c).ID, f)
	if err != nil {
		respondError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, list)
}

func (cc *ConsultaController) Create(c *gin.Context) {
	var input services.ConsultaInput
	if !bindJSON(c, &input) {
		return
	}
	out, err := cc.Consultas.Create(c.Request.Context(), middlewares.CurrentNutricionista(c).ID, input)
	if err != nil {
		respondError(c, err, msgPacienteNotFound)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (cc *ConsultaController) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	out, err := cc.Consultas.Get(c.Request.Context(), middlewares.CurrentNutricionista(c).ID, id)
	if err != nil {
		respondError(c, err, msgConsultaNotFound)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (cc *ConsultaController) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var input services.ConsultaInput
	if !bindJSON(c, &input) {
		return
	}
	out, err := cc.Consultas.Update(c.Request.Context(), middlewares.CurrentNutricionista(c).ID, id, input)
	if err != nil {
		respondError(c, err, msgConsultaNotFound)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (cc *ConsultaController) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := cc.Consultas.Delete(c.Request.Context(), middlewares.CurrentNutricionista(c).ID, id); err != nil {
		respondError(c, err, msgConsultaNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Consulta excluída com sucesso"})
}

// POST /api/consultas/:id/insights
func (cc *ConsultaController) Insights(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	out, err := cc.Consultas.Insights(c.Request.Context(), middlewares.CurrentNutricionista(c).ID, id)
	if err != nil {
		respondError(c, err, msgConsultaNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"insights":      out.InsightsIA,
		"recomendacoes": out.RecomendacoesIA,
		"consulta":      out,
	})
}
