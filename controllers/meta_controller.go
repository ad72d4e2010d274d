package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nuttroadm/backendnuttro/middlewares"
	"github.com/nuttroadm/backendnuttro/services"
)

const msgMetaNotFound = "Meta não encontrada"

type MetaController struct {
	Metas *services.MetaService
}

func NewMetaController(ms *services.MetaService) *MetaController {
	return &MetaController{Metas: ms}
}

// GET /api/pacientes/:id/metas
func (mc *MetaController) List(c *gin.Context) {
	pid, ok := pathID(c, "id")
	if !ok {
		return
	}
	metas, err := mc.Metas.ListForPaciente(c.Request.Context(), middlewares.CurrentNutricionista(c).ID, pid)
	if err != nil {
		respondError(c, err, msgPacienteNotFound)
		return
	}
	c.JSON(http.StatusOK, metas)
}

// POST /api/pacientes/:id/metas
func (mc *MetaController) Create(c *gin.Context) {
	pid, ok := pathID(c, "id")
	if !ok {
		return
	}
	var input services.MetaInput
	if !bindJSON(c, &input) {
		return
	}
	m, err := mc.Metas.Create(c.Request.Context(), middlewares.CurrentNutricionista(c).ID, pid, input)
	if err != nil {
		respondError(c, err, msgPacienteNotFound)
		return
	}
	c.JSON(http.StatusCreated, m)
}

// PUT /api/metas/:id
func (mc *MetaController) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var input services.MetaInput
	if !bindJSON(c, &input) {
		return
	}
	m, err := mc.Metas.Update(c.Request.Context(), middlewares.CurrentNutricionista(c).ID, id, input)
	if err != nil {
		respondError(c, err, msgMetaNotFound)
		return
	}
	c.JSON(http.StatusOK, m)
}

// DELETE /api/metas/:id
func (mc *MetaController) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := mc.Metas.Delete(c.Request.Context(), middlewares.CurrentNutricionista(c).ID, id); err != nil {
		respondError(c, err, msgMetaNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Meta excluída com sucesso"})
}
