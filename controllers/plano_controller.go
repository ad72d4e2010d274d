package controllers

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nuttroadm/backendnuttro/middlewares"
	"github.com/nuttroadm/backendnuttro/services"
)

const msgPlanoNotFound = "Plano não encontrado"

type PlanoController struct {
	Planos *services.PlanoService
}

func NewPlanoController(ps *services.PlanoService) *PlanoController {
	return &PlanoController{Planos: ps}
}

// GET /api/pacientes/:id/planos
func (pc *PlanoController) List(c *gin.Context) {
	pid, ok := pathID(c, "id")
	if !ok {
		return
	}
	planos, err := pc.Planos.ListForPaciente(c.Request.Context(), middlewares.CurrentNutricionista(c).ID, pid)
	if err != nil {
		respondError(c, err, msgPacienteNotFound)
		return
	}
	c.JSON(http.StatusOK, planos)
}

// POST /api/pacientes/:id/planos
func (pc *PlanoController) Create(c *gin.Context) {
	pid, ok := pathID(c, "id")
	if !ok {
		return
	}
	var input services.PlanoInput
	if !bindJSON(c, &input) {
		return
	}
	p, err := pc.Planos.Create(c.Request.Context(), middlewares.CurrentNutricionista(c).ID, pid, input)
	if err != nil {
		respondError(c, err, msgPacienteNotFound)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// POST /api/pacientes/:id/planos/gerar
func (pc *PlanoController) Gerar(c *gin.Context) {
	pid, ok := pathID(c, "id")
	if !ok {
		return
	}
	var input services.GerarPlanoInput
	if c.Request.ContentLength != 0 && !bindJSON(c, &input) {
		return
	}
	res, err := pc.Planos.Gerar(c.Request.Context(), middlewares.CurrentNutricionista(c).ID, pid, input)
	if err != nil {
		respondError(c, err, msgPacienteNotFound)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (pc *PlanoController) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	p, err := pc.Planos.Get(c.Request.Context(), middlewares.CurrentNutricionista(c).ID, id)
	if err != nil {
		respondError(c, err, msgPlanoNotFound)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (pc *PlanoController) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var input services.PlanoInput
	if !bindJSON(c, &input) {
		return
	}
	p, err := pc.Planos.Update(c.Request.Context(), middlewares.CurrentNutricionista(c).ID, id, input)
	if err != nil {
		respondError(c, err, msgPlanoNotFound)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (pc *PlanoController) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := pc.Planos.Delete(c.Request.Context(), middlewares.CurrentNutricionista(c).ID, id); err != nil {
		respondError(c, err, msgPlanoNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Plano excluído com sucesso"})
}

// GET /api/planos/:id/pdf renders into a buffer so a failure can still answer with JSON.
func (pc *PlanoController) PDF(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var buf bytes.Buffer
	filename, err := pc.Planos.PDF(c.Request.Context(), middlewares.CurrentNutricionista(c), id, &buf)
	if err != nil {
		respondError(c, err, msgPlanoNotFound)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}
