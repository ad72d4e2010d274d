package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nuttroadm/backendnuttro/middlewares"
	"github.com/nuttroadm/backendnuttro/services"
)

const msgStatusNotFound = "Status não encontrado"

type StatusController struct {
	Status *services.StatusService
}

func NewStatusController(ss *services.StatusService) *StatusController {
	return &StatusController{Status: ss}
}

func (sc *StatusController) List(c *gin.Context) {
	list, err := sc.Status.List(c.Request.Context(), middlewares.CurrentNutricionista(c).ID)
	if err != nil {
		respondError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, list)
}

func (sc *StatusController) Create(c *gin.Context) {
	var input services.StatusInput
	if !bindJSON(c, &input) {
		return
	}
	st, err := sc.Status.Create(c.Request.Context(), middlewares.CurrentNutricionista(c).ID, input)
	if err != nil {
		respondError(c, err, msgStatusNotFound)
		return
	}
	c.JSON(http.StatusCreated, st)
}

func (sc *StatusController) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var input services.StatusInput
	if !bindJSON(c, &input) {
		return
	}
	st, err := sc.Status.Update(c.Request.Context(), middlewares.CurrentNutricionista(c).ID, id, input)
	if err != nil {
		respondError(c, err, msgStatusNotFound)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (sc *StatusController) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := sc.Status.Delete(c.Request.Context(), middlewares.CurrentNutricionista(c).ID, id); err != nil {
		respondError(c, err, msgStatusNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Status excluído com sucesso"})
}
