package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nuttroadm/backendnuttro/middlewares"
	"github.com/nuttroadm/backendnuttro/services"
)

// AnalyticsController serves the nutritionist dashboard and its alert inbox.
type AnalyticsController struct {
	Dashboard *services.DashboardService
	Alerts    *services.AlertBus
}

func NewAnalyticsController(ds *services.DashboardService, alerts *services.AlertBus) *AnalyticsController {
	return &AnalyticsController{Dashboard: ds, Alerts: alerts}
}

// GET /api/dashboard/stats
func (h *AnalyticsController) Stats(c *gin.Context) {
	out, err := h.Dashboard.Stats(c.Request.Context(), middlewares.CurrentNutricionista(c).ID, time.Now())
	if err != nil {
		respondError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, out)
}

// GET /api/alertas?lido=true|false
func (h *AnalyticsController) Alertas(c *gin.Context) {
	var lido *bool
	if v := c.Query("lido"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Parâmetro lido inválido"})
			return
		}
		lido = &b
	}
	list, err := h.Alerts.List(c.Request.Context(), middlewares.CurrentNutricionista(c).ID, lido)
	if err != nil {
		respondError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, list)
}

// PATCH /api/alertas/:id/lido
func (h *AnalyticsController) MarkAlertaLido(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.Alerts.MarkRead(c.Request.Context(), middlewares.CurrentNutricionista(c).ID, id); err != nil {
		respondError(c, err, "Alerta não encontrado")
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "lido": true})
}
