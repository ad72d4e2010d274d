package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nuttroadm/backendnuttro/services"
)

type WebhookController struct {
	Webhooks *services.WebhookService
}

func NewWebhookController(ws *services.WebhookService) *WebhookController {
	return &WebhookController{Webhooks: ws}
}

// POST /api/webhooks/evolution always answers 200 so the gateway does not retry.
func (wc *WebhookController) Evolution(c *gin.Context) {
	var ev services.EvolutionEvent
	if err := c.ShouldBindJSON(&ev); err != nil {
		c.JSON(http.StatusOK, gin.H{"status": "error", "message": "invalid payload"})
		return
	}
	if err := wc.Webhooks.Handle(c.Request.Context(), ev); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusOK, gin.H{"status": "error", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
