package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nuttroadm/backendnuttro/middlewares"
	"github.com/nuttroadm/backendnuttro/services"
	"gorm.io/gorm"
)

type toggleReq struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// NotificationController works without SNS: the preference is stored either way.
type NotificationController struct {
	DB *gorm.DB
}

func NewNotificationController(db *gorm.DB) *NotificationController {
	return &NotificationController{DB: db}
}

// PATCH /api/mobile/notificacoes
func (nc *NotificationController) Toggle(c *gin.Context) {
	var req toggleReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	p := middlewares.CurrentPaciente(c)
	if err := services.SetDevicesEnabled(c.Request.Context(), nc.DB, p.ID, *req.Enabled); err != nil {
		respondError(c, err, "")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "notificações atualizadas",
		"enabled": *req.Enabled,
	})
}
