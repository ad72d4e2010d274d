package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nuttroadm/backendnuttro/middlewares"
	"github.com/nuttroadm/backendnuttro/services"
	"github.com/nuttroadm/backendnuttro/utils"
)

// MobileController serves the patient app under /api/mobile.
type MobileController struct {
	Mobile *services.MobileService
}

func NewMobileController(ms *services.MobileService) *MobileController {
	return &MobileController{Mobile: ms}
}

type chatReq struct {
	Message string `json:"message" binding:"required"`
}

func (mc *MobileController) Me(c *gin.Context) {
	v, err := utils.ToPacienteView(middlewares.CurrentPaciente(c))
	if err != nil {
		respondError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, v)
}

func (mc *MobileController) Dashboard(c *gin.Context) {
	out, err := mc.Mobile.Dashboard(c.Request.Context(), middlewares.CurrentPaciente(c))
	if err != nil {
		respondError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, out)
}

func (mc *MobileController) Checkin(c *gin.Context) {
	var input services.CheckinInput
	if !bindJSON(c, &input) {
		return
	}
	out, err := mc.Mobile.Checkin(c.Request.Context(), middlewares.CurrentPaciente(c), input)
	if err != nil {
		respondError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, out)
}

func (mc *MobileController) Checkins(c *gin.Context) {
	list, err := mc.Mobile.Checkins(c.Request.Context(), middlewares.CurrentPaciente(c).ID, queryInt(c, "limit", 30))
	if err != nil {
		respondError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, list)
}

func (mc *MobileController) Refeicao(c *gin.Context) {
	var input services.RefeicaoInput
	if !bindJSON(c, &input) {
		return
	}
	out, err := mc.Mobile.Refeicao(c.Request.Context(), middlewares.CurrentPaciente(c), input)
	if err != nil {
		respondError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, out)
}

func (mc *MobileController) Refeicoes(c *gin.Context) {
	list, err := mc.Mobile.Refeicoes(c.Request.Context(), middlewares.CurrentPaciente(c).ID, queryInt(c, "limit", 20))
	if err != nil {
		respondError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, list)
}

func (mc *MobileController) Chat(c *gin.Context) {
	var req chatReq
	if !bindJSON(c, &req) {
		return
	}
	resp, err := mc.Mobile.Chat(c.Request.Context(), middlewares.CurrentPaciente(c), req.Message)
	if err != nil {
		respondError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"response": resp})
}

func (mc *MobileController) ChatHistory(c *gin.Context) {
	list, err := mc.Mobile.ChatHistory(c.Request.Context(), middlewares.CurrentPaciente(c).ID, queryInt(c, "limit", 50))
	if err != nil {
		respondError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, list)
}

func (mc *MobileController) Metas(c *gin.Context) {
	list, err := mc.Mobile.Metas(c.Request.Context(), middlewares.CurrentPaciente(c).ID)
	if err != nil {
		respondError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, list)
}

func (mc *MobileController) Plano(c *gin.Context) {
	p, err := mc.Mobile.Plano(c.Request.Context(), middlewares.CurrentPaciente(c).ID)
	if err != nil {
		respondError(c, err, "Nenhum plano alimentar ativo")
		return
	}
	c.JSON(http.StatusOK, p)
}
