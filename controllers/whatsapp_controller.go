package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/nuttroadm/backendnuttro/middlewares"
	"github.com/nuttroadm/backendnuttro/services"
	"github.com/nuttroadm/backendnuttro/utils"
)

const msgConversaNotFound = "Conversa não encontrada"

type WhatsAppController struct {
	WA *services.WhatsAppService
}

func NewWhatsAppController(wa *services.WhatsAppService) *WhatsAppController {
	return &WhatsAppController{WA: wa}
}

type marcacaoReq struct {
	Marcacao *string `json:"marcacao"`
}

type observacoesReq struct {
	Observacoes string `json:"observacoes"`
}

// POST /api/whatsapp/create-instance
func (wc *WhatsAppController) CreateInstance(c *gin.Context) {
	out, err := wc.WA.CreateInstance(c.Request.Context(), middlewares.CurrentNutricionista(c).ID)
	if err != nil {
		respondError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, out)
}

// GET /api/whatsapp/qrcode
func (wc *WhatsAppController) QRCode(c *gin.Context) {
	out, err := wc.WA.QRCode(c.Request.Context(), middlewares.CurrentNutricionista(c).ID)
	if err != nil {
		respondError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, out)
}

// GET /api/whatsapp/status
func (wc *WhatsAppController) Status(c *gin.Context) {
	c.JSON(http.StatusOK, wc.WA.Status(c.Request.Context(), middlewares.CurrentNutricionista(c).ID))
}

// POST /api/whatsapp/disconnect
func (wc *WhatsAppController) Disconnect(c *gin.Context) {
	if err := wc.WA.Disconnect(c.Request.Context(), middlewares.CurrentNutricionista(c).ID); err != nil {
		respondError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "WhatsApp desconectado"})
}

// GET /api/whatsapp/chats
func (wc *WhatsAppController) Chats(c *gin.Context) {
	chats, err := wc.WA.Chats(c.Request.Context(), middlewares.CurrentNutricionista(c).ID)
	if err != nil {
		respondError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, chats)
}

// GET /api/whatsapp/messages/*jid
func (wc *WhatsAppController) Messages(c *gin.Context) {
	jid := strings.TrimPrefix(c.Param("jid"), "/")
	if jid == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "remoteJid obrigatório"})
		return
	}
	msgs, err := wc.WA.Messages(c.Request.Context(), middlewares.CurrentNutricionista(c).ID, jid, queryInt(c, "limit", 50))
	if err != nil {
		respondError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, msgs)
}

// POST /api/whatsapp/send
func (wc *WhatsAppController) Send(c *gin.Context) {
	var input services.SendInput
	if !bindJSON(c, &input) {
		return
	}
	out, err := wc.WA.Send(c.Request.Context(), middlewares.CurrentNutricionista(c).ID, input)
	if err != nil {
		respondError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, out)
}

// GET /api/whatsapp/chats/marcacoes
func (wc *WhatsAppController) Marcacoes(c *gin.Context) {
	out, err := wc.WA.Marcacoes(c.Request.Context(), middlewares.CurrentNutricionista(c).ID)
	if err != nil {
		respondError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, out)
}

// PATCH /api/whatsapp/chats/:jid/marcacao
func (wc *WhatsAppController) SetChatMarcacao(c *gin.Context) {
	var req marcacaoReq
	if !bindJSON(c, &req) {
		return
	}
	phone := utils.JIDToPhone(c.Param("jid"))
	conv, err := wc.WA.SetMarcacaoByPhone(c.Request.Context(), middlewares.CurrentNutricionista(c).ID, phone, req.Marcacao)
	if err != nil {
		respondError(c, err, msgConversaNotFound)
		return
	}
	c.JSON(http.StatusOK, conv)
}

// PUT /api/conversas/:telefone/marcacao
func (wc *WhatsAppController) SetMarcacaoByPhone(c *gin.Context) {
	var req marcacaoReq
	if !bindJSON(c, &req) {
		return
	}
	conv, err := wc.WA.SetMarcacaoByPhone(c.Request.Context(), middlewares.CurrentNutricionista(c).ID, c.Param("telefone"), req.Marcacao)
	if err != nil {
		respondError(c, err, msgConversaNotFound)
		return
	}
	c.JSON(http.StatusOK, conv)
}

// PUT /api/conversas/:telefone/observacoes
func (wc *WhatsAppController) SetObservacoes(c *gin.Context) {
	var req observacoesReq
	if !bindJSON(c, &req) {
		return
	}
	conv, err := wc.WA.SetObservacoesByPhone(c.Request.Context(), middlewares.CurrentNutricionista(c).ID, c.Param("telefone"), req.Observacoes)
	if err != nil {
		respondError(c, err, msgConversaNotFound)
		return
	}
	c.JSON(http.StatusOK, conv)
}

// PATCH /api/conversas/:id/marcacao
func (wc *WhatsAppController) SetConversaMarcacao(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req marcacaoReq
	if !bindJSON(c, &req) {
		return
	}
	conv, err := wc.WA.SetConversaMarcacao(c.Request.Context(), middlewares.CurrentNutricionista(c).ID, id, req.Marcacao)
	if err != nil {
		respondError(c, err, msgConversaNotFound)
		return
	}
	c.JSON(http.StatusOK, conv)
}

// PATCH /api/mensagens/:id/marcacao
func (wc *WhatsAppController) SetMensagemMarcacao(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req marcacaoReq
	if !bindJSON(c, &req) {
		return
	}
	conv, err := wc.WA.SetMensagemMarcacao(c.Request.Context(), middlewares.CurrentNutricionista(c).ID, id, req.Marcacao)
	if err != nil {
		respondError(c, err, "Mensagem não encontrada")
		return
	}
	c.JSON(http.StatusOK, conv)
}

// GET /api/mensagens/:paciente_id
func (wc *WhatsAppController) ListMensagens(c *gin.Context) {
	pid, ok := pathID(c, "paciente_id")
	if !ok {
		return
	}
	list, err := wc.WA.ListMensagens(c.Request.Context(), middlewares.CurrentNutricionista(c).ID, pid, queryInt(c, "limit", 50))
	if err != nil {
		respondError(c, err, msgPacienteNotFound)
		return
	}
	c.JSON(http.StatusOK, list)
}

// POST /api/mensagens
func (wc *WhatsAppController) SendMensagem(c *gin.Context) {
	var input services.MensagemInput
	if !bindJSON(c, &input) {
		return
	}
	out, err := wc.WA.SendMensagem(c.Request.Context(), middlewares.CurrentNutricionista(c).ID, input)
	if err != nil {
		respondError(c, err, msgPacienteNotFound)
		return
	}
	c.JSON(http.StatusOK, out)
}
