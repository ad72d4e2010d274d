package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nuttroadm/backendnuttro/middlewares"
	"github.com/nuttroadm/backendnuttro/services"
)

// RecommendationController exposes the assistant endpoints of the web console under /api/ia.
type RecommendationController struct {
	IA *services.IAService
}

func NewRecommendationController(ia *services.IAService) *RecommendationController {
	return &RecommendationController{IA: ia}
}

// POST /api/ia/analisar-refeicao
func (rc *RecommendationController) AnalisarRefeicao(c *gin.Context) {
	var input services.AnalisarRefeicaoInput
	if !bindJSON(c, &input) {
		return
	}
	analise, err := rc.IA.AnalisarRefeicao(c.Request.Context(), middlewares.CurrentNutricionista(c).ID, input)
	if err != nil {
		respondError(c, err, msgPacienteNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"analise": analise})
}

// POST /api/ia/sugestoes-plano
func (rc *RecommendationController) SugestoesPlano(c *gin.Context) {
	var input services.SugestoesPlanoInput
	if !bindJSON(c, &input) {
		return
	}
	plano, err := rc.IA.SugestoesPlano(c.Request.Context(), middlewares.CurrentNutricionista(c).ID, input)
	if err != nil {
		respondError(c, err, msgPacienteNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"plano": plano})
}

// POST /api/ia/coach-comportamental
func (rc *RecommendationController) Coach(c *gin.Context) {
	var input services.CoachInput
	if !bindJSON(c, &input) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"orientacao": rc.IA.Coach(input)})
}

// POST /api/ia/chat
func (rc *RecommendationController) Chat(c *gin.Context) {
	var input services.ChatIAInput
	if !bindJSON(c, &input) {
		return
	}
	resp, err := rc.IA.Chat(c.Request.Context(), middlewares.CurrentNutricionista(c).ID, input)
	if err != nil {
		respondError(c, err, msgPacienteNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"response": resp})
}
