package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nuttroadm/backendnuttro/middlewares"
	"github.com/nuttroadm/backendnuttro/services"
	"github.com/nuttroadm/backendnuttro/utils"
)

type AuthController struct {
	Auth           *services.AuthService
	Nutricionistas *services.NutricionistaService
}

// constructor
func NewAuthController(auth *services.AuthService, ns *services.NutricionistaService) *AuthController {
	return &AuthController{Auth: auth, Nutricionistas: ns}
}

// POST /api/auth/register
func (ac *AuthController) Register(c *gin.Context) {
	var input services.RegisterNutricionistaInput
	if !bindJSON(c, &input) {
		return
	}
	resp, err := ac.Auth.RegisterNutricionista(c.Request.Context(), input)
	if err != nil {
		respondError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// POST /api/auth/login accepts JSON or a form (username/password) body.
func (ac *AuthController) Login(c *gin.Context) {
	var input services.LoginInput
	if err := c.ShouldBind(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Dados inválidos"})
		return
	}
	resp, err := ac.Auth.LoginNutricionista(c.Request.Context(), input)
	if err != nil {
		respondError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, resp)
}

type googleReq struct {
	Credential string `json:"credential" binding:"required"`
}

// POST /api/auth/google
func (ac *AuthController) Google(c *gin.Context) {
	var req googleReq
	if !bindJSON(c, &req) {
		return
	}
	resp, err := ac.Auth.GoogleLogin(c.Request.Context(), req.Credential)
	if err != nil {
		respondError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GET /api/auth/me
func (ac *AuthController) Me(c *gin.Context) {
	v, err := utils.ToNutricionistaView(middlewares.CurrentNutricionista(c))
	if err != nil {
		respondError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, v)
}

// PUT /api/auth/me
func (ac *AuthController) UpdateMe(c *gin.Context) {
	var input services.ProfileInput
	if !bindJSON(c, &input) {
		return
	}
	view, err := ac.Nutricionistas.UpdateProfile(c.Request.Context(), middlewares.CurrentNutricionista(c), input)
	if err != nil {
		respondError(c, err, "Nutricionista não encontrado")
		return
	}
	c.JSON(http.StatusOK, view)
}

// POST /api/auth/paciente/register
func (ac *AuthController) RegisterPaciente(c *gin.Context) {
	var input services.RegisterPacienteInput
	if !bindJSON(c, &input) {
		return
	}
	resp, err := ac.Auth.RegisterPaciente(c.Request.Context(), input)
	if err != nil {
		respondError(c, err, "Nutricionista não encontrado")
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// POST /api/auth/paciente/login
func (ac *AuthController) LoginPaciente(c *gin.Context) {
	var input services.PacienteLoginInput
	if !bindJSON(c, &input) {
		return
	}
	resp, err := ac.Auth.LoginPaciente(c.Request.Context(), input)
	if err != nil {
		respondError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, resp)
}
