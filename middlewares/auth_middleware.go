package middlewares

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nuttroadm/backendnuttro/models"
	"github.com/nuttroadm/backendnuttro/utils"
)

const (
	CtxNutricionista = "nutricionista"
	CtxPaciente      = "paciente"
)

const errCredentials = "Could not validate credentials"

// PrincipalLoader is implemented by services.AuthService.
type PrincipalLoader interface {
	Nutricionista(ctx context.Context, id uuid.UUID) (*models.Nutricionista, error)
	Paciente(ctx context.Context, id uuid.UUID) (*models.Paciente, error)
}

// bearerToken reads the Authorization header, falling back to ?token= for websocket upgrades.
func bearerToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
			return strings.TrimSpace(h[7:])
		}
		return ""
	}
	return c.Query("token")
}

func authenticate(c *gin.Context, tokens *utils.TokenIssuer, principal string) (uuid.UUID, bool) {
	raw := bearerToken(c)
	if raw == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errCredentials})
		return uuid.Nil, false
	}
	id, typ, err := tokens.Parse(raw)
	if err != nil || typ != principal {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errCredentials})
		return uuid.Nil, false
	}
	return id, true
}

func NutricionistaAuth(tokens *utils.TokenIssuer, loader PrincipalLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := authenticate(c, tokens, utils.PrincipalNutricionista)
		if !ok {
			return
		}
		n, err := loader.Nutricionista(c.Request.Context(), id)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errCredentials})
			return
		}
		c.Set(CtxNutricionista, n)
		c.Next()
	}
}

func PacienteAuth(tokens *utils.TokenIssuer, loader PrincipalLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := authenticate(c, tokens, utils.PrincipalPaciente)
		if !ok {
			return
		}
		p, err := loader.Paciente(c.Request.Context(), id)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errCredentials})
			return
		}
		c.Set(CtxPaciente, p)
		c.Next()
	}
}

// CurrentNutricionista must only be called behind NutricionistaAuth.
func CurrentNutricionista(c *gin.Context) *models.Nutricionista {
	return c.MustGet(CtxNutricionista).(*models.Nutricionista)
}

// CurrentPaciente must only be called behind PacienteAuth.
func CurrentPaciente(c *gin.Context) *models.Paciente {
	return c.MustGet(CtxPaciente).(*models.Paciente)
}
