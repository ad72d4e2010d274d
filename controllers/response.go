package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nuttroadm/backendnuttro/services"
)

// respondError maps service errors onto status codes. notFoundMsg names the missing resource.
func respondError(c *gin.Context, err error, notFoundMsg string) {
	var (
		input    *services.InputError
		conflict *services.ConflictError
	)
	switch {
	case errors.As(err, &conflict):
		c.JSON(http.StatusBadRequest, gin.H{"error": conflict.Message})
	case errors.As(err, &input):
		c.JSON(http.StatusBadRequest, gin.H{"error": input.Message})
	case errors.Is(err, services.ErrInvalidID),
		errors.Is(err, services.ErrInvalidCPF),
		errors.Is(err, services.ErrInvalidInput),
		errors.Is(err, services.ErrNoPhone):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": notFoundMsg})
	case errors.Is(err, services.ErrNotConfigured):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Integração não configurada"})
	case errors.Is(err, services.ErrGateway):
		_ = c.Error(err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := services.ParseID(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return uuid.Nil, false
	}
	return id, true
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Dados inválidos: " + err.Error()})
		return false
	}
	return true
}

func queryInt(c *gin.Context, name string, def int) int {
	if v, err := strconv.Atoi(c.Query(name)); err == nil && v > 0 {
		return v
	}
	return def
}
