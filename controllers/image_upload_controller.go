package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nuttroadm/backendnuttro/middlewares"
	"github.com/nuttroadm/backendnuttro/services"
)

type UploadImageRequest struct {
	ImageBase64 string `json:"image_base64" binding:"required"`
}

type ImageUploadController struct {
	Uploader services.ImageUploader
}

func NewImageUploadController(u services.ImageUploader) *ImageUploadController {
	return &ImageUploadController{Uploader: u}
}

// POST /api/uploads/imagem stores an image under the caller's prefix and returns its URL.
func (ic *ImageUploadController) Upload(c *gin.Context) {
	if ic.Uploader == nil {
		respondError(c, services.ErrNotConfigured, "")
		return
	}
	var req UploadImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	prefix := "nutricionistas/" + middlewares.CurrentNutricionista(c).ID.String() + "/uploads"
	url, err := ic.Uploader.UploadBase64Image(c.Request.Context(), req.ImageBase64, prefix)
	if err != nil {
		respondError(c, err, "")
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url})
}
