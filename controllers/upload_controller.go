package controllers

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/marketplace/config"
	"github.com/kendall-kelly/marketplace/utils"
)

// GetUploadedImage handles GET /api/v1/uploads/:filename - serves images
// stored by the local image service
func GetUploadedImage(c *gin.Context) {
	filename := c.Param("filename")

	if !utils.IsSafeFilename(filename) {
		errorJSON(c, http.StatusBadRequest, "INVALID_FILENAME", "Invalid filename")
		return
	}

	if strings.ToLower(filepath.Ext(filename)) != utils.AllowedImageFormat {
		errorJSON(c, http.StatusBadRequest, "INVALID_FILE_TYPE", "Only PNG files are supported")
		return
	}

	filePath := filepath.Join(config.GetConfig().UploadDir, filename)
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		errorJSON(c, http.StatusNotFound, "FILE_NOT_FOUND", "Image not found")
		return
	}

	c.Header("Content-Type", "image/png")
	c.Header("Cache-Control", "public, max-age=86400")
	c.File(filePath)
}
