package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"certrag/src/infrastructure/ingestqueue"
	"certrag/src/infrastructure/log"
	"certrag/src/storage/minioctrl"
	"certrag/src/storage/postgres/materialctrl"
)

var contentTypes = map[string]string{
	".pdf":  "application/pdf",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// MaterialHandler accepts study-material uploads, stores them in object
// storage and enqueues them for ingestion.
type MaterialHandler struct {
	minioService *minioctrl.MinioService
	bucketName   string
	materials    *materialctrl.MaterialService
	publisher    *ingestqueue.Publisher
}

func NewMaterialHandler(minioService *minioctrl.MinioService, bucketName string, materials *materialctrl.MaterialService, publisher *ingestqueue.Publisher) (*MaterialHandler, error) {
	if err := minioService.EnsureBucketExists(context.Background(), bucketName); err != nil {
		return nil, fmt.Errorf("failed to ensure bucket exists: %w", err)
	}

	return &MaterialHandler{
		minioService: minioService,
		bucketName:   bucketName,
		materials:    materials,
		publisher:    publisher,
	}, nil
}

func (h *MaterialHandler) Upload(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	contentType, ok := contentTypes[ext]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only PDF and DOCX files are allowed"})
		return
	}

	fileBytes, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read file"})
		return
	}

	objectKey := fmt.Sprintf("%s%s", uuid.New().String(), ext)
	if err := h.minioService.PutObject(c.Request.Context(), h.bucketName, objectKey, fileBytes, contentType); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upload file"})
		return
	}

	material, err := h.materials.Create(c.Request.Context(), header.Filename, h.bucketName, objectKey)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record material"})
		return
	}

	if err := h.publisher.PublishUpload(h.bucketName, objectKey); err != nil {
		// The object is stored and recorded; ingestion can be retriggered
		// through a bucket notification replay.
		log.Error(err, "failed to enqueue ingestion", "objectKey", objectKey)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to enqueue ingestion"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":        material.ID,
		"filename":  material.Filename,
		"objectKey": material.ObjectKey,
		"status":    material.Status,
	})
}

func (h *MaterialHandler) List(c *gin.Context) {
	limit := 10
	offset := 0

	if limitParam := c.Query("limit"); limitParam != "" {
		if _, err := fmt.Sscanf(limitParam, "%d", &limit); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit parameter"})
			return
		}
	}

	if offsetParam := c.Query("offset"); offsetParam != "" {
		if _, err := fmt.Sscanf(offsetParam, "%d", &offset); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid offset parameter"})
			return
		}
	}

	materials, err := h.materials.List(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list materials"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"materials": materials,
		"pagination": gin.H{
			"limit":  limit,
			"offset": offset,
		},
	})
}
