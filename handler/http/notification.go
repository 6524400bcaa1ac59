package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"certrag/src/core/rag"
	"certrag/src/infrastructure/ingestqueue"
)

// IngestRunner processes a batch of upload records sequentially and
// reports how many were ingested.
type IngestRunner interface {
	ProcessBatch(ctx context.Context, records []rag.UploadRecord) int
}

// NotificationHandler receives bucket-notification webhooks and runs
// ingestion inline. Deployments that route notifications through AMQP
// use the worker instead; the contract is the same.
type NotificationHandler struct {
	ingest IngestRunner
}

func NewNotificationHandler(ingest IngestRunner) *NotificationHandler {
	return &NotificationHandler{ingest: ingest}
}

func (h *NotificationHandler) Notify(c *gin.Context) {
	var notification ingestqueue.Notification
	if err := c.ShouldBindJSON(&notification); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}

	processed := h.ingest.ProcessBatch(c.Request.Context(), notification.UploadRecords())

	c.JSON(http.StatusOK, gin.H{
		"status":           "processed",
		"recordsProcessed": processed,
	})
}
