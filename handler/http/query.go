package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"certrag/src/infrastructure/log"
)

// QueryAnswerer runs the query pipeline end to end.
type QueryAnswerer interface {
	Answer(ctx context.Context, query string) (string, error)
}

type QueryHandler struct {
	service QueryAnswerer
}

func NewQueryHandler(service QueryAnswerer) *QueryHandler {
	return &QueryHandler{service: service}
}

type queryRequest struct {
	Query string `json:"query"`
}

// Query answers a question against the indexed materials. Malformed
// bodies and missing query fields are user errors; any pipeline failure
// surfaces as a bad gateway since the fault is upstream.
func (h *QueryHandler) Query(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}

	var req queryRequest
	if err := json.Unmarshal(body, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}

	if req.Query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing query"})
		return
	}

	answer, err := h.service.Answer(c.Request.Context(), req.Query)
	if err != nil {
		log.Error(err, "query pipeline failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to answer query"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"answer": answer})
}
