package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/medisupply/video-processor/pkg/pipeline"
)

// Processor runs one delivery through the video pipeline.
type Processor interface {
	Process(ctx context.Context, raw []byte) pipeline.Outcome
}

type VideoHandler struct {
	processor Processor
	logger    *zap.Logger
}

func NewVideoHandler(processor Processor, logger *zap.Logger) *VideoHandler {
	return &VideoHandler{processor: processor, logger: logger}
}

// Process receives a Pub/Sub push delivery. Acknowledgment policy: a
// 2xx acknowledges the message, anything else triggers redelivery.
// Permanent failures are acknowledged too (redelivering malformed or
// poisoned input cannot succeed); only transient faults return 503.
func (h *VideoHandler) Process(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.logger.Warn("failed to read push body", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "failed to read request body"})
		return
	}

	outcome := h.processor.Process(c.Request.Context(), raw)

	switch {
	case outcome.Reason == pipeline.ReasonDuplicate:
		// A duplicate delivery carries no fresh result; it is
		// acknowledged without the processed fields.
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "duplicate delivery",
			"data": gin.H{
				"visit_client_id": outcome.VisitClientID,
			},
		})
	case outcome.Success():
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "video processed",
			"data": gin.H{
				"visit_client_id":    outcome.VisitClientID,
				"processed_filename": outcome.ProcessedFilename,
				"processed_url":      outcome.ProcessedURL,
				"status":             "Procesado",
			},
		})
	case outcome.Redeliver:
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"message": string(outcome.Reason),
		})
	default:
		// Acknowledged permanent failure.
		c.JSON(http.StatusOK, gin.H{
			"success": false,
			"message": string(outcome.Reason),
		})
	}
}
