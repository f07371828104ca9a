package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/batch-slot-api/internal/dto"
	"github.com/noah-isme/batch-slot-api/pkg/response"
)

type batchQueryService interface {
	ListBatches(ctx context.Context, tz string) ([]dto.BatchView, error)
	GetBatch(ctx context.Context, id, tz string) (*dto.BatchView, error)
	DeleteBatch(ctx context.Context, id string) error
}

// BatchHandler serves committed batches.
type BatchHandler struct {
	service batchQueryService
}

// NewBatchHandler constructs a batch handler.
func NewBatchHandler(service batchQueryService) *BatchHandler {
	return &BatchHandler{service: service}
}

// List godoc
// @Summary List batches
// @Tags Batches
// @Produce json
// @Param timezone query string false "Display timezone (IANA)"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /batches [get]
func (h *BatchHandler) List(c *gin.Context) {
	batches, err := h.service.ListBatches(c.Request.Context(), requestTimezone(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	page, pagination := paginate(batches, parseQueryInt(c, "page", 1), parseQueryInt(c, "page_size", 20))
	response.JSON(c, http.StatusOK, page, pagination)
}

// Get godoc
// @Summary Get batch
// @Tags Batches
// @Produce json
// @Param id path string true "Batch ID"
// @Param timezone query string false "Display timezone (IANA)"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /batches/{id} [get]
func (h *BatchHandler) Get(c *gin.Context) {
	batch, err := h.service.GetBatch(c.Request.Context(), c.Param("id"), requestTimezone(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, batch, nil)
}

// Delete godoc
// @Summary Delete batch
// @Tags Batches
// @Param id path string true "Batch ID"
// @Success 204 {string} string "No Content"
// @Router /batches/{id} [delete]
func (h *BatchHandler) Delete(c *gin.Context) {
	if err := h.service.DeleteBatch(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
