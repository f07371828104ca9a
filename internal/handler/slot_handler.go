package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/batch-slot-api/internal/dto"
	"github.com/noah-isme/batch-slot-api/internal/models"
	appErrors "github.com/noah-isme/batch-slot-api/pkg/errors"
	"github.com/noah-isme/batch-slot-api/pkg/response"
)

type slotService interface {
	Catalog(ctx context.Context, day, tz string) (*dto.CatalogResponse, error)
	ProjectSlot(ctx context.Context, req dto.ProjectSlotRequest) (*models.Projection, error)
	CheckAvailability(ctx context.Context, req dto.AvailabilityCheckRequest) (*dto.AvailabilityCheckResponse, error)
}

// SlotHandler exposes the slot catalog, timezone projection and availability checks.
type SlotHandler struct {
	service slotService
}

// NewSlotHandler constructs a slot handler.
func NewSlotHandler(service slotService) *SlotHandler {
	return &SlotHandler{service: service}
}

// Catalog godoc
// @Summary List offered weekly slots
// @Tags Slots
// @Produce json
// @Param day query string false "Weekday filter"
// @Param timezone query string false "Display timezone (IANA)"
// @Success 200 {object} response.Envelope
// @Router /slots/catalog [get]
func (h *SlotHandler) Catalog(c *gin.Context) {
	tz := requestTimezone(c)
	catalog, err := h.service.Catalog(c.Request.Context(), c.Query("day"), tz)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, catalog, nil, fallbackMeta(tz, catalog.Timezone))
}

// Project godoc
// @Summary Project a canonical slot into a timezone
// @Description An unknown timezone returns the reference-time projection flagged as fallback.
// @Tags Slots
// @Accept json
// @Produce json
// @Param payload body dto.ProjectSlotRequest true "Slot and timezone"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /slots/project [post]
func (h *SlotHandler) Project(c *gin.Context) {
	var req dto.ProjectSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid projection payload"))
		return
	}
	req.Timezone = timezoneOr(req.Timezone, c)
	projection, err := h.service.ProjectSlot(c.Request.Context(), req)
	if err != nil {
		var appErr *appErrors.Error
		if projection != nil && errors.As(err, &appErr) && appErr.Code == appErrors.ErrUnknownTimezone.Code {
			meta := fallbackMeta(req.Timezone, projection.Timezone)
			if meta == nil {
				meta = map[string]interface{}{}
			}
			meta["warning"] = appErr.Message
			response.JSON(c, http.StatusOK, projection, nil, meta)
			return
		}
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, projection, nil)
}

// CheckAvailability godoc
// @Summary Check whether a participant is free for the given slots
// @Tags Slots
// @Accept json
// @Produce json
// @Param payload body dto.AvailabilityCheckRequest true "Participant and slots"
// @Success 200 {object} response.Envelope
// @Router /availability/check [post]
func (h *SlotHandler) CheckAvailability(c *gin.Context) {
	var req dto.AvailabilityCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid availability payload"))
		return
	}
	req.Timezone = timezoneOr(req.Timezone, c)
	result, err := h.service.CheckAvailability(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
