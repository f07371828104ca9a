package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/batch-slot-api/internal/dto"
	"github.com/noah-isme/batch-slot-api/internal/models"
	appErrors "github.com/noah-isme/batch-slot-api/pkg/errors"
	"github.com/noah-isme/batch-slot-api/pkg/response"
)

type batchDraftService interface {
	StartDraft(ctx context.Context, req dto.StartDraftRequest, actorID string) (*dto.DraftView, error)
	GetDraft(ctx context.Context, id, tz string) (*dto.DraftView, error)
	DiscardDraft(ctx context.Context, id string) error
	SelectDay(ctx context.Context, id string, req dto.SelectDayRequest) (*dto.DraftView, error)
	DeselectDay(ctx context.Context, id, rawDay string) (*dto.DraftView, error)
	SelectSlot(ctx context.Context, id, rawDay string, req dto.SelectSlotRequest) (*dto.DraftView, error)
	SetTeacher(ctx context.Context, id string, req dto.SetTeacherRequest) (*dto.DraftView, error)
	AssignParticipants(ctx context.Context, id string, req dto.AssignParticipantsRequest) (*dto.AssignParticipantsResponse, error)
	RemoveParticipant(ctx context.Context, id, participantID string) (*dto.DraftView, error)
	ParticipantAvailability(ctx context.Context, id string, req dto.ParticipantAvailabilityRequest) ([]models.ParticipantAvailability, error)
	CommitDraft(ctx context.Context, id string) (*dto.BatchView, error)
}

// BatchDraftHandler drives batch edit sessions.
type BatchDraftHandler struct {
	service batchDraftService
}

// NewBatchDraftHandler constructs a draft handler.
func NewBatchDraftHandler(service batchDraftService) *BatchDraftHandler {
	return &BatchDraftHandler{service: service}
}

// Start godoc
// @Summary Start a batch draft
// @Description Opens an edit session for a new batch, or for an existing batch when batchId is set.
// @Tags Batch Drafts
// @Accept json
// @Produce json
// @Param payload body dto.StartDraftRequest true "Draft payload"
// @Success 201 {object} response.Envelope
// @Router /batch-drafts [post]
func (h *BatchDraftHandler) Start(c *gin.Context) {
	var req dto.StartDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid draft payload"))
		return
	}
	draft, err := h.service.StartDraft(c.Request.Context(), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, draft)
}

// Get godoc
// @Summary Get a batch draft
// @Tags Batch Drafts
// @Produce json
// @Param id path string true "Draft ID"
// @Param timezone query string false "Display timezone (IANA)"
// @Success 200 {object} response.Envelope
// @Router /batch-drafts/{id} [get]
func (h *BatchDraftHandler) Get(c *gin.Context) {
	draft, err := h.service.GetDraft(c.Request.Context(), c.Param("id"), requestTimezone(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, draft, nil)
}

// Discard godoc
// @Summary Discard a batch draft
// @Tags Batch Drafts
// @Param id path string true "Draft ID"
// @Success 204 {string} string "No Content"
// @Router /batch-drafts/{id} [delete]
func (h *BatchDraftHandler) Discard(c *gin.Context) {
	if err := h.service.DiscardDraft(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// SelectDay godoc
// @Summary Add a weekday to the draft
// @Tags Batch Drafts
// @Accept json
// @Produce json
// @Param id path string true "Draft ID"
// @Param payload body dto.SelectDayRequest true "Weekday"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /batch-drafts/{id}/days [post]
func (h *BatchDraftHandler) SelectDay(c *gin.Context) {
	var req dto.SelectDayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid day payload"))
		return
	}
	draft, err := h.service.SelectDay(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, draft, nil)
}

// DeselectDay godoc
// @Summary Remove a weekday from the draft
// @Tags Batch Drafts
// @Produce json
// @Param id path string true "Draft ID"
// @Param day path string true "Weekday"
// @Success 200 {object} response.Envelope
// @Router /batch-drafts/{id}/days/{day} [delete]
func (h *BatchDraftHandler) DeselectDay(c *gin.Context) {
	draft, err := h.service.DeselectDay(c.Request.Context(), c.Param("id"), c.Param("day"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, draft, nil)
}

// SelectSlot godoc
// @Summary Choose the time for a selected weekday
// @Description Day and times are read in the payload timezone, else the caller's detected timezone.
// @Tags Batch Drafts
// @Accept json
// @Produce json
// @Param id path string true "Draft ID"
// @Param day path string true "Weekday"
// @Param payload body dto.SelectSlotRequest true "Time range"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /batch-drafts/{id}/days/{day}/slot [put]
func (h *BatchDraftHandler) SelectSlot(c *gin.Context) {
	var req dto.SelectSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid slot payload"))
		return
	}
	req.Timezone = timezoneOr(req.Timezone, c)
	draft, err := h.service.SelectSlot(c.Request.Context(), c.Param("id"), c.Param("day"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, draft, nil)
}

// SetTeacher godoc
// @Summary Assign or clear the draft's teacher
// @Tags Batch Drafts
// @Accept json
// @Produce json
// @Param id path string true "Draft ID"
// @Param payload body dto.SetTeacherRequest true "Teacher"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /batch-drafts/{id}/teacher [put]
func (h *BatchDraftHandler) SetTeacher(c *gin.Context) {
	var req dto.SetTeacherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid teacher payload"))
		return
	}
	draft, err := h.service.SetTeacher(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, draft, nil)
}

// AssignParticipants godoc
// @Summary Enrol participants
// @Tags Batch Drafts
// @Accept json
// @Produce json
// @Param id path string true "Draft ID"
// @Param payload body dto.AssignParticipantsRequest true "Participants"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /batch-drafts/{id}/participants [post]
func (h *BatchDraftHandler) AssignParticipants(c *gin.Context) {
	var req dto.AssignParticipantsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid participants payload"))
		return
	}
	result, err := h.service.AssignParticipants(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// RemoveParticipant godoc
// @Summary Remove a participant
// @Tags Batch Drafts
// @Produce json
// @Param id path string true "Draft ID"
// @Param participantId path string true "Participant ID"
// @Success 200 {object} response.Envelope
// @Router /batch-drafts/{id}/participants/{participantId} [delete]
func (h *BatchDraftHandler) RemoveParticipant(c *gin.Context) {
	draft, err := h.service.RemoveParticipant(c.Request.Context(), c.Param("id"), c.Param("participantId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, draft, nil)
}

// ParticipantAvailability godoc
// @Summary Flag candidates who would be double-booked
// @Tags Batch Drafts
// @Accept json
// @Produce json
// @Param id path string true "Draft ID"
// @Param payload body dto.ParticipantAvailabilityRequest true "Candidates"
// @Success 200 {object} response.Envelope
// @Router /batch-drafts/{id}/participants/availability [post]
func (h *BatchDraftHandler) ParticipantAvailability(c *gin.Context) {
	var req dto.ParticipantAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid availability payload"))
		return
	}
	result, err := h.service.ParticipantAvailability(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Commit godoc
// @Summary Commit the draft as a batch
// @Tags Batch Drafts
// @Produce json
// @Param id path string true "Draft ID"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /batch-drafts/{id}/commit [post]
func (h *BatchDraftHandler) Commit(c *gin.Context) {
	batch, err := h.service.CommitDraft(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, batch)
}
