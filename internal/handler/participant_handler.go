package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/batch-slot-api/internal/dto"
	"github.com/noah-isme/batch-slot-api/internal/service"
	appErrors "github.com/noah-isme/batch-slot-api/pkg/errors"
	"github.com/noah-isme/batch-slot-api/pkg/response"
)

type occupancyService interface {
	Occupancy(ctx context.Context, participantID, excludeBatchID, tz string) (*dto.OccupancyResponse, error)
}

type timetableExporter interface {
	Export(ctx context.Context, participantID, tz, format string) (*service.TimetableDocument, error)
}

type preferenceService interface {
	List(ctx context.Context, participantID, tz string) ([]dto.PreferenceView, error)
	Replace(ctx context.Context, participantID, courseID string, req dto.PreferenceSlotsRequest) ([]dto.PreferenceView, error)
}

// ParticipantHandler serves a participant's weekly commitments and timing preferences.
type ParticipantHandler struct {
	occupancy   occupancyService
	timetable   timetableExporter
	preferences preferenceService
}

// NewParticipantHandler constructs a participant handler.
func NewParticipantHandler(occupancy occupancyService, timetable timetableExporter, preferences preferenceService) *ParticipantHandler {
	return &ParticipantHandler{occupancy: occupancy, timetable: timetable, preferences: preferences}
}

// Occupancy godoc
// @Summary List a participant's occupied weekly slots
// @Tags Participants
// @Produce json
// @Param id path string true "Participant ID"
// @Param excludeBatchId query string false "Batch to ignore"
// @Param timezone query string false "Display timezone (IANA)"
// @Success 200 {object} response.Envelope
// @Router /participants/{id}/occupancy [get]
func (h *ParticipantHandler) Occupancy(c *gin.Context) {
	tz := requestTimezone(c)
	result, err := h.occupancy.Occupancy(c.Request.Context(), c.Param("id"), c.Query("excludeBatchId"), tz)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil, fallbackMeta(tz, result.Timezone))
}

// Timetable godoc
// @Summary Download a participant's weekly timetable
// @Tags Participants
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Participant ID"
// @Param format query string false "csv or pdf"
// @Param timezone query string false "Display timezone (IANA)"
// @Success 200 {file} file
// @Router /participants/{id}/timetable [get]
func (h *ParticipantHandler) Timetable(c *gin.Context) {
	doc, err := h.timetable.Export(c.Request.Context(), c.Param("id"), requestTimezone(c), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, doc.Filename, doc.ContentType, doc.Body)
}

// Preferences godoc
// @Summary List a participant's course timing preferences
// @Tags Participants
// @Produce json
// @Param id path string true "Participant ID"
// @Param timezone query string false "Display timezone (IANA)"
// @Success 200 {object} response.Envelope
// @Router /participants/{id}/preferences [get]
func (h *ParticipantHandler) Preferences(c *gin.Context) {
	prefs, err := h.preferences.List(c.Request.Context(), c.Param("id"), requestTimezone(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, prefs, nil)
}

// ReplacePreferences godoc
// @Summary Replace timing preferences for one course
// @Description Slots are read in the payload timezone, else the caller's detected timezone.
// @Tags Participants
// @Accept json
// @Produce json
// @Param id path string true "Participant ID"
// @Param courseId path string true "Course ID"
// @Param payload body dto.PreferenceSlotsRequest true "Preferred slots"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /participants/{id}/preferences/{courseId} [put]
func (h *ParticipantHandler) ReplacePreferences(c *gin.Context) {
	var req dto.PreferenceSlotsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid preference payload"))
		return
	}
	req.Timezone = timezoneOr(req.Timezone, c)
	prefs, err := h.preferences.Replace(c.Request.Context(), c.Param("id"), c.Param("courseId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, prefs, nil)
}
