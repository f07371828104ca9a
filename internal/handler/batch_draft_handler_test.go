package handler

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/batch-slot-api/internal/dto"
	appErrors "github.com/noah-isme/batch-slot-api/pkg/errors"
)

func TestBatchDraftHandlerStartUsesActor(t *testing.T) {
	mock := &schedulingServiceMock{}
	router := buildSchedulingRouter(mock)

	resp := performRequest(router, newJSONRequest(http.MethodPost, "/batch-drafts", `{"courseId":"math"}`, asPlanner()))
	require.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, "coord-1", mock.lastActor)

	var view dto.DraftView
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, resp).Data, &view))
	assert.Equal(t, "draft-1", view.ID)

	resp = performRequest(router, newJSONRequest(http.MethodPost, "/batch-drafts", `{"courseId":`, asPlanner()))
	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeEnvelope(t, resp).Error.Code)
}

func TestBatchDraftHandlerSelectSlotReadsPathDayAndTimezone(t *testing.T) {
	mock := &schedulingServiceMock{}
	router := buildSchedulingRouter(mock)
	headers := asPlanner()
	headers[timezoneHeader] = "America/Los_Angeles"

	resp := performRequest(router, newJSONRequest(http.MethodPut, "/batch-drafts/d-9/days/tuesday/slot", `{"start":"19:30","end":"20:30"}`, headers))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "d-9", mock.lastID)
	assert.Equal(t, "tuesday", mock.lastDay)
	assert.Equal(t, "19:30", mock.lastSlotReq.Start)
	assert.Equal(t, "America/Los_Angeles", mock.lastSlotReq.Timezone)

	resp = performRequest(router, newJSONRequest(http.MethodPut, "/batch-drafts/d-9/days/tuesday/slot", `{"start":"09:00","end":"10:00","timezone":"Asia/Kolkata"}`, headers))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "Asia/Kolkata", mock.lastSlotReq.Timezone)
}

func TestBatchDraftHandlerDayRoutes(t *testing.T) {
	mock := &schedulingServiceMock{}
	router := buildSchedulingRouter(mock)

	resp := performRequest(router, newJSONRequest(http.MethodPost, "/batch-drafts/d-1/days", `{"day":"FRIDAY"}`, asPlanner()))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "FRIDAY", mock.lastDay)

	resp = performRequest(router, newJSONRequest(http.MethodDelete, "/batch-drafts/d-1/days/friday", "", asPlanner()))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "friday", mock.lastDay)

	resp = performRequest(router, newJSONRequest(http.MethodDelete, "/batch-drafts/d-1", "", asPlanner()))
	require.Equal(t, http.StatusNoContent, resp.Code)
}

func TestBatchDraftHandlerParticipants(t *testing.T) {
	mock := &schedulingServiceMock{}
	router := buildSchedulingRouter(mock)

	body := `{"participantIds":["p1","p2"],"onlyAvailable":true}`
	resp := performRequest(router, newJSONRequest(http.MethodPost, "/batch-drafts/d-1/participants", body, asPlanner()))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.True(t, mock.lastAssign.OnlyAvailable)
	assert.Nil(t, mock.lastAssign.AllowConflict)

	var result dto.AssignParticipantsResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, resp).Data, &result))
	assert.Equal(t, []string{"p1", "p2"}, result.Added)

	resp = performRequest(router, newJSONRequest(http.MethodDelete, "/batch-drafts/d-1/participants/p2", "", asPlanner()))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "p2", mock.lastActor)

	resp = performRequest(router, newJSONRequest(http.MethodPost, "/batch-drafts/d-1/participants/availability", `{"participantIds":["p3"]}`, asPlanner()))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "d-1", mock.lastID)
}

func TestBatchDraftHandlerCommitErrors(t *testing.T) {
	mock := &schedulingServiceMock{}
	router := buildSchedulingRouter(mock)

	resp := performRequest(router, newJSONRequest(http.MethodPost, "/batch-drafts/d-1/commit", "", asPlanner()))
	require.Equal(t, http.StatusCreated, resp.Code)

	mock.err = appErrors.Clone(appErrors.ErrIncompleteSchedule, "FRIDAY has no slot")
	resp = performRequest(router, newJSONRequest(http.MethodPost, "/batch-drafts/d-1/commit", "", asPlanner()))
	require.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	env := decodeEnvelope(t, resp)
	assert.Equal(t, "INCOMPLETE_SCHEDULE", env.Error.Code)
	assert.Equal(t, "FRIDAY has no slot", env.Error.Message)

	mock.err = appErrors.Clone(appErrors.ErrTeacherConflict, "Tara already teaches Mathematics on MONDAY 09:00-10:00 IST")
	resp = performRequest(router, newJSONRequest(http.MethodPost, "/batch-drafts/d-1/commit", "", asPlanner()))
	require.Equal(t, http.StatusConflict, resp.Code)
	assert.Equal(t, "TEACHER_CONFLICT", decodeEnvelope(t, resp).Error.Code)
}
