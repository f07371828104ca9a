package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/batch-slot-api/internal/service"
	appErrors "github.com/noah-isme/batch-slot-api/pkg/errors"
)

func TestParticipantHandlerTimetableStreamsDocument(t *testing.T) {
	mock := &schedulingServiceMock{document: &service.TimetableDocument{
		Filename:    "timetable-p1.csv",
		ContentType: "text/csv",
		Body:        []byte("Day,Time\nMONDAY,09:00-10:00\n"),
	}}
	router := buildSchedulingRouter(mock)

	resp := performRequest(router, newJSONRequest(http.MethodGet, "/participants/p1/timetable?format=csv&timezone=UTC", "", asPlanner()))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, `attachment; filename="timetable-p1.csv"`, resp.Header().Get("Content-Disposition"))
	assert.Equal(t, "text/csv", resp.Header().Get("Content-Type"))
	assert.Contains(t, resp.Body.String(), "MONDAY,09:00-10:00")
	assert.Equal(t, "csv", mock.lastFormat)
	assert.Equal(t, "UTC", mock.lastTZ)

	mock.document = nil
	mock.err = appErrors.Clone(appErrors.ErrValidation, `unsupported export format "xlsx"`)
	resp = performRequest(router, newJSONRequest(http.MethodGet, "/participants/p1/timetable?format=xlsx", "", asPlanner()))
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestParticipantHandlerOccupancyFallbackMeta(t *testing.T) {
	mock := &schedulingServiceMock{}
	router := buildSchedulingRouter(mock)
	self := map[string]string{"X-Test-Role": "STUDENT", "X-Test-User": "p1", "X-Test-Claim-Timezone": "Europe/Berlin"}

	resp := performRequest(router, newJSONRequest(http.MethodGet, "/participants/p1/occupancy", "", self))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "p1", mock.lastID)
	assert.Equal(t, "Europe/Berlin", mock.lastTZ)
	assert.Nil(t, decodeEnvelope(t, resp).Meta)
}

func TestParticipantHandlerPreferences(t *testing.T) {
	mock := &schedulingServiceMock{}
	router := buildSchedulingRouter(mock)
	headers := asPlanner()
	headers[timezoneHeader] = "America/Los_Angeles"

	body := `{"slots":[{"day":"sunday","start":"19:30","end":"20:30"}]}`
	resp := performRequest(router, newJSONRequest(http.MethodPut, "/participants/p1/preferences/math", body, headers))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "p1", mock.lastID)
	assert.Equal(t, "America/Los_Angeles", mock.lastPrefs.Timezone)
	require.Len(t, mock.lastPrefs.Slots, 1)

	resp = performRequest(router, newJSONRequest(http.MethodGet, "/participants/p1/preferences?timezone=Asia/Tokyo", "", asPlanner()))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "Asia/Tokyo", mock.lastTZ)

	mock.err = appErrors.Clone(appErrors.ErrParticipantConflict, "overlaps the preference for Physics")
	resp = performRequest(router, newJSONRequest(http.MethodPut, "/participants/p1/preferences/math", body, headers))
	require.Equal(t, http.StatusConflict, resp.Code)
	assert.Equal(t, "PARTICIPANT_CONFLICT", decodeEnvelope(t, resp).Error.Code)
}
