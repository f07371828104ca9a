package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/batch-slot-api/pkg/errors"
	"github.com/noah-isme/batch-slot-api/pkg/middleware/requestid"
)

func serve(handler gin.HandlerFunc) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(requestid.Middleware())
	r.GET("/", handler)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-42")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestErrorEchoesRequestID(t *testing.T) {
	w := serve(func(c *gin.Context) {
		Error(c, appErrors.Clone(appErrors.ErrTeacherConflict, "Tara already teaches Mathematics on MONDAY 09:00-10:00 IST"))
	})
	require.Equal(t, http.StatusConflict, w.Code)

	var env struct {
		Error appErrors.Error   `json:"error"`
		Meta  map[string]string `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, "TEACHER_CONFLICT", env.Error.Code)
	assert.Equal(t, "req-42", env.Meta["requestId"])
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}

func TestErrorHidesUntypedErrors(t *testing.T) {
	w := serve(func(c *gin.Context) { Error(c, errors.New("pq: connection reset")) })
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_ERROR")
	assert.NotContains(t, w.Body.String(), "connection reset")
}

func TestJSONDropsEmptyMeta(t *testing.T) {
	w := serve(func(c *gin.Context) { JSON(c, http.StatusOK, gin.H{"id": "b1"}, nil, map[string]interface{}{}) })
	assert.JSONEq(t, `{"data":{"id":"b1"}}`, w.Body.String())
}

func TestAttachment(t *testing.T) {
	w := serve(func(c *gin.Context) { Attachment(c, "timetable-p1.csv", "text/csv", []byte("Day\n")) })
	assert.Equal(t, `attachment; filename="timetable-p1.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Equal(t, "Day\n", w.Body.String())
}
