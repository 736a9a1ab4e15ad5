package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()

	WriteJSON(rec, http.StatusConflict, NoticeResponse("busy", "submission_in_flight", map[string]string{"kind": "error"}))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "submission_in_flight", body["error"])
	assert.Equal(t, map[string]interface{}{"kind": "error"}, body["notice"])
	assert.NotContains(t, body, "data")
}

func TestSuccessResponse(t *testing.T) {
	resp := SuccessResponse("ok", []int{1, 2})

	assert.True(t, resp.Success)
	assert.Equal(t, []int{1, 2}, resp.Data)
	assert.Empty(t, resp.Error)
	assert.False(t, resp.Timestamp.IsZero())
}
