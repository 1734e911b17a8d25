package respond

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSON(t *testing.T) {
	tests := []struct {
		name     string
		code     int
		data     interface{}
		wantCode int
		wantBody map[string]interface{}
	}{
		{
			name:     "success response",
			code:     http.StatusOK,
			data:     map[string]string{"status": "ok"},
			wantCode: http.StatusOK,
			wantBody: map[string]interface{}{"status": "ok"},
		},
		{
			name:     "created response",
			code:     http.StatusCreated,
			data:     map[string]int{"id": 123},
			wantCode: http.StatusCreated,
			wantBody: map[string]interface{}{"id": float64(123)}, // JSON unmarshals numbers as float64
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/", nil)

			JSON(w, r, tt.code, tt.data)

			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

			var got map[string]interface{}
			err := json.NewDecoder(w.Body).Decode(&got)
			require.NoError(t, err)
			assert.Equal(t, tt.wantBody, got)
		})
	}
}

func TestErrorAndMessage(t *testing.T) {
	t.Run("error body", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/", nil)

		Error(w, r, http.StatusNotFound, "not found")

		assert.Equal(t, http.StatusNotFound, w.Code)

		var got map[string]string
		require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
		assert.Equal(t, "not found", got["error"])
	})

	t.Run("message body", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/", nil)

		Message(w, r, http.StatusOK, "task deleted")

		assert.Equal(t, http.StatusOK, w.Code)

		var got map[string]string
		require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
		assert.Equal(t, "task deleted", got["message"])
	})
}
