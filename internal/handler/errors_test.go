package handler

import (
	"bytes"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/teamtrack/teamtrack-api/internal/repo"
	"github.com/teamtrack/teamtrack-api/internal/service"
)

func TestHandleErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"not found", repo.ErrorNotFound, http.StatusNotFound},
		{"wrapped not found", fmt.Errorf("task 5: %w", repo.ErrorNotFound), http.StatusNotFound},
		{"forbidden", service.ErrForbidden, http.StatusForbidden},
		{"conflict", repo.ErrorConflict, http.StatusConflict},
		{"validation", fmt.Errorf("title too short: %w", service.ErrValidation), http.StatusBadRequest},
		{"invalid credentials", service.ErrInvalidCredentials, http.StatusUnauthorized},
		{"unknown error hides details", errors.New("pg: connection refused"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/", nil)

			handleErrors(w, r, zap.NewNop(), tt.err)

			assert.Equal(t, tt.wantCode, w.Code)
			if tt.wantCode == http.StatusInternalServerError {
				assert.NotContains(t, w.Body.String(), "connection refused")
			}
		})
	}
}

func multipartRequest(t *testing.T, fields map[string]string) *http.Request {
	t.Helper()

	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	r := httptest.NewRequest(http.MethodPost, "/", buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	require.NoError(t, r.ParseMultipartForm(maxMultipartMemory))
	return r
}

func TestFormHelpers(t *testing.T) {
	r := multipartRequest(t, map[string]string{
		"title":       "Test",
		"assignee_id": "7",
		"due_date":    "2025-06-15T12:00:00+03:00",
		"bad_int":     "seven",
		"bad_date":    "tomorrow",
	})

	t.Run("present and missing values", func(t *testing.T) {
		require.NotNil(t, formValue(r, "title"))
		assert.Equal(t, "Test", *formValue(r, "title"))
		assert.Nil(t, formValue(r, "absent"))
	})

	t.Run("int64 parsing", func(t *testing.T) {
		n, err := formInt64(r, "assignee_id")
		require.NoError(t, err)
		require.NotNil(t, n)
		assert.Equal(t, int64(7), *n)

		n, err = formInt64(r, "absent")
		require.NoError(t, err)
		assert.Nil(t, n)

		_, err = formInt64(r, "bad_int")
		assert.Error(t, err)
	})

	t.Run("due date is normalized to UTC", func(t *testing.T) {
		ts, err := formTime(r, "due_date")
		require.NoError(t, err)
		require.NotNil(t, ts)
		assert.Equal(t, time.UTC, ts.Location())
		assert.Equal(t, time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC), *ts)

		_, err = formTime(r, "bad_date")
		assert.Error(t, err)
	})
}
