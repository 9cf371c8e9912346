package http_test

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sagarc03/filevault"
	fvhttp "github.com/sagarc03/filevault/http"
)

func TestHandleError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody string
	}{
		{"authentication", fmt.Errorf("op: %w", filevault.ErrAuthentication), http.StatusUnauthorized, `"error":"authentication_required"`},
		{"signature", fmt.Errorf("signature mismatch: %w", filevault.ErrUnauthorized), http.StatusForbidden, `"error":"unauthorized"`},
		{"not found", fmt.Errorf("op: %w", filevault.ErrNotFound), http.StatusNotFound, `"error":"not_found"`},
		{"conflict", fmt.Errorf("op: %w", filevault.ErrConflict), http.StatusConflict, `"error":"conflict"`},
		{"invalid input", fmt.Errorf("check upload: %w: file size out of range", filevault.ErrInvalidInput), http.StatusBadRequest, `"message":"file size out of range"`},
		{"bare invalid input", filevault.ErrInvalidInput, http.StatusBadRequest, `"message":"Invalid request"`},
		{"joined not found", errors.Join(errors.New("context"), filevault.ErrNotFound), http.StatusNotFound, `"error":"not_found"`},
		{"storage", fmt.Errorf("op: %w: %w", filevault.ErrStorage, errors.New("dial tcp 10.0.0.7:5432")), http.StatusInternalServerError, `"error":"internal_error"`},
		{"unknown", errors.New("some unexpected error"), http.StatusInternalServerError, `"message":"Internal server error"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/files", nil)

			fvhttp.HandleError(rec, req, tt.err)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
			assert.Contains(t, rec.Body.String(), `"success":false`)
		})
	}
}

func TestHandleError_HidesStorageDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/files", nil)

	fvhttp.HandleError(rec, req, fmt.Errorf("put: %w: %w", filevault.ErrStorage, errors.New("password authentication failed for user admin")))

	assert.NotContains(t, rec.Body.String(), "password")
	assert.NotContains(t, rec.Body.String(), "admin")
}

func TestWriteError_Success(t *testing.T) {
	rec := httptest.NewRecorder()

	fvhttp.WriteError(rec, http.StatusBadRequest, "bad_request", "Invalid request")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `"error":"bad_request"`)
	assert.Contains(t, rec.Body.String(), `"message":"Invalid request"`)
}

func TestWriteJSON_Success(t *testing.T) {
	rec := httptest.NewRecorder()

	data := map[string]string{"key": "value"}
	err := fvhttp.WriteJSON(rec, http.StatusOK, data)

	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `"key":"value"`)
}

func TestWriteJSON_EncodingError(t *testing.T) {
	rec := httptest.NewRecorder()

	// Channels cannot be JSON encoded
	data := make(chan int)
	err := fvhttp.WriteJSON(rec, http.StatusOK, data)

	assert.Error(t, err)
}
