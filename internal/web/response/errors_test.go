package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/grimoire-wiki/grimoire/internal/orm/crud"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body
}

func TestRenderError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
		field  string
	}{
		{"unknown type", &crud.FieldError{Kind: crud.ErrUnknownType, Message: "dragon"}, http.StatusBadRequest, "unknown_type", ""},
		{"not found", fmt.Errorf("get: %w", crud.ErrNotFound), http.StatusNotFound, "not_found", ""},
		{"malformed value", &crud.FieldError{Kind: crud.ErrMalformedValue, Field: "level"}, http.StatusBadRequest, "malformed_value", "level"},
		{"malformed ids", &crud.FieldError{Kind: crud.ErrMalformedIDs, Field: "quests"}, http.StatusBadRequest, "malformed_ids", "quests"},
		{"not searchable", crud.ErrNotSearchable, http.StatusBadRequest, "not_searchable", ""},
		{"duplicate", &crud.FieldError{Kind: crud.ErrDuplicateValue, Field: "slug"}, http.StatusConflict, "duplicate_value", "slug"},
		{"internal", &crud.FieldError{Kind: crud.ErrInternal, Err: errors.New("secret dsn")}, http.StatusInternalServerError, "internal", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			RenderError(w, tt.err)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))

			body := decode(t, w)
			assert.Equal(t, tt.code, body["code"])
			assert.Equal(t, http.StatusText(tt.status), body["error"])
			if tt.field == "" {
				assert.NotContains(t, body, "field")
			} else {
				assert.Equal(t, tt.field, body["field"])
			}
		})
	}
}

func TestRenderError_HidesInternalCause(t *testing.T) {
	w := httptest.NewRecorder()
	RenderError(w, errors.New("pq: password authentication failed"))

	body := decode(t, w)
	assert.Equal(t, "internal server error", body["message"])
}

func TestRenderHelpers(t *testing.T) {
	w := httptest.NewRecorder()
	RenderBadRequest(w, "malformed_body", "body is not a JSON object")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "malformed_body", decode(t, w)["code"])

	w = httptest.NewRecorder()
	RenderNotFound(w, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "resource not found", decode(t, w)["message"])

	w = httptest.NewRecorder()
	require.NoError(t, RenderJSON(w, http.StatusCreated, map[string]int{"id": 3}))
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"id":3}`, w.Body.String())

	w = httptest.NewRecorder()
	RenderNoContent(w)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestIsClientError(t *testing.T) {
	assert.True(t, IsClientError(crud.ErrNotFound))
	assert.True(t, IsClientError(&crud.FieldError{Kind: crud.ErrDuplicateValue}))
	assert.False(t, IsClientError(crud.ErrInternal))
	assert.False(t, IsClientError(errors.New("boom")))
}
