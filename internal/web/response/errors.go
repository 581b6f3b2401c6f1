// Package response renders JSON bodies and engine errors for the HTTP
// adapter.
package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/grimoire-wiki/grimoire/internal/orm/crud"
)

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
}

// statusByCode maps engine error codes to HTTP status codes
var statusByCode = map[string]int{
	"unknown_type":     http.StatusBadRequest,
	"not_found":        http.StatusNotFound,
	"malformed_value":  http.StatusBadRequest,
	"malformed_ids":    http.StatusBadRequest,
	"not_searchable":   http.StatusBadRequest,
	"not_hierarchical": http.StatusBadRequest,
	"duplicate_value":  http.StatusConflict,
	"internal":         http.StatusInternalServerError,
}

// StatusFor returns the HTTP status for an engine error
func StatusFor(err error) int {
	if status, ok := statusByCode[crud.Code(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// RenderError renders an engine error with its category, status and the
// offending field when there is one. Internal errors never expose their
// cause.
func RenderError(w http.ResponseWriter, err error) {
	code := crud.Code(err)
	status := StatusFor(err)

	message := err.Error()
	if code == "internal" {
		message = "internal server error"
	}

	writeError(w, status, &ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    code,
		Field:   crud.FieldOf(err),
	})
}

// RenderBadRequest renders a 400 that did not come from the engine
func RenderBadRequest(w http.ResponseWriter, code, message string) {
	writeError(w, http.StatusBadRequest, &ErrorResponse{
		Error:   http.StatusText(http.StatusBadRequest),
		Message: message,
		Code:    code,
	})
}

// RenderNotFound renders a 404 for routes that do not exist
func RenderNotFound(w http.ResponseWriter, message string) {
	if message == "" {
		message = "resource not found"
	}
	writeError(w, http.StatusNotFound, &ErrorResponse{
		Error:   http.StatusText(http.StatusNotFound),
		Message: message,
		Code:    "not_found",
	})
}

// RenderInternalError renders a 500 without exposing err
func RenderInternalError(w http.ResponseWriter) {
	RenderError(w, crud.ErrInternal)
}

// IsClientError reports whether err is the caller's fault
func IsClientError(err error) bool {
	return !errors.Is(err, crud.ErrInternal) && StatusFor(err) < http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, status int, body *ErrorResponse) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
