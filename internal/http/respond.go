package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"expenses/internal/core"
	applog "expenses/internal/log"
	"expenses/internal/validate"
)

// Error codes carried in the "code" field of error bodies.
const (
	CodeValidation  = "validation_error"
	CodePersistence = "persistence_error"
	CodeInternal    = "internal_error"
	CodeNotFound    = "not_found"
	CodeNotAllowed  = "method_not_allowed"
	CodeRateLimited = "rate_limited"
	CodeNotReady    = "not_ready"
)

// APIError is the body of every non-2xx JSON response.
type APIError struct {
	Error   string      `json:"error"`
	Code    string      `json:"code"`
	Details interface{} `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string, details interface{}) {
	writeJSON(w, status, APIError{
		Error:   msg,
		Code:    code,
		Details: details,
	})
}

// writeServiceError maps a service or validation error to its HTTP response.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verrs validate.Errs
	if errors.As(err, &verrs) {
		writeError(w, http.StatusUnprocessableEntity, CodeValidation, "validation failed", verrs)
		return
	}

	code := CodeInternal
	if core.IsPersistence(err) {
		code = CodePersistence
	}
	applog.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
		applog.FieldError, err, "code", code)
	writeError(w, http.StatusInternalServerError, code, "An error occurred: "+err.Error(), nil)
}
