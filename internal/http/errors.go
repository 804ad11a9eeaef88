package http

import (
	"encoding/json"
	"net/http"

	"fundtracker/internal/core"
)

// APIError is the JSON error body.
type APIError struct {
	Kind    core.Kind `json:"kind"`
	Message string    `json:"message"`
}

// StatusFor maps an error kind to an HTTP status.
func StatusFor(kind core.Kind) int {
	switch kind {
	case core.KindValidation:
		return http.StatusUnprocessableEntity
	case core.KindNotFound:
		return http.StatusNotFound
	case core.KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeAPIError(w http.ResponseWriter, err error) {
	kind := core.KindOf(err)
	writeJSON(w, StatusFor(kind), APIError{Kind: kind, Message: core.MessageOf(err)})
}

// uiError renders err as an HTMX error fragment plus a notification.
func uiError(err error) *HTMXResponseBuilder {
	msg := core.MessageOf(err)
	var b *HTMXResponseBuilder
	switch kind := core.KindOf(err); kind {
	case core.KindValidation:
		b = UnprocessableEntityError(msg)
	case core.KindNotFound:
		b = NotFoundError(msg)
	case core.KindUnauthorized:
		b = ErrorResponse(StatusFor(kind), msg)
	default:
		b = InternalServerError(msg)
	}
	return b.TriggerErrorNotification(msg)
}
