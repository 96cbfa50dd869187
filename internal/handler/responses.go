package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/osse101/cosmos-agent/internal/domain"
	"github.com/osse101/cosmos-agent/internal/logger"
)

// SuccessResponse represents a simple successful operation message
type SuccessResponse struct {
	Message string `json:"message"`
}

// ErrorResponse represents an error response. Kind names the failure class
// so clients can branch without parsing the message.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// DataResponse represents a response with data payload
type DataResponse struct {
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data"`
}

// respondJSON sends a JSON response with the given status code and payload
func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	// Get a buffer from the pool to reduce allocations
	buf := getBuffer()
	defer putBuffer(buf)

	if err := json.NewEncoder(buf).Encode(payload); err != nil {
		slog.Error("Failed to encode JSON response", "error", err)
		return
	}

	if _, err := buf.WriteTo(w); err != nil {
		slog.Error("Failed to write response buffer", "error", err)
	}
}

// respondError sends a JSON error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{Error: message})
}

// respondServiceError logs err and maps it to a status code. Agent errors
// carry the coordinate, item or contract that failed, so their message is
// returned as is.
func respondServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, kind := mapServiceError(err)
	log := logger.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		log.Error(op+" failed", "error", err, "kind", kind)
	} else {
		log.Warn(op+" failed", "error", err, "kind", kind)
	}
	respondJSON(w, status, ErrorResponse{Error: err.Error(), Kind: kind})
}

// mapServiceError maps agent errors to HTTP status codes and kinds
func mapServiceError(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, domain.ErrOwnershipViolation):
		return http.StatusForbidden, "ownership_violation"
	case errors.Is(err, domain.ErrPlanningGap):
		return http.StatusUnprocessableEntity, "planning_gap"
	case errors.Is(err, domain.ErrSubmissionRejected):
		return http.StatusConflict, "submission_rejected"
	case errors.Is(err, domain.ErrSubmissionUnknown):
		return http.StatusBadGateway, "submission_unknown"
	case errors.Is(err, domain.ErrTransport):
		return http.StatusServiceUnavailable, "transport_failure"
	case errors.Is(err, domain.ErrSubmissionFailed):
		return http.StatusBadGateway, "submission_failed"
	default:
		return http.StatusInternalServerError, "internal"
	}
}
