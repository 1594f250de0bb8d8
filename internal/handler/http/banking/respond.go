package banking_http

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"banking/internal/domain"
)

const codeValidation = "VALIDATION_ERROR"

type ErrorResponse struct {
	Error  string            `json:"error"`
	Code   string            `json:"code"`
	Fields map[string]string `json:"fields,omitempty"`
}

func statusForKind(kind string) int {
	switch kind {
	case "NOT_FOUND":
		return http.StatusNotFound
	case "FORBIDDEN":
		return http.StatusForbidden
	case "INVALID_STATE", "INSUFFICIENT_FUNDS", "INVALID_OPERATION":
		return http.StatusUnprocessableEntity
	case "CONFLICT":
		return http.StatusConflict
	case "TIMEOUT":
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("Failed to write JSON response", zap.Error(err))
	}
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	kind := domain.KindOf(err)
	status := statusForKind(kind)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", zap.String("path", r.URL.Path), zap.String("kind", kind), zap.Error(err))
	} else {
		h.logger.Warn("Request rejected", zap.String("path", r.URL.Path), zap.String("kind", kind), zap.Error(err))
	}
	h.respondJSON(w, status, ErrorResponse{Error: domain.Message(err), Code: kind})
}

func (h *Handler) respondValidation(w http.ResponseWriter, message string, fields map[string]string) {
	h.respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: message, Code: codeValidation, Fields: fields})
}
