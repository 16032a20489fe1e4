package server

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/devrev/langdetect/internal/errors"
	"github.com/devrev/langdetect/internal/middleware"
)

// ErrorResponse represents the standard error response format.
type ErrorResponse struct {
	Status    string                 `json:"status"`
	ErrorCode string                 `json:"error_code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
}

// HTTPStatus maps a detector error code to an HTTP status code.
func HTTPStatus(code errors.ErrorCode) int {
	switch code {
	case errors.ErrCodeOK:
		return http.StatusOK
	case errors.ErrCodeInvalidArgument:
		return http.StatusBadRequest
	case errors.ErrCodeLanguageNotFound:
		return http.StatusNotFound
	case errors.ErrCodeNoTrainedLanguages, errors.ErrCodeTrainingIncomplete, errors.ErrCodeTrainingComplete:
		return http.StatusPreconditionFailed
	case errors.ErrCodeCorpusUnreadable, errors.ErrCodeCanceled:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// handleError writes err as an ErrorResponse with the mapped status
func (s *Server) handleError(w http.ResponseWriter, r *http.Request, err error) {
	code := errors.GetCode(err)
	resp := ErrorResponse{
		Status:    "error",
		ErrorCode: code.String(),
		Message:   err.Error(),
		RequestID: middleware.GetRequestID(r.Context()),
	}

	if de, ok := errors.AsDetectError(err); ok {
		resp.Message = de.Message
		resp.Details = de.Details
	}

	s.writeError(w, HTTPStatus(code), resp)
}

// writeValidationError writes a 400 for a request the handler itself rejected
func (s *Server) writeValidationError(w http.ResponseWriter, r *http.Request, message string) {
	s.writeError(w, http.StatusBadRequest, ErrorResponse{
		Status:    "error",
		ErrorCode: errors.ErrCodeInvalidArgument.String(),
		Message:   message,
		RequestID: middleware.GetRequestID(r.Context()),
	})
}

func (s *Server) writeError(w http.ResponseWriter, statusCode int, resp ErrorResponse) {
	s.logger.Warn("HTTP error response",
		zap.Int("status_code", statusCode),
		zap.String("error_code", resp.ErrorCode),
		zap.String("message", resp.Message),
		zap.String("request_id", resp.RequestID),
	)

	s.writeJSON(w, statusCode, resp)
}

func (s *Server) writeJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}
