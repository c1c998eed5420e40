package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"buildops/internal/service"

	"github.com/rs/zerolog"
)

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, errorResponse{Error: message})
}

// statusFor maps engine errors to HTTP status codes.
func statusFor(err error) int {
	var reqErr *requestError
	switch {
	case errors.As(err, &reqErr):
		return reqErr.status
	case errors.Is(err, service.ErrDuplicateDate), errors.Is(err, service.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrValidation):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *HTTPServer) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	resp := errorResponse{Error: err.Error()}

	var reqErr *requestError
	if errors.As(err, &reqErr) {
		resp.Fields = reqErr.fields
	}
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		resp.Fields = map[string]string{verr.Field: verr.Reason}
	}

	if code >= http.StatusInternalServerError {
		s.logger.Error().Err(err).Str("request_id", RequestIDFromContext(r.Context())).Msg("request failed")
		resp = errorResponse{Error: "internal error"}
	} else if s.logger.GetLevel() <= zerolog.DebugLevel {
		s.logger.Debug().Err(err).Int("status", code).Str("path", r.URL.Path).Msg("request rejected")
	}
	writeJSON(w, code, resp)
}
