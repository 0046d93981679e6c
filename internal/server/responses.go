package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/spigell/resume-ranker/internal/analysis"
	"github.com/spigell/resume-ranker/internal/conversation"
	"github.com/spigell/resume-ranker/internal/pipeline"
	"github.com/spigell/resume-ranker/internal/resume"
)

const maxJSONBody = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Warn("request failed", zap.String("path", r.URL.Path), zap.Int("status", status), zap.Error(err))
	} else {
		s.logger.Debug("request rejected", zap.String("path", r.URL.Path), zap.Int("status", status), zap.Error(err))
	}
	writeJSON(w, status, analysis.Failure(err))
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	var se *analysis.ServiceError
	var te *analysis.TransportError

	switch {
	case errors.Is(err, pipeline.ErrBusy), errors.Is(err, conversation.ErrBusy), errors.Is(err, pipeline.ErrStale):
		return http.StatusConflict
	case errors.Is(err, errNotFound):
		return http.StatusNotFound
	case isValidation(err):
		return http.StatusBadRequest
	case errors.As(err, &se):
		return http.StatusBadGateway
	case errors.As(err, &te):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// isValidation also covers the input errors of packages that sit below the
// analysis boundary.
func isValidation(err error) bool {
	for _, target := range []error{
		resume.ErrEmpty,
		resume.ErrUnsupported,
		conversation.ErrEmptyMessage,
		conversation.ErrEmptyDraft,
		conversation.ErrClosed,
		conversation.ErrUnknownProfile,
		conversation.ErrCompanyAlreadySet,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return analysis.IsValidation(err)
}

var errNotFound = errors.New("not found")

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return analysis.Validationf("request body is required")
		}
		return analysis.Validationf("malformed request body: %v", err)
	}
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %w", analysis.ErrValidation, err)
	}
	return nil
}
