package api

import (
	"errors"
	"net/http"

	"mealtrack/internal/auth"
	"mealtrack/internal/meals"
	"mealtrack/internal/report"
)

var (
	errInvalidBody  = errors.New("invalid request body")
	errBodyTooLarge = errors.New("request body too large")
)

// statusFor maps a service error to its HTTP status and client message.
// Unknown errors are reported as a bare 500.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, errBodyTooLarge):
		return http.StatusRequestEntityTooLarge, err.Error()
	case errors.Is(err, errInvalidBody),
		errors.Is(err, auth.ErrValidation),
		errors.Is(err, meals.ErrCanteenRequired),
		errors.Is(err, report.ErrInvalidDate),
		errors.Is(err, report.ErrInvalidRange),
		errors.Is(err, auth.ErrConflict),
		errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidOTP),
		errors.Is(err, auth.ErrOTPExpired),
		errors.Is(err, auth.ErrNotFound),
		errors.Is(err, auth.ErrPasswordMismatch):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, auth.ErrAmbiguousReset):
		return http.StatusConflict, err.Error()
	case errors.Is(err, auth.ErrAccountLocked):
		return http.StatusLocked, err.Error()
	case errors.Is(err, auth.ErrUnauthenticated), errors.Is(err, auth.ErrSessionExpired):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, auth.ErrForbidden):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, auth.ErrNotification):
		return http.StatusInternalServerError, auth.ErrNotification.Error()
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	} else {
		s.log.DebugContext(r.Context(), "request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, status, errorResponse(msg))
}
