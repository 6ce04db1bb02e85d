package adapthttp

import (
	"errors"
	"net/http"

	"bpmnstudio/internal/domain"

	"github.com/go-chi/chi/v5/middleware"
)

var (
	errInvalidState       = errors.New("invalid sso state")
	errMissingToken error = &domain.ValidationError{Fields: []string{"token"}}
)

// errorResponse maps an error to the status and the message shown to clients.
// Anything unrecognized is an internal error whose detail stays in the log.
func errorResponse(err error) (int, string) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, verr.Error()
	case errors.Is(err, errInvalidBody):
		return http.StatusBadRequest, "invalid request body"
	case errors.Is(err, errInvalidState):
		return http.StatusBadRequest, "invalid sso state"
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid username or password"
	case errors.Is(err, domain.ErrMissingOTP):
		return http.StatusUnauthorized, "two-factor code required"
	case errors.Is(err, domain.ErrInvalidOTP):
		return http.StatusUnauthorized, "invalid two-factor code"
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, domain.ErrDiagramNotFoundOrNotOwned):
		return http.StatusNotFound, "diagram not found or not owned by you; use save as to store a new copy"
	case errors.Is(err, domain.ErrDiagramNotFound):
		return http.StatusNotFound, "diagram not found"
	case errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound, "user not found"
	case errors.Is(err, domain.ErrUsernameTaken):
		return http.StatusConflict, "username already taken"
	case errors.Is(err, domain.ErrTwoFactorAlreadyEnabled):
		return http.StatusConflict, "two-factor authentication is already enabled"
	case errors.Is(err, domain.ErrTwoFactorNotSetup):
		return http.StatusConflict, "two-factor authentication has not been set up; request a setup first"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, message := errorResponse(err)
	if status >= http.StatusInternalServerError {
		s.log.Error().
			Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request failed")
	}
	s.reply(w, r, status, envelope{"success": false, "message": message})
}
