package http

import (
	"errors"
	"net/http"
	"strings"

	"wealthwise/internal/core"
	"wealthwise/internal/goals"
)

// SessionHeader lets a client scope advice supersession to one browser tab.
const SessionHeader = "X-Session-ID"

// sanitizeInput removes potentially dangerous characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	result := strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
	return result
}

// isValidationError reports whether err comes from input validation.
func isValidationError(err error) bool {
	for _, target := range []error{
		core.ErrInvalidAmount,
		core.ErrInvalidDuration,
		core.ErrInvalidDurationUnit,
		core.ErrInvalidGoalAmount,
		core.ErrInvalidSavings,
		core.ErrEmptyName,
		core.ErrNameTooLong,
		goals.ErrInvalidProgress,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// goalErrorResponse maps repository errors to API responses.
func goalErrorResponse(err error) *JSONResponseBuilder {
	switch {
	case errors.Is(err, goals.ErrGoalNotFound):
		return NotFoundError(err.Error())
	case errors.Is(err, goals.ErrGoalCompleted):
		return ConflictError(err.Error())
	case isValidationError(err):
		return UnprocessableEntityError(err.Error())
	default:
		return InternalServerError("failed to save goals")
	}
}

// adviceScope keys advice supersession by session, falling back to the
// client address.
func adviceScope(r *http.Request, clientIP string) string {
	if s := sanitizeInput(r.Header.Get(SessionHeader)); s != "" && len(s) <= 128 {
		return "session:" + s
	}
	return "ip:" + clientIP
}
