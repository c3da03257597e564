package api

import (
	"errors"
	"net/http"

	"shareit/internal/database"
)

// statusForError maps store/service error kinds to HTTP status codes.
// Everything unrecognized is an internal fault and must not be masked.
func statusForError(err error) int {
	switch {
	case errors.Is(err, database.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, database.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, database.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, database.ErrInvalidState),
		errors.Is(err, database.ErrOverlap),
		errors.Is(err, database.ErrDuplicateComment),
		errors.Is(err, database.ErrVersionConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	code := statusForError(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		msg = "internal error"
	}
	writeError(w, code, msg)
}
