package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrRoomNotFound = fmt.Errorf("room not found")
	ErrNoGuest      = fmt.Errorf("no guest has joined the room")
	ErrSeatTaken    = fmt.Errorf("guest seat already taken")
	ErrInvalidToken = fmt.Errorf("invalid session token")
	ErrRoleMismatch = fmt.Errorf("sender role not bound to this session token")
	ErrWorkerPanic  = fmt.Errorf("worker panic")
)

// MapToHTTPStatus translates sentinel errors into HTTP status codes.
// Anything unknown is treated as an internal failure.
func MapToHTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrRoomNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrNoGuest), errors.Is(err, ErrSeatTaken):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidToken), errors.Is(err, ErrRoleMismatch):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
