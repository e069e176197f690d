package errors

import (
	"errors"
	"fmt"
	"net/http"
)

type AppError struct {
	Code    string
	Message string
	Status  int
	Err     error
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(code string, message string, status int, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

func NotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s not found", resource),
		Status:  http.StatusNotFound,
		Err:     err,
	}
}

func BadRequest(message string, err error) *AppError {
	return &AppError{
		Code:    "BAD_REQUEST",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     err,
	}
}

// Unauthorized rejects a trigger whose actor role does not match the edge.
func Unauthorized(message string, err error) *AppError {
	return &AppError{
		Code:    "UNAUTHORIZED",
		Message: message,
		Status:  http.StatusForbidden,
		Err:     err,
	}
}

func Forbidden(message string, err error) *AppError {
	return &AppError{
		Code:    "FORBIDDEN",
		Message: message,
		Status:  http.StatusForbidden,
		Err:     err,
	}
}

func Internal(message string, err error) *AppError {
	return &AppError{
		Code:    "INTERNAL_ERROR",
		Message: message,
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// InvalidTransition rejects a transition with no matching edge in the table.
func InvalidTransition(from, to, action string) *AppError {
	return &AppError{
		Code:    "INVALID_TRANSITION",
		Message: fmt.Sprintf("no transition %s -> %s via %s", from, to, action),
		Status:  http.StatusConflict,
	}
}

// ConditionNotMet rejects a transition whose edge exists but whose required
// condition is absent or false in the supplied condition map.
func ConditionNotMet(condition string) *AppError {
	return &AppError{
		Code:    "CONDITION_NOT_MET",
		Message: fmt.Sprintf("required condition %q is not satisfied", condition),
		Status:  http.StatusConflict,
	}
}

// ConcurrentModification signals a lost optimistic write. The caller must
// reload and retry or abort.
func ConcurrentModification(resource string) *AppError {
	return &AppError{
		Code:    "CONCURRENT_MODIFICATION",
		Message: fmt.Sprintf("%s was modified concurrently, reload and retry", resource),
		Status:  http.StatusConflict,
	}
}

// Blocked rejects message delivery between blocked parties.
func Blocked(message string) *AppError {
	return &AppError{
		Code:    "BLOCKED",
		Message: message,
		Status:  http.StatusForbidden,
	}
}

// DuplicateSystemMessage marks an already-appended lifecycle message. It is
// absorbed by callers, never surfaced to users.
func DuplicateSystemMessage(chatID string) *AppError {
	return &AppError{
		Code:    "DUPLICATE_SYSTEM_MESSAGE",
		Message: fmt.Sprintf("system message already appended to chat %s", chatID),
		Status:  http.StatusConflict,
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Code:    "CONFLICT",
		Message: message,
		Status:  http.StatusConflict,
		Err:     nil,
	}
}

func TooManyRequests(message string, waitTime interface{}) *AppError {
	return &AppError{
		Code:    "TOO_MANY_REQUESTS",
		Message: message,
		Status:  http.StatusTooManyRequests,
		Err:     nil,
	}
}

func Is(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}
