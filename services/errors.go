package services

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Error kinds. Every core operation either returns the updated entity or
// fails with exactly one of these, leaving state unchanged.
const (
	KindNotFound      = "not_found"
	KindPrecondition  = "precondition"
	KindConflict      = "conflict"
	KindValidation    = "validation"
	KindAuthorization = "authorization"
)

type Error struct {
	Kind    string `json:"kind"`
	Message string `json:"error"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// HTTPStatus maps an error kind to the status the handlers return.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindNotFound:
		return fiber.StatusNotFound
	case KindPrecondition:
		return fiber.StatusConflict
	case KindConflict:
		return fiber.StatusConflict
	case KindValidation:
		return fiber.StatusBadRequest
	case KindAuthorization:
		return fiber.StatusForbidden
	default:
		return fiber.StatusInternalServerError
	}
}

func NotFoundError(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func PreconditionError(format string, args ...interface{}) *Error {
	return &Error{Kind: KindPrecondition, Message: fmt.Sprintf(format, args...)}
}

func ConflictError(format string, args ...interface{}) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func ValidationError(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func AuthorizationError(format string, args ...interface{}) *Error {
	return &Error{Kind: KindAuthorization, Message: fmt.Sprintf(format, args...)}
}

// IsKind reports whether err is a core error of the given kind.
func IsKind(err error, kind string) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == kind
}
