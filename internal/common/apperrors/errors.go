package apperrors

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// Kind classifies workflow errors so controllers can map them to HTTP status
// codes and the UI can render precise guidance.
type Kind int

const (
	KindNotFound Kind = iota + 1
	KindAccessDenied
	KindForbidden
	KindValidation
)

type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func NotFound(message string) error {
	return &Error{Kind: KindNotFound, Message: message}
}

func AccessDenied(message string) error {
	return &Error{Kind: KindAccessDenied, Message: message}
}

func Forbidden(message string) error {
	return &Error{Kind: KindForbidden, Message: message}
}

func Validation(message string) error {
	return &Error{Kind: KindValidation, Message: message}
}

// KindOf returns the kind of err, or 0 for errors outside the taxonomy.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// HTTPStatus maps an error to the status code a controller should respond with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return fiber.StatusNotFound
	case KindAccessDenied:
		return fiber.StatusForbidden
	case KindForbidden:
		return fiber.StatusForbidden
	case KindValidation:
		return fiber.StatusUnprocessableEntity
	default:
		return fiber.StatusInternalServerError
	}
}
