package main

import (
	"errors"

	"github.com/PaulBabatuyi/socialhub/internal/data"

	"github.com/gofiber/fiber/v2"
)

// apiError is an error with a client-facing status and message.
type apiError struct {
	Status  int
	Message string
}

func (e *apiError) Error() string { return e.Message }

func badRequest(msg string) error   { return &apiError{Status: fiber.StatusBadRequest, Message: msg} }
func unauthorized(msg string) error { return &apiError{Status: fiber.StatusUnauthorized, Message: msg} }
func notFound(msg string) error     { return &apiError{Status: fiber.StatusNotFound, Message: msg} }
func conflict(msg string) error     { return &apiError{Status: fiber.StatusConflict, Message: msg} }

var (
	errUnauthorized       = unauthorized("Unauthorized")
	errInvalidCredentials = unauthorized("Invalid credentials")
	errServer             = &apiError{Status: fiber.StatusInternalServerError, Message: "Server error"}
)

// errorHandler is the single place errors become responses. Anything it does
// not recognise is a 500 with a generic message; the cause is logged by the
// request logger.
func errorHandler(c *fiber.Ctx, err error) error {
	status, msg := errorResponse(err)
	return c.Status(status).JSON(fiber.Map{"error": msg})
}

func errorResponse(err error) (int, string) {
	var ae *apiError
	if errors.As(err, &ae) {
		return ae.Status, ae.Message
	}

	switch {
	case errors.Is(err, data.ErrNotFound):
		return fiber.StatusNotFound, "Not found"
	case errors.Is(err, data.ErrForbidden):
		return fiber.StatusForbidden, "Forbidden"
	case errors.Is(err, data.ErrConflict):
		return fiber.StatusConflict, "Username or email already in use"
	case errors.Is(err, data.ErrInvalidID):
		return fiber.StatusBadRequest, "Invalid id"
	}

	// routing and body parsing errors raised by fiber itself
	var fe *fiber.Error
	if errors.As(err, &fe) && fe.Code < fiber.StatusInternalServerError {
		return fe.Code, fe.Message
	}

	return errServer.Status, errServer.Message
}
