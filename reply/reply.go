// Package reply renders the JSON envelope shared by every service:
// {success, message, data?, errors?}. Handlers return rich errors and let
// Error map them to a status code and body.
package reply

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
)

// Envelope is the wire shape of every response
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Errors  any    `json:"errors,omitempty"`
	Code    string `json:"code,omitempty"`
}

// OK renders a 200 with the given message and optional data
func OK(c *fiber.Ctx, message string, data ...any) error {
	return success(c, http.StatusOK, message, data...)
}

// Created renders a 201 with the given message and optional data
func Created(c *fiber.Ctx, message string, data ...any) error {
	return success(c, http.StatusCreated, message, data...)
}

func success(c *fiber.Ctx, status int, message string, data ...any) error {
	env := Envelope{
		Success: true,
		Message: message,
	}
	if len(data) > 0 {
		env.Data = data[0]
	}
	return c.Status(status).JSON(env)
}

// BadRequest renders a 400 with field level details
func BadRequest(c *fiber.Ctx, message string, details ...any) error {
	env := Envelope{
		Success: false,
		Message: message,
	}
	if len(details) > 0 {
		env.Errors = details[0]
	}
	return c.Status(http.StatusBadRequest).JSON(env)
}

// Unauthorized renders a 401. The optional code is a machine readable
// hint such as TOKEN_EXPIRED so clients can branch without parsing text.
func Unauthorized(c *fiber.Ctx, message string, code ...string) error {
	env := Envelope{
		Success: false,
		Message: message,
	}
	if len(code) > 0 {
		env.Code = code[0]
	}
	return c.Status(http.StatusUnauthorized).JSON(env)
}

// NotFound renders a 404
func NotFound(c *fiber.Ctx, message string) error {
	return failure(c, http.StatusNotFound, message)
}

// Conflict renders a 409
func Conflict(c *fiber.Ctx, message string) error {
	return failure(c, http.StatusConflict, message)
}

// Internal renders a 500 with a generic message, never the raw error
func Internal(c *fiber.Ctx, message string) error {
	if message == "" {
		message = "An unexpected server error occurred"
	}
	return failure(c, http.StatusInternalServerError, message)
}

func failure(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(Envelope{
		Success: false,
		Message: message,
	})
}

// Error maps a domain error to its HTTP rendering. Classified errors keep
// their message and code; anything unclassified renders as a 500 so
// internal detail never leaks to the client.
func Error(c *fiber.Ctx, err error) error {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		richErr = goerrors.Wrap(err, goerrors.CategoryInternal, "An unexpected server error occurred").
			WithCode(goerrors.CodeInternal)
	}

	status := statusFor(richErr)

	env := Envelope{
		Success: false,
		Message: richErr.Message,
		Code:    richErr.TextCode,
	}

	if status == http.StatusInternalServerError {
		env.Message = "An unexpected server error occurred"
		env.Code = ""
	}

	return c.Status(status).JSON(env)
}

func statusFor(err *goerrors.Error) int {
	switch err.Category {
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryValidation, goerrors.CategoryBadInput:
		return http.StatusBadRequest
	case goerrors.CategoryRateLimit:
		return http.StatusTooManyRequests
	}

	if err.Code >= http.StatusBadRequest && err.Code <= http.StatusNetworkAuthenticationRequired {
		return err.Code
	}

	return http.StatusInternalServerError
}
