package api

import (
	"github.com/gofiber/fiber/v2"
)

// APIResponse is the envelope every JSON endpoint responds with.
type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
}

// APIError carries a human-readable message plus optional details.
type APIError struct {
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// RespondSuccess sends a 200 with data wrapped in the standard envelope.
func RespondSuccess(c *fiber.Ctx, data any) error {
	return c.Status(fiber.StatusOK).JSON(APIResponse{
		Success: true,
		Data:    data,
	})
}

// RespondMessage sends a 200 with a simple message payload.
func RespondMessage(c *fiber.Ctx, message string) error {
	return RespondSuccess(c, fiber.Map{"message": message})
}

func respondError(c *fiber.Ctx, status int, message, details string) error {
	return c.Status(status).JSON(APIResponse{
		Success: false,
		Error: &APIError{
			Message: message,
			Details: details,
		},
	})
}

// RespondValidationError sends a 400 for malformed or missing request input.
func RespondValidationError(c *fiber.Ctx, message, details string) error {
	return respondError(c, fiber.StatusBadRequest, message, details)
}

// RespondNotFound sends a 404 for a missing resource.
func RespondNotFound(c *fiber.Ctx, resource, details string) error {
	return respondError(c, fiber.StatusNotFound, resource+" not found", details)
}

// RespondConflict sends a 409 when the request clashes with current state.
func RespondConflict(c *fiber.Ctx, message, details string) error {
	return respondError(c, fiber.StatusConflict, message, details)
}

// RespondInternalError sends a 500.
func RespondInternalError(c *fiber.Ctx, message, details string) error {
	return respondError(c, fiber.StatusInternalServerError, message, details)
}

// RespondServiceUnavailable sends a 503 with a Retry-After hint.
func RespondServiceUnavailable(c *fiber.Ctx, message, details string) error {
	c.Set("Retry-After", "10")
	return respondError(c, fiber.StatusServiceUnavailable, message, details)
}
