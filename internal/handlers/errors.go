package handlers

import (
	"errors"
	"fmt"

	"royalchoice/internal/repositories"
	"royalchoice/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// validationErrors flattens validator errors into a field -> message map.
func validationErrors(err error) map[string]string {
	errorMessages := make(map[string]string)
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		errorMessages["body"] = err.Error()
		return errorMessages
	}
	for _, e := range validationErrs {
		errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
	}
	return errorMessages
}

// statusFor maps a domain error to its HTTP status. ok is false for errors the
// global error handler should turn into a 500.
func statusFor(err error) (status int, ok bool) {
	switch {
	case errors.Is(err, repositories.ErrProductNotFound),
		errors.Is(err, repositories.ErrUserNotFound),
		errors.Is(err, repositories.ErrOrderNotFound),
		errors.Is(err, services.ErrCartItemNotFound):
		return fiber.StatusNotFound, true
	case errors.Is(err, repositories.ErrEmailTaken):
		return fiber.StatusConflict, true
	case errors.Is(err, services.ErrInvalidCredentials),
		errors.Is(err, services.ErrInvalidToken):
		return fiber.StatusUnauthorized, true
	case errors.Is(err, services.ErrEmailMismatch):
		return fiber.StatusForbidden, true
	case errors.Is(err, services.ErrEmailRequired),
		errors.Is(err, services.ErrInvalidQuantity),
		errors.Is(err, services.ErrEmptyCart),
		errors.Is(err, services.ErrInvalidSignature):
		return fiber.StatusBadRequest, true
	case errors.Is(err, services.ErrPaymentsDisabled):
		return fiber.StatusServiceUnavailable, true
	}
	return 0, false
}

// respondError writes {"error": message} for known domain errors and hands
// everything else to the global error handler.
func respondError(c *fiber.Ctx, err error, message string) error {
	status, ok := statusFor(err)
	if !ok {
		return err
	}
	return c.Status(status).JSON(fiber.Map{"error": message})
}

func cartErrorMessage(err error) string {
	switch {
	case errors.Is(err, repositories.ErrProductNotFound):
		return "Product not found"
	case errors.Is(err, services.ErrCartItemNotFound):
		return "Product not in cart"
	case errors.Is(err, services.ErrInvalidQuantity):
		return "Invalid quantity"
	case errors.Is(err, repositories.ErrUserNotFound):
		return "User not found"
	}
	return err.Error()
}
