package handlers

import (
	"errors"
	"net/http"

	"reveal-backend/internal/models"
	"reveal-backend/internal/services"
	"reveal-backend/internal/utils"

	"github.com/gofiber/fiber/v2"
)

var errorStatus = []struct {
	err    error
	status int
	detail string
}{
	{services.ErrUserExists, http.StatusBadRequest, "Email already registered"},
	{services.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid credentials"},
	{services.ErrUserNotFound, http.StatusUnauthorized, "Invalid user"},
	{services.ErrPhotoNotFound, http.StatusNotFound, "Photo not found"},
	{services.ErrNotCreator, http.StatusForbidden, "Only creators can upload"},
	{services.ErrNotEnoughTokens, http.StatusBadRequest, "Not enough tokens"},
	{services.ErrAmountNotPositive, http.StatusBadRequest, "Amount must be positive"},
	{services.ErrAmountTooLarge, http.StatusBadRequest, "Amount too large"},
}

// httpError turns a service error into a *fiber.Error. Unknown errors pass
// through and end up as 500.
func httpError(err error) error {
	var verr *services.ValidationError
	if errors.As(err, &verr) {
		return fiber.NewError(http.StatusBadRequest, verr.Message)
	}
	for _, m := range errorStatus {
		if errors.Is(err, m.err) {
			return fiber.NewError(m.status, m.detail)
		}
	}
	return err
}

// ErrorHandler renders every error as {"detail": "..."}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	detail := "Internal Server Error"

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		detail = e.Message
	} else {
		utils.LogError(err, c.Method()+" "+c.Path())
	}
	return c.Status(code).JSON(models.ErrorResponse{Detail: detail})
}
