package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/codebuildervaibhav/news-shorts/internal/errors"
)

func errorJSON(c *fiber.Ctx, status int, message, code string) error {
	return c.Status(status).JSON(fiber.Map{
		"error": message,
		"code":  code,
	})
}

// appErrorJSON maps an AppError type to an HTTP status
func appErrorJSON(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch apperrors.TypeOf(err) {
	case apperrors.ErrorTypeValidation:
		status = fiber.StatusBadRequest
	case apperrors.ErrorTypeNotFound:
		status = fiber.StatusNotFound
	case apperrors.ErrorTypeConflict:
		status = fiber.StatusConflict
	case apperrors.ErrorTypeUnavailable:
		status = fiber.StatusServiceUnavailable
	}

	code := "ERR_INTERNAL"
	if t := apperrors.TypeOf(err); t != "" {
		code = "ERR_" + strings.ToUpper(string(t))
	}
	return errorJSON(c, status, err.Error(), code)
}
