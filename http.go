package users

import (
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
)

// HTTPStatusFromError maps the error taxonomy onto response codes. The
// boundary owns the translation; the core only returns typed results.
func HTTPStatusFromError(err error) int {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		return fiber.StatusInternalServerError
	}

	switch richErr.Category {
	case errors.CategoryBadInput:
		return fiber.StatusBadRequest
	case errors.CategoryAuth, errors.CategoryAuthz:
		return fiber.StatusUnauthorized
	case errors.CategoryNotFound:
		return fiber.StatusNotFound
	case errors.CategoryConflict:
		return fiber.StatusConflict
	case errors.CategoryValidation:
		return fiber.StatusUnprocessableEntity
	default:
		return fiber.StatusInternalServerError
	}
}

type errorBody struct {
	Message  string `json:"message"`
	TextCode string `json:"text_code,omitempty"`
}

// WriteError renders a typed error as a JSON response. Authentication
// rejections collapse into one opaque body so callers can not tell an
// unknown account from a wrong password.
func WriteError(c *fiber.Ctx, logger Logger, err error) error {
	if logger == nil {
		logger = defLogger{}
	}

	status := HTTPStatusFromError(err)

	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred")
	}

	logger.Debug(
		"request error",
		"status", status,
		"category", richErr.Category,
		"text_code", richErr.TextCode,
		"details", print.MaybePrettyJSON(richErr.Metadata),
	)

	body := errorBody{
		Message:  richErr.Message,
		TextCode: richErr.TextCode,
	}

	if status == fiber.StatusUnauthorized {
		body = errorBody{Message: "Unauthorized"}
	}

	if status == fiber.StatusInternalServerError {
		// internal messages stay internal
		body = errorBody{Message: "Internal Server Error"}
		logger.Error("internal error", "error", richErr.Error())
	}

	return c.Status(status).JSON(fiber.Map{"error": body})
}

// NewAppErrorHandler builds the app-level fiber error handler.
func NewAppErrorHandler(logger Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return c.Status(fiberErr.Code).JSON(fiber.Map{
				"error": errorBody{Message: fiberErr.Message},
			})
		}

		return WriteError(c, logger, err)
	}
}
