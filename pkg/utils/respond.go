package utils

import (
	"errors"
	"net/http"

	"livraison-backend/internal/models"

	"github.com/labstack/echo/v4"
)

// RespondWithJSON writes the standard success envelope, merging the payload
// keys next to "success". Handlers pass named keys ("order", "wallet", ...).
func RespondWithJSON(c echo.Context, status int, payload map[string]any) error {
	body := make(map[string]any, len(payload)+1)
	for k, v := range payload {
		body[k] = v
	}
	body["success"] = true
	return c.JSON(status, body)
}

// RespondWithMessage writes a success envelope with only a message.
func RespondWithMessage(c echo.Context, status int, message string) error {
	return c.JSON(status, map[string]any{"success": true, "message": message})
}

// RespondWithError writes the error envelope.
func RespondWithError(c echo.Context, status int, message string) error {
	return c.JSON(status, models.ErrorResponse{Success: false, Message: message})
}

// HandleServiceError translates a domain error into an HTTP response.
// Unexpected errors are logged server-side and surface as a generic 500;
// raw internal detail is never sent to clients.
func HandleServiceError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return RespondWithError(c, http.StatusNotFound, "Resource not found")
	case errors.Is(err, models.ErrForbidden), errors.Is(err, models.ErrSuspended):
		return RespondWithError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, models.ErrConflict):
		return RespondWithError(c, http.StatusConflict, err.Error())
	case errors.Is(err, models.ErrInvalidState),
		errors.Is(err, models.ErrAlreadyProcessed),
		errors.Is(err, models.ErrInsufficientFunds),
		errors.Is(err, models.ErrBelowMinimum),
		errors.Is(err, models.ErrValidation),
		errors.Is(err, models.ErrInvalidOTP):
		return RespondWithError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrInvalidCredentials):
		return RespondWithError(c, http.StatusUnauthorized, err.Error())
	default:
		c.Logger().Error("unhandled service error: ", err)
		return RespondWithError(c, http.StatusInternalServerError, "Something went wrong")
	}
}
