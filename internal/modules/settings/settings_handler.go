package settings

import (
	"net/http"

	"livraison-backend/internal/models"
	"livraison-backend/pkg/utils"

	"github.com/labstack/echo/v4"
)

// Handler exposes the admin settings endpoints.
type Handler struct {
	svc ServiceInterface
}

func NewHandler(svc ServiceInterface) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) GetSettings(c echo.Context) error {
	s := h.svc.Snapshot()
	return utils.RespondWithJSON(c, http.StatusOK, map[string]any{"settings": s})
}

func (h *Handler) UpdateSettings(c echo.Context) error {
	var req models.UpdateSettingsRequest
	if err := c.Bind(&req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := utils.GetValidator().Validate(req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, err.Error())
	}

	updated, err := h.svc.Update(c.Request().Context(), req)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, map[string]any{"settings": updated})
}
