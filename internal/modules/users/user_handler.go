package users

import (
	"net/http"

	"livraison-backend/internal/models"
	"livraison-backend/pkg/utils"

	"github.com/labstack/echo/v4"
)

// Handler handles HTTP requests for accounts and authentication.
type Handler struct {
	svc ServiceInterface
}

func NewHandler(svc ServiceInterface) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RequestOTP(c echo.Context) error {
	var req models.RequestOTPRequest
	if err := c.Bind(&req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := utils.GetValidator().Validate(req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, err.Error())
	}

	if err := h.svc.RequestOTP(c.Request().Context(), req); err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithMessage(c, http.StatusOK, "Verification code sent")
}

func (h *Handler) VerifyOTP(c echo.Context) error {
	var req models.VerifyOTPRequest
	if err := c.Bind(&req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := utils.GetValidator().Validate(req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, err.Error())
	}

	auth, err := h.svc.VerifyOTP(c.Request().Context(), req)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, map[string]any{"auth": auth})
}

func (h *Handler) AdminLogin(c echo.Context) error {
	var req models.AdminLoginRequest
	if err := c.Bind(&req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := utils.GetValidator().Validate(req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, err.Error())
	}

	auth, err := h.svc.AdminLogin(c.Request().Context(), req)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, map[string]any{"auth": auth})
}

func (h *Handler) GetMyProfile(c echo.Context) error {
	p, err := utils.ExtractPrincipal(c)
	if err != nil {
		return err
	}

	user, err := h.svc.GetUserProfile(c.Request().Context(), p.ID)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, map[string]any{"user": user})
}

func (h *Handler) UpdateMyProfile(c echo.Context) error {
	p, err := utils.ExtractPrincipal(c)
	if err != nil {
		return err
	}

	var data models.UserUpdateData
	if err := c.Bind(&data); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := utils.GetValidator().Validate(data); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, err.Error())
	}

	user, err := h.svc.UpdateUserProfile(c.Request().Context(), p.ID, data)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, map[string]any{"user": user})
}

// SetPresence toggles the calling livreur's availability.
func (h *Handler) SetPresence(c echo.Context) error {
	p, err := utils.ExtractPrincipal(c)
	if err != nil {
		return err
	}

	var req models.PresenceRequest
	if err := c.Bind(&req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
	}

	if err := h.svc.SetPresence(c.Request().Context(), p.ID, req.Online); err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithMessage(c, http.StatusOK, "Presence updated")
}

// ReportLocation ingests the calling livreur's position.
func (h *Handler) ReportLocation(c echo.Context) error {
	p, err := utils.ExtractPrincipal(c)
	if err != nil {
		return err
	}

	var req models.LocationReport
	if err := c.Bind(&req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := utils.GetValidator().Validate(req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, err.Error())
	}

	if err := h.svc.ReportLocation(c.Request().Context(), p.ID, req.Latitude, req.Longitude); err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithMessage(c, http.StatusOK, "Location recorded")
}

// ListUsers is the admin account listing, filtered by role.
func (h *Handler) ListUsers(c echo.Context) error {
	role := models.Role(c.QueryParam("role"))
	switch role {
	case models.RoleClient, models.RoleLivreur:
	default:
		return utils.RespondWithError(c, http.StatusBadRequest, "Role must be client or livreur")
	}

	page, limit := utils.GetPageLimit(c)
	users, total, err := h.svc.ListUsers(c.Request().Context(), role, page, limit)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, map[string]any{"users": users, "total": total})
}

// SetAccountStatus is the admin suspend/activate action.
func (h *Handler) SetAccountStatus(c echo.Context) error {
	userID := c.Param("userId")
	if userID == "" {
		return utils.RespondWithError(c, http.StatusBadRequest, "Missing user ID")
	}

	var req models.SetAccountStatusRequest
	if err := c.Bind(&req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := utils.GetValidator().Validate(req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, err.Error())
	}

	if err := h.svc.SetAccountStatus(c.Request().Context(), userID, req.Status); err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithMessage(c, http.StatusOK, "Account status updated")
}
