package support

import (
	"net/http"

	"livraison-backend/internal/models"
	"livraison-backend/pkg/utils"

	"github.com/labstack/echo/v4"
)

// Handler handles HTTP requests for support tickets.
type Handler struct {
	svc ServiceInterface
}

func NewHandler(svc ServiceInterface) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) CreateComplaint(c echo.Context) error {
	p, err := utils.ExtractPrincipal(c)
	if err != nil {
		return err
	}

	var req models.CreateComplaintRequest
	if err := c.Bind(&req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := utils.GetValidator().Validate(req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, err.Error())
	}

	complaint, err := h.svc.Create(c.Request().Context(), p, req)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusCreated, map[string]any{"complaint": complaint})
}

func (h *Handler) GetComplaint(c echo.Context) error {
	p, err := utils.ExtractPrincipal(c)
	if err != nil {
		return err
	}

	complaint, msgs, err := h.svc.GetDetails(c.Request().Context(), c.Param("complaintId"), p)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, map[string]any{"complaint": complaint, "messages": msgs})
}

func (h *Handler) ListMyComplaints(c echo.Context) error {
	p, err := utils.ExtractPrincipal(c)
	if err != nil {
		return err
	}

	page, limit := utils.GetPageLimit(c)
	complaints, total, err := h.svc.ListMine(c.Request().Context(), p.ID, page, limit)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, map[string]any{"complaints": complaints, "total": total})
}

// ListAllComplaints is the admin queue, optionally filtered by status.
func (h *Handler) ListAllComplaints(c echo.Context) error {
	status := models.ComplaintStatus(c.QueryParam("status"))
	page, limit := utils.GetPageLimit(c)
	complaints, total, err := h.svc.ListAll(c.Request().Context(), status, page, limit)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, map[string]any{"complaints": complaints, "total": total})
}

func (h *Handler) UpdateComplaintStatus(c echo.Context) error {
	var req models.UpdateComplaintStatusRequest
	if err := c.Bind(&req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := utils.GetValidator().Validate(req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, err.Error())
	}

	complaint, err := h.svc.UpdateStatus(c.Request().Context(), c.Param("complaintId"), req.Status)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, map[string]any{"complaint": complaint})
}

func (h *Handler) AppendComplaintMessage(c echo.Context) error {
	p, err := utils.ExtractPrincipal(c)
	if err != nil {
		return err
	}

	var req models.ComplaintMessageRequest
	if err := c.Bind(&req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := utils.GetValidator().Validate(req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, err.Error())
	}

	msg, err := h.svc.AppendMessage(c.Request().Context(), c.Param("complaintId"), p, req.Text)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusCreated, map[string]any{"message": msg})
}
