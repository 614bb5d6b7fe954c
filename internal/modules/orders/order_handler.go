package orders

import (
	"context"
	"net/http"

	"livraison-backend/internal/models"
	"livraison-backend/pkg/utils"

	"github.com/labstack/echo/v4"
)

// Handler handles HTTP requests for the order lifecycle.
type Handler struct {
	svc ServiceInterface
}

func NewHandler(svc ServiceInterface) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) CreateOrder(c echo.Context) error {
	p, err := utils.ExtractPrincipal(c)
	if err != nil {
		return err
	}

	var req models.CreateOrderRequest
	if err := c.Bind(&req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := utils.GetValidator().Validate(req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, err.Error())
	}

	o, err := h.svc.CreateOrder(c.Request().Context(), p.ID, req)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusCreated, map[string]any{"order": o})
}

func (h *Handler) GetOrder(c echo.Context) error {
	p, err := utils.ExtractPrincipal(c)
	if err != nil {
		return err
	}

	o, err := h.svc.GetOrderDetails(c.Request().Context(), c.Param("orderId"), p)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, map[string]any{"order": o})
}

func (h *Handler) ListMyOrders(c echo.Context) error {
	p, err := utils.ExtractPrincipal(c)
	if err != nil {
		return err
	}

	page, limit := utils.GetPageLimit(c)
	orders, total, err := h.svc.ListMyOrders(c.Request().Context(), p, page, limit)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, map[string]any{"orders": orders, "total": total})
}

// ListAllOrders is the admin view over every order.
func (h *Handler) ListAllOrders(c echo.Context) error {
	page, limit := utils.GetPageLimit(c)
	orders, total, err := h.svc.ListAllOrders(c.Request().Context(), page, limit)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, map[string]any{"orders": orders, "total": total})
}

// ListAvailable returns the searching pool visible to the calling livreur.
func (h *Handler) ListAvailable(c echo.Context) error {
	p, err := utils.ExtractPrincipal(c)
	if err != nil {
		return err
	}

	_, limit := utils.GetPageLimit(c)
	orders, err := h.svc.ListAvailable(c.Request().Context(), p.ID, limit)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, map[string]any{"orders": orders})
}

func (h *Handler) Accept(c echo.Context) error {
	p, err := utils.ExtractPrincipal(c)
	if err != nil {
		return err
	}

	o, err := h.svc.Accept(c.Request().Context(), c.Param("orderId"), p.ID)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, map[string]any{"order": o})
}

func (h *Handler) Reject(c echo.Context) error {
	p, err := utils.ExtractPrincipal(c)
	if err != nil {
		return err
	}

	var req struct {
		Note string `json:"note"`
	}
	if err := c.Bind(&req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
	}

	if err := h.svc.Reject(c.Request().Context(), c.Param("orderId"), p.ID, req.Note); err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithMessage(c, http.StatusOK, "Order rejected")
}

func (h *Handler) MarkShopping(c echo.Context) error {
	return h.advance(c, h.svc.MarkShopping)
}

func (h *Handler) MarkPickedUp(c echo.Context) error {
	return h.advance(c, h.svc.MarkPickedUp)
}

func (h *Handler) MarkInTransit(c echo.Context) error {
	return h.advance(c, h.svc.MarkInTransit)
}

func (h *Handler) advance(c echo.Context, fn func(ctx context.Context, orderID, livreurID string) (*models.Order, error)) error {
	p, err := utils.ExtractPrincipal(c)
	if err != nil {
		return err
	}

	o, err := fn(c.Request().Context(), c.Param("orderId"), p.ID)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, map[string]any{"order": o})
}

func (h *Handler) Deliver(c echo.Context) error {
	p, err := utils.ExtractPrincipal(c)
	if err != nil {
		return err
	}

	var req models.DeliverOrderRequest
	if err := c.Bind(&req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := utils.GetValidator().Validate(req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, err.Error())
	}

	o, err := h.svc.Deliver(c.Request().Context(), c.Param("orderId"), p.ID, req)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, map[string]any{"order": o})
}

// Cancel routes the cancellation to the variant matching the caller's role.
func (h *Handler) Cancel(c echo.Context) error {
	p, err := utils.ExtractPrincipal(c)
	if err != nil {
		return err
	}

	var req models.CancelOrderRequest
	if err := c.Bind(&req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := utils.GetValidator().Validate(req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	orderID := c.Param("orderId")

	var o *models.Order
	switch p.Role {
	case models.RoleLivreur:
		o, err = h.svc.CancelByLivreur(ctx, orderID, p.ID, req)
	case models.RoleAdmin:
		o, err = h.svc.CancelByAdmin(ctx, orderID, p.ID, req)
	default:
		o, err = h.svc.CancelByClient(ctx, orderID, p.ID, req)
	}
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, map[string]any{"order": o})
}

func (h *Handler) GetTimeline(c echo.Context) error {
	p, err := utils.ExtractPrincipal(c)
	if err != nil {
		return err
	}

	entries, err := h.svc.Timeline(c.Request().Context(), c.Param("orderId"), p)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, map[string]any{"timeline": entries})
}

func (h *Handler) PostChatMessage(c echo.Context) error {
	p, err := utils.ExtractPrincipal(c)
	if err != nil {
		return err
	}

	var req models.ChatMessageRequest
	if err := c.Bind(&req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := utils.GetValidator().Validate(req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, err.Error())
	}

	m, err := h.svc.PostChatMessage(c.Request().Context(), c.Param("orderId"), p, req.Text)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusCreated, map[string]any{"message": m})
}

func (h *Handler) ListChatMessages(c echo.Context) error {
	p, err := utils.ExtractPrincipal(c)
	if err != nil {
		return err
	}

	msgs, err := h.svc.ListChat(c.Request().Context(), c.Param("orderId"), p)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, map[string]any{"messages": msgs})
}
