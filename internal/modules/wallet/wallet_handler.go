package wallet

import (
	"net/http"

	"livraison-backend/internal/models"
	"livraison-backend/pkg/utils"

	"github.com/labstack/echo/v4"
)

// Handler handles HTTP requests for the livreur wallet and admin ledger actions.
type Handler struct {
	svc ServiceInterface
}

func NewHandler(svc ServiceInterface) *Handler {
	return &Handler{svc: svc}
}

// GetMyWallet returns the caller's wallet, creating it on first access.
func (h *Handler) GetMyWallet(c echo.Context) error {
	p, err := utils.ExtractPrincipal(c)
	if err != nil {
		return err
	}

	w, err := h.svc.GetOrCreateWallet(c.Request().Context(), p.ID)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, map[string]any{"wallet": w})
}

func (h *Handler) ListMyTransactions(c echo.Context) error {
	p, err := utils.ExtractPrincipal(c)
	if err != nil {
		return err
	}

	page, limit := utils.GetPageLimit(c)
	txs, total, err := h.svc.ListTransactions(c.Request().Context(), p.ID, page, limit)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, map[string]any{"transactions": txs, "total": total})
}

func (h *Handler) Withdraw(c echo.Context) error {
	p, err := utils.ExtractPrincipal(c)
	if err != nil {
		return err
	}

	var req models.WithdrawRequest
	if err := c.Bind(&req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := utils.GetValidator().Validate(req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, err.Error())
	}

	t, err := h.svc.RequestWithdrawal(c.Request().Context(), p.ID, req.Amount)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, map[string]any{"transaction": t})
}

func (h *Handler) TopUp(c echo.Context) error {
	p, err := utils.ExtractPrincipal(c)
	if err != nil {
		return err
	}

	var req models.TopUpRequest
	if err := c.Bind(&req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := utils.GetValidator().Validate(req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, err.Error())
	}

	t, err := h.svc.TopUp(c.Request().Context(), p.ID, req.Amount, req.Description)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, map[string]any{"transaction": t})
}

// AdminAdjust is the manual ledger correction, admin only.
func (h *Handler) AdminAdjust(c echo.Context) error {
	p, err := utils.ExtractPrincipal(c)
	if err != nil {
		return err
	}

	livreurID := c.Param("livreurId")
	if livreurID == "" {
		return utils.RespondWithError(c, http.StatusBadRequest, "Missing livreur ID")
	}

	var req models.AdjustBalanceRequest
	if err := c.Bind(&req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := utils.GetValidator().Validate(req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, err.Error())
	}

	t, err := h.svc.AdjustBalance(c.Request().Context(), livreurID, req.Amount, req.Description, p.ID)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, map[string]any{"transaction": t})
}

// AdminReversePayout undoes a delivered order's payout.
func (h *Handler) AdminReversePayout(c echo.Context) error {
	orderID := c.Param("orderId")
	if orderID == "" {
		return utils.RespondWithError(c, http.StatusBadRequest, "Missing order ID")
	}

	t, err := h.svc.ReversePayout(c.Request().Context(), orderID)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, map[string]any{"transaction": t})
}
