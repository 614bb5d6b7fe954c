package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"livraison-backend/internal/metrics"
	"livraison-backend/internal/models"
	"livraison-backend/internal/storage"
	"livraison-backend/pkg/logger"
	"livraison-backend/pkg/notify"

	"github.com/google/uuid"
)

// WalletService is the slice of the wallet contract the lifecycle engine
// needs. Both methods join the engine's transaction, so an order's terminal
// transition and its wallet effect commit or roll back together.
type WalletService interface {
	CreditForOrderTx(ctx context.Context, tx storage.Tx, order *models.Order) (*models.WalletTransaction, error)
	DebitPenaltyTx(ctx context.Context, tx storage.Tx, orderID, livreurID string, amount int64) (*models.WalletTransaction, error)
}

// LifecyclePolicy is the slice of platform settings the engine reads.
type LifecyclePolicy interface {
	PricingPolicy
	CancelPenalty() int64
}

// ServiceInterface defines the order lifecycle contract.
type ServiceInterface interface {
	CreateOrder(ctx context.Context, clientID string, req models.CreateOrderRequest) (*models.Order, error)
	GetOrderDetails(ctx context.Context, orderID string, p models.Principal) (*models.Order, error)
	ListMyOrders(ctx context.Context, p models.Principal, page, limit int) ([]*models.Order, int, error)
	ListAllOrders(ctx context.Context, page, limit int) ([]*models.Order, int, error)
	ListAvailable(ctx context.Context, livreurID string, limit int) ([]*models.Order, error)

	Accept(ctx context.Context, orderID, livreurID string) (*models.Order, error)
	Reject(ctx context.Context, orderID, livreurID, note string) error
	MarkShopping(ctx context.Context, orderID, livreurID string) (*models.Order, error)
	MarkPickedUp(ctx context.Context, orderID, livreurID string) (*models.Order, error)
	MarkInTransit(ctx context.Context, orderID, livreurID string) (*models.Order, error)
	Deliver(ctx context.Context, orderID, livreurID string, req models.DeliverOrderRequest) (*models.Order, error)
	CancelByLivreur(ctx context.Context, orderID, livreurID string, req models.CancelOrderRequest) (*models.Order, error)
	CancelByClient(ctx context.Context, orderID, clientID string, req models.CancelOrderRequest) (*models.Order, error)
	CancelByAdmin(ctx context.Context, orderID, adminID string, req models.CancelOrderRequest) (*models.Order, error)

	Timeline(ctx context.Context, orderID string, p models.Principal) ([]models.TimelineEntry, error)
	PostChatMessage(ctx context.Context, orderID string, p models.Principal, text string) (*models.ChatMessage, error)
	ListChat(ctx context.Context, orderID string, p models.Principal) ([]models.ChatMessage, error)
}

// Service is the order lifecycle engine. All mutations run under an exclusive
// claim on the order row; the pricing snapshot is immutable history once the
// order exists.
type Service struct {
	repo     RepositoryInterface
	wallet   WalletService
	policy   LifecyclePolicy
	notifier notify.Sender
	log      logger.ILogger
}

func NewService(repo RepositoryInterface, wallet WalletService, policy LifecyclePolicy, notifier notify.Sender, log logger.ILogger) *Service {
	return &Service{repo: repo, wallet: wallet, policy: policy, notifier: notifier, log: log}
}

// CreateOrder prices the cart and persists the order. Pricing happens exactly
// once, here; lifecycle transitions never recompute it. The order enters the
// searching pool immediately: checkout implies the payment was accepted.
func (s *Service) CreateOrder(ctx context.Context, clientID string, req models.CreateOrderRequest) (*models.Order, error) {
	pricing, err := ComputePricing(req.Items, req.VehicleClass, s.policy)
	if err != nil {
		return nil, err
	}

	o := &models.Order{
		ID:              uuid.New().String(),
		ClientID:        clientID,
		Status:          models.OrderCreated,
		Items:           req.Items,
		Pricing:         pricing,
		PickupLocation:  req.PickupLocation,
		DropoffLocation: req.DropoffLocation,
		VehicleClass:    req.VehicleClass,
		ExpansionStage:  models.ExpansionRestricted,
	}

	err = storage.RunInTx(ctx, s.repo, func(tx storage.Tx) error {
		txRepo := s.repo.WithTx(tx)
		if err := txRepo.Create(ctx, o); err != nil {
			return err
		}
		if err := txRepo.AppendTimeline(ctx, &models.TimelineEntry{
			OrderID: o.ID, Status: models.OrderCreated, ActorID: clientID, ActorRole: models.RoleClient,
		}); err != nil {
			return err
		}
		if err := txRepo.UpdateStatus(ctx, o.ID, models.OrderCreated, models.OrderSearching); err != nil {
			return err
		}
		return txRepo.AppendTimeline(ctx, &models.TimelineEntry{
			OrderID: o.ID, Status: models.OrderSearching, ActorRole: models.RoleAdmin, Note: "Order entered the searching pool",
		})
	})
	if err != nil {
		return nil, fmt.Errorf("orders.CreateOrder: %w", err)
	}

	o.Status = models.OrderSearching
	metrics.OrderTransitions.WithLabelValues(string(models.OrderSearching)).Inc()
	return o, nil
}

func (s *Service) GetOrderDetails(ctx context.Context, orderID string, p models.Principal) (*models.Order, error) {
	o, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := authorizeRead(o, p); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *Service) ListMyOrders(ctx context.Context, p models.Principal, page, limit int) ([]*models.Order, int, error) {
	switch p.Role {
	case models.RoleLivreur:
		return s.repo.ListByLivreur(ctx, p.ID, page, limit)
	default:
		return s.repo.ListByClient(ctx, p.ID, page, limit)
	}
}

func (s *Service) ListAllOrders(ctx context.Context, page, limit int) ([]*models.Order, int, error) {
	return s.repo.ListAll(ctx, page, limit)
}

func (s *Service) ListAvailable(ctx context.Context, livreurID string, limit int) ([]*models.Order, error) {
	return s.repo.ListAvailableFor(ctx, livreurID, limit)
}

// Accept claims an unassigned order for a livreur. Of any number of
// concurrent claims, exactly one wins; the rest observe ErrConflict.
func (s *Service) Accept(ctx context.Context, orderID, livreurID string) (*models.Order, error) {
	if _, err := s.repo.FindByID(ctx, orderID); err != nil {
		return nil, err
	}

	err := storage.RunInTx(ctx, s.repo, func(tx storage.Tx) error {
		txRepo := s.repo.WithTx(tx)
		if err := txRepo.Claim(ctx, orderID, livreurID); err != nil {
			return err
		}
		return txRepo.AppendTimeline(ctx, &models.TimelineEntry{
			OrderID: orderID, Status: models.OrderAssigned, ActorID: livreurID, ActorRole: models.RoleLivreur,
		})
	})
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrConflict
		}
		return nil, fmt.Errorf("orders.Accept: %w", err)
	}

	o, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	metrics.OrderTransitions.WithLabelValues(string(models.OrderAssigned)).Inc()
	s.notifier.PushToUser(ctx, o.ClientID, "Livreur assigned", "A livreur accepted your order.")
	return o, nil
}

// Reject records that a livreur declined the order. The order stays in the
// pool; only the timeline is annotated.
func (s *Service) Reject(ctx context.Context, orderID, livreurID, note string) error {
	o, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return err
	}
	if o.Status != models.OrderSearching {
		return models.ErrInvalidState
	}
	return s.repo.AppendTimeline(ctx, &models.TimelineEntry{
		OrderID: orderID, Status: models.TimelineRejected, ActorID: livreurID, ActorRole: models.RoleLivreur, Note: note,
	})
}

func (s *Service) MarkShopping(ctx context.Context, orderID, livreurID string) (*models.Order, error) {
	return s.advance(ctx, orderID, livreurID, models.OrderShopping)
}

func (s *Service) MarkPickedUp(ctx context.Context, orderID, livreurID string) (*models.Order, error) {
	return s.advance(ctx, orderID, livreurID, models.OrderPickedUp)
}

func (s *Service) MarkInTransit(ctx context.Context, orderID, livreurID string) (*models.Order, error) {
	return s.advance(ctx, orderID, livreurID, models.OrderInTransit)
}

// advance moves the order one step along the courier path. Ownership is
// checked before any state validation.
func (s *Service) advance(ctx context.Context, orderID, livreurID string, to models.OrderStatus) (*models.Order, error) {
	var o *models.Order
	err := storage.RunInTx(ctx, s.repo, func(tx storage.Tx) error {
		txRepo := s.repo.WithTx(tx)
		var err error
		o, err = txRepo.LockByID(ctx, orderID)
		if err != nil {
			return err
		}
		if err := requireAssigned(o, livreurID); err != nil {
			return err
		}
		if !CanTransition(o.Status, to) {
			return models.ErrInvalidState
		}
		if err := txRepo.UpdateStatus(ctx, orderID, o.Status, to); err != nil {
			return err
		}
		return txRepo.AppendTimeline(ctx, &models.TimelineEntry{
			OrderID: orderID, Status: to, ActorID: livreurID, ActorRole: models.RoleLivreur,
		})
	})
	if err != nil {
		if isDomainError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("orders.advance to %s: %w", to, err)
	}

	o.Status = to
	metrics.OrderTransitions.WithLabelValues(string(to)).Inc()
	return o, nil
}

// Deliver completes the order. The status change, the timeline entry and the
// livreur's payout credit form one atomic unit: if the credit fails, the
// order does not become DELIVERED.
func (s *Service) Deliver(ctx context.Context, orderID, livreurID string, req models.DeliverOrderRequest) (*models.Order, error) {
	if len(req.PhotoURLs) == 0 {
		return nil, fmt.Errorf("%w: proof-of-delivery photos are required", models.ErrValidation)
	}

	var o *models.Order
	err := storage.RunInTx(ctx, s.repo, func(tx storage.Tx) error {
		txRepo := s.repo.WithTx(tx)
		var err error
		o, err = txRepo.LockByID(ctx, orderID)
		if err != nil {
			return err
		}
		if err := requireAssigned(o, livreurID); err != nil {
			return err
		}
		if !CanTransition(o.Status, models.OrderDelivered) {
			return models.ErrInvalidState
		}

		pod := &models.ProofOfDelivery{
			PhotoURLs: req.PhotoURLs,
			Signature: req.Signature,
			Notes:     req.Notes,
			OTP:       req.OTP,
			Timestamp: nowUTC(),
		}
		if err := txRepo.SetDelivered(ctx, orderID, pod); err != nil {
			return err
		}
		if err := txRepo.AppendTimeline(ctx, &models.TimelineEntry{
			OrderID: orderID, Status: models.OrderDelivered, ActorID: livreurID, ActorRole: models.RoleLivreur,
		}); err != nil {
			return err
		}
		if _, err := s.wallet.CreditForOrderTx(ctx, tx, o); err != nil {
			return err
		}
		o.ProofOfDelivery = pod
		return nil
	})
	if err != nil {
		if isDomainError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("orders.Deliver: %w", err)
	}

	o.Status = models.OrderDelivered
	metrics.OrderTransitions.WithLabelValues(string(models.OrderDelivered)).Inc()
	s.notifier.PushToUser(ctx, o.ClientID, "Order delivered", "Your order has been delivered.")
	return o, nil
}

// CancelByLivreur lets the assigned livreur walk away from an order. After
// pickup this carries a penalty, debited atomically with the cancellation.
func (s *Service) CancelByLivreur(ctx context.Context, orderID, livreurID string, req models.CancelOrderRequest) (*models.Order, error) {
	var o *models.Order
	err := storage.RunInTx(ctx, s.repo, func(tx storage.Tx) error {
		txRepo := s.repo.WithTx(tx)
		var err error
		o, err = txRepo.LockByID(ctx, orderID)
		if err != nil {
			return err
		}
		if err := requireAssigned(o, livreurID); err != nil {
			return err
		}
		if !CanTransition(o.Status, models.OrderCancelledByLivreur) {
			return models.ErrInvalidState
		}

		var penalty int64
		if penaltyApplies(o.Status) {
			penalty = s.policy.CancelPenalty()
		}
		cancellation := &models.Cancellation{
			Reason:      req.Reason,
			Details:     req.Details,
			Penalty:     penalty,
			CancelledBy: models.RoleLivreur,
			Timestamp:   nowUTC(),
		}
		if err := txRepo.SetCancelled(ctx, orderID, models.OrderCancelledByLivreur, cancellation, true); err != nil {
			return err
		}
		if err := txRepo.AppendTimeline(ctx, &models.TimelineEntry{
			OrderID: orderID, Status: models.OrderCancelledByLivreur, ActorID: livreurID, ActorRole: models.RoleLivreur, Note: req.Reason,
		}); err != nil {
			return err
		}
		if penalty > 0 {
			if _, err := s.wallet.DebitPenaltyTx(ctx, tx, orderID, livreurID, penalty); err != nil {
				return err
			}
		}
		o.Cancellation = cancellation
		return nil
	})
	if err != nil {
		if isDomainError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("orders.CancelByLivreur: %w", err)
	}

	o.Status = models.OrderCancelledByLivreur
	o.LivreurID = nil
	metrics.OrderTransitions.WithLabelValues(string(models.OrderCancelledByLivreur)).Inc()
	s.notifier.PushToUser(ctx, o.ClientID, "Order cancelled", "Your livreur had to cancel; we are finding a solution.")
	return o, nil
}

// CancelByClient cancels the order on behalf of its owner, allowed until the
// goods are picked up.
func (s *Service) CancelByClient(ctx context.Context, orderID, clientID string, req models.CancelOrderRequest) (*models.Order, error) {
	return s.cancelTerminal(ctx, orderID, clientID, models.RoleClient, models.OrderCancelledByClient, req)
}

// CancelByAdmin is the operational cancel, usable from any pre-delivery state.
func (s *Service) CancelByAdmin(ctx context.Context, orderID, adminID string, req models.CancelOrderRequest) (*models.Order, error) {
	return s.cancelTerminal(ctx, orderID, adminID, models.RoleAdmin, models.OrderCancelledByAdmin, req)
}

func (s *Service) cancelTerminal(ctx context.Context, orderID, actorID string, role models.Role, to models.OrderStatus, req models.CancelOrderRequest) (*models.Order, error) {
	var o *models.Order
	err := storage.RunInTx(ctx, s.repo, func(tx storage.Tx) error {
		txRepo := s.repo.WithTx(tx)
		var err error
		o, err = txRepo.LockByID(ctx, orderID)
		if err != nil {
			return err
		}
		if role == models.RoleClient && o.ClientID != actorID {
			return models.ErrForbidden
		}
		if !CanTransition(o.Status, to) {
			return models.ErrInvalidState
		}

		cancellation := &models.Cancellation{
			Reason:      req.Reason,
			Details:     req.Details,
			CancelledBy: role,
			Timestamp:   nowUTC(),
		}
		if err := txRepo.SetCancelled(ctx, orderID, to, cancellation, true); err != nil {
			return err
		}
		if err := txRepo.AppendTimeline(ctx, &models.TimelineEntry{
			OrderID: orderID, Status: to, ActorID: actorID, ActorRole: role, Note: req.Reason,
		}); err != nil {
			return err
		}
		o.Cancellation = cancellation
		return nil
	})
	if err != nil {
		if isDomainError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("orders.cancel: %w", err)
	}

	o.Status = to
	o.LivreurID = nil
	metrics.OrderTransitions.WithLabelValues(string(to)).Inc()
	return o, nil
}

func (s *Service) Timeline(ctx context.Context, orderID string, p models.Principal) ([]models.TimelineEntry, error) {
	o, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := authorizeRead(o, p); err != nil {
		return nil, err
	}
	return s.repo.ListTimeline(ctx, orderID)
}

func (s *Service) PostChatMessage(ctx context.Context, orderID string, p models.Principal, text string) (*models.ChatMessage, error) {
	o, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := authorizeRead(o, p); err != nil {
		return nil, err
	}
	m := &models.ChatMessage{OrderID: orderID, SenderID: p.ID, Sender: p.Role, Text: text}
	if err := s.repo.AppendChatMessage(ctx, m); err != nil {
		return nil, fmt.Errorf("orders.PostChatMessage: %w", err)
	}
	return m, nil
}

func (s *Service) ListChat(ctx context.Context, orderID string, p models.Principal) ([]models.ChatMessage, error) {
	o, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := authorizeRead(o, p); err != nil {
		return nil, err
	}
	return s.repo.ListChatMessages(ctx, orderID)
}

// requireAssigned enforces livreur ownership before any state validation.
func requireAssigned(o *models.Order, livreurID string) error {
	if o.LivreurID == nil || *o.LivreurID != livreurID {
		return models.ErrForbidden
	}
	return nil
}

// authorizeRead allows the owning client, the assigned livreur and admins.
func authorizeRead(o *models.Order, p models.Principal) error {
	switch p.Role {
	case models.RoleAdmin:
		return nil
	case models.RoleClient:
		if o.ClientID == p.ID {
			return nil
		}
	case models.RoleLivreur:
		if o.LivreurID != nil && *o.LivreurID == p.ID {
			return nil
		}
	}
	return models.ErrForbidden
}

func nowUTC() time.Time {
	return time.Now().UTC()
}

func isDomainError(err error) bool {
	return errors.Is(err, models.ErrNotFound) ||
		errors.Is(err, models.ErrForbidden) ||
		errors.Is(err, models.ErrConflict) ||
		errors.Is(err, models.ErrInvalidState) ||
		errors.Is(err, models.ErrValidation) ||
		errors.Is(err, models.ErrAlreadyProcessed)
}
