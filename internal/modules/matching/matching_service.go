package matching

import (
	"context"
	"errors"
	"time"

	"livraison-backend/internal/metrics"
	"livraison-backend/internal/models"
	"livraison-backend/pkg/logger"
)

// OrderStore is the slice of the order repository the expansion job drives.
type OrderStore interface {
	ListAwaitingExpansion(ctx context.Context, stage int, olderThan time.Time) ([]*models.Order, error)
	SetExpansion(ctx context.Context, orderID string, stage int, eligible []string) error
	AppendTimeline(ctx context.Context, entry *models.TimelineEntry) error
	ListBusyLivreurs(ctx context.Context) ([]string, error)
}

// LivreurLocator finds online livreurs near a point, nearest first.
type LivreurLocator interface {
	Nearest(ctx context.Context, p models.Location, count int) ([]string, error)
}

// ExpansionPolicy is the slice of platform settings the job reads each tick.
type ExpansionPolicy interface {
	ExpansionStage1() time.Duration
	ExpansionStage2() time.Duration
	NearestCount() int
}

// Service widens order visibility over time. Orders start restricted, become
// visible to the nearest free livreurs after the first boundary, and fully
// public after the second. Each boundary is crossed at most once per order.
type Service struct {
	orders  OrderStore
	locator LivreurLocator
	policy  ExpansionPolicy
	log     logger.ILogger
	clock   func() time.Time
}

func NewService(orders OrderStore, locator LivreurLocator, policy ExpansionPolicy, log logger.ILogger) *Service {
	return &Service{
		orders:  orders,
		locator: locator,
		policy:  policy,
		log:     log,
		clock:   time.Now,
	}
}

// RunScheduler drives the expansion job until the context is cancelled.
func (s *Service) RunScheduler(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single expansion sweep. A failing order is logged and
// skipped; it will be retried on the next tick because its stage is unchanged.
func (s *Service) RunOnce(ctx context.Context) {
	now := s.clock()

	if err := s.expandToNearest(ctx, now.Add(-s.policy.ExpansionStage1())); err != nil {
		s.log.Error("expansion stage 1 sweep failed", logger.Error(err))
	}
	if err := s.expandToPublic(ctx, now.Add(-s.policy.ExpansionStage2())); err != nil {
		s.log.Error("expansion stage 2 sweep failed", logger.Error(err))
	}
}

func (s *Service) expandToNearest(ctx context.Context, cutoff time.Time) error {
	due, err := s.orders.ListAwaitingExpansion(ctx, models.ExpansionRestricted, cutoff)
	if err != nil {
		return err
	}
	if len(due) == 0 {
		return nil
	}

	busy, err := s.orders.ListBusyLivreurs(ctx)
	if err != nil {
		return err
	}
	busySet := make(map[string]struct{}, len(busy))
	for _, id := range busy {
		busySet[id] = struct{}{}
	}

	for _, o := range due {
		eligible, err := s.nearestFree(ctx, o.PickupLocation, busySet)
		if err != nil {
			s.log.Error("nearest livreur lookup failed",
				logger.String("order_id", o.ID), logger.Error(err))
			continue
		}
		s.applyStage(ctx, o, models.ExpansionNearest, eligible,
			"Order offered to the nearest livreurs")
	}
	return nil
}

func (s *Service) expandToPublic(ctx context.Context, cutoff time.Time) error {
	due, err := s.orders.ListAwaitingExpansion(ctx, models.ExpansionNearest, cutoff)
	if err != nil {
		return err
	}
	for _, o := range due {
		s.applyStage(ctx, o, models.ExpansionPublic, nil,
			"Order opened to all livreurs")
	}
	return nil
}

// applyStage advances one order one stage. ErrConflict means another sweep
// already moved it, which is not a failure.
func (s *Service) applyStage(ctx context.Context, o *models.Order, stage int, eligible []string, note string) {
	if err := s.orders.SetExpansion(ctx, o.ID, stage, eligible); err != nil {
		if errors.Is(err, models.ErrConflict) {
			return
		}
		s.log.Error("expansion stage update failed",
			logger.String("order_id", o.ID), logger.Int("stage", stage), logger.Error(err))
		return
	}
	if err := s.orders.AppendTimeline(ctx, &models.TimelineEntry{
		OrderID:   o.ID,
		Status:    models.OrderSearching,
		ActorRole: models.RoleAdmin,
		Note:      note,
	}); err != nil {
		s.log.Warning("expansion timeline append failed",
			logger.String("order_id", o.ID), logger.Error(err))
	}
	metrics.ExpansionTransitions.WithLabelValues(stageLabel(stage)).Inc()
}

// nearestFree filters the distance-sorted candidates down to livreurs with no
// active order, preserving order.
func (s *Service) nearestFree(ctx context.Context, pickup models.Location, busy map[string]struct{}) ([]string, error) {
	count := s.policy.NearestCount()
	candidates, err := s.locator.Nearest(ctx, pickup, count*2)
	if err != nil {
		return nil, err
	}

	eligible := make([]string, 0, count)
	for _, id := range candidates {
		if _, isBusy := busy[id]; isBusy {
			continue
		}
		eligible = append(eligible, id)
		if len(eligible) == count {
			break
		}
	}
	return eligible, nil
}

func stageLabel(stage int) string {
	switch stage {
	case models.ExpansionNearest:
		return "nearest"
	case models.ExpansionPublic:
		return "public"
	default:
		return "restricted"
	}
}
