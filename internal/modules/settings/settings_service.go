package settings

import (
	"context"
	"fmt"
	"sync"
	"time"

	"livraison-backend/internal/models"
	"livraison-backend/pkg/logger"
)

// ServiceInterface exposes the platform settings to the rest of the system
// through typed accessors. The snapshot is read-mostly: it is loaded once at
// startup and replaced wholesale on admin updates.
type ServiceInterface interface {
	Init(ctx context.Context) error
	Snapshot() models.PlatformSettings
	Update(ctx context.Context, req models.UpdateSettingsRequest) (*models.PlatformSettings, error)

	MarginRate() float64
	TaxRate() float64
	RateFor(class models.VehicleClass) (models.VehicleRate, bool)
	CancelPenalty() int64
	MinimumPayout() int64
	ExpansionStage1() time.Duration
	ExpansionStage2() time.Duration
	NearestCount() int
}

type Service struct {
	repo RepositoryInterface
	log  logger.ILogger

	mu      sync.RWMutex
	current models.PlatformSettings
}

func NewService(repo RepositoryInterface, log logger.ILogger) *Service {
	return &Service{repo: repo, log: log}
}

// Init seeds defaults if needed and loads the settings row. The process must
// not serve traffic without a valid settings snapshot.
func (s *Service) Init(ctx context.Context) error {
	if err := s.repo.EnsureDefaults(ctx); err != nil {
		return fmt.Errorf("settings.Init: %w", err)
	}
	loaded, err := s.repo.Load(ctx)
	if err != nil {
		return fmt.Errorf("settings.Init: %w", err)
	}
	s.mu.Lock()
	s.current = *loaded
	s.mu.Unlock()
	s.log.Info("platform settings loaded",
		logger.Float64("margin_rate", loaded.MarginRate),
		logger.Int64("minimum_payout", loaded.MinimumPayout),
	)
	return nil
}

func (s *Service) Snapshot() models.PlatformSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Update applies the non-nil fields, persists and refreshes the snapshot.
func (s *Service) Update(ctx context.Context, req models.UpdateSettingsRequest) (*models.PlatformSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.current
	if req.MarginRate != nil {
		next.MarginRate = *req.MarginRate
	}
	if req.TaxRate != nil {
		next.TaxRate = *req.TaxRate
	}
	if len(req.VehicleRates) > 0 {
		merged := make(map[models.VehicleClass]models.VehicleRate, len(next.VehicleRates))
		for k, v := range next.VehicleRates {
			merged[k] = v
		}
		for k, v := range req.VehicleRates {
			merged[k] = v
		}
		next.VehicleRates = merged
	}
	if req.CancelPenalty != nil {
		next.CancelPenalty = *req.CancelPenalty
	}
	if req.MinimumPayout != nil {
		next.MinimumPayout = *req.MinimumPayout
	}
	if req.RatingThreshold != nil {
		next.RatingThreshold = *req.RatingThreshold
	}
	if req.ExpansionStage1Minutes != nil {
		next.ExpansionStage1 = time.Duration(*req.ExpansionStage1Minutes) * time.Minute
	}
	if req.ExpansionStage2Minutes != nil {
		next.ExpansionStage2 = time.Duration(*req.ExpansionStage2Minutes) * time.Minute
	}
	if req.NearestCount != nil {
		next.NearestCount = *req.NearestCount
	}

	if next.ExpansionStage2 <= next.ExpansionStage1 {
		return nil, fmt.Errorf("%w: stage 2 delay must exceed stage 1", models.ErrValidation)
	}

	if err := s.repo.Save(ctx, &next); err != nil {
		return nil, fmt.Errorf("settings.Update: %w", err)
	}
	next.UpdatedAt = time.Now()
	s.current = next
	return &next, nil
}

func (s *Service) MarginRate() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.MarginRate
}

func (s *Service) TaxRate() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.TaxRate
}

func (s *Service) RateFor(class models.VehicleClass) (models.VehicleRate, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rate, ok := s.current.VehicleRates[class]
	return rate, ok
}

func (s *Service) CancelPenalty() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.CancelPenalty
}

func (s *Service) MinimumPayout() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.MinimumPayout
}

func (s *Service) ExpansionStage1() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.ExpansionStage1
}

func (s *Service) ExpansionStage2() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.ExpansionStage2
}

func (s *Service) NearestCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.NearestCount
}
