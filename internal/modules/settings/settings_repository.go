package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"livraison-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryInterface persists the platform settings singleton.
type RepositoryInterface interface {
	// EnsureDefaults inserts the default settings row if none exists.
	EnsureDefaults(ctx context.Context) error
	Load(ctx context.Context) (*models.PlatformSettings, error)
	Save(ctx context.Context, s *models.PlatformSettings) error
}

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) RepositoryInterface {
	return &Repository{db: db}
}

// Defaults returns the settings a fresh installation starts with.
func Defaults() models.PlatformSettings {
	return models.PlatformSettings{
		ID:         1,
		MarginRate: 0.10,
		TaxRate:    0.20,
		VehicleRates: map[models.VehicleClass]models.VehicleRate{
			models.VehicleBike: {BaseFee: 1000, FeePerKg: 300},
			models.VehicleMoto: {BaseFee: 1500, FeePerKg: 500},
			models.VehicleCar:  {BaseFee: 2500, FeePerKg: 400},
			models.VehicleVan:  {BaseFee: 4000, FeePerKg: 350},
		},
		CancelPenalty:   1000,
		MinimumPayout:   5000,
		RatingThreshold: 3.5,
		ExpansionStage1: 2 * time.Minute,
		ExpansionStage2: 10 * time.Minute,
		NearestCount:    5,
	}
}

func (r *Repository) EnsureDefaults(ctx context.Context) error {
	d := Defaults()
	rates, err := json.Marshal(d.VehicleRates)
	if err != nil {
		return fmt.Errorf("repository.EnsureDefaults: %w", err)
	}
	query := `
		INSERT INTO platform_settings
			(id, margin_rate, tax_rate, vehicle_rates, cancel_penalty, minimum_payout,
			 rating_threshold, expansion_stage1_minutes, expansion_stage2_minutes, nearest_count)
		VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING`
	_, err = r.db.Exec(ctx, query,
		d.MarginRate, d.TaxRate, rates, d.CancelPenalty, d.MinimumPayout,
		d.RatingThreshold, int(d.ExpansionStage1.Minutes()), int(d.ExpansionStage2.Minutes()), d.NearestCount,
	)
	if err != nil {
		return fmt.Errorf("repository.EnsureDefaults: %w", err)
	}
	return nil
}

func (r *Repository) Load(ctx context.Context) (*models.PlatformSettings, error) {
	query := `
		SELECT id, margin_rate, tax_rate, vehicle_rates, cancel_penalty, minimum_payout,
		       rating_threshold, expansion_stage1_minutes, expansion_stage2_minutes, nearest_count, updated_at
		FROM platform_settings
		WHERE id = 1`

	s := &models.PlatformSettings{}
	var rates []byte
	var stage1, stage2 int
	err := r.db.QueryRow(ctx, query).Scan(
		&s.ID, &s.MarginRate, &s.TaxRate, &rates, &s.CancelPenalty, &s.MinimumPayout,
		&s.RatingThreshold, &stage1, &stage2, &s.NearestCount, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("repository.Load: %w", err)
	}
	if err := json.Unmarshal(rates, &s.VehicleRates); err != nil {
		return nil, fmt.Errorf("repository.Load: vehicle rates: %w", err)
	}
	s.ExpansionStage1 = time.Duration(stage1) * time.Minute
	s.ExpansionStage2 = time.Duration(stage2) * time.Minute
	return s, nil
}

func (r *Repository) Save(ctx context.Context, s *models.PlatformSettings) error {
	rates, err := json.Marshal(s.VehicleRates)
	if err != nil {
		return fmt.Errorf("repository.Save: %w", err)
	}
	query := `
		UPDATE platform_settings
		SET margin_rate = $1, tax_rate = $2, vehicle_rates = $3, cancel_penalty = $4,
		    minimum_payout = $5, rating_threshold = $6, expansion_stage1_minutes = $7,
		    expansion_stage2_minutes = $8, nearest_count = $9, updated_at = NOW()
		WHERE id = 1`
	cmd, err := r.db.Exec(ctx, query,
		s.MarginRate, s.TaxRate, rates, s.CancelPenalty, s.MinimumPayout,
		s.RatingThreshold, int(s.ExpansionStage1.Minutes()), int(s.ExpansionStage2.Minutes()), s.NearestCount,
	)
	if err != nil {
		return fmt.Errorf("repository.Save: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
