package models

import "time"

// VehicleRate is the delivery fee table for one vehicle class.
// BaseFee covers the first kilogram; each kilogram above that is billed
// at FeePerKg (pro-rated).
type VehicleRate struct {
	BaseFee  int64 `json:"base_fee"`    // centimes
	FeePerKg int64 `json:"fee_per_kg"`  // centimes per kg above the first
}

// PlatformSettings is the singleton of configurable platform parameters.
// It is loaded at startup and refreshed on admin updates.
type PlatformSettings struct {
	ID int `json:"-"`

	MarginRate float64 `json:"margin_rate"` // platform cut of the subtotal, e.g. 0.10
	TaxRate    float64 `json:"tax_rate"`    // applied to subtotal + delivery fee, e.g. 0.20

	VehicleRates map[VehicleClass]VehicleRate `json:"vehicle_rates"`

	CancelPenalty int64 `json:"cancel_penalty"` // centimes debited when cancelling after pickup
	MinimumPayout int64 `json:"minimum_payout"` // centimes, floor for withdrawals

	RatingThreshold float64 `json:"rating_threshold"` // below this a livreur is flagged for review

	ExpansionStage1 time.Duration `json:"expansion_stage1"` // age before nearest-N visibility
	ExpansionStage2 time.Duration `json:"expansion_stage2"` // age before public visibility
	NearestCount    int           `json:"nearest_count"`    // N for the nearest-N stage

	UpdatedAt time.Time `json:"updated_at"`
}

// UpdateSettingsRequest is the admin payload; nil fields are left unchanged.
type UpdateSettingsRequest struct {
	MarginRate      *float64                      `json:"margin_rate,omitempty" validate:"omitempty,gte=0,lte=1"`
	TaxRate         *float64                      `json:"tax_rate,omitempty" validate:"omitempty,gte=0,lte=1"`
	VehicleRates    map[VehicleClass]VehicleRate  `json:"vehicle_rates,omitempty" validate:"omitempty,dive"`
	CancelPenalty   *int64                        `json:"cancel_penalty,omitempty" validate:"omitempty,gte=0"`
	MinimumPayout   *int64                        `json:"minimum_payout,omitempty" validate:"omitempty,gte=0"`
	RatingThreshold *float64                      `json:"rating_threshold,omitempty" validate:"omitempty,gte=0,lte=5"`
	ExpansionStage1Minutes *int                   `json:"expansion_stage1_minutes,omitempty" validate:"omitempty,gt=0"`
	ExpansionStage2Minutes *int                   `json:"expansion_stage2_minutes,omitempty" validate:"omitempty,gt=0"`
	NearestCount    *int                          `json:"nearest_count,omitempty" validate:"omitempty,gt=0"`
}
