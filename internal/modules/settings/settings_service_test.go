package settings

import (
	"context"
	"errors"
	"testing"
	"time"

	"livraison-backend/internal/models"
	"livraison-backend/pkg/logger"
)

type memSettingsRepo struct {
	stored *models.PlatformSettings
	saves  int
}

func (r *memSettingsRepo) EnsureDefaults(ctx context.Context) error {
	if r.stored == nil {
		d := Defaults()
		r.stored = &d
	}
	return nil
}

func (r *memSettingsRepo) Load(ctx context.Context) (*models.PlatformSettings, error) {
	if r.stored == nil {
		return nil, models.ErrNotFound
	}
	cp := *r.stored
	return &cp, nil
}

func (r *memSettingsRepo) Save(ctx context.Context, s *models.PlatformSettings) error {
	cp := *s
	r.stored = &cp
	r.saves++
	return nil
}

func newInitedService(t *testing.T) (*Service, *memSettingsRepo) {
	t.Helper()
	repo := &memSettingsRepo{}
	svc := NewService(repo, logger.NewNop())
	if err := svc.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return svc, repo
}

func TestInit_SeedsAndLoadsDefaults(t *testing.T) {
	svc, _ := newInitedService(t)

	if svc.MarginRate() != 0.10 {
		t.Errorf("MarginRate = %v, want 0.10", svc.MarginRate())
	}
	if svc.TaxRate() != 0.20 {
		t.Errorf("TaxRate = %v, want 0.20", svc.TaxRate())
	}
	rate, ok := svc.RateFor(models.VehicleMoto)
	if !ok {
		t.Fatal("expected a default moto rate")
	}
	if rate.BaseFee != 1500 || rate.FeePerKg != 500 {
		t.Errorf("moto rate = %+v, want base 1500 / per-kg 500", rate)
	}
	if svc.ExpansionStage2() <= svc.ExpansionStage1() {
		t.Error("default stage 2 delay must exceed stage 1")
	}
}

func TestUpdate_MergesOnlyProvidedFields(t *testing.T) {
	svc, repo := newInitedService(t)
	penalty := int64(2000)

	updated, err := svc.Update(context.Background(), models.UpdateSettingsRequest{CancelPenalty: &penalty})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.CancelPenalty != 2000 {
		t.Errorf("CancelPenalty = %d, want 2000", updated.CancelPenalty)
	}
	if updated.MarginRate != 0.10 {
		t.Errorf("MarginRate = %v, untouched fields must keep their value", updated.MarginRate)
	}
	if repo.saves != 1 {
		t.Errorf("saves = %d, want 1", repo.saves)
	}
	if svc.CancelPenalty() != 2000 {
		t.Error("accessor must observe the refreshed snapshot")
	}
}

func TestUpdate_MergesVehicleRates(t *testing.T) {
	svc, _ := newInitedService(t)

	_, err := svc.Update(context.Background(), models.UpdateSettingsRequest{
		VehicleRates: map[models.VehicleClass]models.VehicleRate{
			models.VehicleVan: {BaseFee: 5000, FeePerKg: 1000},
		},
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	if _, ok := svc.RateFor(models.VehicleMoto); !ok {
		t.Error("existing classes must survive a partial rates update")
	}
	van, ok := svc.RateFor(models.VehicleVan)
	if !ok || van.BaseFee != 5000 {
		t.Errorf("van rate = %+v, want base 5000", van)
	}
}

func TestUpdate_RejectsInvertedExpansionWindows(t *testing.T) {
	svc, repo := newInitedService(t)
	stage1 := 20
	stage2 := 5

	_, err := svc.Update(context.Background(), models.UpdateSettingsRequest{
		ExpansionStage1Minutes: &stage1,
		ExpansionStage2Minutes: &stage2,
	})
	if !errors.Is(err, models.ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation", err)
	}
	if repo.saves != 0 {
		t.Error("invalid update must not be persisted")
	}
	if svc.ExpansionStage1() == time.Duration(stage1)*time.Minute {
		t.Error("snapshot must be unchanged after a rejected update")
	}
}
