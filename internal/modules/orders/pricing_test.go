package orders

import (
	"errors"
	"testing"

	"livraison-backend/internal/models"
)

type testPolicy struct {
	rates   map[models.VehicleClass]models.VehicleRate
	margin  float64
	tax     float64
	penalty int64
}

func (p testPolicy) RateFor(class models.VehicleClass) (models.VehicleRate, bool) {
	r, ok := p.rates[class]
	return r, ok
}
func (p testPolicy) MarginRate() float64  { return p.margin }
func (p testPolicy) TaxRate() float64     { return p.tax }
func (p testPolicy) CancelPenalty() int64 { return p.penalty }

func defaultTestPolicy() testPolicy {
	return testPolicy{
		rates: map[models.VehicleClass]models.VehicleRate{
			models.VehicleMoto: {BaseFee: 1500, FeePerKg: 500},
			models.VehicleCar:  {BaseFee: 3000, FeePerKg: 800},
		},
		margin:  0.10,
		tax:     0.20,
		penalty: 1000,
	}
}

func TestComputePricing_MotoScenario(t *testing.T) {
	// 250 MAD of groceries weighing 2.5 kg on a moto: 22.50 delivery fee,
	// 25.00 margin, 54.50 tax, 352.00 total.
	items := []models.OrderItem{
		{Name: "Flour", Quantity: 2, UnitWeight: 1.0, UnitPrice: 5000},
		{Name: "Olive oil", Quantity: 1, UnitWeight: 0.5, UnitPrice: 15000},
	}

	p, err := ComputePricing(items, models.VehicleMoto, defaultTestPolicy())
	if err != nil {
		t.Fatalf("ComputePricing: %v", err)
	}

	if p.Subtotal != 25000 {
		t.Errorf("Subtotal = %d, want 25000", p.Subtotal)
	}
	if p.TotalWeight != 2.5 {
		t.Errorf("TotalWeight = %v, want 2.5", p.TotalWeight)
	}
	if p.DeliveryFee != 2250 {
		t.Errorf("DeliveryFee = %d, want 2250", p.DeliveryFee)
	}
	if p.PlatformMargin != 2500 {
		t.Errorf("PlatformMargin = %d, want 2500", p.PlatformMargin)
	}
	if p.Tax != 5450 {
		t.Errorf("Tax = %d, want 5450", p.Tax)
	}
	if p.Total != 35200 {
		t.Errorf("Total = %d, want 35200", p.Total)
	}
	if p.LivreurNet != p.DeliveryFee {
		t.Errorf("LivreurNet = %d, want the delivery fee %d", p.LivreurNet, p.DeliveryFee)
	}
}

func TestComputePricing_FirstKilogramIncluded(t *testing.T) {
	items := []models.OrderItem{{Name: "Letter", Quantity: 1, UnitWeight: 0.2, UnitPrice: 1000}}

	p, err := ComputePricing(items, models.VehicleMoto, defaultTestPolicy())
	if err != nil {
		t.Fatalf("ComputePricing: %v", err)
	}
	if p.DeliveryFee != 1500 {
		t.Errorf("DeliveryFee = %d, want base fee only for sub-kilogram cargo", p.DeliveryFee)
	}
}

func TestComputePricing_Deterministic(t *testing.T) {
	items := []models.OrderItem{
		{Name: "Crate", Quantity: 3, UnitWeight: 4.4, UnitPrice: 3333},
	}
	first, err := ComputePricing(items, models.VehicleCar, defaultTestPolicy())
	if err != nil {
		t.Fatalf("ComputePricing: %v", err)
	}
	second, _ := ComputePricing(items, models.VehicleCar, defaultTestPolicy())
	if first != second {
		t.Fatalf("identical inputs produced %+v and %+v", first, second)
	}
	if first.Total != first.Subtotal+first.DeliveryFee+first.PlatformMargin+first.Tax-first.Discount {
		t.Fatalf("components do not sum to total: %+v", first)
	}
}

func TestComputePricing_UnknownVehicleClass(t *testing.T) {
	items := []models.OrderItem{{Name: "Box", Quantity: 1, UnitWeight: 1, UnitPrice: 100}}
	_, err := ComputePricing(items, models.VehicleVan, defaultTestPolicy())
	if !errors.Is(err, models.ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation", err)
	}
}
