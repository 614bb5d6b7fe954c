package orders

import (
	"fmt"
	"math"

	"livraison-backend/internal/models"
)

// PricingPolicy is the slice of platform settings pricing reads from.
type PricingPolicy interface {
	RateFor(class models.VehicleClass) (models.VehicleRate, bool)
	MarginRate() float64
	TaxRate() float64
}

// ComputePricing derives the immutable cost breakdown for a cart. It is a
// pure function of its inputs: identical items and rates always produce an
// identical snapshot. Intermediate math runs on float64 and every component
// is rounded to the centime exactly once.
//
// The first kilogram of total weight is covered by the base fee; weight above
// that is billed pro rata at the per-kg rate.
func ComputePricing(items []models.OrderItem, class models.VehicleClass, policy PricingPolicy) (models.Pricing, error) {
	rate, ok := policy.RateFor(class)
	if !ok {
		return models.Pricing{}, fmt.Errorf("%w: no pricing for vehicle class %q", models.ErrValidation, class)
	}

	var subtotal int64
	var totalWeight float64
	for _, it := range items {
		subtotal += it.UnitPrice * int64(it.Quantity)
		totalWeight += it.UnitWeight * float64(it.Quantity)
	}

	billableKg := math.Max(0, totalWeight-1)
	deliveryFee := rate.BaseFee + roundCentimes(billableKg*float64(rate.FeePerKg))
	platformMargin := roundCentimes(float64(subtotal) * policy.MarginRate())
	tax := roundCentimes(float64(subtotal+deliveryFee) * policy.TaxRate())

	return models.Pricing{
		Subtotal:       subtotal,
		TotalWeight:    totalWeight,
		DeliveryFee:    deliveryFee,
		PlatformMargin: platformMargin,
		Tax:            tax,
		Discount:       0,
		Total:          subtotal + deliveryFee + platformMargin + tax,
		LivreurNet:     deliveryFee,
	}, nil
}

func roundCentimes(v float64) int64 {
	return int64(math.Round(v))
}
