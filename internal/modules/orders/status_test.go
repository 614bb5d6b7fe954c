package orders

import (
	"testing"

	"livraison-backend/internal/models"
)

func TestCanTransition_TerminalStatesHaveNoExits(t *testing.T) {
	terminals := []models.OrderStatus{
		models.OrderDelivered,
		models.OrderCancelledByClient,
		models.OrderCancelledByLivreur,
		models.OrderCancelledByAdmin,
	}
	all := []models.OrderStatus{
		models.OrderCreated, models.OrderSearching, models.OrderAssigned,
		models.OrderShopping, models.OrderPickedUp, models.OrderInTransit,
		models.OrderDelivered, models.OrderCancelledByClient,
		models.OrderCancelledByLivreur, models.OrderCancelledByAdmin,
	}
	for _, from := range terminals {
		for _, to := range all {
			if CanTransition(from, to) {
				t.Errorf("terminal %s must not transition to %s", from, to)
			}
		}
	}
}

func TestCanTransition_DeliveryPath(t *testing.T) {
	path := []models.OrderStatus{
		models.OrderCreated, models.OrderSearching, models.OrderAssigned,
		models.OrderShopping, models.OrderPickedUp, models.OrderInTransit,
		models.OrderDelivered,
	}
	for i := 0; i < len(path)-1; i++ {
		if !CanTransition(path[i], path[i+1]) {
			t.Errorf("expected %s -> %s to be allowed", path[i], path[i+1])
		}
	}

	// Shopping is optional for pure courier runs.
	if !CanTransition(models.OrderAssigned, models.OrderPickedUp) {
		t.Error("expected ASSIGNED -> PICKED_UP to be allowed")
	}
	// No skipping ahead.
	if CanTransition(models.OrderAssigned, models.OrderDelivered) {
		t.Error("ASSIGNED -> DELIVERED must not be allowed")
	}
	if CanTransition(models.OrderSearching, models.OrderShopping) {
		t.Error("SEARCHING -> SHOPPING must not be allowed")
	}
}

func TestCanTransition_ClientCancelWindowClosesAtPickup(t *testing.T) {
	for _, from := range []models.OrderStatus{models.OrderCreated, models.OrderSearching, models.OrderAssigned, models.OrderShopping} {
		if !CanTransition(from, models.OrderCancelledByClient) {
			t.Errorf("client cancel from %s must be allowed", from)
		}
	}
	for _, from := range []models.OrderStatus{models.OrderPickedUp, models.OrderInTransit} {
		if CanTransition(from, models.OrderCancelledByClient) {
			t.Errorf("client cancel from %s must not be allowed", from)
		}
	}
}

func TestPenaltyApplies_OnlyAfterPickup(t *testing.T) {
	withPenalty := []models.OrderStatus{models.OrderPickedUp, models.OrderInTransit}
	withoutPenalty := []models.OrderStatus{models.OrderAssigned, models.OrderShopping}

	for _, s := range withPenalty {
		if !penaltyApplies(s) {
			t.Errorf("penaltyApplies(%s) = false, want true", s)
		}
	}
	for _, s := range withoutPenalty {
		if penaltyApplies(s) {
			t.Errorf("penaltyApplies(%s) = true, want false", s)
		}
	}
}
