package orders

import "livraison-backend/internal/models"

// allowedTransitions encodes the order lifecycle as a directed graph.
// Terminal states have no outgoing edges. REJECTED_BY_LIVREUR is not part of
// the graph: it is a timeline-only annotation that leaves the status alone.
var allowedTransitions = map[models.OrderStatus][]models.OrderStatus{
	models.OrderCreated: {
		models.OrderSearching,
		models.OrderCancelledByClient,
		models.OrderCancelledByAdmin,
	},
	models.OrderSearching: {
		models.OrderAssigned,
		models.OrderCancelledByClient,
		models.OrderCancelledByAdmin,
	},
	models.OrderAssigned: {
		models.OrderShopping,
		models.OrderPickedUp,
		models.OrderCancelledByClient,
		models.OrderCancelledByLivreur,
		models.OrderCancelledByAdmin,
	},
	models.OrderShopping: {
		models.OrderPickedUp,
		models.OrderCancelledByClient,
		models.OrderCancelledByLivreur,
		models.OrderCancelledByAdmin,
	},
	models.OrderPickedUp: {
		models.OrderInTransit,
		models.OrderDelivered,
		models.OrderCancelledByLivreur,
		models.OrderCancelledByAdmin,
	},
	models.OrderInTransit: {
		models.OrderDelivered,
		models.OrderCancelledByLivreur,
		models.OrderCancelledByAdmin,
	},
	models.OrderDelivered:         {},
	models.OrderCancelledByClient: {},
	models.OrderCancelledByLivreur: {},
	models.OrderCancelledByAdmin:  {},
}

// CanTransition reports whether from -> to is a legal lifecycle move.
func CanTransition(from, to models.OrderStatus) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// penaltyApplies reports whether cancelling from this status debits the
// livreur: once the goods are picked up, walking away has a cost.
func penaltyApplies(from models.OrderStatus) bool {
	return from == models.OrderPickedUp || from == models.OrderInTransit
}
