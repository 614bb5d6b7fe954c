package models

import "time"

// OrderStatus is the lifecycle state of a delivery order.
type OrderStatus string

const (
	OrderCreated       OrderStatus = "CREATED"
	OrderSearching     OrderStatus = "SEARCHING_FOR_LIVREUR"
	OrderAssigned      OrderStatus = "ASSIGNED"
	OrderShopping      OrderStatus = "SHOPPING"
	OrderPickedUp      OrderStatus = "PICKED_UP"
	OrderInTransit     OrderStatus = "IN_TRANSIT"
	OrderDelivered     OrderStatus = "DELIVERED"
	OrderCancelledByClient  OrderStatus = "CANCELLED_CLIENT"
	OrderCancelledByLivreur OrderStatus = "CANCELLED_LIVREUR"
	OrderCancelledByAdmin   OrderStatus = "CANCELLED_ADMIN"

	// TimelineRejected is a timeline-only annotation: a livreur declined the
	// order without claiming it. The order status itself does not change.
	TimelineRejected OrderStatus = "REJECTED_BY_LIVREUR"
)

// Expansion stages for progressive courier visibility.
const (
	ExpansionRestricted = 0 // just created, visible to nobody yet
	ExpansionNearest    = 1 // visible to the nearest-N eligible livreurs
	ExpansionPublic     = 2 // visible to every online livreur
)

// OrderItem is a single immutable cart line.
type OrderItem struct {
	Name       string `json:"name" validate:"required"`
	Quantity   int    `json:"quantity" validate:"required,gt=0"`
	UnitWeight float64 `json:"unit_weight" validate:"gte=0"` // kilograms
	UnitPrice  int64  `json:"unit_price" validate:"gte=0"`   // centimes
}

// Pricing is the immutable cost breakdown computed once at creation.
// All amounts are in centimes.
type Pricing struct {
	Subtotal       int64   `json:"subtotal"`
	TotalWeight    float64 `json:"total_weight"` // kilograms
	DeliveryFee    int64   `json:"delivery_fee"`
	PlatformMargin int64   `json:"platform_margin"`
	Tax            int64   `json:"tax"`
	Discount       int64   `json:"discount"`
	Total          int64   `json:"total"`
	// LivreurNet is the courier's payout on delivery: the delivery fee,
	// the platform margin being taken on the subtotal instead.
	LivreurNet int64 `json:"livreur_net"`
}

// Location is a geocoded address.
type Location struct {
	Address   string  `json:"address" validate:"required"`
	Latitude  float64 `json:"latitude" validate:"latitude"`
	Longitude float64 `json:"longitude" validate:"longitude"`
}

// TimelineEntry is one append-only audit record per transition.
type TimelineEntry struct {
	ID        int64       `json:"id"`
	OrderID   string      `json:"order_id"`
	Status    OrderStatus `json:"status"`
	ActorID   string      `json:"actor_id,omitempty"`
	ActorRole Role        `json:"actor_role"`
	Note      string      `json:"note,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// ProofOfDelivery is captured exactly once, at delivery.
type ProofOfDelivery struct {
	PhotoURLs []string  `json:"photo_urls"`
	Signature string    `json:"signature,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	OTP       string    `json:"otp,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Cancellation is recorded exactly once, on any terminal cancel.
type Cancellation struct {
	Reason      string    `json:"reason"`
	Details     string    `json:"details,omitempty"`
	Penalty     int64     `json:"penalty"` // centimes debited from the livreur, 0 if none
	CancelledBy Role      `json:"cancelled_by"`
	Timestamp   time.Time `json:"timestamp"`
}

// ChatMessage is one entry of the per-order support conversation.
type ChatMessage struct {
	ID        int64     `json:"id"`
	OrderID   string    `json:"order_id"`
	SenderID  string    `json:"sender_id"`
	Sender    Role      `json:"sender"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Order is the delivery order aggregate. It is mutated exclusively through
// the order service and never physically deleted.
type Order struct {
	ID        string      `json:"id"`
	ClientID  string      `json:"client_id"`
	LivreurID *string     `json:"livreur_id,omitempty"`
	Status    OrderStatus `json:"status"`

	Items   []OrderItem `json:"items"`
	Pricing Pricing     `json:"pricing"`

	PickupLocation  Location `json:"pickup_location"`
	DropoffLocation Location `json:"dropoff_location"`

	VehicleClass VehicleClass `json:"vehicle_class"`

	ProofOfDelivery *ProofOfDelivery `json:"proof_of_delivery,omitempty"`
	Cancellation    *Cancellation    `json:"cancellation,omitempty"`

	ExpansionStage   int      `json:"expansion_stage"`
	EligibleLivreurs []string `json:"eligible_livreurs,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Terminal reports whether the order can never change status again.
func (o *Order) Terminal() bool {
	switch o.Status {
	case OrderDelivered, OrderCancelledByClient, OrderCancelledByLivreur, OrderCancelledByAdmin:
		return true
	}
	return false
}

// CreateOrderRequest is the client checkout payload.
type CreateOrderRequest struct {
	Items           []OrderItem  `json:"items" validate:"required,min=1,dive"`
	PickupLocation  Location     `json:"pickup_location" validate:"required"`
	DropoffLocation Location     `json:"dropoff_location" validate:"required"`
	VehicleClass    VehicleClass `json:"vehicle_class" validate:"required,oneof=bike moto car van"`
}

// DeliverOrderRequest carries the proof of delivery.
type DeliverOrderRequest struct {
	PhotoURLs []string `json:"photo_urls" validate:"required,min=1,dive,required"`
	Signature string   `json:"signature,omitempty"`
	Notes     string   `json:"notes,omitempty"`
	OTP       string   `json:"otp,omitempty"`
}

// CancelOrderRequest carries the cancellation reason.
type CancelOrderRequest struct {
	Reason  string `json:"reason" validate:"required,min=3"`
	Details string `json:"details,omitempty"`
}

// ChatMessageRequest appends one message to the order conversation.
type ChatMessageRequest struct {
	Text string `json:"text" validate:"required,min=1,max=2000"`
}
