package models

import "time"

// ComplaintStatus is the support ticket state.
type ComplaintStatus string

const (
	ComplaintOpen       ComplaintStatus = "open"
	ComplaintInProgress ComplaintStatus = "in_progress"
	ComplaintResolved   ComplaintStatus = "resolved"
)

// Complaint is a support ticket owned by a client or livreur. It carries its
// own message thread and is never deleted independently of its owner.
type Complaint struct {
	ID        string          `json:"id"`
	OwnerID   string          `json:"owner_id"`
	OwnerRole Role            `json:"owner_role"`
	OrderID   *string         `json:"order_id,omitempty"`
	Subject   string          `json:"subject"`
	Status    ComplaintStatus `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// ComplaintMessage is one entry of a complaint's thread.
type ComplaintMessage struct {
	ID          int64     `json:"id"`
	ComplaintID string    `json:"complaint_id"`
	SenderID    string    `json:"sender_id"`
	SenderRole  Role      `json:"sender_role"`
	Text        string    `json:"text"`
	CreatedAt   time.Time `json:"created_at"`
}

// CreateComplaintRequest opens a new support ticket.
type CreateComplaintRequest struct {
	Subject string  `json:"subject" validate:"required,min=3,max=200"`
	Text    string  `json:"text" validate:"required,min=1,max=4000"`
	OrderID *string `json:"order_id,omitempty" validate:"omitempty,uuid"`
}

// ComplaintMessageRequest appends a message to the thread.
type ComplaintMessageRequest struct {
	Text string `json:"text" validate:"required,min=1,max=4000"`
}

// UpdateComplaintStatusRequest moves the ticket through its state machine.
type UpdateComplaintStatusRequest struct {
	Status ComplaintStatus `json:"status" validate:"required,oneof=open in_progress resolved"`
}
