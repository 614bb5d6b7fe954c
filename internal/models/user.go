package models

import "time"

// AccountStatus is the moderation state of a client or livreur account.
type AccountStatus string

const (
	StatusActive    AccountStatus = "active"
	StatusSuspended AccountStatus = "suspended"
	StatusPending   AccountStatus = "pending"
)

// VehicleClass determines the delivery fee table a livreur is priced with.
type VehicleClass string

const (
	VehicleBike VehicleClass = "bike"
	VehicleMoto VehicleClass = "moto"
	VehicleCar  VehicleClass = "car"
	VehicleVan  VehicleClass = "van"
)

// User is a client, livreur or admin account. Clients and livreurs
// authenticate with a phone OTP; admins with email + password.
type User struct {
	ID           string        `json:"id"`
	Role         Role          `json:"role"`
	Status       AccountStatus `json:"status"`
	Phone        string        `json:"phone,omitempty"`
	Email        string        `json:"email,omitempty"`
	FullName     string        `json:"full_name,omitempty"`
	PasswordHash string        `json:"-"`
	// Livreur-only fields.
	VehicleClass VehicleClass `json:"vehicle_class,omitempty"`
	Online       bool         `json:"online,omitempty"`
	Rating       float64      `json:"rating,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// RequestOTPRequest starts a phone login for a client or livreur.
type RequestOTPRequest struct {
	Phone string `json:"phone" validate:"required,e164"`
	Role  Role   `json:"role" validate:"required,oneof=client livreur"`
}

// VerifyOTPRequest completes a phone login.
type VerifyOTPRequest struct {
	Phone string `json:"phone" validate:"required,e164"`
	Role  Role   `json:"role" validate:"required,oneof=client livreur"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

// AdminLoginRequest is the password login used by back-office accounts.
type AdminLoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse carries the signed session token after a successful login.
type AuthResponse struct {
	AccessToken string `json:"access_token"`
	User        *User  `json:"user"`
}

// UserUpdateData defines the profile fields a user may change.
type UserUpdateData struct {
	FullName     *string       `json:"full_name,omitempty" validate:"omitempty,min=2,max=100"`
	Email        *string       `json:"email,omitempty" validate:"omitempty,email"`
	VehicleClass *VehicleClass `json:"vehicle_class,omitempty" validate:"omitempty,oneof=bike moto car van"`
}

// PresenceRequest toggles a livreur's availability for matching.
type PresenceRequest struct {
	Online bool `json:"online"`
}

// LocationReport is a livreur position update feeding the matching geo index.
type LocationReport struct {
	Latitude  float64 `json:"latitude" validate:"required,latitude"`
	Longitude float64 `json:"longitude" validate:"required,longitude"`
}

// SetAccountStatusRequest is the admin moderation action on an account.
type SetAccountStatusRequest struct {
	Status AccountStatus `json:"status" validate:"required,oneof=active suspended pending"`
}
