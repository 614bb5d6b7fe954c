package models

import "github.com/golang-jwt/jwt/v5"

// Role identifies the kind of authenticated actor.
type Role string

const (
	RoleClient  Role = "client"
	RoleLivreur Role = "livreur"
	RoleAdmin   Role = "admin"
)

// JwtCustomClaims is the claim set carried by every session token.
type JwtCustomClaims struct {
	UserID string `json:"userID"`
	Role   Role   `json:"role"`
	jwt.RegisteredClaims
}

// Principal is the typed authenticated actor threaded through handlers,
// extracted from the JWT claims by the auth middleware.
type Principal struct {
	ID   string
	Role Role
}
