package middleware

import (
	"context"
	"errors"
	"net/http"

	"livraison-backend/internal/models"
	"livraison-backend/pkg/utils"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
)

// JWTMAuth configures and returns Echo's JWT middleware. On success the
// token's claims become the request Principal.
func JWTMAuth(jwtSecretKey string) echo.MiddlewareFunc {
	config := echojwt.Config{
		NewClaimsFunc: func(c echo.Context) jwt.Claims {
			return new(models.JwtCustomClaims)
		},
		SigningKey: []byte(jwtSecretKey),
		SuccessHandler: func(c echo.Context) {
			userToken := c.Get("user").(*jwt.Token)
			claims := userToken.Claims.(*models.JwtCustomClaims)
			utils.SetPrincipal(c, models.Principal{ID: claims.UserID, Role: claims.Role})
		},
		ErrorHandler: func(c echo.Context, err error) error {
			if errors.Is(err, echojwt.ErrJWTMissing) {
				return c.JSON(http.StatusUnauthorized, models.ErrorResponse{Message: "Missing or malformed JWT"})
			}
			if errors.Is(err, jwt.ErrTokenMalformed) {
				return c.JSON(http.StatusUnauthorized, models.ErrorResponse{Message: "Token is malformed"})
			} else if errors.Is(err, jwt.ErrTokenExpired) {
				return c.JSON(http.StatusUnauthorized, models.ErrorResponse{Message: "Token has expired"})
			} else if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
				return c.JSON(http.StatusUnauthorized, models.ErrorResponse{Message: "Invalid token signature"})
			}
			return c.JSON(http.StatusUnauthorized, models.ErrorResponse{Message: "Invalid or expired JWT"})
		},
	}
	return echojwt.WithConfig(config)
}

// RoleRequired rejects callers whose token role is not in the allowed set.
func RoleRequired(roles ...models.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, err := utils.ExtractPrincipal(c)
			if err != nil {
				return err
			}
			for _, r := range roles {
				if p.Role == r {
					return next(c)
				}
			}
			return c.JSON(http.StatusForbidden, models.ErrorResponse{Message: "Insufficient permissions"})
		}
	}
}

func AdminRequired() echo.MiddlewareFunc {
	return RoleRequired(models.RoleAdmin)
}

func LivreurRequired() echo.MiddlewareFunc {
	return RoleRequired(models.RoleLivreur)
}

// AccountReader looks up the caller's account for the status gate.
type AccountReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// ActiveAccountRequired rejects suspended accounts even when they hold a
// still-valid token. Admin tokens pass without a lookup.
func ActiveAccountRequired(accounts AccountReader) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, err := utils.ExtractPrincipal(c)
			if err != nil {
				return err
			}
			if p.Role == models.RoleAdmin {
				return next(c)
			}
			user, err := accounts.FindByID(c.Request().Context(), p.ID)
			if err != nil {
				if errors.Is(err, models.ErrNotFound) {
					return c.JSON(http.StatusUnauthorized, models.ErrorResponse{Message: "Account no longer exists"})
				}
				return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Internal server error"})
			}
			if user.Status == models.StatusSuspended {
				return c.JSON(http.StatusForbidden, models.ErrorResponse{Message: "Account suspended"})
			}
			return next(c)
		}
	}
}
