package utils

import (
	"net/http"
	"strconv"

	"livraison-backend/internal/models"

	"github.com/labstack/echo/v4"
)

const principalContextKey = "principal"

// SetPrincipal stores the authenticated actor in the request context.
// Called by the auth middleware after the JWT is validated.
func SetPrincipal(c echo.Context, p models.Principal) {
	c.Set(principalContextKey, p)
}

// ExtractPrincipal returns the authenticated actor, or a 401 error response
// if the middleware never ran (misconfigured route).
func ExtractPrincipal(c echo.Context) (models.Principal, error) {
	p, ok := c.Get(principalContextKey).(models.Principal)
	if !ok {
		return models.Principal{}, RespondWithError(c, http.StatusUnauthorized, "Missing authentication")
	}
	return p, nil
}

// GetPageLimit parses ?page= and ?limit= with sane bounds.
func GetPageLimit(c echo.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	limit, _ = strconv.Atoi(c.QueryParam("limit"))
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}
