package web

import (
	"strings"

	"github.com/atelierhq/easel/pkg/auth"
	"github.com/gofiber/fiber/v3"
)

const userIDKey = "user_id"

// RequireAuth validates the bearer token and stores the authenticated
// user id in the request locals.
func RequireAuth(tokens *auth.TokenManager) fiber.Handler {
	return func(c fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			return unauthorized(c, "Missing Authorization header")
		}

		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			return unauthorized(c, "Authorization header must be a bearer token")
		}

		claims, err := tokens.Validate(token)
		if err != nil {
			return unauthorized(c, "Invalid or expired token")
		}

		c.Locals(userIDKey, claims.Subject)

		return c.Next()
	}
}

// AuthenticatedUser returns the user id set by RequireAuth.
func AuthenticatedUser(c fiber.Ctx) string {
	if id, ok := c.Locals(userIDKey).(string); ok {
		return id
	}

	return ""
}
