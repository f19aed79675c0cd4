package middleware

import (
	"context"
	"slices"
	"strings"

	"freshharvest/internal/authz"
	"freshharvest/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// Keys under which AuthRequired stores the caller in fiber.Ctx locals.
const (
	LocalsActor  = "actor"
	LocalsUser   = "user"
	LocalsUserID = "user_id"
	LocalsRole   = "role"
)

// Authenticator resolves a bearer token to an account.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (authz.Actor, *models.User, error)
}

// AuthRequired is a Fiber middleware to check for a valid JWT token.
func AuthRequired(auth Authenticator, logger zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return unauthorized(c, "Access token required")
		}

		tokenString := extractToken(authHeader)
		if tokenString == "" {
			return unauthorized(c, "Authorization header format must be 'Bearer <token>'")
		}

		actor, user, err := auth.Authenticate(c.UserContext(), tokenString)
		if err != nil {
			if models.KindOf(err) != models.KindUnauthorized {
				logger.Error().Err(err).Str("path", c.Path()).Msg("failed to authenticate request")
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"message": "Internal server error",
				})
			}
			logger.Debug().Err(err).Str("path", c.Path()).Msg("JWT validation failed")
			return unauthorized(c, "Invalid or expired token")
		}

		c.Locals(LocalsActor, actor)
		c.Locals(LocalsUser, user)
		c.Locals(LocalsUserID, actor.ID)
		c.Locals(LocalsRole, actor.Role)

		return c.Next()
	}
}

// RequireRoles rejects callers whose role is not listed. It must run after
// AuthRequired.
func RequireRoles(roles ...models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, ok := ActorFrom(c)
		if !ok {
			return unauthorized(c, "Authentication required")
		}
		if !slices.Contains(roles, actor.Role) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"message": "Access denied",
				"error":   models.KindForbidden,
			})
		}
		return c.Next()
	}
}

// ActorFrom returns the caller stored by AuthRequired.
func ActorFrom(c *fiber.Ctx) (authz.Actor, bool) {
	actor, ok := c.Locals(LocalsActor).(authz.Actor)
	return actor, ok && actor.ID != ""
}

// UserFrom returns the account stored by AuthRequired.
func UserFrom(c *fiber.Ctx) (*models.User, bool) {
	user, ok := c.Locals(LocalsUser).(*models.User)
	return user, ok && user != nil
}

// extractToken returns the token of a "Bearer <token>" header value, or ""
// when the header has another shape.
func extractToken(header string) string {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func unauthorized(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"message": message,
		"error":   models.KindUnauthorized,
	})
}
