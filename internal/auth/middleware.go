package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/employee-service/internal/domain"
	apperrors "github.com/spec-kit/employee-service/pkg/util/errorutil"
)

const principalKey = "auth_principal"

// AuthMiddleware adapts the Gate to fiber routes.
type AuthMiddleware struct {
	gate *Gate
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(gate *Gate) *AuthMiddleware {
	return &AuthMiddleware{gate: gate}
}

// Require runs the gate for a route group. A nil allowed set only requires an
// authenticated, active caller.
func (m *AuthMiddleware) Require(allowed RoleSet) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rawToken := bearerToken(c.Get(fiber.HeaderAuthorization))
		user, err := m.gate.Check(c.UserContext(), rawToken, allowed)
		if err != nil {
			if apperrors.CodeOf(err) == apperrors.CodeUnauthenticated {
				c.Set(fiber.HeaderWWWAuthenticate, "Bearer")
			}
			return err
		}

		c.Locals(principalKey, user)
		return c.Next()
	}
}

// bearerToken extracts the credential. A missing header or another scheme
// yields "", which the gate reports as absent credentials.
func bearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// PrincipalFromContext retrieves the authenticated user.
func PrincipalFromContext(c *fiber.Ctx) (*domain.User, bool) {
	user, ok := c.Locals(principalKey).(*domain.User)
	return user, ok && user != nil
}
