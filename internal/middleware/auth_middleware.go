package middleware

import (
	"errors"
	"slices"
	"strings"

	"go-market-ledger/internal/model"
	"go-market-ledger/pkg/jwt"

	"github.com/gofiber/fiber/v2"
)

// Locals keys set by RequireAuth.
const (
	LocalUserID     = "user_id"
	LocalUserRole   = "user_role"
	LocalPrivileges = "user_privileges"
)

// RequireAuth validates the bearer token and stores the caller in locals.
// Websocket upgrades cannot set headers from browsers, so the token may
// also arrive as ?token=.
func RequireAuth(tokens *jwt.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString, ok := extractToken(c)
		if !ok {
			return c.Status(401).JSON(fiber.Map{"error": "Invalid authorization format. Use: Bearer <token>"})
		}

		claims, err := tokens.ValidateToken(tokenString)
		if errors.Is(err, jwt.ErrMissingToken) {
			return c.Status(401).JSON(fiber.Map{"error": "Missing authorization token"})
		}
		if err != nil {
			return c.Status(401).JSON(fiber.Map{"error": "Invalid or expired token"})
		}

		privileges := claims.Privileges
		if len(privileges) == 0 {
			privileges = model.DefaultPrivileges[claims.RoleCode]
		}

		c.Locals(LocalUserID, claims.UserID)
		c.Locals(LocalUserRole, claims.RoleCode)
		c.Locals(LocalPrivileges, privileges)

		return c.Next()
	}
}

func extractToken(c *fiber.Ctx) (string, bool) {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return c.Query("token"), true
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", false
	}
	return parts[1], true
}

// HasPrivilege reports whether the authenticated caller holds privilege.
func HasPrivilege(c *fiber.Ctx, privilege string) bool {
	privileges, _ := c.Locals(LocalPrivileges).([]string)
	return slices.Contains(privileges, privilege)
}

// RequirePrivilege checks if the authenticated user has the required privilege
func RequirePrivilege(requiredPrivilege string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := c.Locals(LocalPrivileges).([]string); !ok {
			return c.Status(403).JSON(fiber.Map{"error": "No privileges found"})
		}
		if HasPrivilege(c, requiredPrivilege) {
			return c.Next()
		}
		return c.Status(403).JSON(fiber.Map{
			"error": "Forbidden: requires '" + requiredPrivilege + "' privilege",
		})
	}
}

// RequireAnyPrivilege checks if the user has at least one of the specified privileges
func RequireAnyPrivilege(requiredPrivileges ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := c.Locals(LocalPrivileges).([]string); !ok {
			return c.Status(403).JSON(fiber.Map{"error": "No privileges found"})
		}
		for _, p := range requiredPrivileges {
			if HasPrivilege(c, p) {
				return c.Next()
			}
		}
		return c.Status(403).JSON(fiber.Map{
			"error": "Forbidden: requires one of " + strings.Join(requiredPrivileges, ", ") + " privileges",
		})
	}
}
