package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/bloomdoula/bloom-be/internal/messaging"
	"github.com/bloomdoula/bloom-be/internal/utils"
)

// RequireStaff rejects client-portal and anonymous sessions.
func RequireStaff() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Locals("callerKind") != utils.KindStaff {
			return fiber.ErrForbidden
		}
		return c.Next()
	}
}

// RequireRoles limits a route to the named staff roles.
func RequireRoles(allowed ...string) fiber.Handler {
	allowedSet := map[string]bool{}
	for _, r := range allowed {
		allowedSet[strings.ToLower(r)] = true
	}

	return func(c *fiber.Ctx) error {
		if c.Locals("callerKind") != utils.KindStaff {
			return fiber.ErrForbidden
		}
		role, _ := c.Locals("role").(string)
		if !allowedSet[role] {
			return fiber.NewError(fiber.StatusForbidden, "forbidden: insufficient role")
		}
		return c.Next()
	}
}

// RequireMessagingPermission gates a route on the coarse role capability
// table. Per-conversation authorization still happens inside the handler;
// this only keeps capability-less roles off the route entirely.
func RequireMessagingPermission(perm messaging.Permission) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Locals("callerKind") != utils.KindStaff {
			return fiber.ErrForbidden
		}
		role, _ := c.Locals("role").(string)
		if !messaging.HasMessagingPermission(messaging.StaffRole(role), perm) {
			return fiber.NewError(fiber.StatusForbidden, "forbidden: insufficient permission")
		}
		return c.Next()
	}
}
