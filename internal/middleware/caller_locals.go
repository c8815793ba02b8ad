package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/bloomdoula/bloom-be/internal/utils"
)

// AttachCallerLocals unpacks validated claims into request locals:
// callerKind plus userId/role for staff, clientId/clientEmail for clients.
func AttachCallerLocals() fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := c.Locals("claims")
		if raw == nil {
			return fiber.ErrUnauthorized
		}

		claims, ok := raw.(*utils.Claims)
		if !ok {
			return fiber.ErrUnauthorized
		}

		switch claims.Kind {
		case utils.KindStaff:
			uid := strings.TrimSpace(claims.UserID)
			if uid == "" {
				return fiber.ErrUnauthorized
			}
			c.Locals("callerKind", utils.KindStaff)
			c.Locals("userId", uid)
			c.Locals("role", strings.ToLower(strings.TrimSpace(claims.Role)))

		case utils.KindClient:
			cid := strings.TrimSpace(claims.ClientID)
			if cid == "" {
				return fiber.ErrUnauthorized
			}
			c.Locals("callerKind", utils.KindClient)
			c.Locals("clientId", cid)
			c.Locals("clientEmail", claims.Email)

		default:
			return fiber.ErrUnauthorized
		}

		return c.Next()
	}
}
