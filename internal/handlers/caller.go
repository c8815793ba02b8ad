package handlers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/bloomdoula/bloom-be/internal/messaging"
	"github.com/bloomdoula/bloom-be/internal/utils"
)

// callerFromCtx rebuilds the authorization identity from request locals.
// Anything malformed or missing degrades to Anonymous, which every check
// denies.
func callerFromCtx(c *fiber.Ctx) messaging.Caller {
	switch c.Locals("callerKind") {
	case utils.KindStaff:
		id, err := localUUID(c, "userId")
		if err != nil {
			return messaging.Anonymous{}
		}
		role, _ := c.Locals("role").(string)
		return messaging.StaffCaller{ID: id, Role: messaging.StaffRole(role)}

	case utils.KindClient:
		id, err := localUUID(c, "clientId")
		if err != nil {
			return messaging.Anonymous{}
		}
		email, _ := c.Locals("clientEmail").(string)
		return messaging.ClientCaller{ClientID: id, Email: email}

	default:
		return messaging.Anonymous{}
	}
}

func localUUID(c *fiber.Ctx, key string) (uuid.UUID, error) {
	v := c.Locals(key)
	if v == nil {
		return uuid.Nil, fmt.Errorf("unauthorized")
	}

	switch t := v.(type) {
	case uuid.UUID:
		return t, nil
	case string:
		return uuid.Parse(t)
	case []byte:
		return uuid.ParseBytes(t)
	default:
		return uuid.Nil, fmt.Errorf("invalid %s type: %T", key, v)
	}
}
