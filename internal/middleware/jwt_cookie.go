package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/bloomdoula/bloom-be/internal/utils"
)

const TokenCookie = "bd_token"

// JWTFromCookie validates the session cookie and stashes the claims for the
// rest of the chain. Staff and client sessions share the cookie; the claim
// kind tells them apart.
func JWTFromCookie(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenStr := c.Cookies(TokenCookie)
		if tokenStr == "" {
			return fiber.ErrUnauthorized
		}

		claims, err := utils.ParseJWT(secret, tokenStr)
		if err != nil {
			return fiber.ErrUnauthorized
		}

		c.Locals("claims", claims)
		return c.Next()
	}
}
