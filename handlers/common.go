package handlers

import (
	"errors"
	"log"

	"poker-night-ledger/services"

	"github.com/gofiber/fiber/v2"
)

// actorID pulls the gateway-resolved user id out of the request context.
func actorID(c *fiber.Ctx) string {
	if v, ok := c.Locals("user_id").(string); ok {
		return v
	}
	return ""
}

// respondError translates a service error into the right status code. Anything
// that is not a services.Error is a 500 and gets logged.
func respondError(c *fiber.Ctx, err error) error {
	var svcErr *services.Error
	if errors.As(err, &svcErr) {
		return c.Status(svcErr.HTTPStatus()).JSON(fiber.Map{
			"error": svcErr.Message,
			"kind":  svcErr.Kind,
		})
	}
	log.Printf("❌ [HTTP] internal error on %s: %v", c.Path(), err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "internal server error",
	})
}
