package stats

import "github.com/gofiber/fiber/v2"

func RegisterRoutes(r fiber.Router, agg *Aggregator, authMiddleware fiber.Handler) {
	r.Get("/", authMiddleware, func(c *fiber.Ctx) error {
		owner, _ := c.Locals("user_id").(string)
		if owner == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "user_id required")
		}
		snap, err := agg.ComputeStats(c.Context(), owner)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(snap)
	})
}
