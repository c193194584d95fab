package collection

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/items", authMiddleware, func(c *fiber.Ctx) error {
		var req CollectedItem
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if owner, _ := c.Locals("user_id").(string); owner != "" {
			req.UserID = owner
		}
		if req.SessionID == "" || req.UserID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "session_id and user_id required")
		}
		item, err := svc.AddItem(c.Context(), req)
		if errors.Is(err, ErrSessionNotActive) {
			return fiber.NewError(fiber.StatusConflict, err.Error())
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.Status(fiber.StatusCreated).JSON(item)
	})

	r.Get("/sessions/:id/items", func(c *fiber.Ctx) error {
		items, err := svc.ItemsBySession(c.Context(), c.Params("id"))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(items)
	})
}
