package record

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, coord *Coordinator, store *SQLStore, authMiddleware fiber.Handler) {
	r.Post("/sessions", authMiddleware, func(c *fiber.Ctx) error {
		owner, _ := c.Locals("user_id").(string)
		if owner == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "user_id required")
		}
		session, err := coord.StartSession(c.Context(), owner)
		if err != nil {
			return statusForError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(session)
	})

	r.Post("/sessions/:id/fixes", authMiddleware, func(c *fiber.Ctx) error {
		var fix Fix
		if err := c.BodyParser(&fix); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := coord.Ingest(c.Context(), c.Params("id"), fix); err != nil {
			return statusForError(err)
		}
		return c.SendStatus(fiber.StatusAccepted)
	})

	r.Post("/sessions/:id/end", authMiddleware, func(c *fiber.Ctx) error {
		var body struct {
			DurationSec int64 `json:"duration_sec"`
		}
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		session, err := coord.EndSession(c.Context(), c.Params("id"), time.Duration(body.DurationSec)*time.Second)
		if err != nil {
			return statusForError(err)
		}
		return c.JSON(session)
	})

	r.Get("/sessions/:id", func(c *fiber.Ctx) error {
		session, err := store.GetSession(c.Context(), c.Params("id"))
		if err != nil {
			return statusForError(err)
		}
		return c.JSON(session)
	})

	r.Get("/sessions/:id/points", func(c *fiber.Ctx) error {
		points, err := store.Points(c.Context(), c.Params("id"))
		if err != nil {
			return statusForError(err)
		}
		return c.JSON(points)
	})
}

func statusForError(err error) error {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, ErrActiveSessionExists):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, ErrSessionCompleted):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, ErrClosed):
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}
