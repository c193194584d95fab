package syncgw

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

func RegisterRoutes(r fiber.Router, gw *Gateway, authMiddleware fiber.Handler) {
	r.Post("/push", authMiddleware, func(c *fiber.Ctx) error {
		owner, _ := c.Locals("user_id").(string)
		if owner == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "user_id required")
		}
		if err := gw.Push(c.Context(), owner); err != nil {
			var remoteErr *TransientRemoteError
			if errors.As(err, &remoteErr) {
				return fiber.NewError(fiber.StatusBadGateway, err.Error())
			}
			if errors.Is(err, ErrOwnerNotFound) {
				return fiber.NewError(fiber.StatusNotFound, err.Error())
			}
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	// the owner comes from the verified token, never from the path, so
	// a client can only watch its own documents
	r.Get("/ws/:category", authMiddleware, websocket.New(func(c *websocket.Conn) {
		owner, _ := c.Locals("user_id").(string)
		category := Category(c.Params("category"))

		updates := make(chan RemoteDocument, 16)
		failures := make(chan error, 16)

		err := gw.Subscribe(owner, category,
			func(doc RemoteDocument) {
				select {
				case updates <- doc:
				default:
				}
			},
			func(err error) {
				select {
				case failures <- err:
				default:
				}
			})
		if err != nil {
			_ = c.WriteJSON(fiber.Map{"error": err.Error()})
			return
		}
		defer gw.Unsubscribe(owner, category)

		closed := make(chan struct{})
		go func() {
			for {
				if _, _, err := c.ReadMessage(); err != nil {
					close(closed)
					return
				}
			}
		}()

		for {
			select {
			case doc := <-updates:
				if err := c.WriteJSON(doc); err != nil {
					return
				}
			case err := <-failures:
				if werr := c.WriteJSON(fiber.Map{"error": err.Error()}); werr != nil {
					return
				}
			case <-closed:
				return
			}
		}
	}))
}
