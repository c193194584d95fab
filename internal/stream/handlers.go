package stream

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// RegisterRoutes exposes the live recording feed. A watcher opens
// /ws/{session} and receives every distance-changed and session-ended
// event for that recording until either side disconnects.
func RegisterRoutes(r fiber.Router, hub *Hub) {
	r.Get("/ws/:sessionID", websocket.New(func(c *websocket.Conn) {
		watcher := hub.Register(c.Params("sessionID"))

		done := make(chan struct{})
		go func() {
			defer close(done)
			for ev := range watcher.Send {
				if err := c.WriteMessage(websocket.TextMessage, ev); err != nil {
					return
				}
			}
		}()

		// the read loop exists to notice the peer going away;
		// unregistering closes Send, which lets the writer drain out
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}
		hub.Unregister(watcher)
		<-done
	}))
}
