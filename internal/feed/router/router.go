package router

import (
	"context"

	"gratitude_chat_service/internal/feed/app"
	"gratitude_chat_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// RegisterRoutes mount the feed routes; everything except the health probe
// sits behind the JWT middleware
func RegisterRoutes(r *fiber.App, wsHandler *app.FeedWebsocketHandler, httpHandler *app.FeedHTTPHandler) {
	r.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	r.Use(middlewares.JWTMiddleware())

	r.Get("/ws", websocket.New(func(c *websocket.Conn) {
		wsHandler.HandleConnection(context.Background(), c)
	}))

	r.Post("/threads/:thread_id/images", httpHandler.UploadImage)
	r.Post("/push/endpoints", httpHandler.RegisterEndpoint)
}
