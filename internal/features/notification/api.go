package notification

import (
	"go-clm/internal/config"
	"go-clm/internal/middleware"
	"go-clm/pkg/utils"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

type NotificationApi struct {
	controller *NotificationController
	hub        *Hub
	config     *config.Config
}

func NewNotificationApi(controller *NotificationController, hub *Hub, config *config.Config) *NotificationApi {
	return &NotificationApi{
		controller: controller,
		hub:        hub,
		config:     config,
	}
}

func (h *NotificationApi) Setup(app *fiber.App) {
	group := app.Group("/api/notifications", middleware.AuthMiddleware(h.config.SkipAuth))

	group.Get("/", h.controller.List)
	group.Get("/unread-count", h.controller.GetUnreadCount)
	group.Put("/:id/read", h.controller.MarkAsRead)
	group.Post("/mark-all-read", h.controller.MarkAllAsRead)

	// Live push channel. The token travels as a query parameter because
	// browsers cannot set headers on websocket upgrades.
	app.Get("/ws/notifications", websocket.New(func(c *websocket.Conn) {
		claims, err := utils.ValidateToken(c.Query("token"))
		if err != nil {
			c.Close()
			return
		}

		h.hub.Register(claims.UserID, c)
		defer h.hub.Unregister(claims.UserID, c)

		// Hold the connection open; reads only serve to detect close.
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}
	}))
}
