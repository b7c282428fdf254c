package handlers

import (
	"errors"

	"teamchat-backend/internal/models"
	"teamchat-backend/internal/store"

	"github.com/gofiber/fiber/v2"
)

func ListNotificationsHandler(notifications store.NotificationStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		out, err := notifications.ListForUser(c.Context(), userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		if out == nil {
			out = []models.Notification{}
		}
		return c.JSON(out)
	}
}

func MarkNotificationReadHandler(notifications store.NotificationStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		if err := notifications.MarkRead(c.Context(), c.Params("id"), userID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "notification not found"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(fiber.Map{"read": true})
	}
}
