package handlers

import (
	"teamchat-backend/internal/models"
	"teamchat-backend/internal/services"

	"github.com/gofiber/fiber/v2"
)

// HistoryHandler pages a container's messages: ?limit=50&before=<message id>
// returns up to limit messages strictly before that id, oldest first.
func HistoryHandler(chat *services.ChatService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		limit := c.QueryInt("limit", 50)
		before := c.Query("before")

		messages, err := chat.History(c.Context(), c.Params("id"), userID, limit, before)
		if err != nil {
			return fail(c, err)
		}
		if messages == nil {
			messages = []models.Message{}
		}
		return c.JSON(messages)
	}
}

func EditMessageHandler(chat *services.ChatService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		var req models.EditMessageRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
		}

		msg, err := chat.EditMessage(c.Context(), c.Params("id"), userID, req.Content)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(msg)
	}
}

func DeleteMessageHandler(chat *services.ChatService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		if err := chat.DeleteMessage(c.Context(), c.Params("id"), userID); err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"deleted": true})
	}
}
