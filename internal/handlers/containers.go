package handlers

import (
	"teamchat-backend/internal/models"
	"teamchat-backend/internal/services"

	"github.com/gofiber/fiber/v2"
)

// REST surface over the membership engine. Channels and workspaces share
// handlers; the kind comes from the factory argument.

func CreateContainerHandler(membership *services.MembershipService, kind models.Kind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		var req models.CreateContainerRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
		}
		if req.Visibility == "" {
			req.Visibility = models.VisibilityPublic
		}

		var (
			container *models.Container
			err       error
		)
		if kind == models.KindWorkspace {
			container, err = membership.CreateWorkspace(c.Context(), req.Name, req.Visibility, userID)
		} else {
			container, err = membership.CreateChannel(c.Context(), req.Name, req.Visibility, userID)
		}
		if err != nil {
			return fail(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(container)
	}
}

func ListContainersHandler(membership *services.MembershipService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		containers, err := membership.ListVisible(c.Context(), userID)
		if err != nil {
			return fail(c, err)
		}
		if containers == nil {
			containers = []models.Container{}
		}
		return c.JSON(containers)
	}
}

func GetContainerHandler(membership *services.MembershipService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		container, err := membership.Get(c.Context(), c.Params("id"), userID)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(container)
	}
}

func JoinContainerHandler(membership *services.MembershipService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		member, err := membership.JoinPublic(c.Context(), c.Params("id"), userID)
		if err != nil {
			return fail(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(member)
	}
}

func AddMemberHandler(membership *services.MembershipService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actingUserID := c.Locals("user_id").(string)

		var req models.AddMemberRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
		}
		if req.UserID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "user_id required"})
		}

		member, err := membership.AddMember(c.Context(), c.Params("id"), req.UserID, actingUserID, req.Role)
		if err != nil {
			return fail(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(member)
	}
}

func RemoveMemberHandler(membership *services.MembershipService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actingUserID := c.Locals("user_id").(string)
		removed, err := membership.RemoveMember(c.Context(), c.Params("id"), c.Params("user_id"), actingUserID)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"removed": removed})
	}
}

func UpdateRoleHandler(membership *services.MembershipService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actingUserID := c.Locals("user_id").(string)

		var req models.UpdateRoleRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
		}

		if err := membership.UpdateRole(c.Context(), c.Params("id"), c.Params("user_id"), req.Role, actingUserID); err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"updated": true})
	}
}

func TransferOwnershipHandler(membership *services.MembershipService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actingUserID := c.Locals("user_id").(string)

		var req models.TransferOwnershipRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
		}
		if req.NewOwnerID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "new_owner_id required"})
		}

		if err := membership.TransferOwnership(c.Context(), c.Params("id"), req.NewOwnerID, actingUserID); err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"transferred": true})
	}
}

func CreateDirectThreadHandler(membership *services.MembershipService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		var req models.CreateDirectThreadRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
		}

		thread, created, err := membership.FindOrCreateDirectThread(c.Context(), req.ParticipantIDs, userID)
		if err != nil {
			return fail(c, err)
		}
		status := fiber.StatusOK
		if created {
			status = fiber.StatusCreated
		}
		return c.Status(status).JSON(thread)
	}
}
