package handlers

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"teamchat-backend/internal/models"
	"teamchat-backend/internal/store"
	"teamchat-backend/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// buildFileURL constructs the public URL for an uploaded file.
func buildFileURL(c *fiber.Ctx, filename string) string {
	base := utils.GetEnv("BASE_URL", "")
	if base != "" {
		return fmt.Sprintf("%s/uploads/%s", base, filename)
	}

	protocol := "http"
	if c.Protocol() == "https" || c.Get("X-Forwarded-Proto") == "https" {
		protocol = "https"
	}
	return fmt.Sprintf("%s://%s/uploads/%s", protocol, c.Hostname(), filename)
}

// UploadFileHandler accepts a multipart upload (field name: "file"), stores
// it under UPLOAD_DIR and records a FileRecord owned by the uploader. The
// returned id can be referenced by message:send; ownership is re-checked
// there.
func UploadFileHandler(files store.FileStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		fileHeader, err := c.FormFile("file")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "file is required"})
		}

		uploadDir := utils.GetEnv("UPLOAD_DIR", "uploads")
		if err := os.MkdirAll(uploadDir, 0755); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create upload dir"})
		}

		// Generate unique filename preserving extension
		ext := filepath.Ext(fileHeader.Filename)
		filename := fmt.Sprintf("%s_%d%s", userID, time.Now().UnixNano(), ext)
		destPath := filepath.Join(uploadDir, filename)

		if err := c.SaveFile(fileHeader, destPath); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to save file"})
		}

		record := &models.FileRecord{
			ID:         uuid.New().String(),
			UploaderID: userID,
			Filename:   fileHeader.Filename,
			URL:        buildFileURL(c, filename),
			Size:       fileHeader.Size,
			CreatedAt:  time.Now(),
		}
		if err := files.Create(c.Context(), record); err != nil {
			// Try to cleanup file if the record insert fails
			_ = os.Remove(destPath)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}

		return c.Status(fiber.StatusCreated).JSON(record)
	}
}
