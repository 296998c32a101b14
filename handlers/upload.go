package handlers

import (
	"path/filepath"
	"strings"

	"poker-night-ledger/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func SetupUploadRoutes(secured fiber.Router) {
	secured.Post("/uploads/proof", UploadProof)
}

// UploadProof accepts a multipart proof photo and returns its public URL. The
// core only ever stores the URL.
func UploadProof(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "a file field is required"})
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".webp", ".heic":
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unsupported image type"})
	}

	key := "proofs/" + uuid.NewString() + ext
	url, err := utils.UploadProofPhoto(fileHeader, key)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"url": url})
}
