package handlers

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/fintrack/internal/database"
)

// DevHandler exposes local-development-only endpoints.
type DevHandler struct {
	db *gorm.DB
}

// NewDevHandler constructs a DevHandler.
func NewDevHandler(db *gorm.DB) *DevHandler {
	return &DevHandler{db: db}
}

// ResetDB drops all tables and recreates them. Destroys all data.
func (h *DevHandler) ResetDB(c *fiber.Ctx) error {
	if err := database.Reset(h.db); err != nil {
		return err
	}

	return c.JSON(fiber.Map{"detail": "All tables dropped and recreated"})
}
