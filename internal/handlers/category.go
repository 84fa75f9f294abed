package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/fintrack/internal/middleware"
	"github.com/example/fintrack/internal/models"
	"github.com/example/fintrack/internal/utils"
)

// CategoryHandler manages per-user category endpoints.
type CategoryHandler struct {
	db *gorm.DB
}

// NewCategoryHandler constructs a CategoryHandler.
func NewCategoryHandler(db *gorm.DB) *CategoryHandler {
	return &CategoryHandler{db: db}
}

// ListCategories returns all categories owned by the user.
func (h *CategoryHandler) ListCategories(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var categories []models.Category
	if err := h.db.Where("user_id = ?", userID).Find(&categories).Error; err != nil {
		return err
	}

	return c.JSON(categories)
}

type createCategoryRequest struct {
	Name  string `json:"name" validate:"required,min=1,max=100"`
	Icon  string `json:"icon" validate:"required,min=1,max=50"`
	Color string `json:"color" validate:"required,hexcolor"`
	Type  string `json:"type" validate:"required,oneof=income expense both"`
}

// CreateCategory creates a category for the user.
func (h *CategoryHandler) CreateCategory(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req createCategoryRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := utils.ValidateStruct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, utils.ValidationMessage(err))
	}

	category := models.Category{
		UserID: userID,
		Name:   req.Name,
		Icon:   req.Icon,
		Color:  req.Color,
		Type:   req.Type,
	}

	if err := h.db.Create(&category).Error; err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(category)
}

type updateCategoryRequest struct {
	Name  *string `json:"name" validate:"omitempty,min=1,max=100"`
	Icon  *string `json:"icon" validate:"omitempty,min=1,max=50"`
	Color *string `json:"color" validate:"omitempty,hexcolor"`
	Type  *string `json:"type" validate:"omitempty,oneof=income expense both"`
}

// UpdateCategory updates the provided fields of a category.
func (h *CategoryHandler) UpdateCategory(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	category, err := h.findCategory(c, userID)
	if err != nil {
		return err
	}

	var req updateCategoryRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := utils.ValidateStruct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, utils.ValidationMessage(err))
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Icon != nil {
		updates["icon"] = *req.Icon
	}
	if req.Color != nil {
		updates["color"] = *req.Color
	}
	if req.Type != nil {
		updates["type"] = *req.Type
	}

	if len(updates) > 0 {
		if err := h.db.Model(category).Updates(updates).Error; err != nil {
			return err
		}
	}

	return c.JSON(category)
}

// DeleteCategory removes a category owned by the user.
func (h *CategoryHandler) DeleteCategory(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	category, err := h.findCategory(c, userID)
	if err != nil {
		return err
	}

	if err := h.db.Delete(category).Error; err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *CategoryHandler) findCategory(c *fiber.Ctx, userID uuid.UUID) (*models.Category, error) {
	categoryID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "Category not found")
	}

	var category models.Category
	err = h.db.Where("id = ? AND user_id = ?", categoryID, userID).First(&category).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fiber.NewError(fiber.StatusNotFound, "Category not found")
		}
		return nil, err
	}

	return &category, nil
}
