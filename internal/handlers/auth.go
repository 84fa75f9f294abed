package handlers

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/fintrack/internal/config"
	"github.com/example/fintrack/internal/middleware"
	"github.com/example/fintrack/internal/models"
	"github.com/example/fintrack/internal/services"
	"github.com/example/fintrack/internal/utils"
)

const (
	maxCodeAttempts = 5
	maxResends      = 3
)

var defaultCategories = []models.Category{
	{Name: "Salary", Icon: "cash", Color: "#10B981", Type: models.CategoryIncome},
	{Name: "Freelance", Icon: "laptop", Color: "#6366F1", Type: models.CategoryIncome},
	{Name: "Investments", Icon: "trending-up", Color: "#8B5CF6", Type: models.CategoryIncome},
	{Name: "Food & Drinks", Icon: "restaurant", Color: "#F59E0B", Type: models.CategoryExpense},
	{Name: "Transport", Icon: "car", Color: "#3B82F6", Type: models.CategoryExpense},
	{Name: "Shopping", Icon: "cart", Color: "#EC4899", Type: models.CategoryExpense},
	{Name: "Entertainment", Icon: "game-controller", Color: "#F97316", Type: models.CategoryExpense},
	{Name: "Health", Icon: "fitness", Color: "#EF4444", Type: models.CategoryExpense},
	{Name: "Bills & Utilities", Icon: "flash", Color: "#14B8A6", Type: models.CategoryExpense},
	{Name: "Education", Icon: "school", Color: "#0EA5E9", Type: models.CategoryExpense},
	{Name: "Gifts", Icon: "gift", Color: "#D946EF", Type: models.CategoryBoth},
	{Name: "Other", Icon: "ellipsis-horizontal", Color: "#6B7280", Type: models.CategoryBoth},
}

// AuthHandler bundles dependencies for authentication endpoints.
type AuthHandler struct {
	db            *gorm.DB
	cfg           *config.Config
	verifications *services.VerificationService
	mailer        services.CodeSender
	providers     map[string]services.IdentityProvider
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(
	db *gorm.DB,
	cfg *config.Config,
	verifications *services.VerificationService,
	mailer services.CodeSender,
	providers map[string]services.IdentityProvider,
) *AuthHandler {
	return &AuthHandler{
		db:            db,
		cfg:           cfg,
		verifications: verifications,
		mailer:        mailer,
		providers:     providers,
	}
}

type signupRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=128"`
	Name     string `json:"name"`
}

// Signup creates (or refreshes) an unverified account and starts a
// verification challenge. No token is issued until the code is confirmed.
func (h *AuthHandler) Signup(c *fiber.Ctx) error {
	var req signupRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	req.Email = normalizeEmail(req.Email)
	if err := utils.ValidateStruct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, utils.ValidationMessage(err))
	}

	passwordHash, err := utils.HashPassword(req.Password)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to hash password")
	}

	var user models.User
	err = h.db.Where("email = ?", req.Email).First(&user).Error
	switch {
	case err == nil:
		if user.IsVerified {
			return fiber.NewError(fiber.StatusConflict, "Email already registered")
		}
		// Abandoned signup: re-use the row, refresh credentials.
		updates := map[string]interface{}{
			"password_hash": passwordHash,
			"name":          req.Name,
		}
		if err := h.db.Model(&user).Updates(updates).Error; err != nil {
			return err
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = models.User{
			Email:        req.Email,
			PasswordHash: passwordHash,
			Name:         req.Name,
			IsVerified:   false,
		}
		if err := h.db.Create(&user).Error; err != nil {
			return err
		}
	default:
		return err
	}

	record, err := h.verifications.Create(user.ID, models.PurposeSignup, h.cfg.CodeExpires)
	if err != nil {
		return err
	}
	h.sendCode(user.Email, record.Code)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"session_id": record.ID,
		"message":    "Verification code sent to your email",
	})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Login checks credentials and starts a login verification challenge.
// Login is two-factor: the token only arrives after code confirmation.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	req.Email = normalizeEmail(req.Email)
	if err := utils.ValidateStruct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, utils.ValidationMessage(err))
	}

	var user models.User
	if err := h.db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid credentials")
		}
		return err
	}

	if user.PasswordHash == "" {
		return fiber.NewError(fiber.StatusUnauthorized, "Invalid credentials")
	}

	if !user.IsVerified {
		return fiber.NewError(fiber.StatusForbidden, "Email not verified. Please sign up again.")
	}

	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		return fiber.NewError(fiber.StatusUnauthorized, "Invalid credentials")
	}

	record, err := h.verifications.Create(user.ID, models.PurposeLogin, h.cfg.CodeExpires)
	if err != nil {
		return err
	}
	h.sendCode(user.Email, record.Code)

	return c.JSON(fiber.Map{
		"session_id": record.ID,
		"message":    "Verification code sent to your email",
	})
}

type verifyCodeRequest struct {
	SessionID string `json:"session_id" validate:"required"`
	Code      string `json:"code" validate:"required,len=6"`
}

// VerifyCode consumes a verification challenge. On a signup challenge it
// also activates the account and seeds the default categories.
func (h *AuthHandler) VerifyCode(c *fiber.Ctx) error {
	var req verifyCodeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := utils.ValidateStruct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, utils.ValidationMessage(err))
	}

	sessionID, err := uuid.Parse(req.SessionID)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid or expired verification session")
	}

	record, err := h.verifications.Get(sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid or expired verification session")
		}
		return err
	}

	if record.Used {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid or expired verification session")
	}

	if record.ExpiresAt.Before(time.Now()) {
		return fiber.NewError(fiber.StatusBadRequest, "Verification code expired")
	}

	if record.Attempts >= maxCodeAttempts {
		return fiber.NewError(fiber.StatusTooManyRequests, "Too many attempts. Please request a new code.")
	}

	if record.Code != req.Code {
		if err := h.verifications.IncrementAttempts(record); err != nil {
			return err
		}
		remaining := maxCodeAttempts - record.Attempts
		return fiber.NewError(fiber.StatusBadRequest,
			fmt.Sprintf("Invalid code. %d attempt(s) remaining", remaining))
	}

	consumed, err := h.verifications.MarkUsed(record)
	if err != nil {
		return err
	}
	if !consumed {
		// A concurrent request won the consume race.
		return fiber.NewError(fiber.StatusBadRequest, "Invalid or expired verification session")
	}

	var user models.User
	if err := h.db.First(&user, "id = ?", record.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "User not found")
		}
		return err
	}

	if record.Purpose == models.PurposeSignup && !user.IsVerified {
		err := h.db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(&user).Update("is_verified", true).Error; err != nil {
				return err
			}
			return seedDefaultCategories(tx, user.ID)
		})
		if err != nil {
			return err
		}
		user.IsVerified = true
	}

	token, err := utils.GenerateToken(h.cfg.JWTSecret, user.ID, h.cfg.TokenExpires)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to generate token")
	}

	return c.JSON(fiber.Map{
		"user":         userResponse(&user),
		"access_token": token,
	})
}

type resendCodeRequest struct {
	SessionID string `json:"session_id" validate:"required"`
}

// ResendCode supersedes an unconsumed challenge with a fresh one. The
// whole resend episode is bounded; past the cap the caller must start over.
func (h *AuthHandler) ResendCode(c *fiber.Ctx) error {
	var req resendCodeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := utils.ValidateStruct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, utils.ValidationMessage(err))
	}

	sessionID, err := uuid.Parse(req.SessionID)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid verification session")
	}

	old, err := h.verifications.Get(sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid verification session")
		}
		return err
	}

	if old.Used {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid verification session")
	}

	// The count includes the original and every prior resend, so the cap
	// bounds total codes issued per challenge episode.
	count, err := h.verifications.CountSince(old.UserID, old.Purpose, old.EpisodeStart)
	if err != nil {
		return err
	}
	if count > maxResends {
		return fiber.NewError(fiber.StatusTooManyRequests, "Maximum resend limit reached. Please start over.")
	}

	consumed, err := h.verifications.MarkUsed(old)
	if err != nil {
		return err
	}
	if !consumed {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid verification session")
	}

	var user models.User
	if err := h.db.First(&user, "id = ?", old.UserID).Error; err != nil {
		return err
	}

	record, err := h.verifications.Resend(old, h.cfg.CodeExpires)
	if err != nil {
		return err
	}
	h.sendCode(user.Email, record.Code)

	return c.JSON(fiber.Map{
		"session_id": record.ID,
		"message":    "New verification code sent to your email",
	})
}

type socialAuthRequest struct {
	Provider string `json:"provider" validate:"required,oneof=google apple"`
	IDToken  string `json:"id_token" validate:"required"`
}

// SocialAuth signs a user in through a third-party identity provider.
// Single-factor: the provider already verified the identity, so no code
// challenge is created.
func (h *AuthHandler) SocialAuth(c *fiber.Ctx) error {
	var req socialAuthRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := utils.ValidateStruct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, utils.ValidationMessage(err))
	}

	provider, ok := h.providers[req.Provider]
	if !ok {
		return fiber.NewError(fiber.StatusBadRequest, "invalid provider")
	}

	identity, err := provider.Resolve(req.IDToken)
	if err != nil {
		if errors.Is(err, services.ErrNoEmail) {
			return fiber.NewError(fiber.StatusUnauthorized, "Could not extract email from token")
		}
		log.Printf("[Auth] %s token resolution failed: %v", req.Provider, err)
		return fiber.NewError(fiber.StatusUnauthorized, invalidProviderTokenMessage(req.Provider))
	}

	email := normalizeEmail(identity.Email)

	var user models.User
	err = h.db.Where("email = ?", email).First(&user).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = models.User{
			Email:      email,
			Name:       identity.Name,
			Provider:   req.Provider,
			IsVerified: true,
		}
		txErr := h.db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&user).Error; err != nil {
				return err
			}
			return seedDefaultCategories(tx, user.ID)
		})
		if txErr != nil {
			return txErr
		}
	case err != nil:
		return err
	default:
		if !user.IsVerified {
			// Escape hatch: an abandoned password signup is recovered by
			// the provider-verified identity.
			if err := h.db.Model(&user).Update("is_verified", true).Error; err != nil {
				return err
			}
			user.IsVerified = true
		}
	}

	token, err := utils.GenerateToken(h.cfg.JWTSecret, user.ID, h.cfg.TokenExpires)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to generate token")
	}

	return c.JSON(fiber.Map{
		"user":         userResponse(&user),
		"access_token": token,
	})
}

// Me returns the authenticated user's profile.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var user models.User
	if err := h.db.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid token")
		}
		return err
	}

	return c.JSON(fiber.Map{"user": userResponse(&user)})
}

// Logout acknowledges the request. Tokens are stateless; expiry is the
// only server-side bound on their lifetime.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *AuthHandler) sendCode(email, code string) {
	if err := h.mailer.SendVerificationCode(email, code); err != nil {
		log.Printf("[Auth] failed to deliver verification code to %s: %v", email, err)
	}
}

func seedDefaultCategories(tx *gorm.DB, userID uuid.UUID) error {
	categories := make([]models.Category, len(defaultCategories))
	for i, cat := range defaultCategories {
		cat.UserID = userID
		categories[i] = cat
	}
	return tx.Create(&categories).Error
}

func userResponse(user *models.User) fiber.Map {
	return fiber.Map{
		"id":     user.ID,
		"email":  user.Email,
		"name":   user.Name,
		"avatar": user.Avatar,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func invalidProviderTokenMessage(provider string) string {
	switch provider {
	case "apple":
		return "Invalid Apple ID token"
	default:
		return "Invalid Google ID token"
	}
}
