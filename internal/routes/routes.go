package routes

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"

	"github.com/example/fintrack/internal/config"
	"github.com/example/fintrack/internal/handlers"
	"github.com/example/fintrack/internal/middleware"
	"github.com/example/fintrack/internal/services"
)

// NewApp builds the Fiber application with middleware and all routes wired.
func NewApp(db *gorm.DB, cfg *config.Config) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "FinTrack API",
		ErrorHandler: ErrorHandler,
	})

	app.Use(recover.New())
	app.Use(logger.New())

	mailer := services.NewEmailService(
		cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPFrom,
		cfg.CodeExpires,
	)

	Register(app, db, cfg, mailer, services.IdentityProviders())
	return app
}

// Register wires up all HTTP routes. The notification and identity
// collaborators are injected so tests can substitute them.
func Register(app *fiber.App, db *gorm.DB, cfg *config.Config, mailer services.CodeSender, providers map[string]services.IdentityProvider) {
	verifications := services.NewVerificationService(db)

	authHandler := handlers.NewAuthHandler(db, cfg, verifications, mailer, providers)
	categoryHandler := handlers.NewCategoryHandler(db)
	transactionHandler := handlers.NewTransactionHandler(db)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api/v1")
	authRequired := middleware.AuthMiddleware(cfg)

	auth := api.Group("/auth")
	auth.Post("/signup", authHandler.Signup)
	auth.Post("/login", authHandler.Login)
	auth.Post("/verify-code", authHandler.VerifyCode)
	auth.Post("/resend-code", authHandler.ResendCode)
	auth.Post("/social", authHandler.SocialAuth)
	auth.Get("/me", authRequired, authHandler.Me)
	auth.Post("/logout", authRequired, authHandler.Logout)

	categories := api.Group("/categories", authRequired)
	categories.Get("/", categoryHandler.ListCategories)
	categories.Post("/", categoryHandler.CreateCategory)
	categories.Put("/:id", categoryHandler.UpdateCategory)
	categories.Delete("/:id", categoryHandler.DeleteCategory)

	transactions := api.Group("/transactions", authRequired)
	transactions.Get("/stats", transactionHandler.Stats)
	transactions.Get("/", transactionHandler.ListTransactions)
	transactions.Post("/", transactionHandler.CreateTransaction)
	transactions.Get("/:id", transactionHandler.GetTransaction)
	transactions.Put("/:id", transactionHandler.UpdateTransaction)
	transactions.Delete("/:id", transactionHandler.DeleteTransaction)

	if cfg.Environment != "production" {
		devHandler := handlers.NewDevHandler(db)
		api.Post("/dev/reset-db", devHandler.ResetDB)
	}
}

// ErrorHandler renders every error as a stable {detail} body with the
// error's status code.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
		message = fiberErr.Message
	}

	return c.Status(code).JSON(fiber.Map{"detail": message})
}
