// Package routes builds the fiber app and wires every endpoint to its
// handler and middleware.
package routes

import (
	"errors"
	"net/http"
	"time"

	"kudi/internal/handlers"
	"kudi/internal/middleware"
	"kudi/internal/utils/response"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

type Handlers struct {
	Transfers *handlers.TransferHandler
	Purchases *handlers.PurchaseHandler
	Wallets   *handlers.WalletHandler
	Webhooks  *handlers.WebhookHandler
	Admin     *handlers.AdminHandler
	Health    *handlers.HealthHandler
	// Metrics serves the prometheus registry; nil disables /metrics.
	Metrics http.Handler
}

type Options struct {
	AllowOrigins string
	// RateLimit caps money-moving requests per user per minute. Zero disables it.
	RateLimit int
	// AccessLog enables fiber's request logger.
	AccessLog bool
}

// NewApp creates the fiber app with the middleware every route shares.
func NewApp(opts Options) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "kudi",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 90 * time.Second,
		ErrorHandler: errorHandler,
	})

	app.Use(recover.New())
	if opts.AllowOrigins != "" {
		app.Use(cors.New(cors.Config{
			AllowOrigins: opts.AllowOrigins,
			AllowHeaders: "Origin, Content-Type, Accept, Authorization",
			AllowMethods: "GET,POST,HEAD,OPTIONS",
		}))
	}
	if opts.AccessLog {
		app.Use(logger.New(logger.Config{
			Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
		}))
	}
	return app
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "internal server error"
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code, message = fe.Code, fe.Message
	}
	return response.Error(c, code, message)
}

// Setup registers every route.
func Setup(app *fiber.App, h Handlers, auth *middleware.AuthMiddleware, opts Options) {
	app.Get("/health", h.Health.Health)
	if h.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(h.Metrics))
	}

	// providers authenticate with signatures, not bearer tokens
	app.Post("/webhooks/:provider", h.Webhooks.Receive)

	api := app.Group("/api", auth.Handler)
	money := rateLimited(opts.RateLimit)

	api.Get("/wallet", h.Wallets.GetWallet)
	api.Post("/virtual-account", h.Wallets.IssueVirtualAccount)

	api.Get("/transfers/quote", h.Transfers.Quote)
	api.Post("/transfers", money, h.Transfers.Transfer)
	api.Get("/accounts/resolve", h.Transfers.ResolveAccount)

	purchases := api.Group("/purchases")
	purchases.Get("/quote", h.Purchases.Quote)
	purchases.Post("/airtime", money, h.Purchases.Airtime)
	purchases.Post("/data", money, h.Purchases.Data)
	purchases.Post("/bill", money, h.Purchases.Bill)

	setupAdminRoutes(api, h.Admin)
}

func setupAdminRoutes(api fiber.Router, h *handlers.AdminHandler) {
	admin := api.Group("/admin", middleware.AdminOnly)

	revenue := admin.Group("/revenue")
	revenue.Get("/summary", h.RevenueSummary)
	revenue.Get("/uncollected", h.UncollectedRevenue)
	revenue.Post("/collect", h.CollectRevenue)
	revenue.Get("/collections", h.Collections)

	admin.Get("/loyalty", h.LoyaltyAnalytics)
	admin.Get("/wallets/:userID/reconcile", h.ReconcileWallet)
	admin.Patch("/wallets/:userID/status", h.SetWalletStatus)
	admin.Post("/webhooks/replay", h.ReplayWebhooks)
}

func rateLimited(max int) fiber.Handler {
	if max <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			if id := middleware.UserID(c); id != "" {
				return id
			}
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return response.Error(c, fiber.StatusTooManyRequests, "too many requests, please try again later")
		},
	})
}
