package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"

	"github.com/JoeShih716/go-balance-ledger/internal/app/balance/usecase"
)

// NewApp 組裝 fiber app：middleware 與帳務 API 路由
func NewApp(service *usecase.Service, logger *zap.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "balance-ledger",
		DisableStartupMessage: true,
	})

	app.Use(requestid.New())
	app.Use(recover.New())

	handler := NewHandler(service, logger)

	api := app.Group("/api")
	api.Post("/deposit", handler.Deposit)
	api.Post("/withdraw", handler.Withdraw)
	api.Post("/transfer", handler.Transfer)
	api.Get("/balance/:user_id", handler.GetBalance)

	return app
}
