package routes

import (
	"clipify-backend/internal/api/handlers"
	"clipify-backend/internal/middleware"
	"clipify-backend/pkg/jwt"

	"github.com/gofiber/fiber/v2"
)

type Config struct {
	App               *fiber.App
	UserHandler       handlers.UserHandler
	CreditHandler     handlers.CreditHandler
	GenerationHandler handlers.GenerationHandler
	PaymentHandler    handlers.PaymentHandler
	Middleware        middleware.Middleware
	JWTService        jwt.JWTService
}

func (c *Config) Setup() {
	c.App.Use(c.Middleware.CORSMiddleware())
	c.User()
	c.Credits()
	c.Generations()
	c.GuestRoute()
}

func (c *Config) User() {
	user := c.App.Group("/api/v1/users")
	{
		user.Post("/register", c.UserHandler.Register)
		user.Post("/login", c.UserHandler.Login)
		user.Get("/me", c.Middleware.AuthMiddleware(c.JWTService), c.UserHandler.Me)
	}
}

func (c *Config) Credits() {
	credits := c.App.Group("/api/v1/credits", c.Middleware.AuthMiddleware(c.JWTService))
	{
		credits.Get("", c.CreditHandler.GetUserCredits)
		credits.Get("/history", c.CreditHandler.GetCreditHistory)
		credits.Get("/packages", c.PaymentHandler.GetCreditPackages)
		credits.Post("/buy", c.PaymentHandler.BuyCredits)
		credits.Post("/process-payment", c.PaymentHandler.ProcessPayment)
	}
}

func (c *Config) Generations() {
	generations := c.App.Group("/api/v1/generations", c.Middleware.AuthMiddleware(c.JWTService))
	{
		generations.Post("", c.GenerationHandler.CreateGeneration)
		generations.Post("/generate", c.GenerationHandler.Generate)
		generations.Get("", c.GenerationHandler.GetGenerations)
		generations.Get("/:id", c.GenerationHandler.GetGeneration)
		generations.Post("/:id/complete", c.GenerationHandler.CompleteGeneration)
		generations.Post("/:id/fail", c.GenerationHandler.FailGeneration)
	}
}

func (c *Config) GuestRoute() {
	c.App.Get("/api/ping", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"message": "pong"})
	})
	c.App.Post("/webhook/midtrans", c.PaymentHandler.PaymentWebhookHandler)
}
