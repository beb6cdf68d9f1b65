package config

import (
	"clipify-backend/internal/api/handlers"
	"clipify-backend/internal/api/routes"
	"clipify-backend/internal/middleware"
	"clipify-backend/internal/utils"
	"clipify-backend/internal/utils/storage"
	"clipify-backend/pkg/generation"
	"clipify-backend/pkg/jwt"
	"clipify-backend/pkg/ledger"
	"clipify-backend/pkg/media"
	"clipify-backend/pkg/payment"
	"clipify-backend/pkg/user"
	"clipify-backend/pkg/vertex"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"gorm.io/gorm"
)

func NewApp(db *gorm.DB) (*fiber.App, error) {
	utils.InitValidator()
	app := fiber.New(fiber.Config{
		EnablePrintRoutes: true,
		// Long-running generations hold the request open for the whole
		// polling window.
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 6 * time.Minute,
	})
	middlewares := middleware.NewMiddleware()
	validator := utils.Validate

	// setting up logging and limiter
	err := os.MkdirAll("./logs", os.ModePerm)
	if err != nil {
		log.Fatalf("error creating logs directory: %v", err)
	}
	file, err := os.OpenFile(
		"./logs/app.log",
		os.O_RDWR|os.O_CREATE|os.O_APPEND,
		0666,
	)
	if err != nil {
		log.Fatalf("error opening file: %v", err)
	}
	app.Use(logger.New(logger.Config{
		TimeFormat: "2006-01-02 15:04:05",
		TimeZone:   "America/Mexico_City",
		Output:     file,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        10,
		Expiration: 1 * time.Second,
	}))

	// utils
	s3 := storage.NewAwsS3()
	vertexClient := vertex.NewVertexClient(
		utils.GetConfig("VERTEX_ENDPOINT"),
		utils.GetConfig("VERTEX_API_KEY"),
		utils.GetConfig("VERTEX_MODEL"),
		utils.GetConfig("VERTEX_FALLBACK_MODEL"),
	)

	// Repository
	userRepository := user.NewUserRepository(db)
	ledgerRepository := ledger.NewLedgerRepository(db)
	generationRepository := generation.NewGenerationRepository(db)
	paymentRepository := payment.NewPaymentRepository(db)

	// Service
	jwtService := jwt.NewJWTService()
	userService := user.NewUserService(userRepository, jwtService)
	ledgerService := ledger.NewLedgerService(ledgerRepository)
	mediaService := media.NewMediaService(s3)
	generationService := generation.NewGenerationService(
		generationRepository,
		ledgerService,
		mediaService,
		vertexClient,
	)
	paymentService := payment.NewPaymentService(
		paymentRepository,
		userRepository,
		ledgerService,
	)

	// Handler
	userHandler := handlers.NewUserHandler(userService, validator)
	creditHandler := handlers.NewCreditHandler(ledgerService)
	generationHandler := handlers.NewGenerationHandler(generationService, validator)
	paymentHandler := handlers.NewPaymentHandler(paymentService, validator)

	// routes
	routesConfig := routes.Config{
		App:               app,
		UserHandler:       userHandler,
		CreditHandler:     creditHandler,
		GenerationHandler: generationHandler,
		PaymentHandler:    paymentHandler,
		Middleware:        middlewares,
		JWTService:        jwtService,
	}
	routesConfig.Setup()
	return app, nil
}
