package main

import (
	"log"
	"os"

	"internhub/internal/database"
	"internhub/internal/handler"
	"internhub/internal/middleware"
	"internhub/internal/notification"
	"internhub/internal/repository"
	"internhub/internal/service"
	"internhub/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           InternHub API
// @version         1.0
// @description     Internship and project tracking backend with email-link approvals.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := godotenv.Load("configs/.env"); err != nil {
		log.Println("No configs/.env file found or error loading it")
	}

	dbHost := os.Getenv("DB_HOST")
	dbPort := os.Getenv("DB_PORT")
	dbUser := os.Getenv("DB_USER")
	dbPassword := os.Getenv("DB_PASSWORD")
	dbName := os.Getenv("DB_NAME")
	dbSslMode := os.Getenv("DB_SSLMODE")

	if dbHost == "" {
		dbHost = "localhost"
	}
	if dbPort == "" {
		dbPort = "5432"
	}
	if dbUser == "" {
		dbUser = "postgres"
	}
	if dbPassword == "" {
		dbPassword = "postgres"
	}
	if dbName == "" {
		dbName = "postgres"
	}
	if dbSslMode == "" {
		dbSslMode = "disable"
	}

	dsn := "postgres://" + dbUser + ":" + dbPassword + "@" + dbHost + ":" + dbPort + "/" + dbName + "?sslmode=" + dbSslMode

	db, err := database.NewConnection(dsn)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	log.Println("Connected to PostgreSQL successfully.")

	workflowPath := os.Getenv("WORKFLOW_DEFINITIONS")
	if workflowPath == "" {
		workflowPath = "configs/workflows.yaml"
	}
	if err := database.SeedWorkflowDefinitions(db, workflowPath); err != nil {
		log.Fatalf("Failed to seed workflow definitions: %v", err)
	}

	baseURL := os.Getenv("APP_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	// Outbound mail: real SMTP when configured, log-only gateway otherwise.
	var gateway notification.Gateway
	if smtpHost := os.Getenv("SMTP_HOST"); smtpHost != "" {
		gateway = notification.NewSMTPGateway(notification.SMTPConfig{
			Host:     smtpHost,
			Port:     os.Getenv("SMTP_PORT"),
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     os.Getenv("SMTP_FROM"),
		})
	} else {
		log.Println("SMTP_HOST not set, using log-only mail gateway")
		gateway = notification.NewLogGateway()
	}

	// Set up WebSocket Hub
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	refreshRepo := repository.NewRefreshTokenRepository(db)
	placementRepo := repository.NewPlacementRepository(db)
	logRepo := repository.NewLogEntryRepository(db)
	tokenRepo := repository.NewApprovalTokenRepository(db)
	workflowRepo := repository.NewWorkflowRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	eligibility := service.NewPlacementEligibility(placementRepo)

	userService := service.NewUserService(userRepo, refreshRepo)
	placementService := service.NewPlacementService(placementRepo, userRepo, auditRepo, txManager)
	logService := service.NewLogEntryService(logRepo, placementRepo, auditRepo, txManager)
	workflowService := service.NewWorkflowService(workflowRepo, auditRepo, txManager, eligibility, wsHub)
	approvalService := service.NewApprovalService(
		tokenRepo, logRepo, placementRepo, userRepo, auditRepo,
		txManager, gateway, workflowService, wsHub, baseURL,
	)
	auditService := service.NewAuditService(auditRepo)

	// Initialize Handlers
	userHandler := handler.NewUserHandler(userService)
	placementHandler := handler.NewPlacementHandler(placementService)
	logHandler := handler.NewLogEntryHandler(logService)
	approvalHandler := handler.NewApprovalHandler(approvalService)
	workflowHandler := handler.NewWorkflowHandler(workflowService)
	auditHandler := handler.NewAuditHandler(auditService)

	// Set up Gin Router
	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173", "http://localhost:5174"} // Frontend URL
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, middleware.GetJWTSecret())
	})

	// Register API Routes
	userHandler.RegisterRoutes(router.Group(""))
	placementHandler.RegisterRoutes(router.Group(""))
	logHandler.RegisterRoutes(router.Group(""))
	approvalHandler.RegisterRoutes(router.Group(""))
	workflowHandler.RegisterRoutes(router.Group(""))
	auditHandler.RegisterRoutes(router.Group(""))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server listening on :%s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
