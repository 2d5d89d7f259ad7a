package main

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/folionet/messaging-backend/internal/cache"
	"github.com/folionet/messaging-backend/internal/handlers"
	"github.com/folionet/messaging-backend/internal/middleware"
	"github.com/folionet/messaging-backend/internal/realtime"
	"github.com/folionet/messaging-backend/internal/repository"
	"github.com/folionet/messaging-backend/internal/service"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/websocket/v2"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		AppName: "Folio Messaging Backend",
	})

	// Middleware
	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     os.Getenv("ALLOWED_ORIGINS"),
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Folio-CSRF",
		AllowMethods:     "GET, POST, PUT, DELETE, OPTIONS",
		AllowCredentials: true,
	}))

	// Initialize database connection
	db, err := repository.InitDB()
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Initialize Redis cache
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}
	redisPassword := os.Getenv("REDIS_PASSWORD")
	redisDB := 0
	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		if parsedDB, err := strconv.Atoi(dbStr); err == nil {
			redisDB = parsedDB
		}
	}

	redisCache := cache.NewRedisCache(redisAddr, redisPassword, redisDB)
	if err := redisCache.Ping(); err != nil {
		log.Printf("WARNING: Redis connection failed: %v. Running without cache.", err)
		redisCache = nil
	} else {
		log.Println("Redis cache connected successfully")
	}

	conversationCache := cache.NewConversationCache(redisCache)
	unreadCache := cache.NewUnreadCache(redisCache)
	presenceCache := cache.NewPresenceCache(redisCache)

	// Initialize repositories
	conversationRepo := repository.NewConversationRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	stateRepo := repository.NewUserConversationRepository(db)
	pendingMessageRepo := repository.NewPendingMessageRepository(db)

	// Initialize realtime fan-out
	broker := realtime.NewBroker()
	hub := realtime.NewHub(pendingMessageRepo)

	// Initialize services
	conversationService := service.NewConversationService(conversationRepo, stateRepo, messageRepo, broker, conversationCache)
	messageService := service.NewMessageService(messageRepo, conversationRepo, stateRepo, broker, hub, conversationCache, unreadCache)
	unreadService := service.NewUnreadService(stateRepo, unreadCache)

	// Initialize handlers
	wsHandler := handlers.NewWebSocketHandler(conversationService, messageService, unreadService, hub, presenceCache)
	conversationHandler := handlers.NewConversationHandler(conversationService, unreadService)
	messageHandler := handlers.NewMessageHandler(messageService, conversationService, unreadService)
	unreadHandler := handlers.NewUnreadHandler(unreadService)

	// Protected API routes
	api := app.Group("/api", middleware.OriginAllowed())
	protected := api.Group("/", middleware.AuthRequired(), middleware.CSRFRequired())

	protected.Post("/conversations", limiter.New(limiter.Config{
		Max:        30,
		Expiration: time.Minute,
	}), conversationHandler.GetOrCreate)
	protected.Get("/conversations", conversationHandler.List)
	protected.Get("/conversations/:id", conversationHandler.Get)
	protected.Get("/conversations/:id/messages", messageHandler.GetMessages)
	protected.Post("/conversations/:id/messages", messageHandler.SendMessage)
	protected.Post("/conversations/:id/read", messageHandler.MarkRead)
	protected.Get("/unread", unreadHandler.GetCounts)
	protected.Get("/unread/total", unreadHandler.GetTotal)

	// Admin routes
	admin := protected.Group("/admin", middleware.RequireRole("admin"))
	admin.Post("/conversations/cleanup", conversationHandler.Cleanup)

	// WebSocket route (websocket upgrade needs special handling)
	app.Use(
		"/ws",
		middleware.OriginAllowed(),
		middleware.AuthRequired(),
		func(c *fiber.Ctx) error {
			// Upgrade to WebSocket
			if websocket.IsWebSocketUpgrade(c) {
				return c.Next()
			}
			return fiber.ErrUpgradeRequired
		},
	)
	app.Get("/ws", websocket.New(wsHandler.HandleWebSocket))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"message": "Folio messaging is running",
		})
	})

	// Periodic duplicate-conversation cleanup, disabled unless configured
	if intervalStr := os.Getenv("CONVERSATION_CLEANUP_INTERVAL"); intervalStr != "" {
		interval, err := time.ParseDuration(intervalStr)
		if err != nil {
			log.Fatalf("Invalid CONVERSATION_CLEANUP_INTERVAL %q: %v", intervalStr, err)
		}
		go func() {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for range ticker.C {
				removed, err := conversationService.CleanupDuplicates()
				if err != nil {
					log.Printf("Duplicate conversation cleanup failed: %v", err)
					continue
				}
				if removed > 0 {
					log.Printf("Duplicate conversation cleanup removed %d conversations", removed)
				}
			}
		}()
	}

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on port %s...", port)
	if err := app.Listen(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
