package app

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"teamchat-backend/internal/db"
	"teamchat-backend/internal/handlers"
	"teamchat-backend/internal/models"
	"teamchat-backend/internal/realtime"
	"teamchat-backend/internal/services"
	"teamchat-backend/internal/store"
	"teamchat-backend/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

func Run() {
	// Load Env
	if err := utils.LoadEnv(); err != nil {
		log.Println("Warning: .env file not found")
	}

	// Stores: in-memory by default, Postgres when configured.
	stores := store.NewMemoryStores()
	if utils.GetEnv("STORE_BACKEND", "memory") == "postgres" {
		connString := utils.GetEnv("DATABASE_URL", "")
		if connString == "" {
			// Fallback to individual vars
			connString = "postgres://" + utils.GetEnv("POSTGRES_USER", "postgres") + ":" +
				utils.GetEnv("POSTGRES_PASSWORD", "postgres") + "@" +
				utils.GetEnv("POSTGRES_HOST", "localhost") + ":" +
				utils.GetEnv("POSTGRES_PORT", "5432") + "/" +
				utils.GetEnv("POSTGRES_DB", "chatdb") + "?sslmode=disable"
		}

		pool, err := db.Connect(context.Background(), connString)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer pool.Close()

		if err := db.Migrate(context.Background(), pool); err != nil {
			log.Fatalf("Failed to migrate database: %v", err)
		}
		stores = store.NewPostgresStores(pool)
	}

	// Services
	locks := store.NewKeyedMutex()
	userService := services.NewUserService(stores.Users)
	membership := services.NewMembershipService(stores.Containers, stores.Users, locks)
	chatService := services.NewChatService(membership, stores)

	// Realtime layer
	registry := realtime.NewRegistry()
	broadcaster := realtime.NewBroadcaster(registry)
	gateway := handlers.NewGateway(registry, broadcaster, userService, membership, chatService)

	// Fiber App
	app := fiber.New()

	// Middleware
	app.Use(logger.New())
	app.Use(recover.New())
	app.Use(cors.New())

	// Ensure upload dir exists and serve uploaded files
	uploadDir := utils.GetEnv("UPLOAD_DIR", "uploads")
	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		log.Printf("Warning: failed to create upload dir: %v", err)
	}
	app.Static("/uploads", uploadDir)

	// Routes
	api := app.Group("/api")

	// Public Routes
	api.Post("/register", func(c *fiber.Ctx) error {
		var req models.RegisterRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "Invalid request"})
		}
		user, err := userService.Register(c.Context(), req)
		if err != nil {
			if errors.Is(err, services.ErrConflict) {
				return c.Status(400).JSON(fiber.Map{"error": "username already exists"})
			}
			if errors.Is(err, services.ErrValidation) {
				return c.Status(400).JSON(fiber.Map{"error": err.Error()})
			}
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.Status(201).JSON(user.Public())
	})

	api.Post("/login", func(c *fiber.Ctx) error {
		var req models.LoginRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "Invalid request"})
		}
		res, err := userService.Login(c.Context(), req)
		if err != nil {
			return c.Status(401).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(res)
	})

	// Refresh token endpoint
	api.Post("/refresh", func(c *fiber.Ctx) error {
		var body struct {
			RefreshToken string `json:"refresh_token"`
		}
		if err := c.BodyParser(&body); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "Invalid request"})
		}
		if body.RefreshToken == "" {
			return c.Status(400).JSON(fiber.Map{"error": "refresh_token required"})
		}

		claims, err := services.ValidateRefreshToken(body.RefreshToken)
		if err != nil {
			return c.Status(401).JSON(fiber.Map{"error": "invalid refresh token"})
		}

		userID, ok := claims["user_id"].(string)
		if !ok || userID == "" {
			return c.Status(401).JSON(fiber.Map{"error": "invalid token claims"})
		}
		username, ok := claims["username"].(string)
		if !ok {
			return c.Status(401).JSON(fiber.Map{"error": "invalid token claims"})
		}

		access, err := services.GenerateJWT(userID, username)
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": "failed to generate access token"})
		}
		refresh, err := services.GenerateRefreshToken(userID, username)
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": "failed to generate refresh token"})
		}

		return c.JSON(fiber.Map{
			"access_token":  access,
			"refresh_token": refresh,
		})
	})

	// Protected Routes
	protected := api.Group("/")
	protected.Use(handlers.AuthMiddleware)

	// Users. Returns live presence per user.
	protected.Get("/users", func(c *fiber.Ctx) error {
		authUserID := c.Locals("user_id").(string)

		users, err := userService.List(c.Context())
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": "failed to fetch users"})
		}

		var resp []*models.PublicUser
		for i := range users {
			if users[i].ID == authUserID {
				continue
			}
			u := users[i].Public()
			if !registry.IsUserOnline(u.ID) {
				u.Status = models.StatusOffline
			}
			resp = append(resp, u)
		}
		return c.JSON(resp)
	})

	protected.Get("/me", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		user, err := userService.GetByID(c.Context(), userID)
		if err != nil {
			return c.Status(404).JSON(fiber.Map{"error": "user not found"})
		}
		return c.JSON(user.Public())
	})

	// Channels
	protected.Post("/channels", handlers.CreateContainerHandler(membership, models.KindChannel))
	protected.Get("/channels", handlers.ListContainersHandler(membership))
	protected.Get("/channels/:id", handlers.GetContainerHandler(membership))
	protected.Post("/channels/:id/join", handlers.JoinContainerHandler(membership))
	protected.Post("/channels/:id/members", handlers.AddMemberHandler(membership))
	protected.Delete("/channels/:id/members/:user_id", handlers.RemoveMemberHandler(membership))
	protected.Put("/channels/:id/members/:user_id/role", handlers.UpdateRoleHandler(membership))
	protected.Post("/channels/:id/transfer", handlers.TransferOwnershipHandler(membership))

	// Workspaces share the membership handlers; only creation differs.
	protected.Post("/workspaces", handlers.CreateContainerHandler(membership, models.KindWorkspace))
	protected.Get("/workspaces/:id", handlers.GetContainerHandler(membership))
	protected.Post("/workspaces/:id/join", handlers.JoinContainerHandler(membership))
	protected.Post("/workspaces/:id/members", handlers.AddMemberHandler(membership))
	protected.Delete("/workspaces/:id/members/:user_id", handlers.RemoveMemberHandler(membership))
	protected.Put("/workspaces/:id/members/:user_id/role", handlers.UpdateRoleHandler(membership))
	protected.Post("/workspaces/:id/transfer", handlers.TransferOwnershipHandler(membership))

	// Direct threads
	protected.Post("/dms", handlers.CreateDirectThreadHandler(membership))

	// Messages
	protected.Get("/containers/:id/messages", handlers.HistoryHandler(chatService))
	protected.Patch("/messages/:id", handlers.EditMessageHandler(chatService))
	protected.Delete("/messages/:id", handlers.DeleteMessageHandler(chatService))

	// Files
	protected.Post("/files", handlers.UploadFileHandler(stores.Files))

	// Notifications
	protected.Get("/notifications", handlers.ListNotificationsHandler(stores.Notifications))
	protected.Post("/notifications/:id/read", handlers.MarkNotificationReadHandler(stores.Notifications))

	// Health Check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// WebSocket Route
	// Note: Middleware order matters. AuthMiddleware checks token.
	// WSUpgradeMiddleware checks if it's a WS request.
	app.Use("/ws", handlers.WSUpgradeMiddleware)
	app.Use("/ws", handlers.AuthMiddleware)
	app.Get("/ws", gateway.WebSocketHandler())

	// Start Server
	port := utils.GetEnv("PORT", "3001")
	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Panic(err)
		}
	}()

	// Graceful Shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	<-c // Block until signal
	log.Println("Gracefully shutting down...")
	_ = app.Shutdown()
	log.Println("Server shutdown complete")
}
