package main

import (
	"context"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"
	"github.com/joho/godotenv"

	"github.com/bloomdoula/bloom-be/internal/config"
	"github.com/bloomdoula/bloom-be/internal/db"
	"github.com/bloomdoula/bloom-be/internal/handlers"
	"github.com/bloomdoula/bloom-be/internal/messaging"
	"github.com/bloomdoula/bloom-be/internal/middleware"
	"github.com/bloomdoula/bloom-be/internal/models"
	"github.com/bloomdoula/bloom-be/internal/realtime"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	gdb, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatal(err)
	}

	rdb := realtime.NewRedis(cfg.RedisAddr, cfg.RedisPassword)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatal("Redis not reachable:", err)
	}

	hub := realtime.NewHub()
	go hub.Run()

	if err := gdb.AutoMigrate(
		&models.User{},
		&models.Client{},
		&models.Conversation{},
		&models.ConversationParticipant{},
		&models.Message{},
	); err != nil {
		log.Fatal(err)
	}

	app := fiber.New()

	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.FrontendBaseURL,
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		ExposeHeaders:    "Content-Length",
		AllowCredentials: true,
	}))

	authH := &handlers.AuthHandler{
		DB:        gdb,
		JWTSecret: cfg.JWTSecret,
		Expires:   cfg.JWTExpiresMin,
	}
	googleH := &handlers.GoogleOAuthHandler{
		DB:              gdb,
		JWTSecret:       cfg.JWTSecret,
		Expires:         cfg.JWTExpiresMin,
		GoogleClientID:  cfg.GoogleClientID,
		GoogleSecret:    cfg.GoogleSecret,
		GoogleRedirect:  cfg.GoogleRedirect,
		FrontendBaseURL: cfg.FrontendBaseURL,
	}
	msgH := handlers.NewMessagingHandler(gdb, hub, rdb)

	api := app.Group("/api")

	// public
	api.Post("/auth/staff/login", authH.StaffLogin)
	api.Post("/auth/client/login", authH.ClientLogin)
	api.Post("/auth/logout", authH.Logout)
	api.Get("/auth/google/start", googleH.GoogleStart)
	api.Get("/auth/google/callback", googleH.GoogleCallback)

	// protected (JWT cookie, staff or client)
	protected := api.Group("/",
		middleware.JWTFromCookie(cfg.JWTSecret),
		middleware.AttachCallerLocals(),
	)

	// account provisioning
	protected.Post("/admin/staff",
		middleware.RequireRoles("admin"),
		authH.CreateStaff,
	)
	protected.Post("/clients",
		middleware.RequireRoles("admin", "provider"),
		authH.CreateClient,
	)

	msg := protected.Group("/messaging")

	msg.Post("/conversations",
		middleware.RequireMessagingPermission(messaging.PermCreate),
		msgH.StartConversation,
	)
	msg.Get("/conversations", msgH.ListConversations)
	msg.Get("/conversations/:id/messages", msgH.GetMessages)
	msg.Post("/conversations/:id/messages", msgH.SendMessage)
	msg.Patch("/conversations/:id/read", msgH.MarkAsRead)
	msg.Patch("/conversations/:id/status",
		middleware.RequireMessagingPermission(messaging.PermUpdate),
		msgH.UpdateStatus,
	)
	msg.Delete("/messages/:id", msgH.DeleteMessage)
	msg.Get("/unread-total", msgH.GetUnreadTotal)

	// realtime stream; token travels as a query parameter
	app.Get("/ws/messaging", websocket.New(msgH.WebSocketHandler(cfg.JWTSecret)))

	log.Fatal(app.Listen(":" + cfg.AppPort))
}
