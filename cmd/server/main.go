package main

import (
	"context"
	"log"
	"net/http"

	"github.com/joho/godotenv"

	"github.com/checkme-health/checkme-backend/internal/config"
	"github.com/checkme-health/checkme-backend/internal/database"
	"github.com/checkme-health/checkme-backend/internal/handlers"
	"github.com/checkme-health/checkme-backend/internal/middleware"
	"github.com/checkme-health/checkme-backend/internal/routes"
	"github.com/checkme-health/checkme-backend/internal/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

func main() {
	// Load env
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}
	cfg := config.Load()
	handlers.Init(cfg)

	// Connect to PostgreSQL (user/specialist directory)
	log.Printf("Connecting to PostgreSQL...")
	if err := database.ConnectPostgres(cfg.PostgresURI); err != nil {
		log.Fatal("Failed to connect to PostgreSQL:", err)
	}
	defer database.DisconnectPostgres()

	// Connect to Redis (presence, sessions, cache, relay, notify queue)
	log.Printf("Connecting to Redis...")
	if err := database.ConnectRedis(cfg.RedisURI); err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	defer database.DisconnectRedis()

	// Connect to MongoDB (schedules, appointments, chats)
	log.Printf("Connecting to MongoDB...")
	if err := database.Connect(cfg.MongoURI); err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer database.Disconnect()

	if err := services.EnsureChatIndexes(context.Background()); err != nil {
		log.Printf("⚠️  WARNING: failed to ensure MongoDB chat indexes: %v", err)
	} else {
		log.Println("✅ MongoDB chat indexes ensured")
	}

	// Initialize Cloudinary for chat attachments
	if cfg.CloudinaryName != "" && cfg.CloudinaryAPIKey != "" && cfg.CloudinaryAPISecret != "" {
		if err := handlers.InitCloudinaryService(cfg); err != nil {
			log.Printf("Warning: Failed to initialize Cloudinary: %v", err)
			log.Println("Document messages will not be available")
		} else {
			log.Println("✅ Cloudinary service initialized")
		}
	} else {
		log.Println("Warning: Cloudinary credentials not found. Document messages will not be available")
	}

	// Cross-instance relay: every instance listens for targeted events and
	// presence broadcasts
	services.StartRelaySubscriber(context.Background())

	// Notification worker: drains the queued appointment notifications
	if cfg.NotifyProviderURL != "" {
		services.StartNotificationWorker(context.Background(), services.NewHTTPNotifier(cfg.NotifyProviderURL, cfg.NotifyAPIKey))
	} else {
		log.Println("Warning: NOTIFY_PROVIDER_URL not set. Appointment notifications will not be sent")
	}

	// Setup router
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.RateLimitMiddleware)

	routes.SetupRoutes(r)

	log.Printf("🚀 CheckMe backend running on :%s (instance %s)", cfg.Port, cfg.InstanceID)
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
