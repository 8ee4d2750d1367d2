package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	paddle "github.com/PaddleHQ/paddle-go-sdk"
	clerk "github.com/clerk/clerk-sdk-go/v2"
	gorilllaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"experteneAPI/handlers"
	"experteneAPI/internal/mail"
	"experteneAPI/internal/notification"
	"experteneAPI/internal/storage"
	"experteneAPI/middleware"
	"experteneAPI/services"
)

var (
	dbPool               *pgxpool.Pool
	userService          *services.UserService
	streakService        *services.StreakService
	streakMirror         *services.StreakMirror
	articleService       *services.ArticleService
	analyticsService     *services.AnalyticsService
	mediaService         *services.MediaService
	passwordResetService *services.PasswordResetService
	subscriptionService  *services.SubscriptionService
	notificationService  *services.NotificationService
	fcmService           *notification.FCMService
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	clerkSecretKey := os.Getenv("CLERK_SECRET_KEY")
	if clerkSecretKey == "" {
		log.Fatal("CLERK_SECRET_KEY environment variable is not set")
	}
	clerk.SetKey(clerkSecretKey)
	log.Println("Clerk initialized successfully")

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		log.Fatal("Failed to parse database URL:", err)
	}

	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	dbPool, err = pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		log.Fatal("Failed to create connection pool:", err)
	}

	if err := dbPool.Ping(ctx); err != nil {
		log.Fatal("Failed to ping database:", err)
	}

	log.Println("Successfully connected to Postgres")

	notificationService = services.NewNotificationService(dbPool)
	userService = services.NewUserService(dbPool, notificationService)
	streakService = services.NewStreakService(services.NewPgxStreakRepository(dbPool))
	analyticsService = services.NewAnalyticsService(dbPool)

	mirrorPath := os.Getenv("STREAK_MIRROR_PATH")
	if mirrorPath == "" {
		mirrorPath = "./data/streak_mirror.json"
	}
	streakMirror = services.NewStreakMirror(mirrorPath)

	var paddleClient *paddle.SDK
	if apiKey := os.Getenv("PADDLE_API_KEY"); apiKey != "" {
		opts := []paddle.Option{}
		if os.Getenv("PADDLE_SANDBOX") == "true" {
			opts = append(opts, paddle.WithBaseURL(paddle.SandboxBaseURL))
		}
		paddleClient, err = paddle.New(apiKey, opts...)
		if err != nil {
			log.Printf("Warning: Could not initialize Paddle: %v", err)
			paddleClient = nil
		} else {
			log.Println("Paddle client initialized successfully")
		}
	} else {
		log.Println("PADDLE_API_KEY not set, checkout disabled")
	}
	subscriptionService = services.NewSubscriptionService(dbPool, paddleClient, notificationService)

	articleService = services.NewArticleService(dbPool, streakService, subscriptionService, notificationService)

	var uploader services.ObjectUploader
	if s3Store, err := storage.NewS3Storage(ctx); err != nil {
		log.Printf("Warning: Could not initialize S3 storage: %v", err)
	} else {
		uploader = s3Store
	}
	mediaService = services.NewMediaService(uploader)

	var mailProvider services.MailProvider
	if mailer, err := mail.NewSMTPMailer(); err != nil {
		log.Printf("Warning: Could not initialize SMTP mailer: %v", err)
	} else {
		mailProvider = mailer
	}
	passwordResetService = services.NewPasswordResetService(
		services.NewPgxResetTokenRepository(dbPool),
		mailProvider,
		services.ClerkCredentialStore{},
	)

	fcmService, err = notification.NewFCMService("./serviceAccountKey.json")
	if err != nil {
		log.Printf("Warning: Could not initialize FCM: %v", err)
	} else {
		notificationService.SetPushProvider(fcmService)
		log.Println("FCM Push Provider initialized successfully")
	}

	middleware.InitPrometheus()
}

func main() {
	defer func() {
		log.Println("Closing database connection pool...")
		dbPool.Close()
	}()

	userHandler := handlers.NewUserHandler(userService, streakService)
	articleHandler := handlers.NewArticleHandler(articleService, analyticsService, userService, streakMirror)
	analyticsHandler := handlers.NewAnalyticsHandler(analyticsService, userService)
	mediaHandler := handlers.NewMediaHandler(mediaService, userService)
	passwordResetHandler := handlers.NewPasswordResetHandler(passwordResetService)
	notificationHandler := handlers.NewNotificationHandler(notificationService, userService)
	webhookHandler := handlers.NewWebhookHandler(userService)
	paddleHandler := handlers.NewPaddleHandler(subscriptionService, userService)

	r := mux.NewRouter()

	standardRouter := r.PathPrefix("/").Subrouter()

	go middleware.CleanupVisitors()

	standardRouter.Use(middleware.RateLimitMiddleware)
	standardRouter.Use(middleware.MonitorMiddleware)

	standardRouter.Handle("/metrics", middleware.BasicAuthMiddleware(promhttp.Handler()))

	standardRouter.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := dbPool.Ping(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status": "unhealthy", "error": "database connection failed"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy", "service": "expertene-api"}`))
	}).Methods("GET")

	standardRouter.HandleFunc("/webhooks/clerk", webhookHandler.HandleClerkWebhook).Methods("POST")
	standardRouter.HandleFunc("/webhooks/paddle", paddleHandler.PaddleWebhookHandler).Methods("POST")

	// -------------------------------------------------------------------------
	// API V1 SUBROUTER
	// -------------------------------------------------------------------------
	api := standardRouter.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/auth/password-reset", passwordResetHandler.RequestReset).Methods("POST")
	api.HandleFunc("/auth/password-reset/confirm", passwordResetHandler.ConfirmReset).Methods("POST")

	// Public reads carry the viewer identity when a token is present so premium
	// gating and analytics attribution work for signed-in readers too.
	public := api.PathPrefix("").Subrouter()
	public.Use(middleware.OptionalAuthMiddleware)

	public.HandleFunc("/articles/{slug}", articleHandler.GetBySlug).Methods("GET")
	public.HandleFunc("/articles/{articleID}/comments", articleHandler.ListComments).Methods("GET")
	public.HandleFunc("/articles/{slug}/qr", articleHandler.ShareQR).Methods("GET")
	public.HandleFunc("/profiles/{userID}", userHandler.GetPublicProfile).Methods("GET")
	public.HandleFunc("/profiles/{userID}/followers", userHandler.ListFollowers).Methods("GET")
	public.HandleFunc("/profiles/{userID}/following", userHandler.ListFollowing).Methods("GET")
	public.HandleFunc("/analytics/events", analyticsHandler.RecordEvent).Methods("POST")

	// -------------------------------------------------------------------------
	// PROTECTED ROUTES (REQUIRE AUTH HEADER)
	// -------------------------------------------------------------------------
	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.ClerkAuthMiddleware)

	protected.HandleFunc("/user", userHandler.GetProfile).Methods("GET")
	protected.HandleFunc("/user/update-profile", userHandler.UpdateProfile).Methods("PUT")
	protected.HandleFunc("/user/delete-account", userHandler.DeleteAccount).Methods("DELETE")
	protected.HandleFunc("/user/search", userHandler.SearchUsers).Methods("GET")
	protected.HandleFunc("/user/streak", userHandler.GetStreak).Methods("GET")
	protected.HandleFunc("/user/follow/{userID}", userHandler.Follow).Methods("POST")
	protected.HandleFunc("/user/follow/{userID}", userHandler.Unfollow).Methods("DELETE")

	protected.HandleFunc("/articles", articleHandler.Publish).Methods("POST")
	protected.HandleFunc("/articles/slug", articleHandler.GenerateSlug).Methods("POST")
	protected.HandleFunc("/feed", articleHandler.Feed).Methods("GET")
	protected.HandleFunc("/articles/{articleID}/comments", articleHandler.AddComment).Methods("POST")
	protected.HandleFunc("/articles/{articleID}/like", articleHandler.Like).Methods("POST")
	protected.HandleFunc("/articles/{articleID}/like", articleHandler.Unlike).Methods("DELETE")
	protected.HandleFunc("/articles/{articleID}/stats", articleHandler.Stats).Methods("GET")

	protected.HandleFunc("/media/images", mediaHandler.UploadImage).Methods("POST")

	protected.HandleFunc("/user/subscriptions", paddleHandler.ListSubscriptions).Methods("GET")
	protected.HandleFunc("/subscriptions/checkout", paddleHandler.CreateCheckout).Methods("POST")

	protected.HandleFunc("/notifications", notificationHandler.List).Methods("GET")
	protected.HandleFunc("/notifications/unread-count", notificationHandler.UnreadCount).Methods("GET")
	protected.HandleFunc("/notifications/{notificationID}/read", notificationHandler.MarkAsRead).Methods("PUT")
	protected.HandleFunc("/notifications/read-all", notificationHandler.MarkAllAsRead).Methods("PUT")
	protected.HandleFunc("/notifications/register-device", notificationHandler.RegisterDevice).Methods("POST")

	// CORS configuration
	corsHandler := gorilllaHandlers.CORS(
		gorilllaHandlers.AllowedOrigins([]string{"*"}),
		gorilllaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		gorilllaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		gorilllaHandlers.ExposedHeaders([]string{"Content-Length"}),
		gorilllaHandlers.AllowCredentials(),
	)

	port := os.Getenv("PORT")
	if port == "" {
		port = "3333"
	}
	port = ":" + port

	server := http.Server{
		Addr:         port,
		Handler:      corsHandler(r),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Starting server on port %s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Error starting server:", err)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)

	sig := <-sigChan
	log.Println("Got signal:", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server shutdown complete")
}
