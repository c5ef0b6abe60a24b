package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"quizfunnel/internal/auth"
	"quizfunnel/internal/publish"
	"quizfunnel/internal/quiz"
	"quizfunnel/internal/reconcile"
	"quizfunnel/internal/session"
	"quizfunnel/pkg/cache"
	"quizfunnel/pkg/database"
	"quizfunnel/pkg/websocket"

	"github.com/gorilla/mux"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found")
	}

	// Initialize database
	dbConfig := &database.Config{
		Host:     os.Getenv("DB_HOST"),
		Port:     os.Getenv("DB_PORT"),
		User:     os.Getenv("DB_USER"),
		Password: os.Getenv("DB_PASSWORD"),
		DBName:   os.Getenv("DB_NAME"),
	}

	db, err := database.NewPostgresDB(dbConfig)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	// Initialize Redis cache
	redisCache := cache.NewRedisCache(os.Getenv("REDIS_ADDR"))

	// Initialize WebSocket hub for the builder live-events feed
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Initialize repositories and the reconciliation engine
	authRepo := auth.NewRepository(db)
	quizRepo := quiz.NewRepository(db)
	sessionRepo := session.NewRepository(db)
	engine := reconcile.NewEngine(db)

	// Downstream platform publisher; empty endpoint disables it
	publisher := publish.NewHTTPPublisher(os.Getenv("PUBLISH_ENDPOINT"))

	// Initialize services
	jwtSecret := os.Getenv("JWT_SECRET")
	authService := auth.NewService(authRepo, jwtSecret)
	quizService := quiz.NewService(quizRepo, engine, redisCache, wsHub, publisher)
	sessionService := session.NewService(sessionRepo, wsHub)

	// Initialize handlers
	authHandler := auth.NewHandler(authService)
	quizHandler := quiz.NewHandler(quizService)
	sessionHandler := session.NewHandler(sessionService)

	// Setup router
	router := mux.NewRouter()

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins:   []string{os.Getenv("FRONTEND_ORIGIN")},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Requested-With"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	})
	handler := corsMiddleware.Handler(router)

	// Auth routes - no JWT required
	router.HandleFunc("/api/auth/register", authHandler.Register).Methods("POST", "OPTIONS")
	router.HandleFunc("/api/auth/login", authHandler.Login).Methods("POST", "OPTIONS")

	// Public respondent routes - no JWT required
	router.HandleFunc("/api/quizzes/{quizID}/public", quizHandler.GetPublicQuiz).Methods("GET", "OPTIONS")
	router.HandleFunc("/api/quizzes/{quizID}/sessions", sessionHandler.StartSession).Methods("POST", "OPTIONS")
	router.HandleFunc("/api/sessions/{sessionID}/answers", sessionHandler.RecordAnswer).Methods("POST", "OPTIONS")

	// Builder routes - JWT required
	apiRouter := router.PathPrefix("/api").Subrouter()
	apiRouter.Use(auth.JWTMiddleware(jwtSecret))

	apiRouter.HandleFunc("/quizzes", quizHandler.GetMyQuizzes).Methods("GET")
	apiRouter.HandleFunc("/quizzes", quizHandler.CreateQuiz).Methods("POST", "OPTIONS")
	apiRouter.HandleFunc("/quizzes/{quizID}", quizHandler.GetQuiz).Methods("GET", "OPTIONS")
	apiRouter.HandleFunc("/quizzes/{quizID}", quizHandler.UpdateQuiz).Methods("PUT", "OPTIONS")
	apiRouter.HandleFunc("/quizzes/{quizID}", quizHandler.DeleteQuiz).Methods("DELETE", "OPTIONS")

	// WebSocket endpoint for operators watching a quiz's live funnel feed
	router.HandleFunc("/ws/quizzes/{quizID}", wsHub.HandleWebSocket)

	srv := &http.Server{
		Addr:         ":8080",
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("Server starting on port 8080")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Graceful shutdown setup
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	<-c

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server shutdown gracefully")
}
