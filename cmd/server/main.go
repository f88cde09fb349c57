package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"medwatch/internal/analyzer"
	"medwatch/internal/database"
	"medwatch/internal/evidence"
	"medwatch/internal/handlers"
	"medwatch/internal/llm"
	"medwatch/internal/pipeline"
	"medwatch/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load database configuration
	dbConfig := database.LoadConfig()

	// Connect to database
	if err := database.Connect(dbConfig); err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer database.Close()

	// Run migrations
	if err := database.Migrate(); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	// Build the analysis pipeline
	adapters, err := llm.NewAdapters(llm.LoadConfig())
	if err != nil {
		log.Fatal("Failed to configure language model providers:", err)
	}
	providers := make([]analyzer.VerdictProvider, 0, len(adapters))
	for _, a := range adapters {
		providers = append(providers, a)
	}
	retriever := evidence.NewRetriever(evidence.LoadConfig())
	postAnalyzer := analyzer.New(retriever, providers)
	orchestrator := pipeline.NewOrchestrator(pipeline.NewGormStore(database.DB), postAnalyzer, pipeline.LoadConfig())

	// Initialize and start the background analysis worker
	workerService := worker.NewService(database.DB, orchestrator, worker.LoadConfig())
	if err := workerService.Start(); err != nil {
		log.Fatal("Failed to start background worker:", err)
	}

	// Setup graceful shutdown
	setupGracefulShutdown(workerService)

	// Setup HTTP server
	setupServer(workerService, orchestrator)
}

func setupGracefulShutdown(workerService *worker.Service) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Println("Received shutdown signal, gracefully shutting down...")

		// Stop the background worker first so in-flight analyses finish
		workerService.Stop()

		// Close database connection
		database.Close()

		log.Println("Shutdown complete")
		os.Exit(0)
	}()
}

func setupServer(workerService *worker.Service, orchestrator *pipeline.Orchestrator) {
	// Set Gin mode based on environment
	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()

	// CORS middleware
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Initialize handlers
	campaignHandler := handlers.NewCampaignHandler(database.DB, orchestrator)
	postHandler := handlers.NewPostHandler(database.DB)
	healthHandler := handlers.NewHealthHandler(database.DB, workerService)

	// Health check
	r.GET("/health", healthHandler.HealthCheck)

	// API routes
	api := r.Group("/api")
	{
		campaigns := api.Group("/campaigns")
		{
			campaigns.GET("", campaignHandler.ListCampaigns)
			campaigns.POST("/:id/analysis", campaignHandler.TriggerAnalysis)
			campaigns.GET("/:id/report", campaignHandler.GetReport)
		}

		posts := api.Group("/posts")
		{
			posts.GET("/:id", postHandler.GetPost)
			posts.POST("/:id/verify", postHandler.VerifyPost)
		}

		workerGroup := api.Group("/worker")
		{
			workerGroup.GET("/status", healthHandler.WorkerStatus)
		}
	}

	// Get port from environment or default to 8080
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on port %s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
