package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"medwatch/internal/analyzer"
	"medwatch/internal/database"
	"medwatch/internal/evidence"
	"medwatch/internal/llm"
	"medwatch/internal/pipeline"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

func main() {
	// Command line flags
	campaignFlag := flag.String("campaign", "", "Campaign ID to analyze (required)")
	batchSize := flag.Int("batch", 25, "Maximum number of posts to analyze in this run")
	flag.Parse()

	if *campaignFlag == "" {
		log.Fatal("❌ -campaign flag is required")
	}
	campaignID, err := uuid.Parse(*campaignFlag)
	if err != nil {
		log.Fatalf("❌ Invalid campaign ID %q: %v", *campaignFlag, err)
	}

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

	// Cancel the run on Ctrl-C; in-flight analyses still complete
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Printf("🔍 Starting analysis run for campaign %s (batch size %d)...", campaignID, *batchSize)

	run, err := orchestrator.Run(ctx, campaignID, *batchSize)
	if err != nil {
		log.Fatalf("❌ Analysis run failed: %v", err)
	}

	log.Printf("✅ Analysis run %s complete: %d succeeded, %d failed", run.ID, run.Succeeded, run.Failed)
	for _, failure := range run.Failures {
		log.Printf("   ⚠️  Post %s: %s", failure.PostID, failure.Reason)
	}
}
