// Package pipeline drives batch analysis runs: it selects unanalyzed posts
// for a campaign, fans out per-post analysis under a concurrency limit,
// isolates failures at post granularity and records the run outcome.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"sync"
	"time"

	"medwatch/internal/analyzer"
	"medwatch/internal/models"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// PostAnalyzer evaluates a single post.
type PostAnalyzer interface {
	Analyze(ctx context.Context, post *models.Post, campaign analyzer.CampaignContext) (*models.AnalysisResult, error)
}

// Orchestrator runs bounded analysis batches for a campaign.
type Orchestrator struct {
	store       Store
	analyzer    PostAnalyzer
	concurrency int
}

// Config holds orchestrator configuration.
type Config struct {
	Concurrency int // max in-flight per-post analyses
}

// LoadConfig loads orchestrator configuration from environment variables
func LoadConfig() *Config {
	concurrency, err := strconv.Atoi(getEnv("ANALYSIS_CONCURRENCY", "4"))
	if err != nil || concurrency < 1 {
		concurrency = 4
	}
	return &Config{Concurrency: concurrency}
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(store Store, postAnalyzer PostAnalyzer, cfg *Config) *Orchestrator {
	concurrency := cfg.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	return &Orchestrator{
		store:       store,
		analyzer:    postAnalyzer,
		concurrency: concurrency,
	}
}

// Run analyzes up to batchSize unanalyzed posts for the campaign. One post's
// failure never aborts the batch; the returned run tallies successes and
// failures with enough detail to retry selectively. Re-running after a
// partial run only picks up posts still unanalyzed, so each post is analyzed
// at most once. Cancelling ctx stops scheduling new posts but lets in-flight
// analyses complete, keeping every post in an unambiguous state.
func (o *Orchestrator) Run(ctx context.Context, campaignID uuid.UUID, batchSize int) (*models.AnalysisRun, error) {
	campaign, err := o.store.Campaign(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("analysis run aborted: %w", err)
	}

	posts, err := o.store.ListUnanalyzed(ctx, campaignID, batchSize)
	if err != nil {
		return nil, fmt.Errorf("analysis run aborted: %w", err)
	}

	run := &models.AnalysisRun{
		ID:         uuid.New(),
		CampaignID: campaignID,
		BatchSize:  batchSize,
		StartedAt:  time.Now().UTC(),
	}

	log.Printf("🔬 Starting analysis run %s: %d posts for campaign %q", run.ID, len(posts), campaign.Name)

	campaignCtx := analyzer.CampaignContext{Keywords: campaign.Keywords}

	var mu sync.Mutex
	recordFailure := func(postID uuid.UUID, reason string) {
		mu.Lock()
		run.Failed++
		run.Failures = append(run.Failures, models.RunFailure{
			ID:     uuid.New(),
			RunID:  run.ID,
			PostID: postID,
			Reason: reason,
		})
		mu.Unlock()
	}
	recordSuccess := func() {
		mu.Lock()
		run.Succeeded++
		mu.Unlock()
	}

	// In-flight analyses must not be torn down mid-write on cancellation, so
	// tasks run on a context detached from ctx; scheduling checks ctx itself.
	taskCtx := context.WithoutCancel(ctx)

	eg := &errgroup.Group{}
	eg.SetLimit(o.concurrency)

	for i := range posts {
		if ctx.Err() != nil {
			log.Printf("Run %s cancelled, not scheduling remaining %d posts", run.ID, len(posts)-i)
			break
		}

		post := posts[i]
		eg.Go(func() error {
			// The slot may only free up after cancellation; a post that
			// has not started yet must stay unscheduled.
			if ctx.Err() != nil {
				return nil
			}
			o.analyzeOne(taskCtx, &post, campaignCtx, recordSuccess, recordFailure)
			return nil
		})
	}

	_ = eg.Wait() // per-post errors are captured in the run, never returned

	now := time.Now().UTC()
	run.CompletedAt = &now

	if err := o.store.SaveRun(taskCtx, run); err != nil {
		return nil, err
	}

	log.Printf("✅ Analysis run %s completed: %d succeeded, %d failed", run.ID, run.Succeeded, run.Failed)
	return run, nil
}

// analyzeOne analyzes and persists a single post, translating every failure
// into a run failure record.
func (o *Orchestrator) analyzeOne(ctx context.Context, post *models.Post, campaignCtx analyzer.CampaignContext, recordSuccess func(), recordFailure func(uuid.UUID, string)) {
	result, err := o.analyzer.Analyze(ctx, post, campaignCtx)
	if err != nil {
		reason := err.Error()
		var analysisErr *analyzer.AnalysisError
		if errors.As(err, &analysisErr) {
			reason = analysisErr.Reason
		}
		log.Printf("❌ Post %s analysis failed: %v", post.ID, err)
		recordFailure(post.ID, reason)
		return
	}

	claimed, err := o.store.MarkAnalyzed(ctx, post.ID, result)
	if err != nil {
		log.Printf("❌ Post %s result write failed: %v", post.ID, err)
		recordFailure(post.ID, "result write failed: "+err.Error())
		return
	}
	if !claimed {
		// Another run got here first; the post is analyzed either way.
		log.Printf("Post %s already analyzed by a concurrent run, skipping", post.ID)
		return
	}

	recordSuccess()
}

// getEnv returns environment variable value or default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
