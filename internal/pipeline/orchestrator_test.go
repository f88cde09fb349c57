package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"medwatch/internal/analyzer"
	"medwatch/internal/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	return db
}

func createCampaign(t *testing.T, db *gorm.DB) *models.Campaign {
	campaign := &models.Campaign{
		ID:                 uuid.New(),
		Name:               "Vaccine Watch",
		Keywords:           pq.StringArray{"vaccine"},
		FakeGradeThreshold: 4,
		IsActive:           true,
	}
	require.NoError(t, db.Create(campaign).Error)
	return campaign
}

func createPost(t *testing.T, db *gorm.DB, campaignID uuid.UUID, text string, publishedAt time.Time) *models.Post {
	post := &models.Post{
		ID:          uuid.New(),
		CampaignID:  campaignID,
		Platform:    models.PlatformTwitter,
		Author:      "someone",
		Text:        text,
		PublishedAt: publishedAt,
	}
	require.NoError(t, db.Create(post).Error)
	return post
}

// selectiveAnalyzer fails the posts whose text it was told to fail.
type selectiveAnalyzer struct {
	failTexts map[string]error
}

func (s *selectiveAnalyzer) Analyze(ctx context.Context, post *models.Post, campaign analyzer.CampaignContext) (*models.AnalysisResult, error) {
	if err, ok := s.failTexts[post.Text]; ok {
		return nil, err
	}
	return &models.AnalysisResult{
		Grade:      4,
		Verdict:    models.VerdictFake,
		Sentiment:  models.SentimentNegative,
		Confidence: 0.8,
		Provider:   "fake",
	}, nil
}

func TestRun_PartialFailureIsolated(t *testing.T) {
	db := setupTestDB(t)
	campaign := createCampaign(t, db)

	now := time.Now().UTC()
	createPost(t, db, campaign.ID, "post A", now.Add(-3*time.Hour))
	postB := createPost(t, db, campaign.ID, "post B", now.Add(-2*time.Hour))
	createPost(t, db, campaign.ID, "post C", now.Add(-1*time.Hour))

	failing := &selectiveAnalyzer{failTexts: map[string]error{
		"post B": &analyzer.AnalysisError{Reason: analyzer.ReasonNoProvider, Err: errors.New("all providers timed out")},
	}}
	o := NewOrchestrator(NewGormStore(db), failing, &Config{Concurrency: 2})

	run, err := o.Run(context.Background(), campaign.ID, 10)

	require.NoError(t, err)
	assert.Equal(t, 2, run.Succeeded)
	assert.Equal(t, 1, run.Failed)
	require.Len(t, run.Failures, 1)
	assert.Equal(t, postB.ID, run.Failures[0].PostID)
	assert.Equal(t, analyzer.ReasonNoProvider, run.Failures[0].Reason)
	assert.NotNil(t, run.CompletedAt)

	// The failed post stays unanalyzed and is picked up by the next run.
	store := NewGormStore(db)
	remaining, err := store.ListUnanalyzed(context.Background(), campaign.ID, 10)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, postB.ID, remaining[0].ID)

	// The run record was persisted with its failure rows.
	var savedRuns []models.AnalysisRun
	require.NoError(t, db.Preload("Failures").Find(&savedRuns).Error)
	require.Len(t, savedRuns, 1)
	assert.Equal(t, 2, savedRuns[0].Succeeded)
	require.Len(t, savedRuns[0].Failures, 1)
}

func TestRun_SecondRunSelectsNothingNew(t *testing.T) {
	db := setupTestDB(t)
	campaign := createCampaign(t, db)
	createPost(t, db, campaign.ID, "post A", time.Now().UTC())

	o := NewOrchestrator(NewGormStore(db), &selectiveAnalyzer{}, &Config{Concurrency: 1})

	first, err := o.Run(context.Background(), campaign.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Succeeded)

	second, err := o.Run(context.Background(), campaign.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Succeeded)
	assert.Equal(t, 0, second.Failed)

	// Exactly one result row exists.
	var count int64
	db.Model(&models.AnalysisResult{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestRun_RespectsBatchSize(t *testing.T) {
	db := setupTestDB(t)
	campaign := createCampaign(t, db)

	now := time.Now().UTC()
	for i := 0; i < 5; i++ {
		createPost(t, db, campaign.ID, "post", now.Add(time.Duration(i)*time.Minute))
	}

	o := NewOrchestrator(NewGormStore(db), &selectiveAnalyzer{}, &Config{Concurrency: 2})

	run, err := o.Run(context.Background(), campaign.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, run.Succeeded)

	remaining, err := NewGormStore(db).ListUnanalyzed(context.Background(), campaign.ID, 10)
	require.NoError(t, err)
	assert.Len(t, remaining, 2)
}

// blockingAnalyzer signals each analysis start and blocks until released.
type blockingAnalyzer struct {
	started chan uuid.UUID
	release chan struct{}
	mu      sync.Mutex
	calls   int
}

func (b *blockingAnalyzer) Analyze(ctx context.Context, post *models.Post, campaign analyzer.CampaignContext) (*models.AnalysisResult, error) {
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()
	b.started <- post.ID
	<-b.release
	return &models.AnalysisResult{
		Grade:      4,
		Verdict:    models.VerdictFake,
		Sentiment:  models.SentimentNegative,
		Confidence: 0.8,
		Provider:   "fake",
	}, nil
}

func TestRun_CancellationDrainsInFlight(t *testing.T) {
	db := setupTestDB(t)
	campaign := createCampaign(t, db)

	now := time.Now().UTC()
	for i := 0; i < 3; i++ {
		createPost(t, db, campaign.ID, "post", now.Add(time.Duration(i)*time.Minute))
	}

	blocking := &blockingAnalyzer{
		started: make(chan uuid.UUID),
		release: make(chan struct{}),
	}
	o := NewOrchestrator(NewGormStore(db), blocking, &Config{Concurrency: 1})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	type outcome struct {
		run *models.AnalysisRun
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		run, err := o.Run(ctx, campaign.ID, 10)
		done <- outcome{run, err}
	}()

	// Cancel while the first post is in flight, then let it finish.
	inFlight := <-blocking.started
	cancel()
	close(blocking.release)

	result := <-done
	require.NoError(t, result.err)

	// The in-flight post completed and was persisted despite cancellation.
	assert.Equal(t, 1, result.run.Succeeded)
	assert.Equal(t, 0, result.run.Failed, "unscheduled posts are not failures")
	assert.Empty(t, result.run.Failures)

	var analyzed models.Post
	require.NoError(t, db.First(&analyzed, "id = ?", inFlight).Error)
	assert.True(t, analyzed.Analyzed)

	// The other posts were never scheduled and stay unanalyzed for the
	// next run.
	remaining, err := NewGormStore(db).ListUnanalyzed(context.Background(), campaign.ID, 10)
	require.NoError(t, err)
	assert.Len(t, remaining, 2)

	blocking.mu.Lock()
	defer blocking.mu.Unlock()
	assert.Equal(t, 1, blocking.calls, "no analysis starts after cancellation")
}

func TestRun_UnknownCampaignAborts(t *testing.T) {
	db := setupTestDB(t)
	o := NewOrchestrator(NewGormStore(db), &selectiveAnalyzer{}, &Config{Concurrency: 1})

	_, err := o.Run(context.Background(), uuid.New(), 10)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "analysis run aborted")
}

func TestMarkAnalyzed_ClaimsOnlyOnce(t *testing.T) {
	db := setupTestDB(t)
	campaign := createCampaign(t, db)
	post := createPost(t, db, campaign.ID, "post A", time.Now().UTC())
	store := NewGormStore(db)

	result := &models.AnalysisResult{
		Grade:      5,
		Verdict:    models.VerdictFake,
		Confidence: 0.9,
		Provider:   "fake",
		Citations: []models.Citation{
			{Title: "Cohort study", Identifier: "111", Year: 2022},
		},
	}

	claimed, err := store.MarkAnalyzed(context.Background(), post.ID, result)
	require.NoError(t, err)
	assert.True(t, claimed)

	// A concurrent run losing the claim race reports false without error.
	again, err := store.MarkAnalyzed(context.Background(), post.ID, &models.AnalysisResult{
		Grade: 1, Verdict: models.VerdictReal, Confidence: 0.5, Provider: "fake",
	})
	require.NoError(t, err)
	assert.False(t, again)

	var saved models.Post
	require.NoError(t, db.Preload("Result.Citations").First(&saved, "id = ?", post.ID).Error)
	assert.True(t, saved.Analyzed)
	assert.NotNil(t, saved.AnalyzedAt)
	require.NotNil(t, saved.Result)
	assert.Equal(t, 5, saved.Result.Grade, "the losing write must not overwrite the result")
	require.Len(t, saved.Result.Citations, 1)
}

func TestListUnanalyzed_OrderAndScope(t *testing.T) {
	db := setupTestDB(t)
	campaign := createCampaign(t, db)
	other := createCampaign(t, db)

	now := time.Now().UTC()
	createPost(t, db, other.ID, "other campaign", now)
	older := createPost(t, db, campaign.ID, "older", now)
	newer := createPost(t, db, campaign.ID, "newer", now)

	// Force distinct creation timestamps for a deterministic order.
	db.Model(older).Update("created_at", now.Add(-time.Hour))
	db.Model(newer).Update("created_at", now)

	posts, err := NewGormStore(db).ListUnanalyzed(context.Background(), campaign.ID, 10)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, older.ID, posts[0].ID)
	assert.Equal(t, newer.ID, posts[1].ID)
}
