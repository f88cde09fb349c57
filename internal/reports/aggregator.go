// Package reports computes campaign-level statistics from analyzed posts.
// Every report number is derived from the Post and AnalysisResult rows at
// query time; nothing here is cached or persisted, so reports can never
// drift from the source data.
package reports

import (
	"context"
	"fmt"
	"sort"
	"time"

	"medwatch/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TopPostsLimit bounds the highest-graded posts listed in a report.
const TopPostsLimit = 10

// Window optionally bounds a report to posts published in [From, To).
type Window struct {
	From *time.Time
	To   *time.Time
}

// CampaignReport is the derived read-side view of a campaign's analyses.
type CampaignReport struct {
	CampaignID  uuid.UUID `json:"campaign_id"`
	GeneratedAt time.Time `json:"generated_at"`

	TotalPosts    int `json:"total_posts"`
	AnalyzedPosts int `json:"analyzed_posts"`
	FakeCount     int `json:"fake_count"`

	// FakeCount / AnalyzedPosts as a percentage; 0 when nothing is analyzed.
	FakeNewsPercentage float64 `json:"fake_news_percentage"`

	MostAffectedPlatform string           `json:"most_affected_platform,omitempty"`
	Platforms            []PlatformStats  `json:"platforms"`
	Timeline             []TimelineBucket `json:"timeline"`
	TopFakePosts         []TopPost        `json:"top_fake_posts"`
	Concepts             []ConceptStats   `json:"concepts"`

	// Accuracy is only present when human ground-truth labels exist.
	Accuracy *AccuracyMetrics `json:"accuracy,omitempty"`
}

// PlatformStats breaks report counts down by source platform.
type PlatformStats struct {
	Platform models.Platform `json:"platform"`
	Posts    int             `json:"posts"`
	Analyzed int             `json:"analyzed"`
	FakeNews int             `json:"fake_news"`
}

// TimelineBucket aggregates posts published on one UTC calendar day.
type TimelineBucket struct {
	Date     string `json:"date"` // YYYY-MM-DD, UTC
	Posts    int    `json:"posts"`
	FakeNews int    `json:"fake_news"`
}

// TopPost is a high-graded post listed in the report.
type TopPost struct {
	PostID     uuid.UUID       `json:"post_id"`
	Platform   models.Platform `json:"platform"`
	Author     string          `json:"author"`
	Text       string          `json:"text"`
	Grade      int             `json:"grade"`
	Confidence float64         `json:"confidence"`
	Engagement int             `json:"engagement"`
}

// ConceptStats tracks how often a medical concept appears and how often its
// posts were graded fake.
type ConceptStats struct {
	Concept  string  `json:"concept"`
	Count    int     `json:"count"`
	FakeNews int     `json:"fake_news"`
	FakeRate float64 `json:"fake_rate"`
}

// Aggregator computes campaign reports.
type Aggregator struct {
	db *gorm.DB
}

// NewAggregator creates an aggregator backed by the given database.
func NewAggregator(db *gorm.DB) *Aggregator {
	return &Aggregator{db: db}
}

// Summarize builds the report for a campaign, optionally bounded to a
// publication window. A campaign with no analyzed posts yields a zeroed
// report, never an error.
func (a *Aggregator) Summarize(ctx context.Context, campaignID uuid.UUID, window *Window) (*CampaignReport, error) {
	var campaign models.Campaign
	if err := a.db.WithContext(ctx).Where("id = ?", campaignID).First(&campaign).Error; err != nil {
		return nil, fmt.Errorf("failed to find campaign %s: %w", campaignID, err)
	}

	query := a.db.WithContext(ctx).
		Preload("Result").
		Where("campaign_id = ?", campaignID)
	if window != nil && window.From != nil {
		query = query.Where("published_at >= ?", *window.From)
	}
	if window != nil && window.To != nil {
		query = query.Where("published_at < ?", *window.To)
	}

	var posts []models.Post
	if err := query.Find(&posts).Error; err != nil {
		return nil, fmt.Errorf("failed to load posts: %w", err)
	}

	report := buildReport(campaignID, posts, campaign.FakeGradeThreshold)
	return report, nil
}

// buildReport folds posts and their results into a report. Pure function so
// the numbers are testable without a database.
func buildReport(campaignID uuid.UUID, posts []models.Post, threshold int) *CampaignReport {
	report := &CampaignReport{
		CampaignID:  campaignID,
		GeneratedAt: time.Now().UTC(),
		TotalPosts:  len(posts),
	}

	platforms := make(map[models.Platform]*PlatformStats)
	timeline := make(map[string]*TimelineBucket)
	concepts := make(map[string]*ConceptStats)
	var top []TopPost
	var truth truthCounts

	for i := range posts {
		post := &posts[i]

		ps := platforms[post.Platform]
		if ps == nil {
			ps = &PlatformStats{Platform: post.Platform}
			platforms[post.Platform] = ps
		}
		ps.Posts++

		day := post.PublishedAt.UTC().Format("2006-01-02")
		tb := timeline[day]
		if tb == nil {
			tb = &TimelineBucket{Date: day}
			timeline[day] = tb
		}
		tb.Posts++

		if post.Result == nil {
			continue
		}
		report.AnalyzedPosts++
		ps.Analyzed++

		fake := post.Result.IsFake(threshold)
		if fake {
			report.FakeCount++
			ps.FakeNews++
			tb.FakeNews++
			top = append(top, TopPost{
				PostID:     post.ID,
				Platform:   post.Platform,
				Author:     post.Author,
				Text:       post.Text,
				Grade:      post.Result.Grade,
				Confidence: post.Result.Confidence,
				Engagement: post.Engagement(),
			})
		}

		for _, concept := range post.Result.MedicalConcepts {
			cs := concepts[concept]
			if cs == nil {
				cs = &ConceptStats{Concept: concept}
				concepts[concept] = cs
			}
			cs.Count++
			if fake {
				cs.FakeNews++
			}
		}

		truth.observe(post.VerifiedFake, fake)
	}

	if report.AnalyzedPosts > 0 {
		report.FakeNewsPercentage = float64(report.FakeCount) / float64(report.AnalyzedPosts) * 100
	}

	report.Platforms = sortedPlatforms(platforms)
	report.MostAffectedPlatform = mostAffected(report.Platforms)
	report.Timeline = sortedTimeline(timeline)
	report.TopFakePosts = topPosts(top, TopPostsLimit)
	report.Concepts = sortedConcepts(concepts)
	report.Accuracy = truth.metrics()

	return report
}

// sortedPlatforms flattens the platform map in a stable order: most posts
// first, name ascending on ties.
func sortedPlatforms(byPlatform map[models.Platform]*PlatformStats) []PlatformStats {
	out := make([]PlatformStats, 0, len(byPlatform))
	for _, ps := range byPlatform {
		out = append(out, *ps)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Posts != out[j].Posts {
			return out[i].Posts > out[j].Posts
		}
		return out[i].Platform < out[j].Platform
	})
	return out
}

// mostAffected picks the platform with the most fake-graded posts.
func mostAffected(platforms []PlatformStats) string {
	best := ""
	bestCount := 0
	for _, ps := range platforms {
		if ps.FakeNews > bestCount || (ps.FakeNews == bestCount && bestCount > 0 && string(ps.Platform) < best) {
			best = string(ps.Platform)
			bestCount = ps.FakeNews
		}
	}
	return best
}

// sortedTimeline flattens the day buckets in chronological order.
func sortedTimeline(byDay map[string]*TimelineBucket) []TimelineBucket {
	out := make([]TimelineBucket, 0, len(byDay))
	for _, tb := range byDay {
		out = append(out, *tb)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// topPosts ranks fake-graded posts by grade descending, engagement
// descending, then post id ascending for determinism, truncated to limit.
func topPosts(posts []TopPost, limit int) []TopPost {
	sort.Slice(posts, func(i, j int) bool {
		if posts[i].Grade != posts[j].Grade {
			return posts[i].Grade > posts[j].Grade
		}
		if posts[i].Engagement != posts[j].Engagement {
			return posts[i].Engagement > posts[j].Engagement
		}
		return posts[i].PostID.String() < posts[j].PostID.String()
	})
	if len(posts) > limit {
		posts = posts[:limit]
	}
	return posts
}

// sortedConcepts flattens concept stats, most frequent first, name ascending
// on ties, and fills in the fake association rate.
func sortedConcepts(byConcept map[string]*ConceptStats) []ConceptStats {
	out := make([]ConceptStats, 0, len(byConcept))
	for _, cs := range byConcept {
		stats := *cs
		if stats.Count > 0 {
			stats.FakeRate = float64(stats.FakeNews) / float64(stats.Count)
		}
		out = append(out, stats)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Concept < out[j].Concept
	})
	return out
}
