package pipeline

import (
	"context"
	"fmt"
	"time"

	"medwatch/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Store is the persistence contract the orchestrator depends on.
type Store interface {
	// Campaign returns the campaign context, or an error for an unknown id.
	Campaign(ctx context.Context, id uuid.UUID) (*models.Campaign, error)

	// ListUnanalyzed returns up to limit unanalyzed posts for the campaign,
	// oldest-created-first, so run selection is deterministic.
	ListUnanalyzed(ctx context.Context, campaignID uuid.UUID, limit int) ([]models.Post, error)

	// MarkAnalyzed atomically transitions a post to analyzed and persists
	// its result. Returns false without error if the post was already
	// analyzed, so a lost race is a skip, not a failure.
	MarkAnalyzed(ctx context.Context, postID uuid.UUID, result *models.AnalysisResult) (bool, error)

	// SaveRun persists the completed run record.
	SaveRun(ctx context.Context, run *models.AnalysisRun) error
}

// GormStore implements Store on the application database.
type GormStore struct {
	db *gorm.DB
}

var _ Store = (*GormStore)(nil)

// NewGormStore creates a store backed by the given database.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Campaign looks up a campaign by id.
func (s *GormStore) Campaign(ctx context.Context, id uuid.UUID) (*models.Campaign, error) {
	var campaign models.Campaign
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&campaign).Error; err != nil {
		return nil, fmt.Errorf("failed to find campaign %s: %w", id, err)
	}
	return &campaign, nil
}

// ListUnanalyzed selects the oldest unanalyzed posts for a campaign.
func (s *GormStore) ListUnanalyzed(ctx context.Context, campaignID uuid.UUID, limit int) ([]models.Post, error) {
	var posts []models.Post
	err := s.db.WithContext(ctx).
		Where("campaign_id = ? AND analyzed = ?", campaignID, false).
		Order("created_at asc, id asc").
		Limit(limit).
		Find(&posts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list unanalyzed posts: %w", err)
	}
	return posts, nil
}

// MarkAnalyzed claims the post with a conditional update keyed on "currently
// unanalyzed" and writes the result in the same transaction. Two concurrent
// runs can therefore never double-analyze a post: the loser of the race sees
// zero affected rows and skips.
func (s *GormStore) MarkAnalyzed(ctx context.Context, postID uuid.UUID, result *models.AnalysisResult) (bool, error) {
	claimed := false

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		res := tx.Model(&models.Post{}).
			Where("id = ? AND analyzed = ?", postID, false).
			Updates(map[string]interface{}{
				"analyzed":    true,
				"analyzed_at": &now,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to claim post: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil // already analyzed elsewhere
		}

		result.PostID = postID
		if result.ID == uuid.Nil {
			result.ID = uuid.New()
		}
		for i := range result.Citations {
			if result.Citations[i].ID == uuid.Nil {
				result.Citations[i].ID = uuid.New()
			}
			result.Citations[i].ResultID = result.ID
		}
		if err := tx.Create(result).Error; err != nil {
			return fmt.Errorf("failed to persist result: %w", err)
		}
		claimed = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return claimed, nil
}

// SaveRun persists the run record together with its failure rows.
func (s *GormStore) SaveRun(ctx context.Context, run *models.AnalysisRun) error {
	if err := s.db.WithContext(ctx).Create(run).Error; err != nil {
		return fmt.Errorf("failed to save analysis run: %w", err)
	}
	return nil
}
