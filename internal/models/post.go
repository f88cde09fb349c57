package models

import (
	"time"

	"github.com/google/uuid"
)

// Platform identifies the social platform a post was collected from.
type Platform string

const (
	PlatformTwitter  Platform = "twitter"
	PlatformReddit   Platform = "reddit"
	PlatformYouTube  Platform = "youtube"
	PlatformFacebook Platform = "facebook"
	PlatformNews     Platform = "news"
	PlatformRSS      Platform = "rss"
)

// Post represents a collected social media post. Posts are created by the
// collection connectors and are read-only to the analysis pipeline, which only
// flips the analyzed flag (exactly once per post) and attaches a result.
type Post struct {
	ID         uuid.UUID `json:"id" db:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	CampaignID uuid.UUID `json:"campaign_id" db:"campaign_id" gorm:"not null;index"`

	Platform    Platform  `json:"platform" db:"platform" gorm:"not null;index"`
	Author      string    `json:"author" db:"author"`
	Text        string    `json:"text" db:"text" gorm:"type:text"`
	URL         string    `json:"url" db:"url"` // origin URL on the source platform
	PublishedAt time.Time `json:"published_at" db:"published_at"`

	// Engagement metrics reported by the platform at collection time
	LikesCount    int `json:"likes_count" db:"likes_count" gorm:"default:0"`
	SharesCount   int `json:"shares_count" db:"shares_count" gorm:"default:0"`
	CommentsCount int `json:"comments_count" db:"comments_count" gorm:"default:0"`

	// Analysis status. The transition to analyzed happens as a single
	// conditional update so two concurrent runs can never both claim a post.
	Analyzed   bool       `json:"analyzed" db:"analyzed" gorm:"default:false;index"`
	AnalyzedAt *time.Time `json:"analyzed_at" db:"analyzed_at"`

	// Optional human verdict from the verification flow; ground truth for
	// the report accuracy metrics when present.
	VerifiedFake *bool `json:"verified_fake" db:"verified_fake"`

	CreatedAt time.Time `json:"created_at" db:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at" gorm:"autoUpdateTime"`

	// Relationships
	Campaign Campaign        `json:"campaign,omitempty" gorm:"foreignKey:CampaignID;references:ID"`
	Result   *AnalysisResult `json:"result,omitempty" gorm:"foreignKey:PostID"`
}

// TableName sets the table name for the Post model
func (Post) TableName() string {
	return "posts"
}

// Engagement returns the combined engagement count used for report ranking.
func (p *Post) Engagement() int {
	return p.LikesCount + p.SharesCount + p.CommentsCount
}
