package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Campaign represents a user-defined monitoring scope: the keywords and
// platforms under which posts are collected and analyzed. Campaign CRUD lives
// in the API layer; the pipeline only reads campaign context.
type Campaign struct {
	ID   uuid.UUID `json:"id" db:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	Name string    `json:"name" db:"name" gorm:"not null"`

	// Monitoring scope
	Keywords  pq.StringArray `json:"keywords" db:"keywords" gorm:"type:text[]"`
	Platforms pq.StringArray `json:"platforms" db:"platforms" gorm:"type:text[]"`
	StartDate *time.Time     `json:"start_date" db:"start_date"`
	EndDate   *time.Time     `json:"end_date" db:"end_date"`

	// Analysis configuration
	FakeGradeThreshold int  `json:"fake_grade_threshold" db:"fake_grade_threshold" gorm:"default:4"` // grade at or above which a post counts as fake news
	IsActive           bool `json:"is_active" db:"is_active" gorm:"default:true"`

	CreatedAt time.Time `json:"created_at" db:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at" gorm:"autoUpdateTime"`

	// Relationships
	Posts []Post `json:"posts,omitempty" gorm:"foreignKey:CampaignID"`
}

// TableName sets the table name for the Campaign model
func (Campaign) TableName() string {
	return "campaigns"
}
