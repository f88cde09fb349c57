package models

import (
	"time"

	"github.com/google/uuid"
)

// AnalysisRun records one bounded execution of the batch analysis process for
// a campaign. It is created at orchestration start, mutated only by the
// orchestrator, and immutable once completed. Posts are referenced by id only,
// so deleting a post never rewrites run history.
type AnalysisRun struct {
	ID         uuid.UUID `json:"id" db:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	CampaignID uuid.UUID `json:"campaign_id" db:"campaign_id" gorm:"not null;index"`

	BatchSize   int        `json:"batch_size" db:"batch_size"`
	StartedAt   time.Time  `json:"started_at" db:"started_at"`
	CompletedAt *time.Time `json:"completed_at" db:"completed_at"`

	Succeeded int `json:"succeeded" db:"succeeded" gorm:"default:0"`
	Failed    int `json:"failed" db:"failed" gorm:"default:0"`

	// Relationships
	Failures []RunFailure `json:"failures,omitempty" gorm:"foreignKey:RunID"`
}

// TableName sets the table name for the AnalysisRun model
func (AnalysisRun) TableName() string {
	return "analysis_runs"
}

// RunFailure records a post that could not be analyzed during a run, with
// enough detail to retry selectively.
type RunFailure struct {
	ID     uuid.UUID `json:"id" db:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	RunID  uuid.UUID `json:"run_id" db:"run_id" gorm:"not null;index"`
	PostID uuid.UUID `json:"post_id" db:"post_id" gorm:"not null"`
	Reason string    `json:"reason" db:"reason"`
}

// TableName sets the table name for the RunFailure model
func (RunFailure) TableName() string {
	return "run_failures"
}
