package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Disinformation grade bounds. Grades outside the range are clamped during
// verdict normalization, never stored.
const (
	GradeMin = 1
	GradeMax = 5
)

// Verdict labels produced by the analyzer.
const (
	VerdictReal      = "real"
	VerdictUncertain = "uncertain"
	VerdictFake      = "fake"
)

// Sentiment labels.
const (
	SentimentPositive = "positive"
	SentimentNeutral  = "neutral"
	SentimentNegative = "negative"
)

// AnalysisResult holds the structured disinformation assessment for a single
// post. A result row is only ever written on a fully successful analysis, so
// grade and confidence are always jointly present.
type AnalysisResult struct {
	ID     uuid.UUID `json:"id" db:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	PostID uuid.UUID `json:"post_id" db:"post_id" gorm:"uniqueIndex;not null"`

	// Verdict
	Grade         int     `json:"grade" db:"grade" gorm:"not null"` // disinformation severity, GradeMin..GradeMax
	Verdict       string  `json:"verdict" db:"verdict"`             // real, uncertain or fake
	Justification string  `json:"justification" db:"justification" gorm:"type:text"`
	Sentiment     string  `json:"sentiment" db:"sentiment"`
	Confidence    float64 `json:"confidence" db:"confidence"` // 0..1

	// Extracted context
	MedicalConcepts pq.StringArray `json:"medical_concepts" db:"medical_concepts" gorm:"type:text[]"`
	KeyTerms        pq.StringArray `json:"key_terms" db:"key_terms" gorm:"type:text[]"`

	// Evidence
	EvidenceCount int    `json:"evidence_count" db:"evidence_count" gorm:"default:0"`
	Provider      string `json:"provider" db:"provider"` // LLM backend that produced the verdict

	CreatedAt time.Time `json:"created_at" db:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at" gorm:"autoUpdateTime"`

	// Relationships
	Citations []Citation `json:"citations,omitempty" gorm:"foreignKey:ResultID"`
}

// TableName sets the table name for the AnalysisResult model
func (AnalysisResult) TableName() string {
	return "analysis_results"
}

// IsFake reports whether the result meets the given fake-news grade threshold.
func (r *AnalysisResult) IsFake(threshold int) bool {
	return r.Grade >= threshold
}
