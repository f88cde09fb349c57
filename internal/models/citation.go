package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Citation is a biomedical literature record used to corroborate or refute a
// post's medical claims. Citations are produced by the evidence retriever,
// embedded in an analysis result, and never mutated afterwards.
type Citation struct {
	ID       uuid.UUID `json:"id" db:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	ResultID uuid.UUID `json:"result_id" db:"result_id" gorm:"index"`

	Title      string         `json:"title" db:"title" gorm:"type:text"`
	Authors    pq.StringArray `json:"authors" db:"authors" gorm:"type:text[]"` // publication order
	Identifier string         `json:"identifier" db:"identifier"`              // PMID or DOI
	URL        string         `json:"url" db:"url"`
	Year       int            `json:"year" db:"year"`

	// Relevance to the queried concepts, 0..1, used for ranking
	Relevance float64 `json:"relevance" db:"relevance" gorm:"default:0.0"`

	CreatedAt time.Time `json:"created_at" db:"created_at" gorm:"autoCreateTime"`
}

// TableName sets the table name for the Citation model
func (Citation) TableName() string {
	return "citations"
}
