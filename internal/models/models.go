// Package models contains all data models for the medwatch application
package models

import (
	"gorm.io/gorm"
)

// AllModels returns a slice of all model types for database migrations
func AllModels() []interface{} {
	return []interface{}{
		&Campaign{},
		&Post{},
		&AnalysisResult{},
		&Citation{},
		&AnalysisRun{},
		&RunFailure{},
	}
}

// AutoMigrate runs automatic migrations for all models
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(AllModels()...)
}
