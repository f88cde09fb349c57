// Package database owns the PostgreSQL connection shared by the API layer,
// the pipeline and the background worker. Schema management is
// AutoMigrate-based; every entity registers itself in models.AllModels.
package database

import (
	"fmt"
	"log"
	"os"
	"strings"

	"medwatch/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB is the shared connection handle, set by Connect.
var DB *gorm.DB

// Config holds PostgreSQL connection settings.
type Config struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// LoadConfig reads connection settings from DB_* environment variables.
func LoadConfig() *Config {
	return &Config{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnv("DB_PORT", "5432"),
		User:     getEnv("DB_USER", "postgres"),
		Password: os.Getenv("DB_PASSWORD"),
		DBName:   getEnv("DB_NAME", "medwatch"),
		SSLMode:  getEnv("DB_SSLMODE", "disable"),
	}
}

// DSN renders the config as a keyword/value connection string. An empty
// password is omitted rather than sent as an empty parameter.
func (c *Config) DSN() string {
	parts := []string{
		"host=" + c.Host,
		"port=" + c.Port,
		"user=" + c.User,
	}
	if c.Password != "" {
		parts = append(parts, "password="+c.Password)
	}
	parts = append(parts, "dbname="+c.DBName, "sslmode="+c.SSLMode)
	return strings.Join(parts, " ")
}

// Connect opens the shared database connection. Query logging is verbose by
// default; DB_LOG=silent turns it off for batch and test runs.
func Connect(config *Config) error {
	logLevel := logger.Info
	if os.Getenv("DB_LOG") == "silent" {
		logLevel = logger.Silent
	}

	var err error
	DB, err = gorm.Open(postgres.Open(config.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Printf("Connected to database %s at %s:%s", config.DBName, config.Host, config.Port)
	return nil
}

// Migrate applies the schema for every registered model.
func Migrate() error {
	if DB == nil {
		return fmt.Errorf("database connection not established")
	}

	if err := models.AutoMigrate(DB); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Println("Database migrations completed")
	return nil
}

// Close releases the underlying connection pool.
func Close() error {
	if DB == nil {
		return nil
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// getEnv returns environment variable value or default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
