// Package worker runs the periodic background analysis of active campaigns.
package worker

import (
	"context"
	"log"
	"os"
	"strconv"
	"sync"
	"time"

	"medwatch/internal/models"
	"medwatch/internal/pipeline"

	"gorm.io/gorm"
)

// Config controls the background analysis schedule.
type Config struct {
	Interval  time.Duration
	BatchSize int
}

// LoadConfig reads worker settings from environment variables.
func LoadConfig() *Config {
	interval := 10 * time.Minute
	if v := os.Getenv("WORKER_INTERVAL_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			interval = time.Duration(n) * time.Minute
		}
	}
	batchSize := 25
	if v := os.Getenv("WORKER_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			batchSize = n
		}
	}
	return &Config{Interval: interval, BatchSize: batchSize}
}

// Service manages the background analysis worker for the application.
type Service struct {
	db           *gorm.DB
	orchestrator *pipeline.Orchestrator
	config       *Config
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	running      bool
	mu           sync.RWMutex
}

// NewService creates a worker service around an orchestrator.
func NewService(db *gorm.DB, orchestrator *pipeline.Orchestrator, config *Config) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		db:           db,
		orchestrator: orchestrator,
		config:       config,
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Start starts the background worker. Calling Start on a running service is
// a no-op.
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	log.Println("Starting background analysis worker...")

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runPeriodicAnalysis()
	}()

	s.running = true
	log.Println("Background analysis worker started")

	return nil
}

// Stop signals the worker to stop and waits for the current sweep to finish.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	log.Println("Stopping background analysis worker...")
	s.cancel()
	s.wg.Wait()
	s.running = false
	log.Println("Background analysis worker stopped")
}

// IsRunning returns whether the worker service is currently running.
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// runPeriodicAnalysis sweeps active campaigns on a fixed interval. An
// initial sweep runs immediately so a restart does not wait a full interval.
func (s *Service) runPeriodicAnalysis() {
	log.Printf("🔄 Analysis worker sweeping every %v (batch size %d)", s.config.Interval, s.config.BatchSize)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	s.sweepCampaigns()

	for {
		select {
		case <-s.ctx.Done():
			log.Println("Analysis worker stopping due to context cancellation")
			return
		case <-ticker.C:
			s.sweepCampaigns()
		}
	}
}

// sweepCampaigns runs one analysis batch for every active campaign.
func (s *Service) sweepCampaigns() {
	var campaigns []models.Campaign
	if err := s.db.Where("is_active = ?", true).Find(&campaigns).Error; err != nil {
		log.Printf("❌ Failed to list active campaigns: %v", err)
		return
	}

	for _, campaign := range campaigns {
		if s.ctx.Err() != nil {
			return
		}
		run, err := s.orchestrator.Run(s.ctx, campaign.ID, s.config.BatchSize)
		if err != nil {
			log.Printf("❌ Analysis run for campaign %s failed: %v", campaign.Name, err)
			continue
		}
		if run.Succeeded+run.Failed > 0 {
			log.Printf("✅ Campaign %s: %d analyzed, %d failed", campaign.Name, run.Succeeded, run.Failed)
		}
	}
}
