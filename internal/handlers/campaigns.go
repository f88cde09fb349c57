package handlers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"medwatch/internal/models"
	"medwatch/internal/pipeline"
	"medwatch/internal/reports"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CampaignHandler handles HTTP requests for campaigns and their reports.
type CampaignHandler struct {
	db           *gorm.DB
	orchestrator *pipeline.Orchestrator
	aggregator   *reports.Aggregator
}

// NewCampaignHandler creates a new campaign handler.
func NewCampaignHandler(db *gorm.DB, orchestrator *pipeline.Orchestrator) *CampaignHandler {
	return &CampaignHandler{
		db:           db,
		orchestrator: orchestrator,
		aggregator:   reports.NewAggregator(db),
	}
}

// TriggerAnalysis handles POST /api/campaigns/:id/analysis. It runs one
// batch synchronously and returns the run summary.
func (h *CampaignHandler) TriggerAnalysis(c *gin.Context) {
	campaignID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid campaign ID format"})
		return
	}

	var req struct {
		BatchSize int `json:"batch_size"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if req.BatchSize <= 0 {
		req.BatchSize = 25
	}

	run, err := h.orchestrator.Run(c.Request.Context(), campaignID, req.BatchSize)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Campaign not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Analysis run failed",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, run)
}

// GetReport handles GET /api/campaigns/:id/report. An optional from/to
// window (RFC 3339) bounds the report to posts published in that range.
func (h *CampaignHandler) GetReport(c *gin.Context) {
	campaignID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid campaign ID format"})
		return
	}

	var window *reports.Window
	if from, to, err := parseWindow(c.Query("from"), c.Query("to")); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	} else if from != nil || to != nil {
		window = &reports.Window{From: from, To: to}
	}

	report, err := h.aggregator.Summarize(c.Request.Context(), campaignID, window)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Campaign not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to build report",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, report)
}

// ListCampaigns handles GET /api/campaigns.
func (h *CampaignHandler) ListCampaigns(c *gin.Context) {
	var campaigns []models.Campaign
	if err := h.db.Order("created_at DESC").Find(&campaigns).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list campaigns"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"campaigns": campaigns, "count": len(campaigns)})
}

// parseWindow parses the optional from/to query parameters.
func parseWindow(fromStr, toStr string) (*time.Time, *time.Time, error) {
	var from, to *time.Time
	if fromStr != "" {
		t, err := time.Parse(time.RFC3339, fromStr)
		if err != nil {
			return nil, nil, errors.New("invalid 'from' timestamp, expected RFC 3339")
		}
		from = &t
	}
	if toStr != "" {
		t, err := time.Parse(time.RFC3339, toStr)
		if err != nil {
			return nil, nil, errors.New("invalid 'to' timestamp, expected RFC 3339")
		}
		to = &t
	}
	return from, to, nil
}
