package handlers

import (
	"net/http"
	"time"

	"medwatch/internal/worker"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// HealthHandler reports service and worker status.
type HealthHandler struct {
	db            *gorm.DB
	workerService *worker.Service
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(db *gorm.DB, workerService *worker.Service) *HealthHandler {
	return &HealthHandler{db: db, workerService: workerService}
}

// HealthCheck handles GET /health.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	status := "ok"
	code := http.StatusOK

	sqlDB, err := h.db.DB()
	if err != nil || sqlDB.Ping() != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// WorkerStatus handles GET /api/worker/status.
func (h *HealthHandler) WorkerStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"running": h.workerService.IsRunning(),
	})
}
