package handlers

import (
	"errors"
	"net/http"
	"time"

	"medwatch/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PostHandler handles HTTP requests for posts and human verification.
type PostHandler struct {
	db *gorm.DB
}

// NewPostHandler creates a new post handler.
func NewPostHandler(db *gorm.DB) *PostHandler {
	return &PostHandler{db: db}
}

// GetPost handles GET /api/posts/:id.
func (h *PostHandler) GetPost(c *gin.Context) {
	postID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid post ID format"})
		return
	}

	var post models.Post
	if err := h.db.Preload("Result.Citations").Where("id = ?", postID).First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load post"})
		return
	}

	c.JSON(http.StatusOK, post)
}

// VerifyPost handles POST /api/posts/:id/verify. A human reviewer records
// whether the post is actually fake, which feeds the accuracy metrics.
func (h *PostHandler) VerifyPost(c *gin.Context) {
	postID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid post ID format"})
		return
	}

	var req struct {
		Fake *bool `json:"fake" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Request body must include 'fake' as a boolean"})
		return
	}

	result := h.db.Model(&models.Post{}).
		Where("id = ?", postID).
		Updates(map[string]interface{}{
			"verified_fake": *req.Fake,
			"updated_at":    time.Now(),
		})
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record verification"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"post_id":       postID,
		"verified_fake": *req.Fake,
	})
}
