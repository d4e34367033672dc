package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/knowledgevault/api/internal/middleware"
	"github.com/knowledgevault/api/internal/model"
	"gorm.io/gorm"
)

type CategoryHandler struct {
	db *gorm.DB
}

func NewCategoryHandler(db *gorm.DB) *CategoryHandler {
	return &CategoryHandler{db: db}
}

// List returns the user's categories ordered by name. Categories are
// created implicitly through learning projects, never directly.
func (h *CategoryHandler) List(c *gin.Context) {
	user := middleware.CurrentUser(c)

	skip, _ := strconv.Atoi(c.DefaultQuery("skip", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if limit < 1 || limit > 100 {
		limit = 100
	}
	if skip < 0 {
		skip = 0
	}

	var categories []model.Category
	err := h.db.Where("user_id = ?", user.ID).
		Order("name").
		Offset(skip).
		Limit(limit).
		Find(&categories).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list categories"})
		return
	}

	c.JSON(http.StatusOK, categories)
}
