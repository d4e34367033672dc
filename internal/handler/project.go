package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/knowledgevault/api/internal/middleware"
	"github.com/knowledgevault/api/internal/model"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ProjectHandler struct {
	db *gorm.DB
}

func NewProjectHandler(db *gorm.DB) *ProjectHandler {
	return &ProjectHandler{db: db}
}

type CreateProjectRequest struct {
	Name         string  `json:"name" binding:"required,max=255"`
	CategoryName *string `json:"category_name" binding:"omitempty,max=100"`
	Description  *string `json:"description"`
	Status       string  `json:"status" binding:"omitempty,max=50"`
}

type UpdateProjectRequest struct {
	Name         *string `json:"name" binding:"omitempty,max=255"`
	CategoryName *string `json:"category_name" binding:"omitempty,max=100"`
	Description  *string `json:"description"`
	Status       *string `json:"status" binding:"omitempty,max=50"`
}

// getOrCreateCategory resolves a category name to a row, creating it on
// first use. Categories are scoped per user; the unique index on
// (user_id, name) backs the create race.
func (h *ProjectHandler) getOrCreateCategory(userID, name string) (*model.Category, error) {
	var category model.Category
	err := h.db.Where("user_id = ? AND name = ?", userID, name).First(&category).Error
	if err == nil {
		return &category, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	category = model.Category{
		UserID:   userID,
		Name:     name,
		MetaData: datatypes.JSON("{}"),
	}
	if err := h.db.Create(&category).Error; err != nil {
		// Lost the create race: someone else inserted the same name.
		if retryErr := h.db.Where("user_id = ? AND name = ?", userID, name).First(&category).Error; retryErr == nil {
			return &category, nil
		}
		return nil, err
	}
	return &category, nil
}

// Create adds a new learning project, resolving the category name to a
// per-user category row.
func (h *ProjectHandler) Create(c *gin.Context) {
	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project payload"})
		return
	}

	status := req.Status
	if status == "" {
		status = model.ProjectStatusInProgress
	}
	if !model.ValidProjectStatus(status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		return
	}

	user := middleware.CurrentUser(c)

	project := model.LearningProject{
		UserID:      user.ID,
		Name:        req.Name,
		Description: req.Description,
		Status:      status,
	}

	if req.CategoryName != nil && *req.CategoryName != "" {
		category, err := h.getOrCreateCategory(user.ID, *req.CategoryName)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve category"})
			return
		}
		project.CategoryID = &category.ID
		project.Category = &category.Name
	}

	if err := h.db.Create(&project).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create learning project"})
		return
	}

	c.JSON(http.StatusCreated, project)
}

// List returns the user's projects. Archived projects are excluded
// unless asked for explicitly via status=archived or include_archived.
func (h *ProjectHandler) List(c *gin.Context) {
	user := middleware.CurrentUser(c)

	skip, _ := strconv.Atoi(c.DefaultQuery("skip", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if limit < 1 || limit > 100 {
		limit = 100
	}
	if skip < 0 {
		skip = 0
	}

	query := h.db.Where("user_id = ?", user.ID)

	if category := c.Query("category"); category != "" {
		query = query.Where("category = ?", category)
	}

	if status := c.Query("status"); status != "" {
		if !model.ValidProjectStatus(status) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
			return
		}
		query = query.Where("status = ?", status)
	} else if c.Query("include_archived") != "true" {
		query = query.Where("status <> ?", model.ProjectStatusArchived)
	}

	var projects []model.LearningProject
	if err := query.Order("created_at DESC").Offset(skip).Limit(limit).Find(&projects).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list learning projects"})
		return
	}

	c.JSON(http.StatusOK, projects)
}

// findActive loads a project by id for the user, treating archived
// projects as not found.
func (h *ProjectHandler) findActive(c *gin.Context) *model.LearningProject {
	user := middleware.CurrentUser(c)

	var project model.LearningProject
	err := h.db.Where("id = ? AND user_id = ?", c.Param("id"), user.ID).First(&project).Error
	if err != nil || project.Status == model.ProjectStatusArchived {
		c.JSON(http.StatusNotFound, gin.H{"error": "Learning project not found"})
		return nil
	}
	return &project
}

// Get returns a project with its sessions.
func (h *ProjectHandler) Get(c *gin.Context) {
	user := middleware.CurrentUser(c)

	var project model.LearningProject
	err := h.db.Preload("Sessions").
		Where("id = ? AND user_id = ?", c.Param("id"), user.ID).
		First(&project).Error
	if err != nil || project.Status == model.ProjectStatusArchived {
		c.JSON(http.StatusNotFound, gin.H{"error": "Learning project not found"})
		return
	}

	c.JSON(http.StatusOK, project)
}

// Update modifies a project. Archived projects cannot be updated and
// read as not found.
func (h *ProjectHandler) Update(c *gin.Context) {
	var req UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project payload"})
		return
	}

	project := h.findActive(c)
	if project == nil {
		return
	}

	if req.Name != nil {
		project.Name = *req.Name
	}
	if req.Description != nil {
		project.Description = req.Description
	}
	if req.Status != nil {
		if !model.ValidProjectStatus(*req.Status) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
			return
		}
		project.Status = *req.Status
	}
	if req.CategoryName != nil {
		if *req.CategoryName == "" {
			project.CategoryID = nil
			project.Category = nil
		} else {
			category, err := h.getOrCreateCategory(project.UserID, *req.CategoryName)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve category"})
				return
			}
			project.CategoryID = &category.ID
			project.Category = &category.Name
		}
	}

	if err := h.db.Save(project).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update learning project"})
		return
	}

	c.JSON(http.StatusOK, project)
}

// Delete archives a project instead of removing the row. Archiving an
// already archived project is a conflict.
func (h *ProjectHandler) Delete(c *gin.Context) {
	user := middleware.CurrentUser(c)

	var project model.LearningProject
	err := h.db.Where("id = ? AND user_id = ?", c.Param("id"), user.ID).First(&project).Error
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Learning project not found"})
		return
	}

	if project.Status == model.ProjectStatusArchived {
		c.JSON(http.StatusConflict, gin.H{"error": "Learning project is already archived"})
		return
	}

	project.Status = model.ProjectStatusArchived
	if err := h.db.Save(&project).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to archive learning project"})
		return
	}

	c.JSON(http.StatusOK, project)
}
