package handler

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/knowledgevault/api/internal/middleware"
	"github.com/knowledgevault/api/internal/model"
	"gorm.io/gorm"
)

type ExportHandler struct {
	db *gorm.DB
}

func NewExportHandler(db *gorm.DB) *ExportHandler {
	return &ExportHandler{db: db}
}

// ExportNotes downloads the user's notes as json, csv or markdown,
// optionally restricted to one learning project.
func (h *ExportHandler) ExportNotes(c *gin.Context) {
	user := middleware.CurrentUser(c)
	format := c.DefaultQuery("format", "json")

	query := h.db.Preload("LearningProject").Where("user_id = ?", user.ID)
	if projectID := c.Query("learning_project_id"); projectID != "" {
		query = query.Where("learning_project_id = ?", projectID)
	}

	var notes []model.Note
	if err := query.Order("created_at").Find(&notes).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load notes"})
		return
	}

	switch format {
	case "json":
		h.exportJSON(c, notes)
	case "csv":
		h.exportCSV(c, notes)
	case "md", "markdown":
		h.exportMarkdown(c, notes)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid format. Use json, csv, or md"})
	}
}

func exportFilename(ext string) string {
	return fmt.Sprintf("notes-%s.%s", time.Now().UTC().Format("2006-01-02"), ext)
}

func noteTitle(note *model.Note) string {
	if note.Title != nil && *note.Title != "" {
		return *note.Title
	}
	return "Untitled"
}

func noteProjectName(note *model.Note) string {
	if note.LearningProject != nil {
		return note.LearningProject.Name
	}
	return ""
}

func (h *ExportHandler) exportJSON(c *gin.Context, notes []model.Note) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", exportFilename("json")))
	c.JSON(http.StatusOK, notes)
}

func (h *ExportHandler) exportCSV(c *gin.Context, notes []model.Note) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	// Header
	writer.Write([]string{"Created", "Title", "Project", "Tags", "Content"})

	for i := range notes {
		note := &notes[i]
		writer.Write([]string{
			note.CreatedAt.Format("2006-01-02 15:04:05"),
			noteTitle(note),
			noteProjectName(note),
			strings.Join(note.Tags, ";"),
			note.Content,
		})
	}

	writer.Flush()

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", exportFilename("csv")))
	c.Data(http.StatusOK, "text/csv", buf.Bytes())
}

func (h *ExportHandler) exportMarkdown(c *gin.Context, notes []model.Note) {
	var buf bytes.Buffer

	buf.WriteString("# Notes\n\n")
	buf.WriteString(fmt.Sprintf("**Exported:** %s\n\n", time.Now().UTC().Format("2006-01-02 15:04:05")))

	for i := range notes {
		note := &notes[i]

		buf.WriteString(fmt.Sprintf("## %s\n\n", noteTitle(note)))
		buf.WriteString(fmt.Sprintf("**Created:** %s\n\n", note.CreatedAt.Format("2006-01-02 15:04:05")))

		if name := noteProjectName(note); name != "" {
			buf.WriteString(fmt.Sprintf("**Project:** %s\n\n", name))
		}
		if len(note.Tags) > 0 {
			buf.WriteString(fmt.Sprintf("**Tags:** %s\n\n", strings.Join(note.Tags, ", ")))
		}

		buf.WriteString(note.Content)
		buf.WriteString("\n\n---\n\n")
	}

	c.Header("Content-Type", "text/markdown")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", exportFilename("md")))
	c.Data(http.StatusOK, "text/markdown", buf.Bytes())
}
