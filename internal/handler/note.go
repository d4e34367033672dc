package handler

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/knowledgevault/api/internal/cache"
	"github.com/knowledgevault/api/internal/client"
	"github.com/knowledgevault/api/internal/middleware"
	"github.com/knowledgevault/api/internal/model"
	"github.com/knowledgevault/api/internal/vectorstore"
	"github.com/lib/pq"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type NoteHandler struct {
	db       *gorm.DB
	cache    *cache.RedisCache
	embedder *client.OpenAIClient
	vectors  vectorstore.Store
}

func NewNoteHandler(db *gorm.DB, redisCache *cache.RedisCache, embedder *client.OpenAIClient, vectors vectorstore.Store) *NoteHandler {
	return &NoteHandler{
		db:       db,
		cache:    redisCache,
		embedder: embedder,
		vectors:  vectors,
	}
}

type CreateNoteRequest struct {
	Title             *string  `json:"title" binding:"omitempty,max=255"`
	Content           string   `json:"content" binding:"required"`
	Tags              []string `json:"tags"`
	LearningProjectID *string  `json:"learning_project_id"`
}

type UpdateNoteRequest struct {
	Title             *string   `json:"title" binding:"omitempty,max=255"`
	Content           *string   `json:"content"`
	Tags              *[]string `json:"tags"`
	LearningProjectID *string   `json:"learning_project_id"`
}

// NoteWithScore is a note annotated with its semantic similarity score.
type NoteWithScore struct {
	model.Note
	Score float64 `json:"score"`
}

// embeddingText is what gets embedded for a note: the title, when
// present, carries signal too.
func embeddingText(note *model.Note) string {
	if note.Title != nil && *note.Title != "" {
		return *note.Title + "\n" + note.Content
	}
	return note.Content
}

// indexNote recomputes the note's embedding. Best effort: the note is
// already committed, and search degrades to substring matching for
// notes without vectors.
func (h *NoteHandler) indexNote(note *model.Note) {
	if h.embedder == nil || h.vectors == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 45*time.Second)
	defer cancel()

	start := time.Now()
	vec, err := h.embedder.Embedding(ctx, embeddingText(note))
	middleware.RecordEmbeddingCall(err == nil, time.Since(start))
	if err != nil {
		if err != client.ErrNotConfigured {
			log.Printf("Warning: failed to embed note %s: %v", note.ID, err)
		}
		return
	}

	if err := h.vectors.UpsertEmbedding(ctx, note.ID, vec); err != nil {
		log.Printf("Warning: failed to store embedding for note %s: %v", note.ID, err)
	}
}

// queryEmbedding returns the vector for a search query, consulting the
// Redis cache before calling the embeddings API.
func (h *NoteHandler) queryEmbedding(ctx context.Context, query string) ([]float32, error) {
	if h.cache != nil {
		if vec, err := h.cache.GetEmbedding(ctx, h.embedder.Model(), query); err == nil && vec != nil {
			return vec, nil
		}
	}

	start := time.Now()
	vec, err := h.embedder.Embedding(ctx, query)
	middleware.RecordEmbeddingCall(err == nil, time.Since(start))
	if err != nil {
		return nil, err
	}

	if h.cache != nil {
		if err := h.cache.SetEmbedding(ctx, h.embedder.Model(), query, vec); err != nil {
			log.Printf("Warning: failed to cache query embedding: %v", err)
		}
	}
	return vec, nil
}

// Create adds a note and indexes it for semantic search.
func (h *NoteHandler) Create(c *gin.Context) {
	var req CreateNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid note payload"})
		return
	}

	user := middleware.CurrentUser(c)

	if req.LearningProjectID != nil {
		var project model.LearningProject
		if err := h.db.Where("id = ? AND user_id = ?", *req.LearningProjectID, user.ID).First(&project).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Learning project not found"})
			return
		}
	}

	note := model.Note{
		UserID:            user.ID,
		LearningProjectID: req.LearningProjectID,
		Title:             req.Title,
		Content:           req.Content,
		Tags:              pq.StringArray(req.Tags),
		MetaData:          datatypes.JSON("{}"),
	}

	if err := h.db.Create(&note).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create note"})
		return
	}

	h.indexNote(&note)

	c.JSON(http.StatusCreated, note)
}

// List returns the user's notes. Two search modes: q does a
// case-insensitive substring match; semantic_q ranks by embedding
// similarity and falls back to substring search when embeddings are
// unavailable.
func (h *NoteHandler) List(c *gin.Context) {
	user := middleware.CurrentUser(c)

	skip, _ := strconv.Atoi(c.DefaultQuery("skip", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if limit < 1 || limit > 100 {
		limit = 100
	}
	if skip < 0 {
		skip = 0
	}

	if semanticQ := strings.TrimSpace(c.Query("semantic_q")); semanticQ != "" {
		h.semanticSearch(c, user.ID, semanticQ, limit)
		return
	}

	query := h.db.Where("user_id = ?", user.ID)

	if projectID := c.Query("learning_project_id"); projectID != "" {
		query = query.Where("learning_project_id = ?", projectID)
	}
	if tags := c.QueryArray("tags"); len(tags) > 0 {
		query = query.Where("tags && ?", pq.StringArray(tags))
	}
	if q := strings.TrimSpace(c.Query("q")); q != "" {
		middleware.RecordNoteSearch("substring")
		pattern := "%" + q + "%"
		query = query.Where("(title ILIKE ? OR content ILIKE ?)", pattern, pattern)
	}

	var notes []model.Note
	if err := query.Order("created_at DESC").Offset(skip).Limit(limit).Find(&notes).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list notes"})
		return
	}

	c.JSON(http.StatusOK, notes)
}

// semanticSearch ranks the user's notes against the query embedding and
// returns them with similarity scores, most similar first.
func (h *NoteHandler) semanticSearch(c *gin.Context, userID, query string, limit int) {
	middleware.RecordNoteSearch("semantic")

	if h.embedder == nil || h.vectors == nil {
		h.substringFallback(c, userID, query, limit)
		return
	}

	vec, err := h.queryEmbedding(c.Request.Context(), query)
	if err != nil {
		if err != client.ErrNotConfigured {
			log.Printf("Warning: semantic search degraded to substring match: %v", err)
		}
		h.substringFallback(c, userID, query, limit)
		return
	}

	matches, err := h.vectors.QuerySimilar(c.Request.Context(), userID, vec, limit)
	if err != nil {
		log.Printf("Warning: similarity query failed: %v", err)
		h.substringFallback(c, userID, query, limit)
		return
	}

	if len(matches) == 0 {
		c.JSON(http.StatusOK, []NoteWithScore{})
		return
	}

	ids := make([]string, len(matches))
	scores := make(map[string]float64, len(matches))
	for i, m := range matches {
		ids[i] = m.NoteID
		scores[m.NoteID] = m.Score
	}

	var notes []model.Note
	if err := h.db.Where("id IN ?", ids).Find(&notes).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load notes"})
		return
	}

	byID := make(map[string]model.Note, len(notes))
	for _, n := range notes {
		byID[n.ID] = n
	}

	// Preserve similarity order from the vector store.
	results := make([]NoteWithScore, 0, len(matches))
	for _, m := range matches {
		if n, ok := byID[m.NoteID]; ok {
			results = append(results, NoteWithScore{Note: n, Score: scores[m.NoteID]})
		}
	}

	c.JSON(http.StatusOK, results)
}

func (h *NoteHandler) substringFallback(c *gin.Context, userID, query string, limit int) {
	pattern := "%" + query + "%"

	var notes []model.Note
	err := h.db.Where("user_id = ? AND (title ILIKE ? OR content ILIKE ?)", userID, pattern, pattern).
		Order("created_at DESC").
		Limit(limit).
		Find(&notes).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list notes"})
		return
	}

	c.JSON(http.StatusOK, notes)
}

func (h *NoteHandler) findNote(c *gin.Context) *model.Note {
	user := middleware.CurrentUser(c)

	var note model.Note
	err := h.db.Where("id = ? AND user_id = ?", c.Param("id"), user.ID).First(&note).Error
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Note not found"})
		return nil
	}
	return &note
}

// Get returns a single note.
func (h *NoteHandler) Get(c *gin.Context) {
	note := h.findNote(c)
	if note == nil {
		return
	}
	c.JSON(http.StatusOK, note)
}

// Update modifies a note and reindexes it when the text changed.
func (h *NoteHandler) Update(c *gin.Context) {
	var req UpdateNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid note payload"})
		return
	}

	note := h.findNote(c)
	if note == nil {
		return
	}

	textChanged := false
	if req.Title != nil {
		note.Title = req.Title
		textChanged = true
	}
	if req.Content != nil {
		note.Content = *req.Content
		textChanged = true
	}
	if req.Tags != nil {
		note.Tags = pq.StringArray(*req.Tags)
	}
	if req.LearningProjectID != nil {
		if *req.LearningProjectID == "" {
			note.LearningProjectID = nil
		} else {
			var project model.LearningProject
			if err := h.db.Where("id = ? AND user_id = ?", *req.LearningProjectID, note.UserID).First(&project).Error; err != nil {
				c.JSON(http.StatusNotFound, gin.H{"error": "Learning project not found"})
				return
			}
			note.LearningProjectID = req.LearningProjectID
		}
	}

	if err := h.db.Save(note).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update note"})
		return
	}

	if textChanged {
		h.indexNote(note)
	}

	c.JSON(http.StatusOK, note)
}

// Delete removes a note. The embedding lives on the same row, so it
// goes with it.
func (h *NoteHandler) Delete(c *gin.Context) {
	note := h.findNote(c)
	if note == nil {
		return
	}

	if err := h.db.Delete(note).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete note"})
		return
	}

	c.JSON(http.StatusOK, note)
}
