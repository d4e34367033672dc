package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/knowledgevault/api/internal/middleware"
	"github.com/knowledgevault/api/internal/model"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PomodoroHandler struct {
	db *gorm.DB
}

func NewPomodoroHandler(db *gorm.DB) *PomodoroHandler {
	return &PomodoroHandler{db: db}
}

type StartSessionRequest struct {
	LearningProjectID *string `json:"learning_project_id"`
	SessionType       string  `json:"session_type" binding:"omitempty,oneof=work break"`
	WorkDuration      int     `json:"work_duration" binding:"required,gte=1,lte=60"`
	BreakDuration     int     `json:"break_duration" binding:"required,gte=1,lte=30"`
}

type CompleteSessionRequest struct {
	ActualDuration *int `json:"actual_duration" binding:"omitempty,gte=1"`
}

type AbandonSessionRequest struct {
	ActualDuration *int    `json:"actual_duration" binding:"omitempty,gte=1"`
	Reason         *string `json:"reason" binding:"omitempty,max=255"`
}

// GetPreferences returns the user's pomodoro timer settings, falling
// back to defaults when none were ever saved.
func (h *PomodoroHandler) GetPreferences(c *gin.Context) {
	user := middleware.CurrentUser(c)

	prefs := model.DefaultPomodoroPreferences()
	if user.Preferences.Pomodoro != nil {
		prefs = *user.Preferences.Pomodoro
	}

	c.JSON(http.StatusOK, prefs)
}

// UpdatePreferences replaces the pomodoro section of the preferences
// blob. The user row is locked for the read-modify-write so concurrent
// updates to other sections are not lost.
func (h *PomodoroHandler) UpdatePreferences(c *gin.Context) {
	var prefs model.PomodoroPreferences
	if err := c.ShouldBindJSON(&prefs); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid preferences payload"})
		return
	}

	userID := middleware.CurrentUser(c).ID

	var updated model.Preferences
	err := h.db.Transaction(func(tx *gorm.DB) error {
		var user model.User
		if err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&user, "id = ?", userID).Error; err != nil {
			return err
		}

		user.Preferences.Pomodoro = &prefs
		updated = user.Preferences

		return tx.Model(&user).Update("preferences", user.Preferences).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update preferences"})
		return
	}

	c.JSON(http.StatusOK, updated.Pomodoro)
}

// StartSession opens a new pomodoro session. A lingering in-progress
// session is abandoned first: the sessions table enforces at most one
// in-progress session per user.
func (h *PomodoroHandler) StartSession(c *gin.Context) {
	var req StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session payload"})
		return
	}

	user := middleware.CurrentUser(c)

	if req.LearningProjectID != nil {
		var project model.LearningProject
		if err := h.db.Where("id = ? AND user_id = ?", *req.LearningProjectID, user.ID).First(&project).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Learning project not found"})
			return
		}
		if project.Status == model.ProjectStatusArchived {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot create session for an archived learning project."})
			return
		}
	}

	sessionType := req.SessionType
	if sessionType == "" {
		sessionType = model.SessionTypeWork
	}

	now := time.Now().UTC()
	session := model.Session{
		UserID:            user.ID,
		LearningProjectID: req.LearningProjectID,
		StartTime:         now,
		WorkDuration:      req.WorkDuration,
		BreakDuration:     req.BreakDuration,
		SessionType:       sessionType,
		Status:            model.SessionStatusInProgress,
		MetaData:          datatypes.JSON("{}"),
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Session{}).
			Where("user_id = ? AND status = ?", user.ID, model.SessionStatusInProgress).
			Updates(map[string]interface{}{
				"status":   model.SessionStatusAbandoned,
				"end_time": now,
			}).Error; err != nil {
			return err
		}
		return tx.Create(&session).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create session"})
		return
	}

	c.JSON(http.StatusOK, session)
}

func (h *PomodoroHandler) getSession(c *gin.Context) *model.Session {
	user := middleware.CurrentUser(c)

	var session model.Session
	err := h.db.Where("id = ? AND user_id = ?", c.Param("id"), user.ID).First(&session).Error
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return nil
	}
	return &session
}

// CompleteSession marks a session completed, optionally recording the
// actual duration when it differs from the planned one.
func (h *PomodoroHandler) CompleteSession(c *gin.Context) {
	var req CompleteSessionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
			return
		}
	}

	session := h.getSession(c)
	if session == nil {
		return
	}

	now := time.Now().UTC()
	session.EndTime = &now
	session.Status = model.SessionStatusCompleted
	if req.ActualDuration != nil {
		session.ActualDuration = req.ActualDuration
	}

	if err := h.db.Save(session).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update session"})
		return
	}

	c.JSON(http.StatusOK, session)
}

// AbandonSession marks a session abandoned, keeping the reason in the
// session metadata.
func (h *PomodoroHandler) AbandonSession(c *gin.Context) {
	var req AbandonSessionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
			return
		}
	}

	session := h.getSession(c)
	if session == nil {
		return
	}

	now := time.Now().UTC()
	session.EndTime = &now
	session.Status = model.SessionStatusAbandoned
	if req.ActualDuration != nil {
		session.ActualDuration = req.ActualDuration
	}
	if req.Reason != nil {
		meta := map[string]interface{}{}
		if len(session.MetaData) > 0 {
			json.Unmarshal(session.MetaData, &meta)
		}
		meta["abandon_reason"] = *req.Reason
		if raw, err := json.Marshal(meta); err == nil {
			session.MetaData = raw
		}
	}

	if err := h.db.Save(session).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update session"})
		return
	}

	c.JSON(http.StatusOK, session)
}

// ListSessions returns the user's sessions with optional filters.
// Sessions whose project has been archived are omitted.
func (h *PomodoroHandler) ListSessions(c *gin.Context) {
	user := middleware.CurrentUser(c)

	skip, _ := strconv.Atoi(c.DefaultQuery("skip", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if limit < 1 || limit > 100 {
		limit = 100
	}
	if skip < 0 {
		skip = 0
	}

	query := h.db.Preload("LearningProject").Where("user_id = ?", user.ID)

	if projectID := c.Query("learning_project_id"); projectID != "" {
		query = query.Where("learning_project_id = ?", projectID)
	}
	if sessionType := c.Query("session_type"); sessionType != "" {
		if sessionType != model.SessionTypeWork && sessionType != model.SessionTypeBreak {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session_type"})
			return
		}
		query = query.Where("session_type = ?", sessionType)
	}
	if status := c.Query("status"); status != "" {
		if status != model.SessionStatusInProgress && status != model.SessionStatusCompleted && status != model.SessionStatusAbandoned {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
			return
		}
		query = query.Where("status = ?", status)
	}

	var sessions []model.Session
	if err := query.Order("start_time DESC").Offset(skip).Limit(limit).Find(&sessions).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list sessions"})
		return
	}

	visible := make([]model.Session, 0, len(sessions))
	for _, s := range sessions {
		if s.LearningProject != nil && s.LearningProject.Status == model.ProjectStatusArchived {
			continue
		}
		visible = append(visible, s)
	}

	c.JSON(http.StatusOK, visible)
}

type WeeklyStatisticsResponse struct {
	TotalFocusTimeMinutes  int       `json:"total_focus_time_minutes"`
	CompletedSessionsCount int       `json:"completed_sessions_count"`
	AbandonedSessionsCount int       `json:"abandoned_sessions_count"`
	NotesCount             int       `json:"notes_count"`
	WeekStartDate          time.Time `json:"week_start_date"`
	WeekEndDate            time.Time `json:"week_end_date"`
}

// weekBounds returns the current calendar week, Monday 00:00:00 UTC
// through Sunday 23:59:59.
func weekBounds(now time.Time) (time.Time, time.Time) {
	now = now.UTC()
	weekday := int(now.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday
	}
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).
		AddDate(0, 0, -(weekday - 1))
	end := start.AddDate(0, 0, 7).Add(-time.Second)
	return start, end
}

// WeeklyStatistics aggregates the current calendar week for dashboard
// display: focus minutes, session counts and notes taken.
func (h *PomodoroHandler) WeeklyStatistics(c *gin.Context) {
	user := middleware.CurrentUser(c)
	weekStart, weekEnd := weekBounds(time.Now())

	var focusMinutes int
	h.db.Model(&model.Session{}).
		Select("COALESCE(SUM(COALESCE(actual_duration, work_duration)), 0)").
		Where("user_id = ? AND session_type = ? AND status IN ? AND start_time BETWEEN ? AND ?",
			user.ID, model.SessionTypeWork,
			[]string{model.SessionStatusCompleted, model.SessionStatusAbandoned},
			weekStart, weekEnd).
		Scan(&focusMinutes)

	var completed, abandoned, notes int64
	h.db.Model(&model.Session{}).
		Where("user_id = ? AND status = ? AND start_time BETWEEN ? AND ?",
			user.ID, model.SessionStatusCompleted, weekStart, weekEnd).
		Count(&completed)
	h.db.Model(&model.Session{}).
		Where("user_id = ? AND status = ? AND start_time BETWEEN ? AND ?",
			user.ID, model.SessionStatusAbandoned, weekStart, weekEnd).
		Count(&abandoned)
	h.db.Model(&model.Note{}).
		Where("user_id = ? AND created_at BETWEEN ? AND ?", user.ID, weekStart, weekEnd).
		Count(&notes)

	c.JSON(http.StatusOK, WeeklyStatisticsResponse{
		TotalFocusTimeMinutes:  focusMinutes,
		CompletedSessionsCount: int(completed),
		AbandonedSessionsCount: int(abandoned),
		NotesCount:             int(notes),
		WeekStartDate:          weekStart,
		WeekEndDate:            weekEnd,
	})
}

type SessionSummaryResponse struct {
	ProjectID            *string    `json:"project_id"`
	ProjectName          string     `json:"project_name"`
	TotalDurationMinutes int        `json:"total_duration_minutes"`
	SessionsCount        int        `json:"sessions_count"`
	FirstSession         *time.Time `json:"first_session"`
	LastSession          *time.Time `json:"last_session"`
}

// SessionSummaries groups completed sessions by project over a week,
// month or custom range. Sessions without a project land under
// "No Project".
func (h *PomodoroHandler) SessionSummaries(c *gin.Context) {
	user := middleware.CurrentUser(c)

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if limit < 1 || limit > 100 {
		limit = 10
	}

	var start, end time.Time
	startQ, endQ := c.Query("start_date"), c.Query("end_date")
	if startQ != "" && endQ != "" {
		var err1, err2 error
		start, err1 = time.Parse(time.RFC3339, startQ)
		end, err2 = time.Parse(time.RFC3339, endQ)
		if err1 != nil || err2 != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date range"})
			return
		}
	} else {
		switch c.DefaultQuery("period", "week") {
		case "week":
			start, end = weekBounds(time.Now())
		case "month":
			now := time.Now().UTC()
			start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
			end = start.AddDate(0, 1, 0).Add(-time.Second)
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid period"})
			return
		}
	}

	var rows []SessionSummaryResponse
	err := h.db.Raw(`
		SELECT
			s.learning_project_id AS project_id,
			COALESCE(lp.name, 'No Project') AS project_name,
			COALESCE(SUM(COALESCE(s.actual_duration, s.work_duration)), 0) AS total_duration_minutes,
			COUNT(s.id) AS sessions_count,
			MIN(s.start_time) AS first_session,
			MAX(s.start_time) AS last_session
		FROM sessions s
		LEFT JOIN learning_projects lp ON lp.id = s.learning_project_id
		WHERE s.user_id = ? AND s.status = ? AND s.start_time BETWEEN ? AND ?
		GROUP BY s.learning_project_id, lp.name
		ORDER BY total_duration_minutes DESC
		LIMIT ?
	`, user.ID, model.SessionStatusCompleted, start, end, limit).Scan(&rows).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to summarize sessions"})
		return
	}

	c.JSON(http.StatusOK, rows)
}
