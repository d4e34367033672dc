package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/knowledgevault/api/internal/middleware"
	"github.com/knowledgevault/api/internal/model"
	"gorm.io/gorm"
)

type DashboardHandler struct {
	db *gorm.DB
}

func NewDashboardHandler(db *gorm.DB) *DashboardHandler {
	return &DashboardHandler{db: db}
}

type DashboardStats struct {
	TotalFocusTime    int   `json:"total_focus_time"`
	NotesCreated      int64 `json:"notes_created"`
	ActiveProjects    int64 `json:"active_projects"`
	CompletedProjects int64 `json:"completed_projects"`
}

type ProjectStats struct {
	ProjectID     string `json:"project_id"`
	ProjectName   string `json:"project_name"`
	SessionsCount int    `json:"sessions_count"`
	NotesCount    int    `json:"notes_count"`
}

type DailyActivity struct {
	Date          string `json:"date"`
	SessionsCount int    `json:"sessions_count"`
	NotesCount    int    `json:"notes_count"`
}

type SessionTime struct {
	StartTime   time.Time `json:"start_time"`
	Duration    *int      `json:"duration"`
	ProjectName *string   `json:"project_name"`
}

type DashboardResponse struct {
	Stats         DashboardStats  `json:"stats"`
	ProjectStats  []ProjectStats  `json:"project_stats"`
	DailyActivity []DailyActivity `json:"daily_activity"`
	SessionTimes  []SessionTime   `json:"session_times"`
}

// periodStart maps a period name to its lower bound. ok is false for an
// unknown period; hasStart is false for "all", which looks at everything.
func periodStart(period string, now time.Time) (start time.Time, hasStart, ok bool) {
	switch period {
	case "7d":
		return now.AddDate(0, 0, -7), true, true
	case "2w":
		return now.AddDate(0, 0, -14), true, true
	case "4w":
		return now.AddDate(0, 0, -28), true, true
	case "3m":
		return now.AddDate(0, 0, -90), true, true
	case "1y":
		return now.AddDate(0, 0, -365), true, true
	case "all":
		return time.Time{}, false, true
	}
	return time.Time{}, false, false
}

func (h *DashboardHandler) period(c *gin.Context) (time.Time, bool, bool) {
	start, hasStart, ok := periodStart(c.DefaultQuery("period", "7d"), time.Now().UTC())
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid period. Must be one of: 7d, 2w, 4w, 3m, 1y, all"})
	}
	return start, hasStart, ok
}

// userTimezone reads the X-Timezone header and validates it against the
// tz database. Validation matters: the zone name ends up in SQL (as a
// bind parameter) and garbage would just error the query.
func userTimezone(c *gin.Context) string {
	return validTimezone(c.GetHeader("X-Timezone"))
}

func validTimezone(tz string) string {
	if tz == "" {
		return "UTC"
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return "UTC"
	}
	return tz
}

func (h *DashboardHandler) stats(userID string, start time.Time, hasStart bool) DashboardStats {
	sessions := h.db.Model(&model.Session{}).Where("user_id = ?", userID)
	notes := h.db.Model(&model.Note{}).Where("user_id = ?", userID)
	if hasStart {
		sessions = sessions.Where("created_at >= ?", start)
		notes = notes.Where("created_at >= ?", start)
	}

	var out DashboardStats
	sessions.Select("COALESCE(SUM(actual_duration), 0)").Scan(&out.TotalFocusTime)
	notes.Count(&out.NotesCreated)

	// Project counts are lifetime, not period-bound.
	h.db.Model(&model.LearningProject{}).
		Where("user_id = ? AND status = ?", userID, model.ProjectStatusInProgress).
		Count(&out.ActiveProjects)
	h.db.Model(&model.LearningProject{}).
		Where("user_id = ? AND status = ?", userID, model.ProjectStatusCompleted).
		Count(&out.CompletedProjects)

	return out
}

func (h *DashboardHandler) projectStats(userID string, start time.Time, hasStart bool) ([]ProjectStats, error) {
	var lower interface{}
	if hasStart {
		lower = start
	} else {
		lower = time.Time{}
	}

	var rows []ProjectStats
	err := h.db.Raw(`
		SELECT
			lp.id AS project_id,
			lp.name AS project_name,
			COALESCE(s.cnt, 0) AS sessions_count,
			COALESCE(n.cnt, 0) AS notes_count
		FROM learning_projects lp
		LEFT JOIN (
			SELECT learning_project_id, COUNT(id) AS cnt
			FROM sessions
			WHERE user_id = ? AND created_at >= ?
			GROUP BY learning_project_id
		) s ON s.learning_project_id = lp.id
		LEFT JOIN (
			SELECT learning_project_id, COUNT(id) AS cnt
			FROM notes
			WHERE user_id = ? AND created_at >= ?
			GROUP BY learning_project_id
		) n ON n.learning_project_id = lp.id
		WHERE lp.user_id = ?
		ORDER BY lp.name
	`, userID, lower, userID, lower, userID).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	// Only projects that saw activity in the period.
	active := make([]ProjectStats, 0, len(rows))
	for _, r := range rows {
		if r.SessionsCount > 0 || r.NotesCount > 0 {
			active = append(active, r)
		}
	}
	return active, nil
}

func (h *DashboardHandler) dailyActivity(userID string, start time.Time, hasStart bool, tz string) ([]DailyActivity, error) {
	var lower interface{}
	if hasStart {
		lower = start
	} else {
		lower = time.Time{}
	}

	var rows []DailyActivity
	err := h.db.Raw(`
		SELECT
			activity_date::text AS date,
			COALESCE(SUM(sessions_count), 0) AS sessions_count,
			COALESCE(SUM(notes_count), 0) AS notes_count
		FROM (
			SELECT DATE(created_at AT TIME ZONE ?) AS activity_date, COUNT(id) AS sessions_count, 0 AS notes_count
			FROM sessions
			WHERE user_id = ? AND created_at >= ?
			GROUP BY 1
			UNION ALL
			SELECT DATE(created_at AT TIME ZONE ?) AS activity_date, 0, COUNT(id)
			FROM notes
			WHERE user_id = ? AND created_at >= ?
			GROUP BY 1
		) activity
		GROUP BY activity_date
		ORDER BY activity_date
	`, tz, userID, lower, tz, userID, lower).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (h *DashboardHandler) sessionTimes(userID string, start time.Time, hasStart bool) ([]SessionTime, error) {
	var lower interface{}
	if hasStart {
		lower = start
	} else {
		lower = time.Time{}
	}

	var rows []SessionTime
	err := h.db.Raw(`
		SELECT s.start_time, s.actual_duration AS duration, lp.name AS project_name
		FROM sessions s
		LEFT JOIN learning_projects lp ON lp.id = s.learning_project_id
		WHERE s.user_id = ? AND s.created_at >= ?
		ORDER BY s.start_time
	`, userID, lower).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Get returns the composite dashboard payload: period stats, per-project
// activity, the daily activity chart and the session scatter data.
func (h *DashboardHandler) Get(c *gin.Context) {
	start, hasStart, ok := h.period(c)
	if !ok {
		return
	}

	user := middleware.CurrentUser(c)
	tz := userTimezone(c)

	projectStats, err := h.projectStats(user.ID, start, hasStart)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load dashboard"})
		return
	}
	dailyActivity, err := h.dailyActivity(user.ID, start, hasStart, tz)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load dashboard"})
		return
	}
	sessionTimes, err := h.sessionTimes(user.ID, start, hasStart)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load dashboard"})
		return
	}

	c.JSON(http.StatusOK, DashboardResponse{
		Stats:         h.stats(user.ID, start, hasStart),
		ProjectStats:  projectStats,
		DailyActivity: dailyActivity,
		SessionTimes:  sessionTimes,
	})
}

// Stats returns just the headline numbers.
func (h *DashboardHandler) Stats(c *gin.Context) {
	start, hasStart, ok := h.period(c)
	if !ok {
		return
	}

	user := middleware.CurrentUser(c)
	c.JSON(http.StatusOK, h.stats(user.ID, start, hasStart))
}

// Projects returns per-project session and note counts.
func (h *DashboardHandler) Projects(c *gin.Context) {
	start, hasStart, ok := h.period(c)
	if !ok {
		return
	}

	user := middleware.CurrentUser(c)
	rows, err := h.projectStats(user.ID, start, hasStart)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load project stats"})
		return
	}
	c.JSON(http.StatusOK, rows)
}

// Activity returns daily session and note counts, grouped by the user's
// local date per the X-Timezone header.
func (h *DashboardHandler) Activity(c *gin.Context) {
	start, hasStart, ok := h.period(c)
	if !ok {
		return
	}

	user := middleware.CurrentUser(c)
	rows, err := h.dailyActivity(user.ID, start, hasStart, userTimezone(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load activity"})
		return
	}
	c.JSON(http.StatusOK, rows)
}

// SessionTimes returns when sessions happened and how long they ran.
func (h *DashboardHandler) SessionTimes(c *gin.Context) {
	start, hasStart, ok := h.period(c)
	if !ok {
		return
	}

	user := middleware.CurrentUser(c)
	rows, err := h.sessionTimes(user.ID, start, hasStart)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load session times"})
		return
	}
	c.JSON(http.StatusOK, rows)
}
