package model

import (
	"time"

	"gorm.io/datatypes"
)

const (
	SessionTypeWork  = "work"
	SessionTypeBreak = "break"

	SessionStatusInProgress = "in_progress"
	SessionStatusCompleted  = "completed"
	SessionStatusAbandoned  = "abandoned"
)

// Session is a single Pomodoro work or break interval. Durations are in
// minutes. A user has at most one in-progress session at a time (partial
// unique index, see database.Migrate).
type Session struct {
	ID                string         `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	UserID            string         `gorm:"type:uuid;not null;index" json:"user_id"`
	LearningProjectID *string        `gorm:"type:uuid;index" json:"learning_project_id"`
	StartTime         time.Time      `gorm:"not null" json:"start_time"`
	EndTime           *time.Time     `json:"end_time"`
	WorkDuration      int            `gorm:"not null" json:"work_duration"`
	BreakDuration     int            `gorm:"not null" json:"break_duration"`
	ActualDuration    *int           `json:"actual_duration"`
	SessionType       string         `gorm:"not null;size:20" json:"session_type"`
	Status            string         `gorm:"not null;size:20" json:"status"`
	MetaData          datatypes.JSON `gorm:"not null;default:'{}'" json:"meta_data"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`

	LearningProject *LearningProject `gorm:"foreignKey:LearningProjectID" json:"learning_project,omitempty"`
}

func (Session) TableName() string {
	return "sessions"
}
