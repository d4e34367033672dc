package model

import "time"

const (
	ProjectStatusInProgress = "in_progress"
	ProjectStatusCompleted  = "completed"
	ProjectStatusOnHold     = "on_hold"
	ProjectStatusAbandoned  = "abandoned"
	ProjectStatusArchived   = "archived"
)

// ValidProjectStatus reports whether s is one of the known project states.
func ValidProjectStatus(s string) bool {
	switch s {
	case ProjectStatusInProgress, ProjectStatusCompleted, ProjectStatusOnHold,
		ProjectStatusAbandoned, ProjectStatusArchived:
		return true
	}
	return false
}

type LearningProject struct {
	ID          string    `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	UserID      string    `gorm:"type:uuid;not null;index" json:"user_id"`
	Name        string    `gorm:"not null;size:255" json:"name"`
	Category    *string   `gorm:"size:100" json:"category"`
	CategoryID  *string   `gorm:"type:uuid" json:"-"`
	Description *string   `json:"description"`
	Status      string    `gorm:"not null;size:50;default:'in_progress'" json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Sessions []Session `gorm:"foreignKey:LearningProjectID" json:"sessions,omitempty"`
}

func (LearningProject) TableName() string {
	return "learning_projects"
}
