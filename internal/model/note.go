package model

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
)

// Note is a free-form text note, optionally attached to a learning
// project. The embedding column used for semantic search is a pgvector
// column managed by internal/vectorstore, not by gorm.
type Note struct {
	ID                string         `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	UserID            string         `gorm:"type:uuid;not null;index" json:"user_id"`
	LearningProjectID *string        `gorm:"type:uuid;index" json:"learning_project_id"`
	Title             *string        `gorm:"size:255" json:"title"`
	Content           string         `gorm:"type:text;not null" json:"content"`
	Tags              pq.StringArray `gorm:"type:text[]" json:"tags"`
	MetaData          datatypes.JSON `gorm:"not null;default:'{}'" json:"meta_data"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`

	LearningProject *LearningProject `gorm:"foreignKey:LearningProjectID" json:"-"`
}

func (Note) TableName() string {
	return "notes"
}
