package model

import (
	"time"

	"gorm.io/datatypes"
)

// Category groups learning projects. Names are unique per user
// (composite index, see database.Migrate); categories are created
// implicitly when a project names one.
type Category struct {
	ID          string         `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	UserID      string         `gorm:"type:uuid;not null;index" json:"user_id"`
	Name        string         `gorm:"not null;size:100" json:"name"`
	Description *string        `json:"description"`
	MetaData    datatypes.JSON `gorm:"not null;default:'{}'" json:"meta_data"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

func (Category) TableName() string {
	return "categories"
}
