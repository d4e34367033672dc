package model

import (
	"time"

	"gorm.io/datatypes"
)

// RefreshToken is the persisted record of a long-lived opaque credential.
// Only the SHA-256 digest of the secret is stored; the plaintext exists
// only in the issuance response and the client cookie.
type RefreshToken struct {
	ID        string         `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	UserID    string         `gorm:"type:uuid;not null;index" json:"user_id"`
	TokenHash string         `gorm:"not null;uniqueIndex;size:64" json:"-"`
	ExpiresAt time.Time      `gorm:"not null;index" json:"expires_at"`
	IsRevoked bool           `gorm:"not null;default:false" json:"is_revoked"`
	MetaData  datatypes.JSON `gorm:"not null;default:'{}'" json:"meta_data"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

func (RefreshToken) TableName() string {
	return "refresh_tokens"
}
