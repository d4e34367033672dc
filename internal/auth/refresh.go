package auth

import (
	"context"
	"time"

	"github.com/knowledgevault/api/internal/model"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RefreshTokenStore persists refresh tokens as digests and owns their
// single state transition: active -> revoked.
type RefreshTokenStore struct {
	db  *gorm.DB
	ttl time.Duration
}

func NewRefreshTokenStore(db *gorm.DB, ttl time.Duration) *RefreshTokenStore {
	return &RefreshTokenStore{db: db, ttl: ttl}
}

// Issue creates a refresh token for the user and returns the plaintext
// secret. The plaintext is never stored.
func (s *RefreshTokenStore) Issue(ctx context.Context, userID string) (string, *model.RefreshToken, error) {
	plaintext, err := GenerateRefreshToken()
	if err != nil {
		return "", nil, err
	}

	row := model.RefreshToken{
		UserID:    userID,
		TokenHash: HashToken(plaintext),
		ExpiresAt: time.Now().Add(s.ttl),
		MetaData:  datatypes.JSON("{}"),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return "", nil, err
	}

	return plaintext, &row, nil
}

// Verify resolves a plaintext token to its active row. Expired, revoked
// and unknown tokens all fail with ErrInvalidToken.
func (s *RefreshTokenStore) Verify(ctx context.Context, plaintext string) (*model.RefreshToken, error) {
	var row model.RefreshToken
	err := s.db.WithContext(ctx).
		Where("token_hash = ? AND is_revoked = false AND expires_at > ?", HashToken(plaintext), time.Now()).
		First(&row).Error
	if err != nil {
		return nil, ErrInvalidToken
	}
	return &row, nil
}

// Rotate consumes a refresh token and issues its successor in one
// transaction. The current row is locked with SELECT ... FOR UPDATE, so
// of two concurrent rotations the second observes is_revoked = true
// after the first commits and fails. Any validation failure rolls back
// and surfaces as ErrInvalidToken.
func (s *RefreshTokenStore) Rotate(ctx context.Context, plaintext string) (string, *model.RefreshToken, *model.User, error) {
	var (
		newPlaintext string
		newRow       model.RefreshToken
		owner        model.User
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current model.RefreshToken
		if err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("token_hash = ?", HashToken(plaintext)).
			First(&current).Error; err != nil {
			return ErrInvalidToken
		}

		if current.IsRevoked || !current.ExpiresAt.After(time.Now()) {
			return ErrInvalidToken
		}

		if err := tx.First(&owner, "id = ?", current.UserID).Error; err != nil {
			return ErrInvalidToken
		}
		if !owner.IsActive {
			return ErrInvalidToken
		}

		if err := tx.Model(&model.RefreshToken{}).
			Where("id = ?", current.ID).
			Update("is_revoked", true).Error; err != nil {
			return err
		}

		plain, err := GenerateRefreshToken()
		if err != nil {
			return err
		}
		newPlaintext = plain

		newRow = model.RefreshToken{
			UserID:    current.UserID,
			TokenHash: HashToken(plain),
			ExpiresAt: time.Now().Add(s.ttl),
			MetaData:  datatypes.JSON("{}"),
		}
		return tx.Create(&newRow).Error
	})
	if err != nil {
		return "", nil, nil, err
	}

	return newPlaintext, &newRow, &owner, nil
}

// Revoke marks a single token revoked. Revoking an already-revoked or
// unknown token is a no-op returning false.
func (s *RefreshTokenStore) Revoke(ctx context.Context, plaintext string) (bool, error) {
	result := s.db.WithContext(ctx).Model(&model.RefreshToken{}).
		Where("token_hash = ? AND is_revoked = false", HashToken(plaintext)).
		Update("is_revoked", true)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// RevokeAll revokes every active token a user holds and returns the
// count, for "log out everywhere" and incident response.
func (s *RefreshTokenStore) RevokeAll(ctx context.Context, userID string) (int64, error) {
	result := s.db.WithContext(ctx).Model(&model.RefreshToken{}).
		Where("user_id = ? AND is_revoked = false", userID).
		Update("is_revoked", true)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
