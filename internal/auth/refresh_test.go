package auth

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/knowledgevault/api/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testDB connects to TEST_DATABASE_URL and skips the test when unset.
func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.User{}, &model.RefreshToken{}))
	return db
}

func createTestUser(t *testing.T, db *gorm.DB) *model.User {
	t.Helper()

	suffix := uuid.NewString()[:8]
	user := model.User{
		Email:    "token-test-" + suffix + "@example.com",
		Username: "token-test-" + suffix,
		IsActive: true,
	}
	require.NoError(t, db.Create(&user).Error)
	t.Cleanup(func() {
		db.Where("user_id = ?", user.ID).Delete(&model.RefreshToken{})
		db.Delete(&user)
	})
	return &user
}

func TestIssueStoresDigestOnly(t *testing.T) {
	db := testDB(t)
	user := createTestUser(t, db)
	store := NewRefreshTokenStore(db, time.Hour)
	ctx := context.Background()

	plaintext, row, err := store.Issue(ctx, user.ID)
	require.NoError(t, err)

	assert.NotEqual(t, plaintext, row.TokenHash)
	assert.Equal(t, HashToken(plaintext), row.TokenHash)
	assert.Len(t, row.TokenHash, 64)

	verified, err := store.Verify(ctx, plaintext)
	require.NoError(t, err)
	assert.Equal(t, row.ID, verified.ID)
}

func TestVerifyFailuresCollapse(t *testing.T) {
	db := testDB(t)
	user := createTestUser(t, db)
	ctx := context.Background()

	// Unknown token.
	store := NewRefreshTokenStore(db, time.Hour)
	_, err := store.Verify(ctx, "never-issued")
	assert.ErrorIs(t, err, ErrInvalidToken)

	// Expired token.
	expiredStore := NewRefreshTokenStore(db, -time.Hour)
	plaintext, _, err := expiredStore.Issue(ctx, user.ID)
	require.NoError(t, err)
	_, err = store.Verify(ctx, plaintext)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// Revoked token.
	plaintext, _, err = store.Issue(ctx, user.ID)
	require.NoError(t, err)
	revoked, err := store.Revoke(ctx, plaintext)
	require.NoError(t, err)
	require.True(t, revoked)
	_, err = store.Verify(ctx, plaintext)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRotateSingleUse(t *testing.T) {
	db := testDB(t)
	user := createTestUser(t, db)
	store := NewRefreshTokenStore(db, time.Hour)
	ctx := context.Background()

	original, _, err := store.Issue(ctx, user.ID)
	require.NoError(t, err)

	rotated, _, owner, err := store.Rotate(ctx, original)
	require.NoError(t, err)
	assert.Equal(t, user.ID, owner.ID)
	assert.NotEqual(t, original, rotated)

	// Replaying the consumed token fails, the successor still works.
	_, _, _, err = store.Rotate(ctx, original)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = store.Verify(ctx, rotated)
	assert.NoError(t, err)
}

func TestRotateConcurrent(t *testing.T) {
	db := testDB(t)
	user := createTestUser(t, db)
	store := NewRefreshTokenStore(db, time.Hour)
	ctx := context.Background()

	plaintext, _, err := store.Issue(ctx, user.ID)
	require.NoError(t, err)

	// Two rotations race on the same row lock; exactly one may win.
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, _, errs[i] = store.Rotate(ctx, plaintext)
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
		} else {
			assert.ErrorIs(t, err, ErrInvalidToken)
		}
	}
	assert.Equal(t, 1, successes)
}

func TestRotateInactiveUser(t *testing.T) {
	db := testDB(t)
	user := createTestUser(t, db)
	store := NewRefreshTokenStore(db, time.Hour)
	ctx := context.Background()

	plaintext, _, err := store.Issue(ctx, user.ID)
	require.NoError(t, err)

	require.NoError(t, db.Model(user).Update("is_active", false).Error)

	_, _, _, err = store.Rotate(ctx, plaintext)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRevokeIdempotent(t *testing.T) {
	db := testDB(t)
	user := createTestUser(t, db)
	store := NewRefreshTokenStore(db, time.Hour)
	ctx := context.Background()

	plaintext, _, err := store.Issue(ctx, user.ID)
	require.NoError(t, err)

	revoked, err := store.Revoke(ctx, plaintext)
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = store.Revoke(ctx, plaintext)
	require.NoError(t, err)
	assert.False(t, revoked)

	revoked, err = store.Revoke(ctx, "never-issued")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRevokeAll(t *testing.T) {
	db := testDB(t)
	user := createTestUser(t, db)
	store := NewRefreshTokenStore(db, time.Hour)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _, err := store.Issue(ctx, user.ID)
		require.NoError(t, err)
	}

	count, err := store.RevokeAll(ctx, user.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)

	count, err = store.RevokeAll(ctx, user.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)
}
