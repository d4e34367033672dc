package database

import (
	"github.com/knowledgevault/api/internal/config"
	"github.com/knowledgevault/api/internal/model"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func Connect(cfg *config.Config) (*gorm.DB, error) {
	logLevel := logger.Info
	if cfg.IsProduction() {
		logLevel = logger.Warn
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, err
	}

	return db, nil
}

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&model.User{},
		&model.RefreshToken{},
		&model.Category{},
		&model.LearningProject{},
		&model.Session{},
		&model.Note{},
	)
	if err != nil {
		return err
	}

	// Email uniqueness is case-insensitive, which AutoMigrate cannot express
	db.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email_lower ON users (LOWER(email))")

	// At most one in-progress pomodoro session per user
	db.Exec("CREATE UNIQUE INDEX IF NOT EXISTS uq_sessions_user_in_progress ON sessions (user_id) WHERE status = 'in_progress'")

	// Category names are tenant-scoped
	db.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_categories_user_id_name ON categories (user_id, name)")

	// pgvector column for note embeddings, managed outside gorm
	db.Exec("CREATE EXTENSION IF NOT EXISTS vector")
	db.Exec("ALTER TABLE notes ADD COLUMN IF NOT EXISTS embedding vector(1536)")

	return nil
}
