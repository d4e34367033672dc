package vectorstore

import (
	"context"
	"strconv"
	"strings"

	"gorm.io/gorm"
)

// Match is one similarity hit. Score is cosine similarity in [0, 1],
// higher is more similar.
type Match struct {
	NoteID string  `json:"note_id"`
	Score  float64 `json:"score"`
}

// Store is the narrow contract the notes module delegates semantic
// search to. Implementations own the embedding column entirely.
type Store interface {
	UpsertEmbedding(ctx context.Context, noteID string, vec []float32) error
	QuerySimilar(ctx context.Context, userID string, vec []float32, limit int) ([]Match, error)
	DeleteEmbedding(ctx context.Context, noteID string) error
	Count(ctx context.Context, userID string) (int64, error)
}

// PgVectorStore keeps note embeddings in a pgvector column on the notes
// table itself, queried with raw SQL since gorm has no vector type.
type PgVectorStore struct {
	db *gorm.DB
}

func NewPgVectorStore(db *gorm.DB) *PgVectorStore {
	return &PgVectorStore{db: db}
}

func (s *PgVectorStore) UpsertEmbedding(ctx context.Context, noteID string, vec []float32) error {
	return s.db.WithContext(ctx).
		Exec("UPDATE notes SET embedding = ?::vector WHERE id = ?", vectorLiteral(vec), noteID).
		Error
}

func (s *PgVectorStore) QuerySimilar(ctx context.Context, userID string, vec []float32, limit int) ([]Match, error) {
	literal := vectorLiteral(vec)

	var matches []Match
	err := s.db.WithContext(ctx).Raw(`
		SELECT id AS note_id, 1 - (embedding <=> ?::vector) AS score
		FROM notes
		WHERE user_id = ? AND embedding IS NOT NULL
		ORDER BY embedding <=> ?::vector
		LIMIT ?
	`, literal, userID, literal, limit).Scan(&matches).Error
	if err != nil {
		return nil, err
	}

	return matches, nil
}

func (s *PgVectorStore) DeleteEmbedding(ctx context.Context, noteID string) error {
	return s.db.WithContext(ctx).
		Exec("UPDATE notes SET embedding = NULL WHERE id = ?", noteID).
		Error
}

func (s *PgVectorStore) Count(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Raw("SELECT count(*) FROM notes WHERE user_id = ? AND embedding IS NOT NULL", userID).
		Scan(&count).Error
	return count, err
}

// vectorLiteral renders a vector in pgvector's input syntax.
func vectorLiteral(vec []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range vec {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}
