package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"challenge-cards/internal/domain"
	"challenge-cards/internal/repository"
)

const createRatingsTable = `
CREATE TABLE IF NOT EXISTS ratings (
	id BIGSERIAL PRIMARY KEY,
	user_id BIGINT NOT NULL REFERENCES users(id),
	card_name TEXT NOT NULL,
	rating_type TEXT NOT NULL,
	rating_value INTEGER NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	UNIQUE (user_id, card_name, rating_type)
)`

type RatingRepository struct {
	db *sql.DB
}

func NewRatingRepository(db *sql.DB) repository.RatingRepository {
	return &RatingRepository{db: db}
}

func (r *RatingRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createRatingsTable); err != nil {
		return fmt.Errorf("create ratings table: %w", err)
	}
	return nil
}

// Upsert relies on ON CONFLICT for atomicity; xmax is zero only for a row
// this statement inserted.
func (r *RatingRepository) Upsert(ctx context.Context, rec *domain.RatingRecord) (domain.UpsertResult, error) {
	rec.Timestamp = time.Now().UTC()

	const query = `
INSERT INTO ratings (user_id, card_name, rating_type, rating_value, updated_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (user_id, card_name, rating_type)
DO UPDATE SET rating_value = EXCLUDED.rating_value, updated_at = EXCLUDED.updated_at
RETURNING id, (xmax = 0) AS inserted`

	var inserted bool
	if err := r.db.QueryRowContext(ctx, query,
		rec.UserID,
		rec.CardName,
		string(rec.RatingType),
		rec.RatingValue,
		rec.Timestamp,
	).Scan(&rec.ID, &inserted); err != nil {
		if pqCode(err) == codeForeignKeyViolation {
			return domain.UpsertResult{}, fmt.Errorf("%w: user %d", domain.ErrNotFound, rec.UserID)
		}
		return domain.UpsertResult{}, fmt.Errorf("%w: upsert rating: %v", domain.ErrStorage, err)
	}
	return domain.UpsertResult{Created: inserted}, nil
}

func (r *RatingRepository) ListByUser(ctx context.Context, userID int64) ([]domain.RatingRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, user_id, card_name, rating_type, rating_value, updated_at
FROM ratings
WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: list ratings: %v", domain.ErrStorage, err)
	}
	defer rows.Close()

	var out []domain.RatingRecord
	for rows.Next() {
		var (
			rec        domain.RatingRecord
			ratingType string
		)
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.CardName, &ratingType, &rec.RatingValue, &rec.Timestamp); err != nil {
			return nil, fmt.Errorf("%w: scan rating: %v", domain.ErrStorage, err)
		}
		rec.RatingType = domain.Dimension(ratingType)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate ratings: %v", domain.ErrStorage, err)
	}
	return out, nil
}

func (r *RatingRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ratings`).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: count ratings: %v", domain.ErrStorage, err)
	}
	return n, nil
}
