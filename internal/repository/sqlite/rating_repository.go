package sqlite

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
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL REFERENCES users(id),
	card_name TEXT NOT NULL,
	rating_type TEXT NOT NULL,
	rating_value INTEGER NOT NULL,
	updated_at DATETIME NOT NULL,
	UNIQUE (user_id, card_name, rating_type)
);
`

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

// Upsert inserts the record or, when the (user, card, type) triple already
// exists, overwrites its value and timestamp.
func (r *RatingRepository) Upsert(ctx context.Context, rec *domain.RatingRecord) (domain.UpsertResult, error) {
	rec.Timestamp = time.Now().UTC()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.UpsertResult{}, fmt.Errorf("%w: begin upsert: %v", domain.ErrStorage, err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
INSERT INTO ratings (user_id, card_name, rating_type, rating_value, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (user_id, card_name, rating_type) DO NOTHING`,
		rec.UserID,
		rec.CardName,
		string(rec.RatingType),
		rec.RatingValue,
		rec.Timestamp,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.UpsertResult{}, fmt.Errorf("%w: user %d", domain.ErrNotFound, rec.UserID)
		}
		return domain.UpsertResult{}, fmt.Errorf("%w: insert rating: %v", domain.ErrStorage, err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return domain.UpsertResult{}, fmt.Errorf("%w: rating rows affected: %v", domain.ErrStorage, err)
	}

	if inserted == 0 {
		if _, err := tx.ExecContext(ctx, `
UPDATE ratings SET rating_value = ?, updated_at = ?
WHERE user_id = ? AND card_name = ? AND rating_type = ?`,
			rec.RatingValue,
			rec.Timestamp,
			rec.UserID,
			rec.CardName,
			string(rec.RatingType),
		); err != nil {
			return domain.UpsertResult{}, fmt.Errorf("%w: update rating: %v", domain.ErrStorage, err)
		}
	}

	if err := tx.QueryRowContext(ctx, `
SELECT id FROM ratings WHERE user_id = ? AND card_name = ? AND rating_type = ?`,
		rec.UserID, rec.CardName, string(rec.RatingType),
	).Scan(&rec.ID); err != nil {
		return domain.UpsertResult{}, fmt.Errorf("%w: read rating id: %v", domain.ErrStorage, err)
	}

	if err := tx.Commit(); err != nil {
		return domain.UpsertResult{}, fmt.Errorf("%w: commit upsert: %v", domain.ErrStorage, err)
	}
	return domain.UpsertResult{Created: inserted == 1}, nil
}

func (r *RatingRepository) ListByUser(ctx context.Context, userID int64) ([]domain.RatingRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, user_id, card_name, rating_type, rating_value, updated_at
FROM ratings
WHERE user_id = ?`,
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
