package repository

import (
	"context"

	"challenge-cards/internal/domain"
)

// RatingRepository persists rating records. Every write goes through Upsert;
// there is no plain insert and no delete.
type RatingRepository interface {
	Init(ctx context.Context) error
	Upsert(ctx context.Context, rec *domain.RatingRecord) (domain.UpsertResult, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.RatingRecord, error)
	Count(ctx context.Context) (int64, error)
}
