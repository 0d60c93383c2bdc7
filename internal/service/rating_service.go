package service

import (
	"context"
	"strings"

	"challenge-cards/internal/domain"
	"challenge-cards/internal/repository"
)

// RatingService validates rating writes and routes them through the
// repository upsert.
type RatingService interface {
	Upsert(ctx context.Context, userID int64, cardName string, ratingType domain.Dimension, value int) (domain.UpsertResult, error)
	ListForUser(ctx context.Context, userID int64) ([]domain.RatingRecord, error)
}

type ratingService struct {
	ratings repository.RatingRepository
}

func NewRatingService(ratings repository.RatingRepository) RatingService {
	return &ratingService{ratings: ratings}
}

func (s *ratingService) Upsert(ctx context.Context, userID int64, cardName string, ratingType domain.Dimension, value int) (domain.UpsertResult, error) {
	cardName = strings.TrimSpace(cardName)
	if err := domain.ValidateRating(cardName, ratingType, value); err != nil {
		return domain.UpsertResult{}, err
	}
	return s.ratings.Upsert(ctx, &domain.RatingRecord{
		UserID:      userID,
		CardName:    cardName,
		RatingType:  ratingType,
		RatingValue: value,
	})
}

func (s *ratingService) ListForUser(ctx context.Context, userID int64) ([]domain.RatingRecord, error) {
	records, err := s.ratings.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []domain.RatingRecord{}
	}
	return records, nil
}
