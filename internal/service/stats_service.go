package service

import (
	"context"

	"challenge-cards/internal/domain"
	"challenge-cards/internal/repository"
)

// Stats is the survey-wide summary served to administrators.
type Stats struct {
	TotalUsers   int64
	TotalRatings int64
	Demographics []domain.DemographicGroup
}

type StatsService interface {
	Stats(ctx context.Context) (Stats, error)
}

type statsService struct {
	users   repository.UserRepository
	ratings repository.RatingRepository
}

func NewStatsService(users repository.UserRepository, ratings repository.RatingRepository) StatsService {
	return &statsService{users: users, ratings: ratings}
}

func (s *statsService) Stats(ctx context.Context) (Stats, error) {
	users, err := s.users.Count(ctx)
	if err != nil {
		return Stats{}, err
	}
	ratings, err := s.ratings.Count(ctx)
	if err != nil {
		return Stats{}, err
	}
	groups, err := s.users.DemographicBreakdown(ctx)
	if err != nil {
		return Stats{}, err
	}
	return Stats{TotalUsers: users, TotalRatings: ratings, Demographics: groups}, nil
}
