package http

import (
	"time"

	"challenge-cards/internal/domain"
	"challenge-cards/internal/service"
	"challenge-cards/internal/storage"
)

type UserResponse struct {
	ID           int64               `json:"id"`
	Email        string              `json:"email"`
	FirstName    string              `json:"firstName"`
	LastName     string              `json:"lastName"`
	Demographics domain.Demographics `json:"demographics"`
	CreatedAt    string              `json:"createdAt"`
	LastLogin    *string             `json:"lastLogin,omitempty"`
}

type RatingResponse struct {
	ID          int64  `json:"id"`
	UserID      int64  `json:"userId"`
	CardName    string `json:"cardName"`
	RatingType  string `json:"ratingType"`
	RatingValue int    `json:"ratingValue"`
	Timestamp   string `json:"timestamp"`
}

type DemographicKey struct {
	AgeGroup       string `json:"ageGroup"`
	Profession     string `json:"profession"`
	Gender         string `json:"gender"`
	Background     string `json:"background"`
	EducationLevel string `json:"educationLevel"`
}

type DemographicGroupResponse struct {
	ID    DemographicKey `json:"_id"`
	Count int64          `json:"count"`
}

type StatsResponse struct {
	TotalUsers   int64                      `json:"totalUsers"`
	TotalRatings int64                      `json:"totalRatings"`
	Demographics []DemographicGroupResponse `json:"demographics"`
}

type StorageObjectResponse struct {
	Key          string  `json:"key"`
	Size         int64   `json:"size"`
	LastModified *string `json:"lastModified,omitempty"`
}

func userToResponse(user *domain.User) UserResponse {
	resp := UserResponse{
		ID:           user.ID,
		Email:        user.Email,
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		Demographics: user.Demographics,
		CreatedAt:    user.CreatedAt.Format(time.RFC3339),
	}
	if user.LastLogin != nil {
		v := user.LastLogin.Format(time.RFC3339)
		resp.LastLogin = &v
	}
	return resp
}

func ratingToResponse(r domain.RatingRecord) RatingResponse {
	return RatingResponse{
		ID:          r.ID,
		UserID:      r.UserID,
		CardName:    r.CardName,
		RatingType:  string(r.RatingType),
		RatingValue: r.RatingValue,
		Timestamp:   r.Timestamp.Format(time.RFC3339),
	}
}

func statsToResponse(stats service.Stats) StatsResponse {
	resp := StatsResponse{
		TotalUsers:   stats.TotalUsers,
		TotalRatings: stats.TotalRatings,
		Demographics: make([]DemographicGroupResponse, len(stats.Demographics)),
	}
	for i, g := range stats.Demographics {
		resp.Demographics[i] = DemographicGroupResponse{
			ID: DemographicKey{
				AgeGroup:       g.AgeGroup,
				Profession:     g.Profession,
				Gender:         g.Gender,
				Background:     g.Background,
				EducationLevel: g.EducationLevel,
			},
			Count: g.Count,
		}
	}
	return resp
}

func objectToResponse(obj storage.ObjectInfo) StorageObjectResponse {
	resp := StorageObjectResponse{
		Key:  obj.Key,
		Size: obj.Size,
	}
	if obj.LastModified != nil && !obj.LastModified.IsZero() {
		v := obj.LastModified.Format(time.RFC3339)
		resp.LastModified = &v
	}
	return resp
}
