package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	"challenge-cards/internal/domain"
	"challenge-cards/internal/storage"
)

// ErrExportDisabled is returned when no export bucket is configured.
var ErrExportDisabled = errors.New("export storage not configured")

const exportURLTTL = 15 * time.Minute

// Export describes one uploaded snapshot of a respondent's ratings.
type Export struct {
	Key       string
	Location  string
	URL       string
	CreatedAt time.Time
}

type exportDocument struct {
	User       exportUser     `json:"user"`
	Ratings    []exportRating `json:"ratings"`
	ExportDate time.Time      `json:"exportDate"`
}

type exportUser struct {
	ID           int64               `json:"id"`
	Email        string              `json:"email"`
	FirstName    string              `json:"firstName"`
	LastName     string              `json:"lastName"`
	Demographics domain.Demographics `json:"demographics"`
}

type exportRating struct {
	CardName    string    `json:"cardName"`
	RatingType  string    `json:"ratingType"`
	RatingValue int       `json:"ratingValue"`
	Timestamp   time.Time `json:"timestamp"`
}

// ExportService snapshots a respondent's ratings into object storage.
type ExportService interface {
	Export(ctx context.Context, userID int64) (*Export, error)
	List(ctx context.Context, userID int64) ([]storage.ObjectInfo, error)
}

type exportService struct {
	users     UserService
	ratings   RatingService
	store     storage.Service
	bucket    string
	keyPrefix string
	now       func() time.Time
}

func NewExportService(users UserService, ratings RatingService, store storage.Service, bucket, keyPrefix string) ExportService {
	return &exportService{
		users:     users,
		ratings:   ratings,
		store:     store,
		bucket:    bucket,
		keyPrefix: strings.Trim(keyPrefix, "/"),
		now:       time.Now,
	}
}

func (s *exportService) userPrefix(userID int64) string {
	return path.Join(s.keyPrefix, strconv.FormatInt(userID, 10)) + "/"
}

func (s *exportService) Export(ctx context.Context, userID int64) (*Export, error) {
	if s.store == nil || s.bucket == "" {
		return nil, ErrExportDisabled
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	records, err := s.ratings.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	doc := exportDocument{
		User: exportUser{
			ID:           user.ID,
			Email:        user.Email,
			FirstName:    user.FirstName,
			LastName:     user.LastName,
			Demographics: user.Demographics,
		},
		Ratings:    make([]exportRating, 0, len(records)),
		ExportDate: now,
	}
	for _, r := range records {
		doc.Ratings = append(doc.Ratings, exportRating{
			CardName:    r.CardName,
			RatingType:  string(r.RatingType),
			RatingValue: r.RatingValue,
			Timestamp:   r.Timestamp,
		})
	}

	body, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode export: %w", err)
	}

	key := s.userPrefix(userID) + now.Format("20060102T150405Z") + ".json"
	location, err := s.store.Put(ctx, bytes.NewReader(body), storage.PutOptions{
		Bucket:      s.bucket,
		Key:         key,
		ContentType: "application/json",
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}

	url, err := s.store.GetObjectURL(ctx, s.bucket, key, exportURLTTL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}

	return &Export{Key: key, Location: location, URL: url, CreatedAt: now}, nil
}

func (s *exportService) List(ctx context.Context, userID int64) ([]storage.ObjectInfo, error) {
	if s.store == nil || s.bucket == "" {
		return nil, ErrExportDisabled
	}
	objects, err := s.store.ListObjects(ctx, s.bucket, s.userPrefix(userID))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	return objects, nil
}
