package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"challenge-cards/internal/domain"
	"challenge-cards/internal/repository/sqlite"
	"challenge-cards/internal/storage"
)

type services struct {
	users   UserService
	ratings RatingService
	stats   StatsService
}

func setup(t *testing.T) services {
	t.Helper()
	db, err := sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	userRepo := sqlite.NewUserRepository(db)
	ratingRepo := sqlite.NewRatingRepository(db)
	require.NoError(t, userRepo.Init(ctx))
	require.NoError(t, ratingRepo.Init(ctx))

	users := NewUserService(userRepo)
	users.(*userService).cost = bcrypt.MinCost

	return services{
		users:   users,
		ratings: NewRatingService(ratingRepo),
		stats:   NewStatsService(userRepo, ratingRepo),
	}
}

func registration(email string) Registration {
	return Registration{
		Email:     email,
		Password:  "s3cret",
		FirstName: "Grace",
		LastName:  "Hopper",
		Demographics: &domain.Demographics{
			AgeGroup:       "35-44",
			Profession:     "researcher",
			Gender:         "female",
			Background:     "academia",
			EducationLevel: "phd",
		},
	}
}

func TestUserService_RegisterAndAuthenticate(t *testing.T) {
	s := setup(t)
	ctx := context.Background()

	user, err := s.users.Register(ctx, registration(" Grace@Example.com "))
	require.NoError(t, err)
	assert.Equal(t, "grace@example.com", user.Email)
	assert.Empty(t, user.PasswordHash)
	assert.NotZero(t, user.ID)

	logged, err := s.users.Authenticate(ctx, "GRACE@example.com", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, user.ID, logged.ID)
	require.NotNil(t, logged.LastLogin)

	_, err = s.users.Authenticate(ctx, "grace@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = s.users.Authenticate(ctx, "nobody@example.com", "s3cret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestUserService_RegisterValidation(t *testing.T) {
	s := setup(t)
	ctx := context.Background()

	reg := registration("a@example.com")
	reg.FirstName = ""
	_, err := s.users.Register(ctx, reg)
	require.ErrorIs(t, err, domain.ErrValidation)
	assert.Contains(t, err.Error(), "All fields are required")

	reg = registration("a@example.com")
	reg.Demographics.Gender = ""
	reg.Demographics.Background = ""
	_, err = s.users.Register(ctx, reg)
	require.ErrorIs(t, err, domain.ErrValidation)
	assert.Contains(t, err.Error(), "Missing demographic fields: gender, background")

	_, err = s.users.Register(ctx, registration("dup@example.com"))
	require.NoError(t, err)
	_, err = s.users.Register(ctx, registration("DUP@example.com"))
	assert.ErrorIs(t, err, ErrUserAlreadyExists)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestRatingService_Upsert(t *testing.T) {
	s := setup(t)
	ctx := context.Background()

	user, err := s.users.Register(ctx, registration("r@example.com"))
	require.NoError(t, err)

	res, err := s.ratings.Upsert(ctx, user.ID, "Grid Storage", domain.DimensionComplexity, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Upserted())
	assert.Equal(t, 0, res.Modified())

	res, err = s.ratings.Upsert(ctx, user.ID, "Grid Storage", domain.DimensionComplexity, 3)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Upserted())
	assert.Equal(t, 1, res.Modified())

	records, err := s.ratings.ListForUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 3, records[0].RatingValue)

	_, err = s.ratings.Upsert(ctx, user.ID, "Grid Storage", domain.DimensionComplexity, 4)
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = s.ratings.Upsert(ctx, user.ID, "  ", domain.DimensionComplexity, 1)
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = s.ratings.Upsert(ctx, user.ID, "Grid Storage", domain.Dimension("impact"), 1)
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = s.ratings.Upsert(ctx, user.ID+100, "Grid Storage", domain.DimensionReadiness, 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRatingService_ListForUserEmpty(t *testing.T) {
	s := setup(t)
	records, err := s.ratings.ListForUser(context.Background(), 42)
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestStatsService(t *testing.T) {
	s := setup(t)
	ctx := context.Background()

	a, err := s.users.Register(ctx, registration("a@example.com"))
	require.NoError(t, err)
	_, err = s.users.Register(ctx, registration("b@example.com"))
	require.NoError(t, err)
	_, err = s.ratings.Upsert(ctx, a.ID, "Grid Storage", domain.DimensionSignificance, 1)
	require.NoError(t, err)

	stats, err := s.stats.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.TotalUsers)
	assert.EqualValues(t, 1, stats.TotalRatings)
	require.Len(t, stats.Demographics, 1)
	assert.EqualValues(t, 2, stats.Demographics[0].Count)
}

type memoryStore struct {
	objects map[string][]byte
	putErr  error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{objects: map[string][]byte{}}
}

func (m *memoryStore) Put(_ context.Context, body io.Reader, opts storage.PutOptions) (string, error) {
	if m.putErr != nil {
		return "", m.putErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	m.objects[opts.Key] = data
	return "s3://" + opts.Bucket + "/" + opts.Key, nil
}

func (m *memoryStore) ListObjects(_ context.Context, _ string, prefix string) ([]storage.ObjectInfo, error) {
	var out []storage.ObjectInfo
	for key, data := range m.objects {
		if strings.HasPrefix(key, prefix) {
			out = append(out, storage.ObjectInfo{Key: key, Size: int64(len(data))})
		}
	}
	return out, nil
}

func (m *memoryStore) GetObjectURL(_ context.Context, bucket, key string, expires time.Duration) (string, error) {
	return fmt.Sprintf("https://%s.example/%s?expires=%d", bucket, key, int(expires.Seconds())), nil
}

func TestExportService_Export(t *testing.T) {
	s := setup(t)
	ctx := context.Background()

	user, err := s.users.Register(ctx, registration("export@example.com"))
	require.NoError(t, err)
	_, err = s.ratings.Upsert(ctx, user.ID, "Grid Storage", domain.DimensionReadiness, 2)
	require.NoError(t, err)

	store := newMemoryStore()
	svc := NewExportService(s.users, s.ratings, store, "exports", "/feedback/")
	fixed := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)
	svc.(*exportService).now = func() time.Time { return fixed }

	export, err := svc.Export(ctx, user.ID)
	require.NoError(t, err)

	wantKey := fmt.Sprintf("feedback/%d/20260301T123000Z.json", user.ID)
	assert.Equal(t, wantKey, export.Key)
	assert.Equal(t, "s3://exports/"+wantKey, export.Location)
	assert.Contains(t, export.URL, "expires=900")

	var doc map[string]any
	require.NoError(t, json.NewDecoder(bytes.NewReader(store.objects[wantKey])).Decode(&doc))
	assert.Equal(t, "export@example.com", doc["user"].(map[string]any)["email"])
	assert.Len(t, doc["ratings"], 1)

	listed, err := svc.List(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, wantKey, listed[0].Key)
}

func TestExportService_Errors(t *testing.T) {
	s := setup(t)
	ctx := context.Background()

	disabled := NewExportService(s.users, s.ratings, nil, "", "")
	_, err := disabled.Export(ctx, 1)
	assert.ErrorIs(t, err, ErrExportDisabled)

	store := newMemoryStore()
	svc := NewExportService(s.users, s.ratings, store, "exports", "")
	_, err = svc.Export(ctx, 999)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	user, err := s.users.Register(ctx, registration("fail@example.com"))
	require.NoError(t, err)
	store.putErr = errors.New("bucket gone")
	_, err = svc.Export(ctx, user.ID)
	assert.ErrorIs(t, err, domain.ErrStorage)
}
