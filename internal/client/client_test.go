package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"challenge-cards/internal/auth"
	"challenge-cards/internal/domain"
	api "challenge-cards/internal/http"
	"challenge-cards/internal/repository/sqlite"
	"challenge-cards/internal/service"
)

func TestClient_StatusMapping(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusBadRequest, domain.ErrValidation},
		{http.StatusUnauthorized, domain.ErrUnauthorized},
		{http.StatusForbidden, domain.ErrUnauthorized},
		{http.StatusNotFound, domain.ErrNotFound},
		{http.StatusConflict, domain.ErrConflict},
		{http.StatusInternalServerError, domain.ErrStorage},
		{http.StatusServiceUnavailable, domain.ErrStorage},
	}
	for _, tc := range cases {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "nope"})
			}))
			defer srv.Close()

			_, err := New(srv.URL).UpsertRating(context.Background(), "t", "A", domain.DimensionComplexity, 1)
			require.ErrorIs(t, err, tc.want)

			var statusErr *StatusError
			require.True(t, errors.As(err, &statusErr))
			assert.Equal(t, tc.status, statusErr.StatusCode)
			assert.Equal(t, "nope", statusErr.Message)
		})
	}
}

func TestClient_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url).ListRatings(context.Background(), "t")
	assert.ErrorIs(t, err, domain.ErrNetwork)
}

func TestClient_UpsertRequestShape(t *testing.T) {
	var got map[string]any
	var authHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/feedback", r.URL.Path)
		authHeader = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = io.WriteString(w, `{"success":true,"modified":0,"upserted":1}`)
	}))
	defer srv.Close()

	res, err := New(srv.URL+"/").UpsertRating(context.Background(), "tok", "Grid Storage", domain.DimensionReadiness, 3)
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Equal(t, "Bearer tok", authHeader)
	assert.Equal(t, map[string]any{"cardName": "Grid Storage", "ratingType": "Readiness", "ratingValue": float64(3)}, got)
}

func TestClient_ListRatingsSkipsUnknownTypes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"success":true,"ratings":[
			{"id":1,"userId":2,"cardName":"A","ratingType":"complexity","ratingValue":2,"timestamp":"2026-01-02T03:04:05Z"},
			{"id":2,"userId":2,"cardName":"A","ratingType":"impact","ratingValue":1,"timestamp":"2026-01-02T03:04:05Z"}
		]}`)
	}))
	defer srv.Close()

	records, err := New(srv.URL).ListRatings(context.Background(), "tok")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, domain.DimensionComplexity, records[0].RatingType)
	assert.Equal(t, 2, records[0].RatingValue)
}

func newAPIServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	userRepo := sqlite.NewUserRepository(db)
	ratingRepo := sqlite.NewRatingRepository(db)
	require.NoError(t, userRepo.Init(ctx))
	require.NoError(t, ratingRepo.Init(ctx))

	users := service.NewUserService(userRepo)
	ratings := service.NewRatingService(ratingRepo)
	log := logrus.New()
	log.SetOutput(io.Discard)

	router := gin.New()
	api.NewHandler(users, ratings, service.NewStatsService(userRepo, ratingRepo),
		service.NewExportService(users, ratings, nil, "", ""), auth.NewIssuer("secret", time.Hour), log).
		RegisterRoutes(router, api.Options{})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_RoundTrip(t *testing.T) {
	srv := newAPIServer(t)
	c := New(srv.URL)
	ctx := context.Background()

	reg, err := c.Register(ctx, RegisterRequest{
		Email:     "round@example.com",
		Password:  "pw",
		FirstName: "R",
		LastName:  "T",
		Demographics: domain.Demographics{
			AgeGroup: "18-24", Profession: "student", Gender: "other", Background: "academia", EducationLevel: "bachelors",
		},
	})
	require.NoError(t, err)
	require.NotEmpty(t, reg.Token)

	_, err = c.Register(ctx, RegisterRequest{Email: "round@example.com"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	login, err := c.Login(ctx, "round@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, login.User.ID)

	_, err = c.Login(ctx, "round@example.com", "bad")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	profile, err := c.Profile(ctx, login.Token)
	require.NoError(t, err)
	assert.Equal(t, "round@example.com", profile.Email)

	res, err := c.UpsertRating(ctx, login.Token, "Grid Storage", domain.DimensionSignificance, 2)
	require.NoError(t, err)
	assert.True(t, res.Created)
	res, err = c.UpsertRating(ctx, login.Token, "Grid Storage", domain.DimensionSignificance, 3)
	require.NoError(t, err)
	assert.False(t, res.Created)

	records, err := c.ListRatings(ctx, login.Token)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 3, records[0].RatingValue)

	_, err = c.ListRatings(ctx, "forged")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = c.Export(ctx, login.Token)
	assert.ErrorIs(t, err, domain.ErrStorage)
}
