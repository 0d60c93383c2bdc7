package ratingsync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"challenge-cards/internal/auth"
	"challenge-cards/internal/client"
	"challenge-cards/internal/domain"
	api "challenge-cards/internal/http"
	"challenge-cards/internal/repository/sqlite"
	"challenge-cards/internal/service"
	"challenge-cards/internal/session"
)

type fakeStore struct {
	mu      sync.Mutex
	calls   int
	err     error
	release chan struct{}
	records []domain.RatingRecord
}

func (f *fakeStore) UpsertRating(_ context.Context, _, card string, dim domain.Dimension, value int) (domain.UpsertResult, error) {
	if f.release != nil {
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return domain.UpsertResult{}, f.err
	}
	return domain.UpsertResult{Created: true}, nil
}

func (f *fakeStore) ListRatings(context.Context, string) ([]domain.RatingRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

func (f *fakeStore) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type event struct {
	kind  string
	card  string
	dim   domain.Dimension
	value int
}

type recordingRenderer struct {
	mu     sync.Mutex
	events []event
}

func (r *recordingRenderer) add(e event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingRenderer) RatingChanged(card string, dim domain.Dimension, value int) {
	r.add(event{"changed", card, dim, value})
}

func (r *recordingRenderer) RatingFailed(card string, dim domain.Dimension, restored int, _ error) {
	r.add(event{"failed", card, dim, restored})
}

func (r *recordingRenderer) RatingSaved(card string, dim domain.Dimension, value int) {
	r.add(event{"saved", card, dim, value})
}

func (r *recordingRenderer) Events() []event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]event(nil), r.events...)
}

func authenticated(t *testing.T) (*session.Session, *session.MemoryStore) {
	t.Helper()
	store := session.NewMemoryStore()
	sess := session.New(store)
	require.NoError(t, sess.Authenticate(context.Background(), "tok", session.Profile{ID: 1}))
	return sess, store
}

func wait(t *testing.T, m *Mutation) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	select {
	case <-m.Done():
	case <-ctx.Done():
		t.Fatal("mutation did not settle")
	}
	return m.Err()
}

func TestSetRating_RollbackOnFailure(t *testing.T) {
	sess, _ := authenticated(t)
	store := &fakeStore{err: fmt.Errorf("%w: connection refused", domain.ErrNetwork), release: make(chan struct{})}
	renderer := &recordingRenderer{}
	c := New(sess, store, WithRenderer(renderer))
	c.Projection().Set("cardA", domain.DimensionComplexity, 1)

	m, err := c.SetRating(context.Background(), "cardA", domain.DimensionComplexity, 3)
	require.NoError(t, err)
	assert.Equal(t, Pending, m.State())
	assert.Equal(t, 3, c.Projection().Get("cardA", domain.DimensionComplexity))

	close(store.release)
	err = wait(t, m)
	assert.ErrorIs(t, err, domain.ErrNetwork)
	assert.Equal(t, RolledBack, m.State())
	assert.Equal(t, 1, c.Projection().Get("cardA", domain.DimensionComplexity))
	assert.True(t, sess.IsAuthenticated())

	c.Wait()
	assert.Equal(t, []event{
		{"changed", "cardA", domain.DimensionComplexity, 3},
		{"failed", "cardA", domain.DimensionComplexity, 1},
	}, renderer.Events())
}

func TestSetRating_CommitAndToggle(t *testing.T) {
	sess, _ := authenticated(t)
	store := &fakeStore{}
	renderer := &recordingRenderer{}
	c := New(sess, store, WithRenderer(renderer))

	m, err := c.SetRating(context.Background(), "cardA", domain.DimensionReadiness, 3)
	require.NoError(t, err)
	require.NoError(t, wait(t, m))
	assert.Equal(t, Committed, m.State())
	assert.Equal(t, 3, c.Projection().Get("cardA", domain.DimensionReadiness))

	m, err = c.SetRating(context.Background(), "cardA", domain.DimensionReadiness, 3)
	require.NoError(t, err)
	assert.Equal(t, 0, m.Value)
	assert.Equal(t, 3, m.Previous)
	require.NoError(t, wait(t, m))
	assert.Equal(t, 0, c.Projection().Get("cardA", domain.DimensionReadiness))

	m, err = c.SetRating(context.Background(), "cardA", domain.DimensionReadiness, 2)
	require.NoError(t, err)
	require.NoError(t, wait(t, m))
	assert.Equal(t, 2, c.Projection().Get("cardA", domain.DimensionReadiness))

	c.Wait()
	assert.Equal(t, 3, store.Calls())
}

func TestSetRating_Unauthenticated(t *testing.T) {
	store := &fakeStore{}
	c := New(session.New(nil), store)

	m, err := c.SetRating(context.Background(), "cardA", domain.DimensionSignificance, 2)
	require.NoError(t, err)
	require.NoError(t, wait(t, m))
	assert.Equal(t, Committed, m.State())
	assert.Equal(t, 2, c.Projection().Get("cardA", domain.DimensionSignificance))
	assert.Equal(t, 0, store.Calls())

	require.NoError(t, c.Load(context.Background()))
	assert.Equal(t, 2, c.Projection().Get("cardA", domain.DimensionSignificance))
}

func TestSetRating_RejectsWhilePending(t *testing.T) {
	sess, _ := authenticated(t)
	store := &fakeStore{release: make(chan struct{})}
	c := New(sess, store)

	first, err := c.SetRating(context.Background(), "cardA", domain.DimensionComplexity, 2)
	require.NoError(t, err)

	_, err = c.SetRating(context.Background(), "cardA", domain.DimensionComplexity, 3)
	assert.ErrorIs(t, err, domain.ErrMutationPending)

	other, err := c.SetRating(context.Background(), "cardA", domain.DimensionReadiness, 1)
	require.NoError(t, err)

	close(store.release)
	require.NoError(t, wait(t, first))
	require.NoError(t, wait(t, other))

	again, err := c.SetRating(context.Background(), "cardA", domain.DimensionComplexity, 3)
	require.NoError(t, err)
	require.NoError(t, wait(t, again))
	assert.Equal(t, 3, c.Projection().Get("cardA", domain.DimensionComplexity))
}

func TestSetRating_Validation(t *testing.T) {
	c := New(session.New(nil), &fakeStore{})
	_, err := c.SetRating(context.Background(), "cardA", domain.DimensionComplexity, 4)
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = c.SetRating(context.Background(), "", domain.DimensionComplexity, 1)
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = c.SetRating(context.Background(), "cardA", domain.Dimension("Impact"), 1)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestSetRating_AuthFailureExpiresSession(t *testing.T) {
	sess, persisted := authenticated(t)
	store := &fakeStore{err: fmt.Errorf("%w: Invalid token", domain.ErrUnauthorized)}
	c := New(sess, store)
	c.Projection().Set("cardA", domain.DimensionComplexity, 2)

	m, err := c.SetRating(context.Background(), "cardA", domain.DimensionComplexity, 1)
	require.NoError(t, err)
	assert.ErrorIs(t, wait(t, m), domain.ErrUnauthorized)
	c.Wait()

	assert.Equal(t, 2, c.Projection().Get("cardA", domain.DimensionComplexity))
	assert.Equal(t, session.Expired, sess.State())
	assert.Equal(t, 0, persisted.Len())

	m, err = c.SetRating(context.Background(), "cardA", domain.DimensionComplexity, 3)
	require.NoError(t, err)
	require.NoError(t, wait(t, m))
	assert.Equal(t, 1, store.Calls())
}

func TestLoad(t *testing.T) {
	sess, _ := authenticated(t)
	store := &fakeStore{records: []domain.RatingRecord{
		{CardName: "cardA", RatingType: domain.DimensionSignificance, RatingValue: 3},
		{CardName: "cardB", RatingType: domain.DimensionReadiness, RatingValue: 1},
	}}
	c := New(sess, store)
	c.Projection().Set("stale", domain.DimensionComplexity, 2)

	require.NoError(t, c.Load(context.Background()))
	assert.Equal(t, 3, c.Projection().Get("cardA", domain.DimensionSignificance))
	assert.Equal(t, 1, c.Projection().Get("cardB", domain.DimensionReadiness))
	assert.Equal(t, 0, c.Projection().Get("stale", domain.DimensionComplexity))

	store.err = fmt.Errorf("%w: Invalid token", domain.ErrUnauthorized)
	err := c.Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.Equal(t, session.Expired, sess.State())
}

func TestProjection_Progress(t *testing.T) {
	p := NewProjection()
	p.Set("a", domain.DimensionSignificance, 3)
	p.Set("a", domain.DimensionComplexity, 1)
	p.Set("b", domain.DimensionReadiness, 2)
	p.Set("c", domain.DimensionReadiness, 0)

	got := p.Progress(3)
	assert.Equal(t, 2, got.RatedCards)
	assert.Equal(t, 67, got.Percent)
	assert.Equal(t, map[domain.Dimension]int{
		domain.DimensionSignificance: 1,
		domain.DimensionComplexity:   1,
		domain.DimensionReadiness:    1,
	}, got.ByDimension)

	assert.Equal(t, 0, NewProjection().Progress(0).Percent)
	assert.Equal(t, map[domain.Dimension]int{
		domain.DimensionSignificance: 3,
		domain.DimensionComplexity:   1,
		domain.DimensionReadiness:    0,
	}, p.Card("a"))
}

func TestSyncClient_AgainstAPI(t *testing.T) {
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

	apiClient := client.New(srv.URL)
	reg, err := apiClient.Register(ctx, client.RegisterRequest{
		Email: "sync@example.com", Password: "pw", FirstName: "S", LastName: "C",
		Demographics: domain.Demographics{AgeGroup: "a", Profession: "p", Gender: "g", Background: "b", EducationLevel: "e"},
	})
	require.NoError(t, err)

	sess := session.New(nil)
	require.NoError(t, sess.Authenticate(ctx, reg.Token, session.Profile{ID: reg.User.ID, Email: reg.User.Email}))

	c := New(sess, apiClient)
	require.NoError(t, c.Load(ctx))

	m, err := c.SetRating(ctx, "cardA", domain.DimensionReadiness, 3)
	require.NoError(t, err)
	require.NoError(t, wait(t, m))

	m, err = c.SetRating(ctx, "cardA", domain.DimensionReadiness, 3)
	require.NoError(t, err)
	require.NoError(t, wait(t, m))
	assert.Equal(t, 0, c.Projection().Get("cardA", domain.DimensionReadiness))

	stored, err := ratings.ListForUser(ctx, reg.User.ID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, 0, stored[0].RatingValue)

	fresh := New(sess, apiClient)
	require.NoError(t, fresh.Load(ctx))
	assert.Equal(t, 0, fresh.Projection().Get("cardA", domain.DimensionReadiness))

	require.NoError(t, sess.Authenticate(ctx, "forged", sess.Profile()))
	m, err = c.SetRating(ctx, "cardA", domain.DimensionReadiness, 2)
	require.NoError(t, err)
	assert.True(t, errors.Is(wait(t, m), domain.ErrUnauthorized))
	c.Wait()
	assert.Equal(t, 0, c.Projection().Get("cardA", domain.DimensionReadiness))
	assert.Equal(t, session.Expired, sess.State())
}
