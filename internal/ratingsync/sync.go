// Package ratingsync keeps the respondent's ratings on the client and
// writes changes to the server optimistically, rolling back on failure.
package ratingsync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"challenge-cards/internal/domain"
	"challenge-cards/internal/session"
)

// RatingStore is the server side of the rating API.
type RatingStore interface {
	UpsertRating(ctx context.Context, token, cardName string, dim domain.Dimension, value int) (domain.UpsertResult, error)
	ListRatings(ctx context.Context, token string) ([]domain.RatingRecord, error)
}

// Renderer is told about every visible rating change. Calls for settled
// writes arrive on the goroutine that performed the write.
type Renderer interface {
	RatingChanged(card string, dim domain.Dimension, value int)
	RatingFailed(card string, dim domain.Dimension, restored int, err error)
	RatingSaved(card string, dim domain.Dimension, value int)
}

type nopRenderer struct{}

func (nopRenderer) RatingChanged(string, domain.Dimension, int)       {}
func (nopRenderer) RatingFailed(string, domain.Dimension, int, error) {}
func (nopRenderer) RatingSaved(string, domain.Dimension, int)         {}

type SyncClient struct {
	session    *session.Session
	store      RatingStore
	renderer   Renderer
	log        *logrus.Logger
	projection *Projection

	mu      sync.Mutex
	pending map[ratingKey]*Mutation
	wg      sync.WaitGroup
}

type Option func(*SyncClient)

func WithRenderer(r Renderer) Option {
	return func(c *SyncClient) {
		if r != nil {
			c.renderer = r
		}
	}
}

func WithLogger(log *logrus.Logger) Option {
	return func(c *SyncClient) {
		if log != nil {
			c.log = log
		}
	}
}

func New(sess *session.Session, store RatingStore, opts ...Option) *SyncClient {
	quiet := logrus.New()
	quiet.SetOutput(io.Discard)

	c := &SyncClient{
		session:    sess,
		store:      store,
		renderer:   nopRenderer{},
		log:        quiet,
		projection: NewProjection(),
		pending:    make(map[ratingKey]*Mutation),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *SyncClient) Projection() *Projection {
	return c.projection
}

// Load replaces the projection with the server's records for the session's
// user. Anonymous sessions keep their local projection.
func (c *SyncClient) Load(ctx context.Context) error {
	token, ok := c.session.Token()
	if !ok {
		c.log.Debug("not authenticated, skipping ratings load")
		return nil
	}

	records, err := c.store.ListRatings(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			c.expire(ctx)
		}
		return fmt.Errorf("load ratings: %w", err)
	}

	c.projection.Replace(records)
	c.log.WithField("count", len(records)).Info("ratings loaded")
	return nil
}

// SetRating applies a star click. Clicking the currently shown value again
// retracts the rating to 0. The projection changes before SetRating returns;
// the server write runs in the background and settles the returned Mutation.
func (c *SyncClient) SetRating(ctx context.Context, card string, dim domain.Dimension, clicked int) (*Mutation, error) {
	if err := domain.ValidateRating(card, dim, clicked); err != nil {
		return nil, err
	}
	key := ratingKey{card, dim}

	c.mu.Lock()
	if m, ok := c.pending[key]; ok && m.State() == Pending {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: %s/%s", domain.ErrMutationPending, card, dim)
	}

	previous := c.projection.Get(card, dim)
	value := clicked
	if clicked == previous && previous > 0 {
		value = 0
	}
	m := newMutation(card, dim, previous, value)
	c.projection.Set(card, dim, value)

	token, authenticated := c.session.Token()
	if authenticated {
		m.begin()
		c.pending[key] = m
	}
	c.mu.Unlock()

	c.renderer.RatingChanged(card, dim, value)

	entry := c.log.WithFields(logrus.Fields{"card": card, "dimension": dim, "previous": previous, "value": value})
	if !authenticated {
		entry.Debug("rating kept locally, not authenticated")
		m.settle(nil)
		return m, nil
	}

	entry.Debug("rating applied optimistically")
	c.wg.Add(1)
	go c.write(context.WithoutCancel(ctx), m, token)
	return m, nil
}

func (c *SyncClient) write(ctx context.Context, m *Mutation, token string) {
	defer c.wg.Done()
	key := ratingKey{m.Card, m.Dimension}
	entry := c.log.WithFields(logrus.Fields{"card": m.Card, "dimension": m.Dimension, "value": m.Value})

	_, err := c.store.UpsertRating(ctx, token, m.Card, m.Dimension, m.Value)

	c.mu.Lock()
	if err != nil {
		c.projection.Set(m.Card, m.Dimension, m.Previous)
	}
	m.settle(err)
	if c.pending[key] == m {
		delete(c.pending, key)
	}
	c.mu.Unlock()

	if err != nil {
		entry.WithError(err).Warn("rating write failed, rolled back")
		if errors.Is(err, domain.ErrUnauthorized) {
			c.expire(ctx)
		}
		c.renderer.RatingFailed(m.Card, m.Dimension, m.Previous, err)
		return
	}

	entry.Info("rating saved")
	c.renderer.RatingSaved(m.Card, m.Dimension, m.Value)
}

func (c *SyncClient) expire(ctx context.Context) {
	if err := c.session.Expire(ctx); err != nil {
		c.log.WithError(err).Error("clear expired session")
		return
	}
	c.log.Warn("session expired, sign in again")
}

// Wait blocks until every in-flight write has settled.
func (c *SyncClient) Wait() {
	c.wg.Wait()
}
