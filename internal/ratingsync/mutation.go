package ratingsync

import (
	"context"
	"fmt"
	"sync"

	"challenge-cards/internal/domain"
)

type MutationState int

const (
	Idle MutationState = iota
	Pending
	Committed
	RolledBack
)

func (s MutationState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case Committed:
		return "committed"
	case RolledBack:
		return "rolled-back"
	default:
		return fmt.Sprintf("MutationState(%d)", int(s))
	}
}

// Mutation tracks one rating write from optimistic apply to settlement.
type Mutation struct {
	Card      string
	Dimension domain.Dimension
	Previous  int
	Value     int

	mu    sync.Mutex
	state MutationState
	err   error
	done  chan struct{}
}

func newMutation(card string, dim domain.Dimension, previous, value int) *Mutation {
	return &Mutation{
		Card:      card,
		Dimension: dim,
		Previous:  previous,
		Value:     value,
		state:     Idle,
		done:      make(chan struct{}),
	}
}

func (m *Mutation) State() MutationState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Err is the failure that caused a rollback, nil otherwise.
func (m *Mutation) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// Done is closed once the mutation is Committed or RolledBack.
func (m *Mutation) Done() <-chan struct{} {
	return m.done
}

// Wait blocks until the mutation settles or ctx ends, and returns the
// rollback cause if any.
func (m *Mutation) Wait(ctx context.Context) error {
	select {
	case <-m.done:
		return m.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Mutation) begin() {
	m.mu.Lock()
	m.state = Pending
	m.mu.Unlock()
}

func (m *Mutation) settle(err error) {
	m.mu.Lock()
	if err != nil {
		m.state = RolledBack
		m.err = err
	} else {
		m.state = Committed
	}
	m.mu.Unlock()
	close(m.done)
}
