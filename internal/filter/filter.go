// Package filter narrows the card catalog to the subset matching the
// respondent's current filter selections.
package filter

import (
	"strings"

	"challenge-cards/internal/domain"
)

// State holds the filter selections. The zero value means "no filtering".
type State struct {
	Sectors        []string
	Capabilities   []string
	GrandChallenge string
	Search         string
	Significance   *int
	Complexity     *int
	Readiness      *int
}

// IsZero reports whether every field is unset.
func (s State) IsZero() bool {
	return len(s.Sectors) == 0 &&
		len(s.Capabilities) == 0 &&
		s.GrandChallenge == "" &&
		s.Search == "" &&
		s.Significance == nil &&
		s.Complexity == nil &&
		s.Readiness == nil
}

// Threshold returns the score threshold for d, or nil when unset.
func (s State) Threshold(d domain.Dimension) *int {
	switch d {
	case domain.DimensionSignificance:
		return s.Significance
	case domain.DimensionComplexity:
		return s.Complexity
	case domain.DimensionReadiness:
		return s.Readiness
	default:
		return nil
	}
}

// ScorePolicy reports whether a card with the given static score survives a
// score filter set to threshold.
type ScorePolicy func(score, threshold int) bool

// ExcludeEqual drops cards whose score equals the threshold exactly.
func ExcludeEqual(score, threshold int) bool { return score != threshold }

// AtLeast keeps cards scoring threshold or more.
func AtLeast(score, threshold int) bool { return score >= threshold }

// AtMost keeps cards scoring threshold or less.
func AtMost(score, threshold int) bool { return score <= threshold }

// Engine applies a State to a catalog.
type Engine struct {
	policy ScorePolicy
}

type Option func(*Engine)

// WithScorePolicy replaces the score comparison.
func WithScorePolicy(p ScorePolicy) Option {
	return func(e *Engine) {
		if p != nil {
			e.policy = p
		}
	}
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{policy: ExcludeEqual}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Apply returns the cards matching state, in catalog order. A zero state
// returns cards itself.
func (e *Engine) Apply(cards []domain.Card, state State) []domain.Card {
	if state.IsZero() {
		return cards
	}

	sectors := lowerAll(state.Sectors)
	search := strings.ToLower(state.Search)

	out := make([]domain.Card, 0, len(cards))
	for _, card := range cards {
		if len(sectors) > 0 && !matchSector(card.Sector, sectors) {
			continue
		}
		if len(state.Capabilities) > 0 && !matchCapability(card.Capabilities, state.Capabilities) {
			continue
		}
		if search != "" && !matchSearch(card, search) {
			continue
		}
		if !e.matchScores(card, state) {
			continue
		}
		out = append(out, card)
	}
	return out
}

// Apply filters with the default policy.
func Apply(cards []domain.Card, state State) []domain.Card {
	return NewEngine().Apply(cards, state)
}

func (e *Engine) matchScores(card domain.Card, state State) bool {
	for _, d := range domain.Dimensions {
		t := state.Threshold(d)
		if t == nil {
			continue
		}
		if !e.policy(card.Score(d), *t) {
			return false
		}
	}
	return true
}

func matchSector(sector string, wanted []string) bool {
	s := strings.ToLower(sector)
	for _, w := range wanted {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func matchCapability(have, wanted []string) bool {
	for _, h := range have {
		for _, w := range wanted {
			if strings.EqualFold(h, w) {
				return true
			}
		}
	}
	return false
}

func matchSearch(card domain.Card, search string) bool {
	return strings.Contains(strings.ToLower(card.Title), search) ||
		strings.Contains(strings.ToLower(card.Description), search)
}

func lowerAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			out = append(out, v)
		}
	}
	return out
}
