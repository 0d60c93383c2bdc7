package ratingsync

import (
	"math"
	"sync"

	"challenge-cards/internal/domain"
)

type ratingKey struct {
	card string
	dim  domain.Dimension
}

// Projection is the session's view of its own ratings, keyed by card title
// and dimension. Missing entries read as 0.
type Projection struct {
	mu     sync.RWMutex
	values map[ratingKey]int
}

func NewProjection() *Projection {
	return &Projection{values: make(map[ratingKey]int)}
}

func (p *Projection) Get(card string, dim domain.Dimension) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.values[ratingKey{card, dim}]
}

func (p *Projection) Set(card string, dim domain.Dimension, value int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.values[ratingKey{card, dim}] = value
}

// Card returns every dimension's value for one card.
func (p *Projection) Card(card string) map[domain.Dimension]int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[domain.Dimension]int, len(domain.Dimensions))
	for _, d := range domain.Dimensions {
		out[d] = p.values[ratingKey{card, d}]
	}
	return out
}

// Replace swaps the whole projection for the given server records.
func (p *Projection) Replace(records []domain.RatingRecord) {
	values := make(map[ratingKey]int, len(records))
	for _, r := range records {
		values[ratingKey{r.CardName, r.RatingType}] = r.RatingValue
	}
	p.mu.Lock()
	p.values = values
	p.mu.Unlock()
}

// Progress summarises how much of the catalog the respondent has rated.
type Progress struct {
	RatedCards  int
	TotalCards  int
	Percent     int
	ByDimension map[domain.Dimension]int
}

// Progress counts cards with at least one non-zero rating out of totalCards.
func (p *Projection) Progress(totalCards int) Progress {
	p.mu.RLock()
	defer p.mu.RUnlock()

	rated := make(map[string]struct{})
	byDim := make(map[domain.Dimension]int, len(domain.Dimensions))
	for _, d := range domain.Dimensions {
		byDim[d] = 0
	}
	for k, v := range p.values {
		if v == 0 {
			continue
		}
		rated[k.card] = struct{}{}
		byDim[k.dim]++
	}

	out := Progress{RatedCards: len(rated), TotalCards: totalCards, ByDimension: byDim}
	if totalCards > 0 {
		out.Percent = int(math.Round(float64(len(rated)) / float64(totalCards) * 100))
	}
	return out
}
