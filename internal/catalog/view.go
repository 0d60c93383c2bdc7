package catalog

import (
	"strings"

	"challenge-cards/internal/domain"
)

// CardView is what the renderer needs for one card: the card, its resolved
// capability metadata, its sector class and the respondent's own ratings.
type CardView struct {
	Card         domain.Card
	Capabilities []domain.Capability
	SectorClass  string
	Ratings      map[domain.Dimension]int
}

var sectorClasses = []struct {
	class    string
	keywords []string
}{
	{"energy", []string{"energy", "utilities"}},
	{"natural", []string{"natural environment"}},
	{"manufacturing", []string{"manufacturing"}},
	{"transportation", []string{"transportation", "supply chain"}},
	{"built", []string{"built environment"}},
	{"health", []string{"health", "well-being"}},
	{"government", []string{"government"}},
	{"cross", []string{"cross-cutting"}},
}

// SectorClass maps free-form sector text to its colour class.
func SectorClass(sector string) string {
	s := strings.ToLower(sector)
	for _, sc := range sectorClasses {
		for _, kw := range sc.keywords {
			if strings.Contains(s, kw) {
				return sc.class
			}
		}
	}
	return "energy"
}

// View builds the render input for card. rating may be nil; unrated
// dimensions read as 0.
func (c *Catalog) View(card domain.Card, rating func(cardName string, d domain.Dimension) int) CardView {
	v := CardView{
		Card:         card,
		Capabilities: make([]domain.Capability, len(card.Capabilities)),
		SectorClass:  SectorClass(card.Sector),
		Ratings:      make(map[domain.Dimension]int, len(domain.Dimensions)),
	}
	for i, id := range card.Capabilities {
		v.Capabilities[i] = c.Capability(id)
	}
	for _, d := range domain.Dimensions {
		if rating != nil {
			v.Ratings[d] = rating(card.Title, d)
		} else {
			v.Ratings[d] = 0
		}
	}
	return v
}

// Views builds render input for each card in order.
func (c *Catalog) Views(cards []domain.Card, rating func(cardName string, d domain.Dimension) int) []CardView {
	out := make([]CardView, len(cards))
	for i, card := range cards {
		out[i] = c.View(card, rating)
	}
	return out
}
