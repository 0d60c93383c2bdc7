package domain

import "github.com/google/uuid"

// MaxCardCapabilities bounds the capability references carried by a card.
const MaxCardCapabilities = 3

// Card is a static catalog entry. Title is the rating key on the wire;
// ID is a surrogate assigned at catalog ingestion.
type Card struct {
	ID           uuid.UUID `json:"-"`
	Number       int       `json:"number"`
	Title        string    `json:"title"`
	Sector       string    `json:"sector"`
	Description  string    `json:"description"`
	Capabilities []string  `json:"capabilities"`
	Significance int       `json:"significance"`
	Complexity   int       `json:"complexity"`
	Readiness    int       `json:"readiness"`
}

// Score returns the card's static score for the given dimension.
func (c Card) Score(d Dimension) int {
	switch d {
	case DimensionSignificance:
		return c.Significance
	case DimensionComplexity:
		return c.Complexity
	case DimensionReadiness:
		return c.Readiness
	default:
		return 0
	}
}

// Capability is the display metadata for a capability id.
type Capability struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon"`
}
