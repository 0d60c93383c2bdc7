// Package catalog loads the static challenge-card catalog and its
// capability metadata, and builds the per-card views the client renders.
package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"

	"challenge-cards/internal/domain"
)

// cardNamespace seeds the name-based card ids so they are stable across loads.
var cardNamespace = uuid.MustParse("6f1c7d0e-3b7a-4c55-9a55-2f0e8b1d4c21")

// Catalog is the immutable card list plus capability metadata for one session.
type Catalog struct {
	Cards        []domain.Card
	Capabilities []domain.Capability

	capByID map[string]domain.Capability
}

// Load reads the card file and, when present, the capability file.
func Load(cardsPath, capabilitiesPath string) (*Catalog, error) {
	cardsFile, err := os.Open(cardsPath)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer cardsFile.Close()

	var caps io.Reader
	if capabilitiesPath != "" {
		capsFile, err := os.Open(capabilitiesPath)
		switch {
		case err == nil:
			defer capsFile.Close()
			caps = capsFile
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("open capabilities: %w", err)
		}
	}

	return Parse(cardsFile, caps)
}

// Parse decodes and validates a catalog. caps may be nil.
func Parse(cards io.Reader, caps io.Reader) (*Catalog, error) {
	parsedCards, err := ParseCards(cards)
	if err != nil {
		return nil, err
	}

	var parsedCaps []domain.Capability
	if caps != nil {
		if parsedCaps, err = ParseCapabilities(caps); err != nil {
			return nil, err
		}
	}

	c := &Catalog{
		Cards:        parsedCards,
		Capabilities: parsedCaps,
		capByID:      make(map[string]domain.Capability, len(parsedCaps)),
	}
	for _, capability := range parsedCaps {
		c.capByID[capability.ID] = capability
	}
	return c, nil
}

// ParseCards accepts either a bare array of cards or {"challenges": [...]}.
// A malformed entry fails the whole load.
func ParseCards(r io.Reader) ([]domain.Card, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var cards []domain.Card
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var wrapper struct {
			Challenges []domain.Card `json:"challenges"`
		}
		if err := json.Unmarshal(trimmed, &wrapper); err != nil {
			return nil, fmt.Errorf("%w: decode catalog: %v", domain.ErrValidation, err)
		}
		cards = wrapper.Challenges
	} else if err := json.Unmarshal(trimmed, &cards); err != nil {
		return nil, fmt.Errorf("%w: decode catalog: %v", domain.ErrValidation, err)
	}

	seen := make(map[string]int, len(cards))
	for i := range cards {
		card := &cards[i]
		card.Title = strings.TrimSpace(card.Title)
		if err := validateCard(*card); err != nil {
			return nil, fmt.Errorf("card %d: %w", i, err)
		}
		if prev, ok := seen[card.Title]; ok {
			return nil, fmt.Errorf("%w: card %d: title %q duplicates card %d", domain.ErrValidation, i, card.Title, prev)
		}
		seen[card.Title] = i
		card.ID = uuid.NewSHA1(cardNamespace, []byte(card.Title))
	}
	if cards == nil {
		cards = []domain.Card{}
	}
	return cards, nil
}

func validateCard(card domain.Card) error {
	if card.Title == "" {
		return fmt.Errorf("%w: title is required", domain.ErrValidation)
	}
	if strings.TrimSpace(card.Sector) == "" {
		return fmt.Errorf("%w: %q: sector is required", domain.ErrValidation, card.Title)
	}
	if len(card.Capabilities) > domain.MaxCardCapabilities {
		return fmt.Errorf("%w: %q: %d capabilities, at most %d allowed", domain.ErrValidation, card.Title, len(card.Capabilities), domain.MaxCardCapabilities)
	}
	for _, d := range domain.Dimensions {
		if s := card.Score(d); s < domain.MinRating || s > domain.MaxRating {
			return fmt.Errorf("%w: %q: %s score %d out of range", domain.ErrValidation, card.Title, d, s)
		}
	}
	return nil
}

// ParseCapabilities decodes {"capabilities": [...]}.
func ParseCapabilities(r io.Reader) ([]domain.Capability, error) {
	var wrapper struct {
		Capabilities []domain.Capability `json:"capabilities"`
	}
	if err := json.NewDecoder(r).Decode(&wrapper); err != nil {
		return nil, fmt.Errorf("%w: decode capabilities: %v", domain.ErrValidation, err)
	}
	for i, c := range wrapper.Capabilities {
		if strings.TrimSpace(c.ID) == "" {
			return nil, fmt.Errorf("%w: capability %d: id is required", domain.ErrValidation, i)
		}
	}
	return wrapper.Capabilities, nil
}

// Capability resolves metadata by id; unknown ids fall back to the id itself.
func (c *Catalog) Capability(id string) domain.Capability {
	if capability, ok := c.capByID[id]; ok {
		return capability
	}
	return domain.Capability{ID: id, Name: id, Icon: id}
}

// Card looks a card up by title.
func (c *Catalog) Card(title string) (domain.Card, bool) {
	for _, card := range c.Cards {
		if card.Title == title {
			return card, true
		}
	}
	return domain.Card{}, false
}
