package domain

import (
	"fmt"
	"strings"
	"time"
)

// Dimension is one independent rating axis of a card.
type Dimension string

const (
	DimensionSignificance Dimension = "Significance"
	DimensionComplexity   Dimension = "Complexity"
	DimensionReadiness    Dimension = "Readiness"
)

// Dimensions lists the recognised rating axes in display order.
var Dimensions = []Dimension{DimensionSignificance, DimensionComplexity, DimensionReadiness}

const (
	MinRating = 0
	MaxRating = 3
)

// ParseDimension resolves a dimension name, ignoring case.
func ParseDimension(s string) (Dimension, error) {
	for _, d := range Dimensions {
		if strings.EqualFold(strings.TrimSpace(s), string(d)) {
			return d, nil
		}
	}
	return "", fmt.Errorf("%w: unknown rating type %q", ErrValidation, s)
}

// Valid reports whether d is one of the recognised dimensions.
func (d Dimension) Valid() bool {
	for _, known := range Dimensions {
		if d == known {
			return true
		}
	}
	return false
}

// ValidateRating checks the shape of a rating write before it reaches storage.
func ValidateRating(cardName string, dim Dimension, value int) error {
	if strings.TrimSpace(cardName) == "" {
		return fmt.Errorf("%w: card name is required", ErrValidation)
	}
	if !dim.Valid() {
		return fmt.Errorf("%w: unknown rating type %q", ErrValidation, dim)
	}
	if value < MinRating || value > MaxRating {
		return fmt.Errorf("%w: rating value %d out of range [%d,%d]", ErrValidation, value, MinRating, MaxRating)
	}
	return nil
}

// RatingRecord is one respondent's rating of one card along one dimension.
// At most one record exists per (UserID, CardName, RatingType).
type RatingRecord struct {
	ID          int64
	UserID      int64
	CardName    string
	RatingType  Dimension
	RatingValue int
	Timestamp   time.Time
}

// UpsertResult reports whether an upsert inserted a new record or
// overwrote an existing one.
type UpsertResult struct {
	Created bool
}

// Modified mirrors the wire field: 1 when an existing record was overwritten.
func (r UpsertResult) Modified() int {
	if r.Created {
		return 0
	}
	return 1
}

// Upserted mirrors the wire field: 1 when a new record was created.
func (r UpsertResult) Upserted() int {
	if r.Created {
		return 1
	}
	return 0
}
