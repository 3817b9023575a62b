package models

import (
	"math"
	"time"
)

// Venue identifies one price feed (exchange).
type Venue string

func (v Venue) String() string { return string(v) }

// PriceSample is one decoded price observed on a venue.
type PriceSample struct {
	Venue      Venue     `json:"venue"`
	Price      float64   `json:"price"`
	ObservedAt time.Time `json:"observed_at"`
}

// ValidPrice reports whether p can be published as a real price.
// Real prices are always positive and finite; anything else reads as unset.
func ValidPrice(p float64) bool {
	return p > 0 && !math.IsInf(p, 0) && !math.IsNaN(p)
}
