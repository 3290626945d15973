// Package models defines the core domain entities: price observations,
// market research aggregates, international comparisons, and decision payloads.
package models

import (
	"errors"
	"math"
)

// Source identifies where a price observation came from.
type Source string

const (
	SourceEbayAPI        Source = "ebay_api"
	SourceEbaySold       Source = "ebay_sold"
	SourceEbayActive     Source = "ebay_active"
	SourceAmazon         Source = "amazon"
	SourceGoogleShopping Source = "google_shopping"
	SourcePriceCharting  Source = "pricecharting"
)

// Condition is the normalized item condition of an observation.
type Condition string

const (
	ConditionNew         Condition = "new"
	ConditionUsed        Condition = "used"
	ConditionRefurbished Condition = "refurbished"
)

// NormalizeCondition maps marketplace condition strings (NEW_WITH_TAGS,
// USED_EXCELLENT, ...) onto the three canonical conditions. Unknown values
// default to used, matching how listings without condition data are treated.
func NormalizeCondition(raw string) Condition {
	switch {
	case containsFold(raw, "refurb"):
		return ConditionRefurbished
	case containsFold(raw, "new"):
		return ConditionNew
	default:
		return ConditionUsed
	}
}

func containsFold(s, substr string) bool {
	n := len(s) - len(substr)
	for i := 0; i <= n; i++ {
		match := true
		for j := 0; j < len(substr); j++ {
			c := s[i+j]
			if 'A' <= c && c <= 'Z' {
				c += 'a' - 'A'
			}
			if c != substr[j] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

// PriceObservation is one normalized price reading from a single source for a
// single listing. Price is already converted to the home currency scale.
type PriceObservation struct {
	Source    Source    `json:"source"`
	Price     float64   `json:"price"`
	Currency  string    `json:"currency"`
	Condition Condition `json:"condition"`
	URL       string    `json:"url,omitempty"`
	Title     string    `json:"title,omitempty"`
}

// Validate checks observation field constraints.
func (o *PriceObservation) Validate() error {
	if o.Source == "" {
		return errors.New("observation source must not be empty")
	}
	if math.IsNaN(o.Price) || math.IsInf(o.Price, 0) {
		return errors.New("observation price must be finite")
	}
	if o.Price < 0 {
		return errors.New("observation price must not be negative")
	}
	if len(o.Currency) != 3 {
		return errors.New("observation currency must be a 3-letter code")
	}
	switch o.Condition {
	case ConditionNew, ConditionUsed, ConditionRefurbished:
	default:
		return errors.New("observation condition must be new, used, or refurbished")
	}
	return nil
}
