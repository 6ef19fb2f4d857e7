package domain

import (
	"fmt"
	"time"
)

// RecommendationType is the kind of thing being recommended.
type RecommendationType string

// Recommendation types.
const (
	TypeBook       RecommendationType = "book"
	TypeMovie      RecommendationType = "movie"
	TypeTV         RecommendationType = "tv"
	TypeRecipe     RecommendationType = "recipe"
	TypeRestaurant RecommendationType = "restaurant"
	TypePodcast    RecommendationType = "podcast"
	TypeOther      RecommendationType = "other"
)

// RecommendationTypes lists every valid type in display order.
var RecommendationTypes = []RecommendationType{
	TypeBook, TypeMovie, TypeTV, TypeRecipe, TypeRestaurant, TypePodcast, TypeOther,
}

// IsValid reports whether t is one of the known types.
func (t RecommendationType) IsValid() bool {
	for _, known := range RecommendationTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Origin records where a recommendation came from. It is set once at
// creation and decides what the transfer at registration picks up.
type Origin string

const (
	// OriginSample marks built-in demo content shown to visitors.
	OriginSample Origin = "sample"
	// OriginVisitor marks items a visitor added before signing up.
	OriginVisitor Origin = "visitor"
	// OriginAccount marks items stored for an authenticated account.
	OriginAccount Origin = "account"
)

// DateLayout is the calendar date format used for Recommendation.Date.
const DateLayout = "2006-01-02"

// Recommendation is one thing a Person recommended.
type Recommendation struct {
	Timestamps
	ID          string             `json:"id"`
	Title       string             `json:"title"`
	Type        RecommendationType `json:"type"`
	Recommender Person             `json:"recommender"`
	Reason      string             `json:"reason,omitempty"`
	Source      string             `json:"source,omitempty"`
	Date        string             `json:"date"`
	IsCompleted bool               `json:"is_completed"`

	// CustomCategory is a category slug or free-form label, used when Type is other.
	CustomCategory string `json:"custom_category,omitempty"`
	Origin         Origin `json:"origin"`
}

// ValidDate reports whether s is a YYYY-MM-DD calendar date.
func ValidDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

// Today returns the current date in DateLayout.
func Today() string {
	return time.Now().Format(DateLayout)
}

// Check validates the invariants every stored recommendation must satisfy.
func (r *Recommendation) Check() error {
	if r.Title == "" {
		return fmt.Errorf("title is required")
	}
	if !r.Type.IsValid() {
		return fmt.Errorf("unknown recommendation type %q", r.Type)
	}
	if !ValidDate(r.Date) {
		return fmt.Errorf("date %q is not YYYY-MM-DD", r.Date)
	}
	if r.Recommender.ID == "" {
		return fmt.Errorf("recommender is required")
	}
	return nil
}

// Clone returns a copy of r safe to hand out from a shared collection.
func (r Recommendation) Clone() *Recommendation {
	return &r
}
