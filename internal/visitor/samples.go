package visitor

import (
	"time"

	"github.com/recshelf/recshelf-server/internal/domain"
)

// SampleSet is the demo content every new visitor store starts with.
// Stores only read it; edits and deletes go to per-store overlays.
type SampleSet struct {
	People          []domain.Person
	Recommendations []domain.Recommendation
}

var sampleEpoch = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// Samples returns the built-in demo content.
func Samples() SampleSet {
	people := []domain.Person{
		{ID: "sample-person-maya", Name: "Maya"},
		{ID: "sample-person-jonas", Name: "Jonas"},
		{ID: "sample-person-priya", Name: "Priya"},
	}
	maya, jonas, priya := people[0], people[1], people[2]

	rec := func(id, title string, typ domain.RecommendationType, by domain.Person, reason, date string) domain.Recommendation {
		r := domain.Recommendation{
			ID:          id,
			Title:       title,
			Type:        typ,
			Recommender: by,
			Reason:      reason,
			Date:        date,
			Origin:      domain.OriginSample,
		}
		r.CreatedAt = sampleEpoch
		r.UpdatedAt = sampleEpoch
		return r
	}

	recs := []domain.Recommendation{
		rec("sample-rec-1", "Piranesi", domain.TypeBook, maya, "Short, strange and beautiful.", "2024-03-02"),
		rec("sample-rec-2", "Past Lives", domain.TypeMovie, jonas, "Bring tissues.", "2024-02-18"),
		rec("sample-rec-3", "Slow Horses", domain.TypeTV, priya, "Best spy show in years.", "2024-02-11"),
		rec("sample-rec-4", "Marcella Hazan's tomato sauce", domain.TypeRecipe, maya, "Three ingredients, no chopping.", "2024-01-27"),
		rec("sample-rec-5", "Song That Found You", domain.TypePodcast, jonas, "", "2024-01-14"),
		rec("sample-rec-6", "Lucky Noodle Bar", domain.TypeRestaurant, priya, "Order the dan dan.", "2024-01-05"),
	}
	recs[4].Source = "Spotify"

	return SampleSet{People: people, Recommendations: recs}
}
