package domain

import (
	"strings"

	"golang.org/x/text/cases"
)

// Person is someone who recommends things. People are created the first
// time a recommender is named and are never deleted.
type Person struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

var folder = cases.Fold()

// FoldName normalizes a person's name for lookups so "Ana", "ANA" and
// " ana " resolve to the same person.
func FoldName(name string) string {
	return folder.String(strings.Join(strings.Fields(name), " "))
}
