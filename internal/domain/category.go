package domain

import (
	"strings"
	"time"
)

// CustomCategory is a user-defined category for items of type other.
// Type is the slug derived from Label and is unique within one store.
type CustomCategory struct {
	ID        string    `json:"id,omitempty"`
	Type      string    `json:"type"`
	Label     string    `json:"label"`
	Color     string    `json:"color,omitempty"`
	Icon      string    `json:"icon,omitempty"`
	CreatedAt time.Time `json:"created_at,omitzero"`
}

// CategorySlug derives a category type from its label: lower-cased,
// trimmed, with every whitespace run replaced by a single hyphen.
//
//	"Board Games"       -> "board-games"
//	"  Multi   Space "  -> "multi-space"
func CategorySlug(label string) string {
	return strings.Join(strings.Fields(strings.ToLower(label)), "-")
}
