// Package id generates the prefixed identifiers used for every stored entity.
package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Prefixes for each entity kind.
const (
	PrefixRecommendation = "rec"
	PrefixPerson         = "person"
	PrefixCategory       = "cat"
	PrefixUser           = "user"
	PrefixSession        = "session"
)

// Generate returns prefix + "-" + a 21 character NanoID,
// e.g. "rec-V1StGXR8_Z5jdHi6B-myT".
func Generate(prefix string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}

// MustGenerate is like Generate but panics on entropy failure.
// Only used for fixtures and seed data.
func MustGenerate(prefix string) string {
	id, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return id
}
