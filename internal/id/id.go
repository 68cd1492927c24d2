// Package id generates the prefixed identifiers used across Tug records.
package id

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Record prefixes. An ID reads as "<prefix>-<nanoid>", e.g. "val-V1StGXR8_Z5jdHi6B-myT".
const (
	PrefixUser     = "usr"
	PrefixValue    = "val"
	PrefixActivity = "act"
)

// Generate creates a prefixed NanoID (21 URL-safe characters after the prefix).
// It fails only when the system cannot supply secure randomness.
func Generate(prefix string) (string, error) {
	n, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + n, nil
}

// MustGenerate is like Generate but panics on failure.
func MustGenerate(prefix string) string {
	v, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return v
}

// HasPrefix reports whether s was generated with prefix.
func HasPrefix(s, prefix string) bool {
	return strings.HasPrefix(s, prefix+"-") && len(s) > len(prefix)+1
}

// NewState returns an opaque, unguessable OAuth state parameter.
func NewState() string {
	return uuid.NewString()
}
