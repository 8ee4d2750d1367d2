package utils

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var nonWord = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases the title, strips non-word characters and collapses
// runs of separators into single hyphens.
func Slugify(title string) string {
	s := strings.ToLower(title)
	s = nonWord.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if s == "" {
		s = "untitled"
	}
	return s
}

// maxSlugAttempts bounds the collision loop. Past it we give up on numeric
// suffixes and append a random token instead so the call always terminates.
const maxSlugAttempts = 50

type SlugExistsFunc func(ctx context.Context, slug string) (bool, error)

// UniqueSlug derives a slug from title and probes with exists, appending
// -1, -2, ... on collision up to maxSlugAttempts, then a short random suffix.
func UniqueSlug(ctx context.Context, title string, exists SlugExistsFunc) (string, error) {
	base := Slugify(title)

	candidate := base
	for i := 1; i <= maxSlugAttempts; i++ {
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("failed to check slug %q: %w", candidate, err)
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}

	return fmt.Sprintf("%s-%s", base, uuid.New().String()[:8]), nil
}
