package utils

import (
	"context"
	"strings"
	"testing"
)

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Hello, World!":          "hello-world",
		"  Spaces   everywhere ": "spaces-everywhere",
		"Go 1.25 is out":         "go-1-25-is-out",
		"einfach--doppelt":       "einfach-doppelt",
		"!!!":                    "untitled",
	}

	for in, want := range cases {
		if got := Slugify(in); got != want {
			t.Errorf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestUniqueSlugNoCollision(t *testing.T) {
	exists := func(ctx context.Context, slug string) (bool, error) { return false, nil }

	slug, err := UniqueSlug(context.Background(), "Hello, World!", exists)
	if err != nil {
		t.Fatalf("UniqueSlug failed: %v", err)
	}
	if slug != "hello-world" {
		t.Errorf("expected hello-world, got %q", slug)
	}
}

func TestUniqueSlugWithCollisions(t *testing.T) {
	taken := map[string]bool{"hello-world": true, "hello-world-1": true}
	exists := func(ctx context.Context, slug string) (bool, error) { return taken[slug], nil }

	slug, err := UniqueSlug(context.Background(), "Hello, World!", exists)
	if err != nil {
		t.Fatalf("UniqueSlug failed: %v", err)
	}
	if slug != "hello-world-2" {
		t.Errorf("expected hello-world-2, got %q", slug)
	}
}

func TestUniqueSlugFallsBackToRandomSuffix(t *testing.T) {
	// Everything with a numeric suffix is taken, forcing the fallback.
	exists := func(ctx context.Context, slug string) (bool, error) { return true, nil }

	slug, err := UniqueSlug(context.Background(), "Hello, World!", exists)
	if err != nil {
		t.Fatalf("UniqueSlug failed: %v", err)
	}
	if !strings.HasPrefix(slug, "hello-world-") {
		t.Errorf("fallback slug %q does not keep the base prefix", slug)
	}
	suffix := strings.TrimPrefix(slug, "hello-world-")
	if len(suffix) != 8 {
		t.Errorf("expected 8-char random suffix, got %q", suffix)
	}
}
