package services

import (
	"path/filepath"
	"testing"
	"time"
)

func TestMirrorFirstPost(t *testing.T) {
	m := NewStreakMirror(filepath.Join(t.TempDir(), "streak.json"))

	got, err := m.RecordPost(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("RecordPost failed: %v", err)
	}
	if got != 1 {
		t.Errorf("expected 1, got %d", got)
	}
}

func TestMirrorWithin24hIncrements(t *testing.T) {
	m := NewStreakMirror(filepath.Join(t.TempDir(), "streak.json"))

	first := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	m.RecordPost(first)

	got, err := m.RecordPost(first.Add(23 * time.Hour))
	if err != nil {
		t.Fatalf("RecordPost failed: %v", err)
	}
	if got != 2 {
		t.Errorf("expected 2, got %d", got)
	}
}

func TestMirrorAfter24hResets(t *testing.T) {
	m := NewStreakMirror(filepath.Join(t.TempDir(), "streak.json"))

	first := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	m.RecordPost(first)
	m.RecordPost(first.Add(23 * time.Hour))

	got, err := m.RecordPost(first.Add(23 * time.Hour).Add(25 * time.Hour))
	if err != nil {
		t.Fatalf("RecordPost failed: %v", err)
	}
	if got != 1 {
		t.Errorf("expected reset to 1, got %d", got)
	}
}

func TestMirrorSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "streak.json")

	first := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	m := NewStreakMirror(path)
	m.RecordPost(first)
	m.RecordPost(first.Add(1 * time.Hour))

	reopened := NewStreakMirror(path)
	got, err := reopened.Current()
	if err != nil {
		t.Fatalf("Current failed: %v", err)
	}
	if got != 2 {
		t.Errorf("expected persisted streak 2, got %d", got)
	}
}
