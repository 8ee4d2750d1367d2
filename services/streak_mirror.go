package services

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// MirrorState is the on-disk shape of the local streak mirror.
type MirrorState struct {
	Streak   int        `json:"streak"`
	LastPost *time.Time `json:"last_post,omitempty"`
}

// StreakMirror is a device-local streak counter kept in a JSON file,
// independent from the backend StreakRecord. It uses a simpler rule than the
// streak engine: a post within 24h of the previous one extends the run,
// anything later resets it to 1. The two counters are intentionally never
// reconciled.
type StreakMirror struct {
	mu   sync.Mutex
	path string
}

func NewStreakMirror(path string) *StreakMirror {
	return &StreakMirror{path: path}
}

// RecordPost applies the 24h rule and returns the new local streak.
// A zero postTime means now.
func (m *StreakMirror) RecordPost(postTime time.Time) (int, error) {
	if postTime.IsZero() {
		postTime = time.Now()
	}
	postTime = postTime.UTC()

	m.mu.Lock()
	defer m.mu.Unlock()

	state, err := m.load()
	if err != nil {
		return 0, err
	}

	if state.LastPost != nil && postTime.Sub(*state.LastPost) < 24*time.Hour {
		state.Streak++
	} else {
		state.Streak = 1
	}
	state.LastPost = &postTime

	if err := m.save(state); err != nil {
		return 0, err
	}
	return state.Streak, nil
}

// Current returns the stored local streak without modifying it.
func (m *StreakMirror) Current() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, err := m.load()
	if err != nil {
		return 0, err
	}
	return state.Streak, nil
}

func (m *StreakMirror) load() (*MirrorState, error) {
	data, err := os.ReadFile(m.path)
	if os.IsNotExist(err) {
		return &MirrorState{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read streak mirror: %w", err)
	}

	state := &MirrorState{}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("failed to parse streak mirror: %w", err)
	}
	return state, nil
}

func (m *StreakMirror) save(state *MirrorState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode streak mirror: %w", err)
	}

	// Write-then-rename so a crash mid-write never leaves a torn file.
	tmp := m.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return fmt.Errorf("failed to create mirror directory: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write streak mirror: %w", err)
	}
	if err := os.Rename(tmp, m.path); err != nil {
		return fmt.Errorf("failed to replace streak mirror: %w", err)
	}
	return nil
}
