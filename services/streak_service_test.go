package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"experteneAPI/internal/types/streak"

	"github.com/google/uuid"
)

// memStreakRepo is an in-memory StreakRepository with the same compare-and-set
// semantics as the Postgres implementation.
type memStreakRepo struct {
	records  map[uuid.UUID]*streak.StreakRecord
	profiles map[uuid.UUID]bool
	failNext error
}

func newMemStreakRepo() *memStreakRepo {
	return &memStreakRepo{
		records:  make(map[uuid.UUID]*streak.StreakRecord),
		profiles: make(map[uuid.UUID]bool),
	}
}

func (m *memStreakRepo) GetStreak(ctx context.Context, userID uuid.UUID) (*streak.StreakRecord, error) {
	if m.failNext != nil {
		err := m.failNext
		m.failNext = nil
		return nil, err
	}
	rec, ok := m.records[userID]
	if !ok {
		return nil, ErrStreakNotFound
	}
	cp := *rec
	if rec.LastActiveDate != nil {
		d := *rec.LastActiveDate
		cp.LastActiveDate = &d
	}
	return &cp, nil
}

func (m *memStreakRepo) CreateStreak(ctx context.Context, rec *streak.StreakRecord) error {
	if m.failNext != nil {
		err := m.failNext
		m.failNext = nil
		return err
	}
	cp := *rec
	m.records[rec.UserID] = &cp
	return nil
}

func (m *memStreakRepo) UpdateStreak(ctx context.Context, rec *streak.StreakRecord, expected *time.Time) error {
	if m.failNext != nil {
		err := m.failNext
		m.failNext = nil
		return err
	}
	stored, ok := m.records[rec.UserID]
	if !ok {
		return ErrStreakConflict
	}
	if (stored.LastActiveDate == nil) != (expected == nil) {
		return ErrStreakConflict
	}
	if stored.LastActiveDate != nil && !stored.LastActiveDate.Equal(*expected) {
		return ErrStreakConflict
	}
	cp := *rec
	m.records[rec.UserID] = &cp
	return nil
}

func (m *memStreakRepo) EnsureProfile(ctx context.Context, userID uuid.UUID) error {
	m.profiles[userID] = true
	return nil
}

func TestFirstActivityCreatesRecord(t *testing.T) {
	repo := newMemStreakRepo()
	svc := NewStreakService(repo)
	userID := uuid.New()
	ctx := context.Background()

	got, err := svc.RecordActivity(ctx, userID, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("RecordActivity failed: %v", err)
	}
	if got != 1 {
		t.Errorf("expected streak 1, got %d", got)
	}

	rec := repo.records[userID]
	if rec.CurrentStreak != 1 || rec.LongestStreak != 1 || rec.TotalActiveDays != 1 {
		t.Errorf("unexpected record after first activity: %+v", rec)
	}
	if !repo.profiles[userID] {
		t.Error("profile row was not ensured")
	}
}

func TestSameDayRepeatOnlyTouchesDate(t *testing.T) {
	repo := newMemStreakRepo()
	svc := NewStreakService(repo)
	userID := uuid.New()
	ctx := context.Background()

	first := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	second := time.Date(2026, 3, 1, 21, 30, 0, 0, time.UTC)

	if _, err := svc.RecordActivity(ctx, userID, first); err != nil {
		t.Fatalf("first activity failed: %v", err)
	}
	got, err := svc.RecordActivity(ctx, userID, second)
	if err != nil {
		t.Fatalf("second activity failed: %v", err)
	}

	if got != 1 {
		t.Errorf("expected unchanged streak 1, got %d", got)
	}
	rec := repo.records[userID]
	if !rec.LastActiveDate.Equal(second) {
		t.Errorf("last_active_date not updated: %v", rec.LastActiveDate)
	}
	if rec.TotalActiveDays != 1 {
		t.Errorf("total_active_days changed on same-day repeat: %d", rec.TotalActiveDays)
	}
}

func TestNextDayIncrements(t *testing.T) {
	repo := newMemStreakRepo()
	svc := NewStreakService(repo)
	userID := uuid.New()
	ctx := context.Background()

	first := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	// 25 hours later, different UTC day.
	second := first.Add(25 * time.Hour)

	svc.RecordActivity(ctx, userID, first)
	got, err := svc.RecordActivity(ctx, userID, second)
	if err != nil {
		t.Fatalf("RecordActivity failed: %v", err)
	}

	if got != 2 {
		t.Errorf("expected streak 2, got %d", got)
	}
	rec := repo.records[userID]
	if rec.LongestStreak != 2 {
		t.Errorf("expected longest 2, got %d", rec.LongestStreak)
	}
	if rec.TotalActiveDays != 2 {
		t.Errorf("expected 2 active days, got %d", rec.TotalActiveDays)
	}
}

func TestMidnightCrossingWithin24hIncrements(t *testing.T) {
	repo := newMemStreakRepo()
	svc := NewStreakService(repo)
	userID := uuid.New()
	ctx := context.Background()

	first := time.Date(2026, 3, 1, 23, 0, 0, 0, time.UTC)
	second := time.Date(2026, 3, 2, 1, 0, 0, 0, time.UTC)

	svc.RecordActivity(ctx, userID, first)
	got, err := svc.RecordActivity(ctx, userID, second)
	if err != nil {
		t.Fatalf("RecordActivity failed: %v", err)
	}
	if got != 2 {
		t.Errorf("expected streak 2 after crossing midnight, got %d", got)
	}
}

func TestGapBreaksStreak(t *testing.T) {
	repo := newMemStreakRepo()
	svc := NewStreakService(repo)
	userID := uuid.New()
	ctx := context.Background()

	first := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	svc.RecordActivity(ctx, userID, first)
	svc.RecordActivity(ctx, userID, first.Add(25*time.Hour))

	// 50 hours of silence breaks the run.
	got, err := svc.RecordActivity(ctx, userID, first.Add(25*time.Hour).Add(50*time.Hour))
	if err != nil {
		t.Fatalf("RecordActivity failed: %v", err)
	}

	if got != 1 {
		t.Errorf("expected reset to 1, got %d", got)
	}
	rec := repo.records[userID]
	if rec.LongestStreak != 2 {
		t.Errorf("longest streak lost on reset: %d", rec.LongestStreak)
	}
	if rec.TotalActiveDays != 3 {
		t.Errorf("expected 3 active days, got %d", rec.TotalActiveDays)
	}
}

func TestLongestNeverBelowCurrent(t *testing.T) {
	repo := newMemStreakRepo()
	svc := NewStreakService(repo)
	userID := uuid.New()
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	offsets := []time.Duration{
		0,
		25 * time.Hour,
		50 * time.Hour,
		74 * time.Hour,
		80 * time.Hour,
		200 * time.Hour,
		225 * time.Hour,
		250 * time.Hour,
		275 * time.Hour,
	}

	for _, off := range offsets {
		if _, err := svc.RecordActivity(ctx, userID, base.Add(off)); err != nil {
			t.Fatalf("RecordActivity at +%v failed: %v", off, err)
		}
		rec := repo.records[userID]
		if rec.LongestStreak < rec.CurrentStreak {
			t.Fatalf("invariant violated at +%v: current=%d longest=%d",
				off, rec.CurrentStreak, rec.LongestStreak)
		}
	}
}

func TestOutOfOrderActivityIsNoOp(t *testing.T) {
	repo := newMemStreakRepo()
	svc := NewStreakService(repo)
	userID := uuid.New()
	ctx := context.Background()

	now := time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)
	svc.RecordActivity(ctx, userID, now)

	got, err := svc.RecordActivity(ctx, userID, now.Add(-48*time.Hour))
	if err != nil {
		t.Fatalf("RecordActivity failed: %v", err)
	}
	if got != 1 {
		t.Errorf("expected unchanged streak, got %d", got)
	}
	rec := repo.records[userID]
	if !rec.LastActiveDate.Equal(now) {
		t.Errorf("last_active_date moved backwards: %v", rec.LastActiveDate)
	}
}

func TestPersistenceFailureAborts(t *testing.T) {
	repo := newMemStreakRepo()
	svc := NewStreakService(repo)
	userID := uuid.New()
	ctx := context.Background()

	svc.RecordActivity(ctx, userID, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))

	repo.failNext = errors.New("connection refused")
	_, err := svc.RecordActivity(ctx, userID, time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC))
	if err == nil {
		t.Fatal("expected error when repository fails")
	}

	rec := repo.records[userID]
	if rec.CurrentStreak != 1 {
		t.Errorf("failed update must not change the record, got streak %d", rec.CurrentStreak)
	}
}

func TestGetStreakForUnknownUserIsZeroed(t *testing.T) {
	repo := newMemStreakRepo()
	svc := NewStreakService(repo)
	userID := uuid.New()

	rec, err := svc.GetStreak(context.Background(), userID)
	if err != nil {
		t.Fatalf("GetStreak failed: %v", err)
	}
	if rec.CurrentStreak != 0 || rec.LongestStreak != 0 || rec.LastActiveDate != nil {
		t.Errorf("expected zeroed record, got %+v", rec)
	}
}
