package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"experteneAPI/internal/types/streak"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrStreakNotFound = errors.New("streak record not found")

	// ErrStreakConflict means another request updated the record between our
	// read and write. The caller surfaces this as "streak not updated"; there
	// is no retry.
	ErrStreakConflict = errors.New("streak record changed concurrently")
)

// StreakRepository is the persistence surface the engine needs. The pgx
// implementation talks to Postgres; tests use an in-memory fake.
type StreakRepository interface {
	GetStreak(ctx context.Context, userID uuid.UUID) (*streak.StreakRecord, error)
	CreateStreak(ctx context.Context, rec *streak.StreakRecord) error
	// UpdateStreak writes rec only if the stored last_active_date still equals
	// expectedLastActive; otherwise it returns ErrStreakConflict.
	UpdateStreak(ctx context.Context, rec *streak.StreakRecord, expectedLastActive *time.Time) error
	// EnsureProfile creates a minimal user row if none exists, satisfying the
	// foreign key on the streak table.
	EnsureProfile(ctx context.Context, userID uuid.UUID) error
}

type StreakService struct {
	repo StreakRepository
}

func NewStreakService(repo StreakRepository) *StreakService {
	return &StreakService{repo: repo}
}

// RecordActivity updates the user's streak for a qualifying activity
// (publishing an article) at activityTime and returns the resulting current
// streak. A zero activityTime means now. All day math is UTC.
//
// The branch order below is load-bearing: the same-day check runs before the
// 48h break check, and everything left over counts as a new active day.
func (s *StreakService) RecordActivity(ctx context.Context, userID uuid.UUID, activityTime time.Time) (int, error) {
	if activityTime.IsZero() {
		activityTime = time.Now()
	}
	activityTime = activityTime.UTC()

	if err := s.repo.EnsureProfile(ctx, userID); err != nil {
		return 0, fmt.Errorf("failed to ensure profile for %s: %w", userID, err)
	}

	rec, err := s.repo.GetStreak(ctx, userID)
	if errors.Is(err, ErrStreakNotFound) {
		rec = &streak.StreakRecord{
			UserID:          userID,
			CurrentStreak:   1,
			LongestStreak:   1,
			LastActiveDate:  &activityTime,
			TotalActiveDays: 1,
		}
		if err := s.repo.CreateStreak(ctx, rec); err != nil {
			return 0, fmt.Errorf("failed to create streak record: %w", err)
		}
		return 1, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to load streak record: %w", err)
	}

	// last_active_date is monotonically non-decreasing: an activity older
	// than the stored one changes nothing.
	if rec.LastActiveDate != nil && activityTime.Before(*rec.LastActiveDate) {
		return rec.CurrentStreak, nil
	}

	expected := rec.LastActiveDate

	if rec.LastActiveDate == nil {
		// Record exists but never had a qualifying activity logged.
		rec.CurrentStreak++
		if rec.CurrentStreak > rec.LongestStreak {
			rec.LongestStreak = rec.CurrentStreak
		}
		rec.TotalActiveDays++
		rec.LastActiveDate = &activityTime
		if err := s.repo.UpdateStreak(ctx, rec, expected); err != nil {
			return 0, fmt.Errorf("failed to update streak: %w", err)
		}
		return rec.CurrentStreak, nil
	}

	last := *rec.LastActiveDate
	elapsed := activityTime.Sub(last)

	switch {
	case elapsed < 24*time.Hour && sameUTCDay(activityTime, last):
		// Repeat activity on the same day: touch the date, counters stay.
		rec.LastActiveDate = &activityTime
		if err := s.repo.UpdateStreak(ctx, rec, expected); err != nil {
			return 0, fmt.Errorf("failed to update streak: %w", err)
		}
		return rec.CurrentStreak, nil

	case elapsed >= 48*time.Hour:
		// A full day was skipped; the streak is broken.
		rec.CurrentStreak = 1
		rec.TotalActiveDays++
		rec.LastActiveDate = &activityTime

	default:
		// Crossed into a new UTC day within the streak window.
		rec.CurrentStreak++
		if rec.CurrentStreak > rec.LongestStreak {
			rec.LongestStreak = rec.CurrentStreak
		}
		rec.TotalActiveDays++
		rec.LastActiveDate = &activityTime
	}

	if err := s.repo.UpdateStreak(ctx, rec, expected); err != nil {
		return 0, fmt.Errorf("failed to update streak: %w", err)
	}
	return rec.CurrentStreak, nil
}

// GetStreak returns the user's streak record, or a zeroed record if they have
// never published.
func (s *StreakService) GetStreak(ctx context.Context, userID uuid.UUID) (*streak.StreakRecord, error) {
	rec, err := s.repo.GetStreak(ctx, userID)
	if errors.Is(err, ErrStreakNotFound) {
		return &streak.StreakRecord{UserID: userID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load streak record: %w", err)
	}
	return rec, nil
}

func sameUTCDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

// PgxStreakRepository is the Postgres-backed StreakRepository.
type PgxStreakRepository struct {
	db *pgxpool.Pool
}

func NewPgxStreakRepository(db *pgxpool.Pool) *PgxStreakRepository {
	return &PgxStreakRepository{db: db}
}

func (r *PgxStreakRepository) GetStreak(ctx context.Context, userID uuid.UUID) (*streak.StreakRecord, error) {
	query := `
	SELECT user_id, current_streak, longest_streak, last_active_date, total_active_days, created_at, updated_at
	FROM streaks
	WHERE user_id = $1
	`

	rec := &streak.StreakRecord{}
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&rec.UserID,
		&rec.CurrentStreak,
		&rec.LongestStreak,
		&rec.LastActiveDate,
		&rec.TotalActiveDays,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStreakNotFound
		}
		return nil, fmt.Errorf("failed to get streak: %w", err)
	}

	return rec, nil
}

func (r *PgxStreakRepository) CreateStreak(ctx context.Context, rec *streak.StreakRecord) error {
	query := `
	INSERT INTO streaks (user_id, current_streak, longest_streak, last_active_date, total_active_days, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
	`

	_, err := r.db.Exec(ctx, query,
		rec.UserID, rec.CurrentStreak, rec.LongestStreak, rec.LastActiveDate, rec.TotalActiveDays)
	if err != nil {
		return fmt.Errorf("failed to insert streak: %w", err)
	}
	return nil
}

func (r *PgxStreakRepository) UpdateStreak(ctx context.Context, rec *streak.StreakRecord, expectedLastActive *time.Time) error {
	query := `
	UPDATE streaks
	SET current_streak = $2, longest_streak = $3, last_active_date = $4, total_active_days = $5, updated_at = NOW()
	WHERE user_id = $1 AND last_active_date IS NOT DISTINCT FROM $6
	`

	result, err := r.db.Exec(ctx, query,
		rec.UserID, rec.CurrentStreak, rec.LongestStreak, rec.LastActiveDate, rec.TotalActiveDays, expectedLastActive)
	if err != nil {
		return fmt.Errorf("failed to update streak: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrStreakConflict
	}
	return nil
}

func (r *PgxStreakRepository) EnsureProfile(ctx context.Context, userID uuid.UUID) error {
	query := `
	INSERT INTO users (id, created_at, updated_at)
	VALUES ($1, NOW(), NOW())
	ON CONFLICT (id) DO NOTHING
	`

	_, err := r.db.Exec(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("failed to ensure profile: %w", err)
	}
	return nil
}
