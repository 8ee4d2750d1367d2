package streak

import (
	"time"

	"github.com/google/uuid"
)

// StreakRecord tracks consecutive posting days for one user. Created lazily
// on the first qualifying activity, never deleted.
type StreakRecord struct {
	UserID          uuid.UUID  `json:"user_id" db:"user_id"`
	CurrentStreak   int        `json:"current_streak" db:"current_streak"`
	LongestStreak   int        `json:"longest_streak" db:"longest_streak"`
	LastActiveDate  *time.Time `json:"last_active_date" db:"last_active_date"`
	TotalActiveDays int        `json:"total_active_days" db:"total_active_days"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
}
