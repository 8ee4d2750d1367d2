package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"experteneAPI/internal/types/notification"
	"experteneAPI/internal/types/user"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrUserNotFound = errors.New("user not found")

type UserService struct {
	db            *pgxpool.Pool
	notifications *NotificationService
}

func NewUserService(db *pgxpool.Pool, notifications *NotificationService) *UserService {
	return &UserService{db: db, notifications: notifications}
}

func (s *UserService) CreateUser(ctx context.Context, req *user.CreateUserRequest) (*user.User, error) {
	u := &user.User{
		ID:          uuid.New().String(),
		ClerkID:     req.ClerkID,
		Email:       req.Email,
		Username:    req.Username,
		DisplayName: req.DisplayName,
		ImageURL:    req.ImageURL,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	query := `
	INSERT INTO users (id, clerk_id, email, username, display_name, image_url, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (clerk_id) DO UPDATE SET email = $3, username = $4, display_name = $5, image_url = $6, updated_at = $8
	RETURNING id, clerk_id, email, username, display_name, COALESCE(bio, ''), image_url, email_verified, is_creator, created_at, updated_at
	`

	err := s.db.QueryRow(ctx, query,
		u.ID, u.ClerkID, u.Email, u.Username, u.DisplayName, u.ImageURL, u.CreatedAt, u.UpdatedAt,
	).Scan(
		&u.ID, &u.ClerkID, &u.Email, &u.Username, &u.DisplayName, &u.Bio,
		&u.ImageURL, &u.EmailVerified, &u.IsCreator, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return u, nil
}

func (s *UserService) GetUserByClerkID(ctx context.Context, clerkID string) (*user.User, error) {
	query := `
	SELECT id, clerk_id, email, username, display_name, COALESCE(bio, ''), COALESCE(image_url, ''), email_verified, is_creator, created_at, updated_at
	FROM users
	WHERE clerk_id = $1
	`

	u := &user.User{}
	err := s.db.QueryRow(ctx, query, clerkID).Scan(
		&u.ID, &u.ClerkID, &u.Email, &u.Username, &u.DisplayName, &u.Bio,
		&u.ImageURL, &u.EmailVerified, &u.IsCreator, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return u, nil
}

// ResolveUserID maps a Clerk subject to the internal user id.
func (s *UserService) ResolveUserID(ctx context.Context, clerkID string) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.db.QueryRow(ctx, `SELECT id FROM users WHERE clerk_id = $1`, clerkID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, ErrUserNotFound
		}
		return uuid.Nil, fmt.Errorf("failed to resolve user: %w", err)
	}
	return id, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, clerkID string, req *user.UpdateProfileRequest) (*user.User, error) {
	query := `
	UPDATE users
	SET username = COALESCE($2, username),
	    display_name = COALESCE($3, display_name),
	    bio = COALESCE($4, bio),
	    image_url = COALESCE($5, image_url),
	    updated_at = NOW()
	WHERE clerk_id = $1
	RETURNING id, clerk_id, email, username, display_name, COALESCE(bio, ''), COALESCE(image_url, ''), email_verified, is_creator, created_at, updated_at
	`

	u := &user.User{}
	err := s.db.QueryRow(ctx, query, clerkID, req.Username, req.DisplayName, req.Bio, req.ImageURL).Scan(
		&u.ID, &u.ClerkID, &u.Email, &u.Username, &u.DisplayName, &u.Bio,
		&u.ImageURL, &u.EmailVerified, &u.IsCreator, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	return u, nil
}

func (s *UserService) DeleteUserByClerkID(ctx context.Context, clerkID string) error {
	result, err := s.db.Exec(ctx, `DELETE FROM users WHERE clerk_id = $1`, clerkID)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *UserService) UpdateEmailVerification(ctx context.Context, clerkID string, verified bool) error {
	_, err := s.db.Exec(ctx,
		`UPDATE users SET email_verified = $2, updated_at = NOW() WHERE clerk_id = $1`,
		clerkID, verified)
	return err
}

// GetPublicProfile returns another user's profile with follow counts and
// streak summary.
func (s *UserService) GetPublicProfile(ctx context.Context, userID uuid.UUID) (*user.PublicProfile, error) {
	query := `
	SELECT u.id, u.username, u.display_name, COALESCE(u.bio, ''), COALESCE(u.image_url, ''), u.is_creator,
	       (SELECT COUNT(*) FROM follows WHERE followee_id = u.id) AS followers,
	       (SELECT COUNT(*) FROM follows WHERE follower_id = u.id) AS following,
	       (SELECT COUNT(*) FROM articles WHERE author_id = u.id) AS article_count,
	       COALESCE(s.current_streak, 0) AS current_streak
	FROM users u
	LEFT JOIN streaks s ON s.user_id = u.id
	WHERE u.id = $1
	`

	p := &user.PublicProfile{}
	err := s.db.QueryRow(ctx, query, userID).Scan(
		&p.ID, &p.Username, &p.DisplayName, &p.Bio, &p.ImageURL, &p.IsCreator,
		&p.Followers, &p.Following, &p.ArticleCount, &p.CurrentStreak,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	return p, nil
}

func (s *UserService) Follow(ctx context.Context, followerID, followeeID uuid.UUID) error {
	if followerID == followeeID {
		return fmt.Errorf("cannot follow yourself")
	}

	result, err := s.db.Exec(ctx, `
		INSERT INTO follows (follower_id, followee_id, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (follower_id, followee_id) DO NOTHING
	`, followerID, followeeID)
	if err != nil {
		return fmt.Errorf("failed to follow: %w", err)
	}

	if result.RowsAffected() > 0 && s.notifications != nil {
		_, err := s.notifications.CreateNotification(ctx, &notification.CreateNotificationRequest{
			UserID:  followeeID,
			Type:    notification.TypeNewFollower,
			Title:   "New follower",
			Body:    "Someone started following you",
			ActorID: &followerID,
		})
		if err != nil {
			log.Printf("Failed to create follower notification: %v", err)
		}
	}

	return nil
}

func (s *UserService) Unfollow(ctx context.Context, followerID, followeeID uuid.UUID) error {
	_, err := s.db.Exec(ctx,
		`DELETE FROM follows WHERE follower_id = $1 AND followee_id = $2`,
		followerID, followeeID)
	if err != nil {
		return fmt.Errorf("failed to unfollow: %w", err)
	}
	return nil
}

func (s *UserService) ListFollowers(ctx context.Context, userID uuid.UUID) ([]*user.PublicProfile, error) {
	return s.listFollowProfiles(ctx, userID, `f.followee_id = $1`, `f.follower_id = u.id`)
}

func (s *UserService) ListFollowing(ctx context.Context, userID uuid.UUID) ([]*user.PublicProfile, error) {
	return s.listFollowProfiles(ctx, userID, `f.follower_id = $1`, `f.followee_id = u.id`)
}

func (s *UserService) listFollowProfiles(ctx context.Context, userID uuid.UUID, whereClause, joinClause string) ([]*user.PublicProfile, error) {
	query := fmt.Sprintf(`
	SELECT u.id, u.username, u.display_name, COALESCE(u.bio, ''), COALESCE(u.image_url, ''), u.is_creator
	FROM follows f
	JOIN users u ON %s
	WHERE %s
	ORDER BY f.created_at DESC
	`, joinClause, whereClause)

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list follows: %w", err)
	}
	defer rows.Close()

	profiles := []*user.PublicProfile{}
	for rows.Next() {
		p := &user.PublicProfile{}
		if err := rows.Scan(&p.ID, &p.Username, &p.DisplayName, &p.Bio, &p.ImageURL, &p.IsCreator); err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles = append(profiles, p)
	}

	return profiles, rows.Err()
}

func (s *UserService) SearchUsers(ctx context.Context, query string) ([]*user.PublicProfile, error) {
	cleanQuery := strings.TrimSpace(query)
	if cleanQuery == "" {
		return []*user.PublicProfile{}, nil
	}
	pattern := "%" + cleanQuery + "%"

	rows, err := s.db.Query(ctx, `
	SELECT id, username, display_name, COALESCE(bio, ''), COALESCE(image_url, ''), is_creator
	FROM users
	WHERE username ILIKE $1 OR display_name ILIKE $1
	ORDER BY username ILIKE $2 DESC, username
	LIMIT 20
	`, pattern, cleanQuery+"%")
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	defer rows.Close()

	profiles := []*user.PublicProfile{}
	for rows.Next() {
		p := &user.PublicProfile{}
		if err := rows.Scan(&p.ID, &p.Username, &p.DisplayName, &p.Bio, &p.ImageURL, &p.IsCreator); err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles = append(profiles, p)
	}

	return profiles, rows.Err()
}
