package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"experteneAPI/internal/types/article"
	"experteneAPI/internal/types/notification"
	"experteneAPI/utils"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrArticleNotFound = errors.New("article not found")
	ErrPremiumOnly     = errors.New("article is for subscribers only")
)

// subscriptionChecker is the slice of SubscriptionService the article service
// needs for premium gating.
type subscriptionChecker interface {
	IsSubscribed(ctx context.Context, subscriberID, creatorID uuid.UUID) (bool, error)
}

type ArticleService struct {
	db            *pgxpool.Pool
	streaks       *StreakService
	subscriptions subscriptionChecker
	notifications *NotificationService
}

func NewArticleService(db *pgxpool.Pool, streaks *StreakService, subscriptions subscriptionChecker, notifications *NotificationService) *ArticleService {
	return &ArticleService{
		db:            db,
		streaks:       streaks,
		subscriptions: subscriptions,
		notifications: notifications,
	}
}

// Publish stores the article under a unique slug and then records the
// qualifying activity on the author's streak. A streak failure does not roll
// the publish back; the response carries a nil streak instead.
func (s *ArticleService) Publish(ctx context.Context, authorID uuid.UUID, req *article.PublishRequest) (*article.PublishResponse, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, fmt.Errorf("title is required")
	}
	if strings.TrimSpace(req.Content) == "" {
		return nil, fmt.Errorf("content is required")
	}

	slug, err := utils.UniqueSlug(ctx, title, s.slugExists)
	if err != nil {
		return nil, fmt.Errorf("failed to generate slug: %w", err)
	}

	a := &article.Article{
		ID:         uuid.New(),
		AuthorID:   authorID,
		Title:      title,
		Slug:       slug,
		Content:    req.Content,
		CoverImage: req.CoverImage,
		Premium:    req.Premium,
	}

	query := `
	INSERT INTO articles (id, author_id, title, slug, content, cover_image, premium, view_count, like_count, published_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, 0, 0, NOW(), NOW())
	RETURNING published_at, updated_at
	`
	err = s.db.QueryRow(ctx, query,
		a.ID, a.AuthorID, a.Title, a.Slug, a.Content, a.CoverImage, a.Premium,
	).Scan(&a.PublishedAt, &a.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to publish article: %w", err)
	}

	resp := &article.PublishResponse{Article: a}

	current, err := s.streaks.RecordActivity(ctx, authorID, a.PublishedAt)
	if err != nil {
		log.Printf("Streak update failed for author %s: %v", authorID, err)
	} else {
		resp.CurrentStreak = &current
		s.notifyStreakMilestone(ctx, authorID, current)
	}

	return resp, nil
}

// GenerateSlug previews the unique slug a given title would get.
func (s *ArticleService) GenerateSlug(ctx context.Context, title string) (string, error) {
	if strings.TrimSpace(title) == "" {
		return "", fmt.Errorf("title is required")
	}
	return utils.UniqueSlug(ctx, title, s.slugExists)
}

func (s *ArticleService) slugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM articles WHERE slug = $1)`, slug).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check slug: %w", err)
	}
	return exists, nil
}

// GetBySlug fetches an article. Premium articles are only returned to the
// author and to active subscribers; everyone else gets ErrPremiumOnly.
// viewerID is nil for anonymous readers.
func (s *ArticleService) GetBySlug(ctx context.Context, slug string, viewerID *uuid.UUID) (*article.Article, error) {
	query := `
	SELECT id, author_id, title, slug, content, cover_image, premium, view_count, like_count, published_at, updated_at
	FROM articles
	WHERE slug = $1
	`

	a := &article.Article{}
	err := s.db.QueryRow(ctx, query, slug).Scan(
		&a.ID, &a.AuthorID, &a.Title, &a.Slug, &a.Content, &a.CoverImage,
		&a.Premium, &a.ViewCount, &a.LikeCount, &a.PublishedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrArticleNotFound
		}
		return nil, fmt.Errorf("failed to get article: %w", err)
	}

	if a.Premium {
		if viewerID == nil {
			return nil, ErrPremiumOnly
		}
		if *viewerID != a.AuthorID {
			subscribed, err := s.subscriptions.IsSubscribed(ctx, *viewerID, a.AuthorID)
			if err != nil {
				return nil, fmt.Errorf("failed to check subscription: %w", err)
			}
			if !subscribed {
				return nil, ErrPremiumOnly
			}
		}
	}

	return a, nil
}

// Feed lists recent articles from authors the user follows, newest first.
func (s *ArticleService) Feed(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*article.FeedItem, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}

	query := `
	SELECT a.id, a.title, a.slug, a.premium, a.view_count, a.like_count,
	       a.author_id, u.username, COALESCE(u.image_url, ''), a.published_at
	FROM articles a
	JOIN users u ON u.id = a.author_id
	JOIN follows f ON f.followee_id = a.author_id
	WHERE f.follower_id = $1
	ORDER BY a.published_at DESC
	LIMIT $2 OFFSET $3
	`

	rows, err := s.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to load feed: %w", err)
	}
	defer rows.Close()

	items := []*article.FeedItem{}
	for rows.Next() {
		item := &article.FeedItem{}
		if err := rows.Scan(
			&item.ID, &item.Title, &item.Slug, &item.Premium, &item.ViewCount,
			&item.LikeCount, &item.AuthorID, &item.Username, &item.ImageURL,
			&item.PublishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan feed item: %w", err)
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

func (s *ArticleService) AddComment(ctx context.Context, articleID, authorID uuid.UUID, body string) (*article.Comment, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, fmt.Errorf("comment body is required")
	}

	c := &article.Comment{
		ID:        uuid.New(),
		ArticleID: articleID,
		AuthorID:  authorID,
		Body:      body,
	}

	query := `
	INSERT INTO comments (id, article_id, author_id, body, created_at)
	VALUES ($1, $2, $3, $4, NOW())
	RETURNING created_at
	`
	if err := s.db.QueryRow(ctx, query, c.ID, c.ArticleID, c.AuthorID, c.Body).Scan(&c.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to add comment: %w", err)
	}

	s.notifyComment(ctx, articleID, authorID)
	return c, nil
}

func (s *ArticleService) ListComments(ctx context.Context, articleID uuid.UUID, limit, offset int) ([]*article.Comment, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	query := `
	SELECT c.id, c.article_id, c.author_id, u.username, c.body, c.created_at
	FROM comments c
	JOIN users u ON u.id = c.author_id
	WHERE c.article_id = $1
	ORDER BY c.created_at ASC
	LIMIT $2 OFFSET $3
	`

	rows, err := s.db.Query(ctx, query, articleID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	comments := []*article.Comment{}
	for rows.Next() {
		c := &article.Comment{}
		if err := rows.Scan(&c.ID, &c.ArticleID, &c.AuthorID, &c.Username, &c.Body, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, c)
	}

	return comments, rows.Err()
}

// Like records a like and bumps the cached counter atomically. Liking twice
// is a no-op.
func (s *ArticleService) Like(ctx context.Context, articleID, userID uuid.UUID) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin like: %w", err)
	}
	defer tx.Rollback(ctx)

	result, err := tx.Exec(ctx, `
		INSERT INTO likes (article_id, user_id, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (article_id, user_id) DO NOTHING
	`, articleID, userID)
	if err != nil {
		return fmt.Errorf("failed to like article: %w", err)
	}

	if result.RowsAffected() > 0 {
		if _, err := tx.Exec(ctx,
			`UPDATE articles SET like_count = like_count + 1 WHERE id = $1`, articleID); err != nil {
			return fmt.Errorf("failed to bump like count: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func (s *ArticleService) Unlike(ctx context.Context, articleID, userID uuid.UUID) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin unlike: %w", err)
	}
	defer tx.Rollback(ctx)

	result, err := tx.Exec(ctx,
		`DELETE FROM likes WHERE article_id = $1 AND user_id = $2`, articleID, userID)
	if err != nil {
		return fmt.Errorf("failed to unlike article: %w", err)
	}

	if result.RowsAffected() > 0 {
		if _, err := tx.Exec(ctx,
			`UPDATE articles SET like_count = GREATEST(like_count - 1, 0) WHERE id = $1`, articleID); err != nil {
			return fmt.Errorf("failed to drop like count: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// ShareLink is the canonical public URL for an article, used by the QR
// endpoint.
func (s *ArticleService) ShareLink(slug string) string {
	return fmt.Sprintf("https://expertene.app/articles/%s", slug)
}

func (s *ArticleService) notifyComment(ctx context.Context, articleID, commenterID uuid.UUID) {
	if s.notifications == nil {
		return
	}

	var authorID uuid.UUID
	var title string
	err := s.db.QueryRow(ctx,
		`SELECT author_id, title FROM articles WHERE id = $1`, articleID).Scan(&authorID, &title)
	if err != nil || authorID == commenterID {
		return
	}

	_, err = s.notifications.CreateNotification(ctx, &notification.CreateNotificationRequest{
		UserID:  authorID,
		Type:    notification.TypeNewComment,
		Title:   "New comment",
		Body:    fmt.Sprintf("Someone commented on %q", title),
		Data:    map[string]any{"article_id": articleID.String()},
		ActorID: &commenterID,
	})
	if err != nil {
		log.Printf("Failed to create comment notification: %v", err)
	}
}

// streakMilestones are the runs worth celebrating with a push.
var streakMilestones = map[int]bool{7: true, 30: true, 100: true, 365: true}

func (s *ArticleService) notifyStreakMilestone(ctx context.Context, userID uuid.UUID, current int) {
	if s.notifications == nil || !streakMilestones[current] {
		return
	}

	_, err := s.notifications.CreateNotification(ctx, &notification.CreateNotificationRequest{
		UserID: userID,
		Type:   notification.TypeStreakMilestone,
		Title:  fmt.Sprintf("%d day streak!", current),
		Body:   fmt.Sprintf("You've published %d days in a row. Keep it going!", current),
		Data:   map[string]any{"days": current},
	})
	if err != nil {
		log.Printf("Failed to create streak milestone notification: %v", err)
	}
}
