package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"experteneAPI/internal/types/analytics"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrUnknownEventType = errors.New("unknown event type")

type AnalyticsService struct {
	db *pgxpool.Pool
}

func NewAnalyticsService(db *pgxpool.Pool) *AnalyticsService {
	return &AnalyticsService{db: db}
}

// ValidateEvent checks the request shape before anything touches the
// database.
func ValidateEvent(req *analytics.RecordEventRequest) error {
	if req.EventType == "" {
		return fmt.Errorf("event_type is required")
	}
	if !analytics.KnownEventTypes[req.EventType] {
		return fmt.Errorf("%w: %s", ErrUnknownEventType, req.EventType)
	}
	if req.EventType == analytics.EventArticleView && req.ArticleID == nil {
		return fmt.Errorf("article_id is required for article_view events")
	}
	return nil
}

// RecordEvent appends the event row. For article_view events it additionally
// bumps the article's view counter atomically; a failed bump is logged but
// does not fail the event write.
func (s *AnalyticsService) RecordEvent(ctx context.Context, ev *analytics.Event) error {
	metadataJSON, _ := json.Marshal(ev.Metadata)

	query := `
	INSERT INTO analytics_events (id, event_type, user_id, article_id, target_user_id, metadata, ip_address, user_agent, referer, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
	`

	_, err := s.db.Exec(ctx, query,
		uuid.New(), ev.EventType, ev.UserID, ev.ArticleID, ev.TargetUserID,
		metadataJSON, ev.IPAddress, ev.UserAgent, ev.Referer)
	if err != nil {
		return fmt.Errorf("failed to record event: %w", err)
	}

	if ev.EventType == analytics.EventArticleView && ev.ArticleID != nil {
		if _, err := s.db.Exec(ctx,
			`UPDATE articles SET view_count = view_count + 1 WHERE id = $1`, *ev.ArticleID); err != nil {
			log.Printf("Failed to bump view count for article %s: %v", *ev.ArticleID, err)
		}
	}

	return nil
}

// ArticleStats returns view/like/comment counts for one of the caller's own
// articles.
func (s *AnalyticsService) ArticleStats(ctx context.Context, articleID, authorID uuid.UUID) (map[string]int, error) {
	query := `
	SELECT a.view_count, a.like_count,
	       (SELECT COUNT(*) FROM comments WHERE article_id = a.id) AS comment_count
	FROM articles a
	WHERE a.id = $1 AND a.author_id = $2
	`

	var views, likes, comments int
	if err := s.db.QueryRow(ctx, query, articleID, authorID).Scan(&views, &likes, &comments); err != nil {
		return nil, fmt.Errorf("failed to load article stats: %w", err)
	}

	return map[string]int{
		"views":    views,
		"likes":    likes,
		"comments": comments,
	}, nil
}
