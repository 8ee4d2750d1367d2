package analytics

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventArticleView   EventType = "article_view"
	EventArticleLike   EventType = "article_like"
	EventProfileView   EventType = "profile_view"
	EventFollow        EventType = "follow"
	EventSearch        EventType = "search"
	EventShare         EventType = "share"
)

// KnownEventTypes is the accepted set for incoming events. Anything else is
// rejected as a validation error.
var KnownEventTypes = map[EventType]bool{
	EventArticleView: true,
	EventArticleLike: true,
	EventProfileView: true,
	EventFollow:      true,
	EventSearch:      true,
	EventShare:       true,
}

type Event struct {
	ID           uuid.UUID      `json:"id"`
	EventType    EventType      `json:"event_type"`
	UserID       *uuid.UUID     `json:"user_id,omitempty"`
	ArticleID    *uuid.UUID     `json:"article_id,omitempty"`
	TargetUserID *uuid.UUID     `json:"target_user_id,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	IPAddress    string         `json:"ip_address"`
	UserAgent    string         `json:"user_agent"`
	Referer      string         `json:"referer"`
	CreatedAt    time.Time      `json:"created_at"`
}

type RecordEventRequest struct {
	EventType    EventType      `json:"event_type"`
	ArticleID    *uuid.UUID     `json:"article_id,omitempty"`
	TargetUserID *uuid.UUID     `json:"target_user_id,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}
