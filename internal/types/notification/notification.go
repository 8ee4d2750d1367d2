package notification

import (
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	TypeNewFollower     NotificationType = "new_follower"
	TypeNewComment      NotificationType = "new_comment"
	TypeStreakMilestone NotificationType = "streak_milestone"
	TypeNewSubscriber   NotificationType = "new_subscriber"
)

type Notification struct {
	ID        uuid.UUID        `json:"id"`
	UserID    uuid.UUID        `json:"user_id"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Body      string           `json:"body"`
	Data      map[string]any   `json:"data,omitempty"`
	ActorID   *uuid.UUID       `json:"actor_id,omitempty"`
	ReadAt    *time.Time       `json:"read_at,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

type CreateNotificationRequest struct {
	UserID  uuid.UUID
	Type    NotificationType
	Title   string
	Body    string
	Data    map[string]any
	ActorID *uuid.UUID
}

type DeviceToken struct {
	Token    string `json:"token"`
	Platform string `json:"platform"`
}

type RegisterDeviceRequest struct {
	Token    string `json:"token"`
	Platform string `json:"platform"`
}
