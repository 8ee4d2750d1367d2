package article

import (
	"time"

	"github.com/google/uuid"
)

type Article struct {
	ID          uuid.UUID  `json:"id"`
	AuthorID    uuid.UUID  `json:"authorId"`
	Title       string     `json:"title"`
	Slug        string     `json:"slug"`
	Content     string     `json:"content"`
	CoverImage  *string    `json:"coverImage,omitempty"`
	Premium     bool       `json:"premium"`
	ViewCount   int        `json:"viewCount"`
	LikeCount   int        `json:"likeCount"`
	PublishedAt time.Time  `json:"publishedAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

type PublishRequest struct {
	Title      string  `json:"title"`
	Content    string  `json:"content"`
	CoverImage *string `json:"coverImage,omitempty"`
	Premium    bool    `json:"premium"`
}

// PublishResponse carries the stored article plus the author's streak after
// this publish. Streak is nil when the streak update failed; the publish
// itself is not rolled back in that case.
type PublishResponse struct {
	Article       *Article `json:"article"`
	CurrentStreak *int     `json:"currentStreak"`
}

type Comment struct {
	ID        uuid.UUID `json:"id"`
	ArticleID uuid.UUID `json:"articleId"`
	AuthorID  uuid.UUID `json:"authorId"`
	Username  string    `json:"username"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
}

type AddCommentRequest struct {
	Body string `json:"body"`
}

// FeedItem is an article row joined with author display fields for list views.
type FeedItem struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Slug        string    `json:"slug"`
	Premium     bool      `json:"premium"`
	ViewCount   int       `json:"viewCount"`
	LikeCount   int       `json:"likeCount"`
	AuthorID    uuid.UUID `json:"authorId"`
	Username    string    `json:"username"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	PublishedAt time.Time `json:"publishedAt"`
}
