package user

import "time"

type User struct {
	ID            string    `json:"id"`
	ClerkID       string    `json:"clerkId"`
	Email         string    `json:"email"`
	Username      string    `json:"username"`
	DisplayName   string    `json:"displayName"`
	Bio           string    `json:"bio,omitempty"`
	ImageURL      string    `json:"imageUrl,omitempty"`
	EmailVerified bool      `json:"emailVerified"`
	IsCreator     bool      `json:"isCreator"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type CreateUserRequest struct {
	ClerkID     string `json:"clerkId"`
	Email       string `json:"email"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	ImageURL    string `json:"imageUrl"`
}

type UpdateProfileRequest struct {
	Username    *string `json:"username,omitempty"`
	DisplayName *string `json:"displayName,omitempty"`
	Bio         *string `json:"bio,omitempty"`
	ImageURL    *string `json:"imageUrl,omitempty"`
}

// PublicProfile is what other users see: profile fields plus follow counts
// and streak summary.
type PublicProfile struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	DisplayName   string `json:"displayName"`
	Bio           string `json:"bio,omitempty"`
	ImageURL      string `json:"imageUrl,omitempty"`
	IsCreator     bool   `json:"isCreator"`
	Followers     int    `json:"followers"`
	Following     int    `json:"following"`
	ArticleCount  int    `json:"articleCount"`
	CurrentStreak int    `json:"currentStreak"`
}
