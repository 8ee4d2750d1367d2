package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"time"

	"experteneAPI/internal/types/passwordreset"

	clerkuser "github.com/clerk/clerk-sdk-go/v2/user"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrResetTokenInvalid = errors.New("reset token is invalid, expired or already used")
	ErrWeakPassword      = errors.New("password must be at least 8 characters")
)

// MailProvider sends outbound mail. The SMTP implementation lives in
// internal/mail; tests inject a recorder.
type MailProvider interface {
	Send(ctx context.Context, to, subject, body string) error
}

// CredentialStore updates a user's password at the identity provider.
type CredentialStore interface {
	FindUserIDByEmail(ctx context.Context, email string) (string, error)
	UpdatePassword(ctx context.Context, providerUserID, newPassword string) error
}

// ResetTokenRepository persists reset tokens; pgx implementation below,
// in-memory fake in tests.
type ResetTokenRepository interface {
	Insert(ctx context.Context, token *passwordreset.ResetToken) error
	Get(ctx context.Context, token string) (*passwordreset.ResetToken, error)
	MarkUsed(ctx context.Context, token string) error
	// CountIssuedSince counts tokens issued to email after cutoff, used for
	// the per-address rate window.
	CountIssuedSince(ctx context.Context, email string, cutoff time.Time) (int, error)
}

type PasswordResetService struct {
	tokens      ResetTokenRepository
	mail        MailProvider
	credentials CredentialStore

	baseURL     string
	tokenTTL    time.Duration
	maxPerEmail int
	rateWindow  time.Duration
}

func NewPasswordResetService(tokens ResetTokenRepository, mail MailProvider, credentials CredentialStore) *PasswordResetService {
	svc := &PasswordResetService{
		tokens:      tokens,
		mail:        mail,
		credentials: credentials,
		baseURL:     os.Getenv("PASSWORD_RESET_URL"),
		tokenTTL:    time.Hour,
		maxPerEmail: 3,
		rateWindow:  time.Hour,
	}
	if svc.baseURL == "" {
		svc.baseURL = "https://expertene.app/reset-password"
	}
	if n, err := strconv.Atoi(os.Getenv("RESET_MAX_PER_EMAIL")); err == nil && n > 0 {
		svc.maxPerEmail = n
	}
	if mins, err := strconv.Atoi(os.Getenv("RESET_WINDOW_MINUTES")); err == nil && mins > 0 {
		svc.rateWindow = time.Duration(mins) * time.Minute
	}
	return svc
}

// RequestReset issues a single-use token and emails the reset link. It never
// tells the caller whether the email exists or whether the rate limit was hit;
// both cases silently succeed so addresses cannot be enumerated.
func (s *PasswordResetService) RequestReset(ctx context.Context, email string) error {
	issued, err := s.tokens.CountIssuedSince(ctx, email, time.Now().Add(-s.rateWindow))
	if err != nil {
		return fmt.Errorf("failed to check reset rate limit: %w", err)
	}
	if issued >= s.maxPerEmail {
		log.Printf("Password reset rate limit hit for %s, dropping request", email)
		return nil
	}
	if s.mail == nil {
		return fmt.Errorf("mail delivery is not configured")
	}

	token := &passwordreset.ResetToken{
		Token:     uuid.New().String(),
		Email:     email,
		ExpiresAt: time.Now().Add(s.tokenTTL),
	}
	if err := s.tokens.Insert(ctx, token); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	link := fmt.Sprintf("%s?token=%s", s.baseURL, url.QueryEscape(token.Token))
	body := fmt.Sprintf("Someone requested a password reset for your Expertene account.\n\n"+
		"Open this link to choose a new password (valid for 1 hour):\n%s\n\n"+
		"If this wasn't you, ignore this email.", link)

	if err := s.mail.Send(ctx, email, "Reset your Expertene password", body); err != nil {
		return fmt.Errorf("failed to send reset email: %w", err)
	}
	return nil
}

// ConfirmReset redeems a token and updates the credential at the identity
// provider. The token is marked used only after the password change succeeds.
func (s *PasswordResetService) ConfirmReset(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < 8 {
		return ErrWeakPassword
	}

	stored, err := s.tokens.Get(ctx, token)
	if err != nil {
		return ErrResetTokenInvalid
	}
	if stored.Used || time.Now().After(stored.ExpiresAt) {
		return ErrResetTokenInvalid
	}

	providerID, err := s.credentials.FindUserIDByEmail(ctx, stored.Email)
	if err != nil {
		return fmt.Errorf("failed to resolve account for reset: %w", err)
	}
	if err := s.credentials.UpdatePassword(ctx, providerID, newPassword); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	if err := s.tokens.MarkUsed(ctx, token); err != nil {
		return fmt.Errorf("failed to mark reset token used: %w", err)
	}
	return nil
}

// PgxResetTokenRepository stores tokens in the password_reset_tokens table.
type PgxResetTokenRepository struct {
	db *pgxpool.Pool
}

func NewPgxResetTokenRepository(db *pgxpool.Pool) *PgxResetTokenRepository {
	return &PgxResetTokenRepository{db: db}
}

func (r *PgxResetTokenRepository) Insert(ctx context.Context, token *passwordreset.ResetToken) error {
	query := `
	INSERT INTO password_reset_tokens (token, email, expires_at, used, created_at)
	VALUES ($1, $2, $3, false, NOW())
	`
	_, err := r.db.Exec(ctx, query, token.Token, token.Email, token.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to insert reset token: %w", err)
	}
	return nil
}

func (r *PgxResetTokenRepository) Get(ctx context.Context, token string) (*passwordreset.ResetToken, error) {
	query := `
	SELECT token, email, expires_at, used, created_at
	FROM password_reset_tokens
	WHERE token = $1
	`

	stored := &passwordreset.ResetToken{}
	err := r.db.QueryRow(ctx, query, token).Scan(
		&stored.Token, &stored.Email, &stored.ExpiresAt, &stored.Used, &stored.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrResetTokenInvalid
		}
		return nil, fmt.Errorf("failed to get reset token: %w", err)
	}
	return stored, nil
}

func (r *PgxResetTokenRepository) MarkUsed(ctx context.Context, token string) error {
	result, err := r.db.Exec(ctx,
		`UPDATE password_reset_tokens SET used = true WHERE token = $1 AND used = false`, token)
	if err != nil {
		return fmt.Errorf("failed to mark token used: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrResetTokenInvalid
	}
	return nil
}

func (r *PgxResetTokenRepository) CountIssuedSince(ctx context.Context, email string, cutoff time.Time) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM password_reset_tokens WHERE email = $1 AND created_at > $2`,
		email, cutoff).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count reset tokens: %w", err)
	}
	return count, nil
}

// ClerkCredentialStore updates passwords through the Clerk admin API.
type ClerkCredentialStore struct{}

func (ClerkCredentialStore) FindUserIDByEmail(ctx context.Context, email string) (string, error) {
	list, err := clerkuser.List(ctx, &clerkuser.ListParams{
		EmailAddresses: []string{email},
	})
	if err != nil {
		return "", fmt.Errorf("failed to look up user by email: %w", err)
	}
	if len(list.Users) == 0 {
		return "", fmt.Errorf("no account for email")
	}
	return list.Users[0].ID, nil
}

func (ClerkCredentialStore) UpdatePassword(ctx context.Context, providerUserID, newPassword string) error {
	signOut := true
	_, err := clerkuser.Update(ctx, providerUserID, &clerkuser.UpdateParams{
		Password:               &newPassword,
		SignOutOfOtherSessions: &signOut,
	})
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}
