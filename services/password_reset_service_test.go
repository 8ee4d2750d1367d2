package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"experteneAPI/internal/types/passwordreset"
)

type memTokenRepo struct {
	tokens map[string]*passwordreset.ResetToken
}

func newMemTokenRepo() *memTokenRepo {
	return &memTokenRepo{tokens: make(map[string]*passwordreset.ResetToken)}
}

func (m *memTokenRepo) Insert(ctx context.Context, t *passwordreset.ResetToken) error {
	cp := *t
	cp.CreatedAt = time.Now()
	m.tokens[t.Token] = &cp
	return nil
}

func (m *memTokenRepo) Get(ctx context.Context, token string) (*passwordreset.ResetToken, error) {
	t, ok := m.tokens[token]
	if !ok {
		return nil, ErrResetTokenInvalid
	}
	cp := *t
	return &cp, nil
}

func (m *memTokenRepo) MarkUsed(ctx context.Context, token string) error {
	t, ok := m.tokens[token]
	if !ok || t.Used {
		return ErrResetTokenInvalid
	}
	t.Used = true
	return nil
}

func (m *memTokenRepo) CountIssuedSince(ctx context.Context, email string, cutoff time.Time) (int, error) {
	n := 0
	for _, t := range m.tokens {
		if t.Email == email && t.CreatedAt.After(cutoff) {
			n++
		}
	}
	return n, nil
}

type recordingMailer struct {
	sent []string // recipient + body pairs, flattened
}

func (r *recordingMailer) Send(ctx context.Context, to, subject, body string) error {
	r.sent = append(r.sent, to, body)
	return nil
}

type fakeCredentials struct {
	users    map[string]string // email -> provider id
	updated  map[string]string // provider id -> new password
}

func newFakeCredentials() *fakeCredentials {
	return &fakeCredentials{
		users:   map[string]string{"reader@example.com": "user_abc"},
		updated: make(map[string]string),
	}
}

func (f *fakeCredentials) FindUserIDByEmail(ctx context.Context, email string) (string, error) {
	id, ok := f.users[email]
	if !ok {
		return "", errors.New("no account for email")
	}
	return id, nil
}

func (f *fakeCredentials) UpdatePassword(ctx context.Context, id, pw string) error {
	f.updated[id] = pw
	return nil
}

func TestRequestResetSendsLink(t *testing.T) {
	repo := newMemTokenRepo()
	mailer := &recordingMailer{}
	svc := NewPasswordResetService(repo, mailer, newFakeCredentials())

	if err := svc.RequestReset(context.Background(), "reader@example.com"); err != nil {
		t.Fatalf("RequestReset failed: %v", err)
	}

	if len(mailer.sent) != 2 {
		t.Fatalf("expected one mail, got %d entries", len(mailer.sent))
	}
	if mailer.sent[0] != "reader@example.com" {
		t.Errorf("mail sent to wrong address: %s", mailer.sent[0])
	}
	if !strings.Contains(mailer.sent[1], "?token=") {
		t.Errorf("mail body missing token link: %s", mailer.sent[1])
	}
	if len(repo.tokens) != 1 {
		t.Errorf("expected one stored token, got %d", len(repo.tokens))
	}
}

func TestRequestResetRateLimitSilentlyDrops(t *testing.T) {
	repo := newMemTokenRepo()
	mailer := &recordingMailer{}
	svc := NewPasswordResetService(repo, mailer, newFakeCredentials())

	ctx := context.Background()
	for i := 0; i < svc.maxPerEmail+2; i++ {
		if err := svc.RequestReset(ctx, "reader@example.com"); err != nil {
			t.Fatalf("RequestReset must not error past the limit, got %v", err)
		}
	}

	if len(repo.tokens) != svc.maxPerEmail {
		t.Errorf("expected %d tokens issued, got %d", svc.maxPerEmail, len(repo.tokens))
	}
	if len(mailer.sent)/2 != svc.maxPerEmail {
		t.Errorf("expected %d mails, got %d", svc.maxPerEmail, len(mailer.sent)/2)
	}
}

func TestConfirmResetUpdatesPasswordOnce(t *testing.T) {
	repo := newMemTokenRepo()
	creds := newFakeCredentials()
	svc := NewPasswordResetService(repo, &recordingMailer{}, creds)
	ctx := context.Background()

	svc.RequestReset(ctx, "reader@example.com")
	var token string
	for tok := range repo.tokens {
		token = tok
	}

	if err := svc.ConfirmReset(ctx, token, "brand-new-password"); err != nil {
		t.Fatalf("ConfirmReset failed: %v", err)
	}
	if creds.updated["user_abc"] != "brand-new-password" {
		t.Error("password was not updated at the provider")
	}

	// Second redemption of the same token must fail.
	if err := svc.ConfirmReset(ctx, token, "another-password"); !errors.Is(err, ErrResetTokenInvalid) {
		t.Errorf("expected ErrResetTokenInvalid on reuse, got %v", err)
	}
}

func TestConfirmResetRejectsExpiredToken(t *testing.T) {
	repo := newMemTokenRepo()
	svc := NewPasswordResetService(repo, &recordingMailer{}, newFakeCredentials())
	ctx := context.Background()

	expired := &passwordreset.ResetToken{
		Token:     "tok-expired",
		Email:     "reader@example.com",
		ExpiresAt: time.Now().Add(-time.Minute),
	}
	repo.Insert(ctx, expired)

	if err := svc.ConfirmReset(ctx, "tok-expired", "brand-new-password"); !errors.Is(err, ErrResetTokenInvalid) {
		t.Errorf("expected ErrResetTokenInvalid, got %v", err)
	}
}

func TestConfirmResetRejectsShortPassword(t *testing.T) {
	svc := NewPasswordResetService(newMemTokenRepo(), &recordingMailer{}, newFakeCredentials())

	if err := svc.ConfirmReset(context.Background(), "whatever", "short"); !errors.Is(err, ErrWeakPassword) {
		t.Errorf("expected ErrWeakPassword, got %v", err)
	}
}
