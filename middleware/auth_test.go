package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// generateMockClerkJWT builds a well-formed but self-signed token. The auth
// middleware must refuse it because it was not issued by Clerk.
func generateMockClerkJWT(clerkID string) (string, error) {
	secretKey := []byte("test-secret-key-for-testing-only")

	claims := jwt.MapClaims{
		"sub": clerkID,
		"iss": "https://clerk.test",
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(time.Hour * 24).Unix(),
		"azp": "test-app-id",
		"sid": "sess_test123",
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

func TestClerkAuthMiddleware_MissingHeader(t *testing.T) {
	handler := ClerkAuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached without an Authorization header")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/user", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", rec.Code)
	}
}

func TestClerkAuthMiddleware_MalformedHeader(t *testing.T) {
	handler := ClerkAuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached with a malformed Authorization header")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/user", nil)
	req.Header.Set("Authorization", "Token abc123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", rec.Code)
	}
}

func TestClerkAuthMiddleware_RejectsForgedToken(t *testing.T) {
	token, err := generateMockClerkJWT("user_test123")
	if err != nil {
		t.Fatalf("failed to generate mock token: %v", err)
	}

	handler := ClerkAuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached with a forged token")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/user", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401 for forged token, got %d", rec.Code)
	}
}

func TestOptionalAuthMiddleware_AnonymousPassesThrough(t *testing.T) {
	var sawIdentity bool
	handler := OptionalAuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, sawIdentity = GetClerkID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/articles/some-slug", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200 for anonymous request, got %d", rec.Code)
	}
	if sawIdentity {
		t.Error("anonymous request should not carry an identity")
	}
}

func TestOptionalAuthMiddleware_ForgedTokenTreatedAsAnonymous(t *testing.T) {
	token, err := generateMockClerkJWT("user_test123")
	if err != nil {
		t.Fatalf("failed to generate mock token: %v", err)
	}

	var sawIdentity bool
	handler := OptionalAuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, sawIdentity = GetClerkID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/articles/some-slug", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
	if sawIdentity {
		t.Error("forged token should not attach an identity")
	}
}

func TestGetClerkID(t *testing.T) {
	ctx := context.WithValue(context.Background(), ClerkIDKey, "user_abc")
	got, ok := GetClerkID(ctx)
	if !ok || got != "user_abc" {
		t.Errorf("expected user_abc, got %q (ok=%v)", got, ok)
	}

	if _, ok := GetClerkID(context.Background()); ok {
		t.Error("empty context should not yield an identity")
	}
}
