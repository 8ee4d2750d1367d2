package handlers

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func signSvix(secret []byte, id, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	fmt.Fprintf(mac, "%s.%s.%s", id, timestamp, body)
	return "v1," + base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func svixRequest(body []byte, id, timestamp, signature string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/clerk", bytes.NewReader(body))
	req.Header.Set("svix-id", id)
	req.Header.Set("svix-timestamp", timestamp)
	req.Header.Set("svix-signature", signature)
	return req
}

func TestVerifyClerkSignature_Valid(t *testing.T) {
	secret := []byte("test-webhook-secret")
	t.Setenv("CLERK_WEBHOOK_SECRET", "whsec_"+base64.StdEncoding.EncodeToString(secret))

	body := []byte(`{"type":"user.created","data":{"id":"user_123"}}`)
	req := svixRequest(body, "msg_1", "1756684800", signSvix(secret, "msg_1", "1756684800", body))

	if !verifyClerkSignature(req, body) {
		t.Error("expected valid signature to verify")
	}
}

func TestVerifyClerkSignature_TamperedBody(t *testing.T) {
	secret := []byte("test-webhook-secret")
	t.Setenv("CLERK_WEBHOOK_SECRET", "whsec_"+base64.StdEncoding.EncodeToString(secret))

	body := []byte(`{"type":"user.created","data":{"id":"user_123"}}`)
	sig := signSvix(secret, "msg_1", "1756684800", body)

	tampered := []byte(`{"type":"user.deleted","data":{"id":"user_123"}}`)
	req := svixRequest(tampered, "msg_1", "1756684800", sig)

	if verifyClerkSignature(req, tampered) {
		t.Error("expected tampered body to fail verification")
	}
}

func TestVerifyClerkSignature_MissingHeaders(t *testing.T) {
	t.Setenv("CLERK_WEBHOOK_SECRET", "whsec_dGVzdA==")

	body := []byte(`{}`)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/clerk", bytes.NewReader(body))

	if verifyClerkSignature(req, body) {
		t.Error("expected request without svix headers to fail verification")
	}
}

func TestVerifyClerkSignature_SkipsWhenUnset(t *testing.T) {
	t.Setenv("CLERK_WEBHOOK_SECRET", "")

	body := []byte(`{}`)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/clerk", bytes.NewReader(body))

	if !verifyClerkSignature(req, body) {
		t.Error("expected verification to be skipped when secret is unset")
	}
}

func TestHandleClerkWebhook_RejectsBadSignature(t *testing.T) {
	t.Setenv("CLERK_WEBHOOK_SECRET", "whsec_dGVzdA==")

	handler := NewWebhookHandler(nil)
	body := []byte(`{"type":"user.created","data":{"id":"user_123"}}`)
	req := svixRequest(body, "msg_1", "1756684800", "v1,bm90LWEtcmVhbC1zaWduYXR1cmU=")
	rec := httptest.NewRecorder()

	handler.HandleClerkWebhook(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401 for bad signature, got %d", rec.Code)
	}
}
