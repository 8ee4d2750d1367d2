package services

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
)

type fakeUploader struct {
	bucket      string
	key         string
	contentType string
	uploaded    []byte
	err         error
}

func (f *fakeUploader) Upload(ctx context.Context, bucket, key, contentType string, body []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.bucket, f.key, f.contentType, f.uploaded = bucket, key, contentType, body
	return "https://cdn.example.com/" + bucket + "/" + key, nil
}

func TestUploadImageAcceptsPNG(t *testing.T) {
	uploader := &fakeUploader{}
	svc := NewMediaService(uploader)
	userID := uuid.New()

	data := bytes.Repeat([]byte{0x89}, 1024*1024) // 1MB
	res, err := svc.UploadImage(context.Background(), userID, "image/png", data, "", "")
	if err != nil {
		t.Fatalf("UploadImage failed: %v", err)
	}

	if !strings.HasPrefix(res.Path, userID.String()+"/") {
		t.Errorf("object key %q not prefixed by user id", res.Path)
	}
	if !strings.HasSuffix(res.Path, ".png") {
		t.Errorf("object key %q missing png extension", res.Path)
	}
	if res.URL == "" {
		t.Error("expected a public URL")
	}
	if uploader.contentType != "image/png" {
		t.Errorf("content type not forwarded: %q", uploader.contentType)
	}
}

func TestUploadImageRejectsOversized(t *testing.T) {
	svc := NewMediaService(&fakeUploader{})

	data := make([]byte, 6*1024*1024)
	_, err := svc.UploadImage(context.Background(), uuid.New(), "image/png", data, "", "")
	if !errors.Is(err, ErrImageTooLarge) {
		t.Errorf("expected ErrImageTooLarge, got %v", err)
	}
}

func TestUploadImageRejectsWrongType(t *testing.T) {
	svc := NewMediaService(&fakeUploader{})

	_, err := svc.UploadImage(context.Background(), uuid.New(), "text/plain", []byte("not an image"), "", "")
	if !errors.Is(err, ErrUnsupportedImage) {
		t.Errorf("expected ErrUnsupportedImage, got %v", err)
	}
}

func TestUploadImageUsesRequestedBucketAndPrefix(t *testing.T) {
	uploader := &fakeUploader{}
	svc := NewMediaService(uploader)

	_, err := svc.UploadImage(context.Background(), uuid.New(), "image/webp", []byte{1, 2, 3}, "covers", "articles")
	if err != nil {
		t.Fatalf("UploadImage failed: %v", err)
	}
	if uploader.bucket != "covers" {
		t.Errorf("bucket override ignored: %q", uploader.bucket)
	}
	if !strings.HasPrefix(uploader.key, "articles/") {
		t.Errorf("path prefix ignored: %q", uploader.key)
	}
}
