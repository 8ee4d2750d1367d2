package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
)

const MaxImageSize = 5 * 1024 * 1024

var imageExtensions = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
	"image/gif":  "gif",
}

var (
	ErrImageTooLarge    = errors.New("image exceeds the 5MB limit")
	ErrUnsupportedImage = errors.New("unsupported image type")
	ErrEmptyImage       = errors.New("empty image payload")
	ErrStorageDisabled  = errors.New("object storage is not configured")
)

// ObjectUploader is the storage surface the media service needs; the real
// implementation is internal/storage.S3Storage.
type ObjectUploader interface {
	Upload(ctx context.Context, bucket, key, contentType string, body []byte) (string, error)
}

type UploadResult struct {
	URL  string `json:"url"`
	Path string `json:"path"`
}

type MediaService struct {
	store         ObjectUploader
	defaultBucket string
}

func NewMediaService(store ObjectUploader) *MediaService {
	bucket := os.Getenv("STORAGE_BUCKET")
	if bucket == "" {
		bucket = "expertene-media"
	}
	return &MediaService{store: store, defaultBucket: bucket}
}

// UploadImage validates the payload against the type allow-list and size
// ceiling, stores it under a key prefixed by the caller's user id, and
// returns the public URL plus the object path.
func (s *MediaService) UploadImage(ctx context.Context, userID uuid.UUID, contentType string, data []byte, bucket, pathPrefix string) (*UploadResult, error) {
	if s.store == nil {
		return nil, ErrStorageDisabled
	}
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}
	if len(data) > MaxImageSize {
		return nil, ErrImageTooLarge
	}

	ext, ok := imageExtensions[strings.ToLower(contentType)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedImage, contentType)
	}

	if bucket == "" {
		bucket = s.defaultBucket
	}

	key := fmt.Sprintf("%s/%s.%s", userID, uuid.New(), ext)
	if pathPrefix != "" {
		key = fmt.Sprintf("%s/%s", strings.Trim(pathPrefix, "/"), key)
	}

	url, err := s.store.Upload(ctx, bucket, key, contentType, data)
	if err != nil {
		return nil, fmt.Errorf("failed to store image: %w", err)
	}

	return &UploadResult{URL: url, Path: key}, nil
}
