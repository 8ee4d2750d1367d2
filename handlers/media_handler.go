package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"experteneAPI/middleware"
	"experteneAPI/services"
)

type MediaHandler struct {
	mediaService *services.MediaService
	userService  *services.UserService
}

func NewMediaHandler(mediaService *services.MediaService, userService *services.UserService) *MediaHandler {
	return &MediaHandler{
		mediaService: mediaService,
		userService:  userService,
	}
}

// UploadImage accepts a multipart form with "file" plus optional "bucket"
// and "path" fields and stores the image under the caller's prefix.
func (h *MediaHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	userID, err := h.userService.ResolveUserID(ctx, clerkID)
	if err != nil {
		respondWithError(w, http.StatusUnauthorized, "User not found")
		return
	}

	// One extra MB so an oversized payload reaches the service and gets a
	// proper validation error instead of a connection reset.
	r.Body = http.MaxBytesReader(w, r.Body, services.MaxImageSize+1024*1024)

	if err := r.ParseMultipartForm(services.MaxImageSize + 1024*1024); err != nil {
		respondWithErrorCode(w, http.StatusBadRequest, "image_too_large", "Image exceeds the 5MB limit")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondWithErrorCode(w, http.StatusBadRequest, "missing_file", "Form field 'file' is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Failed to read upload")
		return
	}

	contentType := header.Header.Get("Content-Type")

	result, err := h.mediaService.UploadImage(ctx, userID, contentType, data,
		r.FormValue("bucket"), r.FormValue("path"))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrImageTooLarge):
			respondWithErrorCode(w, http.StatusBadRequest, "image_too_large", "Image exceeds the 5MB limit")
		case errors.Is(err, services.ErrUnsupportedImage):
			respondWithErrorCode(w, http.StatusBadRequest, "unsupported_type", "Only jpeg, png, webp and gif images are accepted")
		case errors.Is(err, services.ErrEmptyImage):
			respondWithErrorCode(w, http.StatusBadRequest, "empty_file", "Uploaded file is empty")
		case errors.Is(err, services.ErrStorageDisabled):
			respondWithError(w, http.StatusServiceUnavailable, "Image uploads are not available")
		default:
			respondWithError(w, http.StatusInternalServerError, "Failed to store image")
		}
		return
	}

	respondWithJSON(w, http.StatusCreated, result)
}
