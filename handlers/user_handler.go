package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"experteneAPI/internal/types/user"
	"experteneAPI/middleware"
	"experteneAPI/services"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type UserHandler struct {
	userService   *services.UserService
	streakService *services.StreakService
}

func NewUserHandler(userService *services.UserService, streakService *services.StreakService) *UserHandler {
	return &UserHandler{
		userService:   userService,
		streakService: streakService,
	}
}

func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	u, err := h.userService.GetUserByClerkID(ctx, clerkID)
	if err != nil {
		respondWithError(w, http.StatusNotFound, "User not found")
		return
	}

	respondWithJSON(w, http.StatusOK, u)
}

func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req user.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	u, err := h.userService.UpdateProfile(ctx, clerkID, &req)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			respondWithError(w, http.StatusNotFound, "User not found")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to update profile")
		return
	}

	respondWithJSON(w, http.StatusOK, u)
}

func (h *UserHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	if err := h.userService.DeleteUserByClerkID(ctx, clerkID); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to delete account")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Account deleted"})
}

// GetPublicProfile serves another user's profile page data.
func (h *UserHandler) GetPublicProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, err := uuid.Parse(mux.Vars(r)["userID"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid user id")
		return
	}

	profile, err := h.userService.GetPublicProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			respondWithError(w, http.StatusNotFound, "User not found")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to load profile")
		return
	}

	respondWithJSON(w, http.StatusOK, profile)
}

func (h *UserHandler) Follow(w http.ResponseWriter, r *http.Request) {
	h.handleFollowChange(w, r, h.userService.Follow)
}

func (h *UserHandler) Unfollow(w http.ResponseWriter, r *http.Request) {
	h.handleFollowChange(w, r, h.userService.Unfollow)
}

func (h *UserHandler) handleFollowChange(w http.ResponseWriter, r *http.Request, op func(context.Context, uuid.UUID, uuid.UUID) error) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	followerID, err := h.userService.ResolveUserID(ctx, clerkID)
	if err != nil {
		respondWithError(w, http.StatusUnauthorized, "User not found")
		return
	}

	followeeID, err := uuid.Parse(mux.Vars(r)["userID"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid user id")
		return
	}

	if err := op(ctx, followerID, followeeID); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *UserHandler) ListFollowers(w http.ResponseWriter, r *http.Request) {
	h.listFollows(w, r, h.userService.ListFollowers)
}

func (h *UserHandler) ListFollowing(w http.ResponseWriter, r *http.Request) {
	h.listFollows(w, r, h.userService.ListFollowing)
}

func (h *UserHandler) listFollows(w http.ResponseWriter, r *http.Request, op func(context.Context, uuid.UUID) ([]*user.PublicProfile, error)) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, err := uuid.Parse(mux.Vars(r)["userID"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid user id")
		return
	}

	profiles, err := op(ctx, userID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to list follows")
		return
	}

	respondWithJSON(w, http.StatusOK, profiles)
}

func (h *UserHandler) SearchUsers(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	query := r.URL.Query().Get("q")
	if query == "" {
		respondWithError(w, http.StatusBadRequest, "Search query parameter 'q' is required")
		return
	}

	profiles, err := h.userService.SearchUsers(ctx, query)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Search failed")
		return
	}

	respondWithJSON(w, http.StatusOK, profiles)
}

// GetStreak returns the caller's posting streak record.
func (h *UserHandler) GetStreak(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
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

	rec, err := h.streakService.GetStreak(ctx, userID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load streak")
		return
	}

	respondWithJSON(w, http.StatusOK, rec)
}

// Helper functions
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

// respondWithErrorCode adds a machine-readable code for validation failures.
func respondWithErrorCode(w http.ResponseWriter, code int, errCode, message string) {
	respondWithJSON(w, code, map[string]string{"error": message, "code": errCode})
}
