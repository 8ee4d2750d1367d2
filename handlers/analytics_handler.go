package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"experteneAPI/internal/types/analytics"
	"experteneAPI/middleware"
	"experteneAPI/services"

	"github.com/google/uuid"
)

type AnalyticsHandler struct {
	analyticsService *services.AnalyticsService
	userService      *services.UserService
}

func NewAnalyticsHandler(analyticsService *services.AnalyticsService, userService *services.UserService) *AnalyticsHandler {
	return &AnalyticsHandler{
		analyticsService: analyticsService,
		userService:      userService,
	}
}

// RecordEvent ingests a client-side analytics event. Auth is optional: the
// user id is attached when a valid bearer token is present, anonymous events
// are kept too.
func (h *AnalyticsHandler) RecordEvent(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var req analytics.RecordEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := services.ValidateEvent(&req); err != nil {
		respondWithErrorCode(w, http.StatusBadRequest, "invalid_event", err.Error())
		return
	}

	var userID *uuid.UUID
	if clerkID, ok := middleware.GetClerkID(ctx); ok {
		if id, err := h.userService.ResolveUserID(ctx, clerkID); err == nil {
			userID = &id
		}
	}

	ev := &analytics.Event{
		EventType:    req.EventType,
		UserID:       userID,
		ArticleID:    req.ArticleID,
		TargetUserID: req.TargetUserID,
		Metadata:     req.Metadata,
		IPAddress:    middleware.ClientIP(r),
		UserAgent:    r.UserAgent(),
		Referer:      r.Referer(),
	}

	if err := h.analyticsService.RecordEvent(ctx, ev); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to record event")
		return
	}

	respondWithJSON(w, http.StatusAccepted, map[string]string{"status": "recorded"})
}
