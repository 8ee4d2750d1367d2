package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"experteneAPI/internal/types/article"
	"experteneAPI/middleware"
	"experteneAPI/services"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	qrcode "github.com/skip2/go-qrcode"
)

type ArticleHandler struct {
	articleService   *services.ArticleService
	analyticsService *services.AnalyticsService
	userService      *services.UserService
	streakMirror     *services.StreakMirror
}

func NewArticleHandler(articleService *services.ArticleService, analyticsService *services.AnalyticsService, userService *services.UserService, streakMirror *services.StreakMirror) *ArticleHandler {
	return &ArticleHandler{
		articleService:   articleService,
		analyticsService: analyticsService,
		userService:      userService,
		streakMirror:     streakMirror,
	}
}

func (h *ArticleHandler) Publish(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	authorID, ok := h.resolveCaller(ctx, w)
	if !ok {
		return
	}

	var req article.PublishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := h.articleService.Publish(ctx, authorID, &req)
	if err != nil {
		respondWithErrorCode(w, http.StatusBadRequest, "invalid_article", err.Error())
		return
	}

	if resp.CurrentStreak != nil {
		middleware.CountStreakUpdate("updated")
	} else {
		middleware.CountStreakUpdate("failed")
	}

	// The device-local mirror counts the same publish independently; a
	// mirror failure never affects the response.
	if h.streakMirror != nil {
		h.streakMirror.RecordPost(resp.Article.PublishedAt)
	}

	respondWithJSON(w, http.StatusCreated, resp)
}

func (h *ArticleHandler) GetBySlug(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	slug := mux.Vars(r)["slug"]

	var viewerID *uuid.UUID
	if clerkID, ok := middleware.GetClerkID(ctx); ok {
		if id, err := h.userService.ResolveUserID(ctx, clerkID); err == nil {
			viewerID = &id
		}
	}

	a, err := h.articleService.GetBySlug(ctx, slug, viewerID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrArticleNotFound):
			respondWithError(w, http.StatusNotFound, "Article not found")
		case errors.Is(err, services.ErrPremiumOnly):
			respondWithError(w, http.StatusForbidden, "Subscribe to the author to read this article")
		default:
			respondWithError(w, http.StatusInternalServerError, "Failed to load article")
		}
		return
	}

	respondWithJSON(w, http.StatusOK, a)
}

func (h *ArticleHandler) Feed(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := h.resolveCaller(ctx, w)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	items, err := h.articleService.Feed(ctx, userID, limit, offset)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load feed")
		return
	}

	respondWithJSON(w, http.StatusOK, items)
}

func (h *ArticleHandler) GenerateSlug(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var req struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	slug, err := h.articleService.GenerateSlug(ctx, req.Title)
	if err != nil {
		respondWithErrorCode(w, http.StatusBadRequest, "invalid_title", err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"slug": slug})
}

func (h *ArticleHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	authorID, ok := h.resolveCaller(ctx, w)
	if !ok {
		return
	}

	articleID, err := uuid.Parse(mux.Vars(r)["articleID"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid article id")
		return
	}

	var req article.AddCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	c, err := h.articleService.AddComment(ctx, articleID, authorID, req.Body)
	if err != nil {
		respondWithErrorCode(w, http.StatusBadRequest, "invalid_comment", err.Error())
		return
	}

	respondWithJSON(w, http.StatusCreated, c)
}

func (h *ArticleHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	articleID, err := uuid.Parse(mux.Vars(r)["articleID"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid article id")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	comments, err := h.articleService.ListComments(ctx, articleID, limit, offset)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to list comments")
		return
	}

	respondWithJSON(w, http.StatusOK, comments)
}

func (h *ArticleHandler) Like(w http.ResponseWriter, r *http.Request) {
	h.handleLikeChange(w, r, h.articleService.Like)
}

func (h *ArticleHandler) Unlike(w http.ResponseWriter, r *http.Request) {
	h.handleLikeChange(w, r, h.articleService.Unlike)
}

func (h *ArticleHandler) handleLikeChange(w http.ResponseWriter, r *http.Request, op func(context.Context, uuid.UUID, uuid.UUID) error) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := h.resolveCaller(ctx, w)
	if !ok {
		return
	}

	articleID, err := uuid.Parse(mux.Vars(r)["articleID"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid article id")
		return
	}

	if err := op(ctx, articleID, userID); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to update like")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ShareQR renders the article's share link as a QR code for embedding.
func (h *ArticleHandler) ShareQR(w http.ResponseWriter, r *http.Request) {
	slug := mux.Vars(r)["slug"]

	png, err := qrcode.Encode(h.articleService.ShareLink(slug), qrcode.Medium, 256)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to render QR code")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{
		"qrCodeBase64": base64.StdEncoding.EncodeToString(png),
		"shareLink":    h.articleService.ShareLink(slug),
	})
}

// Stats returns view/like/comment counts for an article the caller authored.
func (h *ArticleHandler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	authorID, ok := h.resolveCaller(ctx, w)
	if !ok {
		return
	}

	articleID, err := uuid.Parse(mux.Vars(r)["articleID"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid article id")
		return
	}

	stats, err := h.analyticsService.ArticleStats(ctx, articleID, authorID)
	if err != nil {
		respondWithError(w, http.StatusNotFound, "Article not found")
		return
	}

	respondWithJSON(w, http.StatusOK, stats)
}

func (h *ArticleHandler) resolveCaller(ctx context.Context, w http.ResponseWriter) (uuid.UUID, bool) {
	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return uuid.Nil, false
	}

	userID, err := h.userService.ResolveUserID(ctx, clerkID)
	if err != nil {
		respondWithError(w, http.StatusUnauthorized, "User not found")
		return uuid.Nil, false
	}
	return userID, true
}
