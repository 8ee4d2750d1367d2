package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"experteneAPI/internal/types/subscription"
	"experteneAPI/middleware"
	"experteneAPI/services"

	paddle "github.com/PaddleHQ/paddle-go-sdk"
	"github.com/google/uuid"
)

type PaddleHandler struct {
	subscriptionService *services.SubscriptionService
	userService         *services.UserService
}

func NewPaddleHandler(subscriptionService *services.SubscriptionService, userService *services.UserService) *PaddleHandler {
	return &PaddleHandler{
		subscriptionService: subscriptionService,
		userService:         userService,
	}
}

// CreateCheckout starts a Paddle transaction for subscribing to a creator.
func (h *PaddleHandler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	subscriberID, err := h.userService.ResolveUserID(ctx, clerkID)
	if err != nil {
		respondWithError(w, http.StatusUnauthorized, "User not found")
		return
	}

	var req subscription.SubscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := h.subscriptionService.CreateCheckout(ctx, subscriberID, &req)
	if err != nil {
		respondWithErrorCode(w, http.StatusBadRequest, "checkout_failed", err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, resp)
}

// ListSubscriptions returns the caller's memberships.
func (h *PaddleHandler) ListSubscriptions(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	subscriberID, err := h.userService.ResolveUserID(ctx, clerkID)
	if err != nil {
		respondWithError(w, http.StatusUnauthorized, "User not found")
		return
	}

	subs, err := h.subscriptionService.ListForSubscriber(ctx, subscriberID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to list subscriptions")
		return
	}

	respondWithJSON(w, http.StatusOK, subs)
}

// PaddleWebhookHandler activates and cancels memberships from verified
// billing events.
func (h *PaddleHandler) PaddleWebhookHandler(w http.ResponseWriter, r *http.Request) {
	secret := os.Getenv("PADDLE_WEBHOOK_SECRET")
	if secret == "" {
		log.Println("PADDLE_WEBHOOK_SECRET missing")
		http.Error(w, "Configuration Error", http.StatusInternalServerError)
		return
	}

	verifier := paddle.NewWebhookVerifier(secret)
	valid, err := verifier.Verify(r)
	if err != nil {
		http.Error(w, "Verification failed", http.StatusInternalServerError)
		return
	}
	if !valid {
		http.Error(w, "Invalid signature", http.StatusForbidden)
		return
	}

	bodyBytes, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Unable to read body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var webhook struct {
		EventID   string               `json:"event_id"`
		EventType paddle.EventTypeName `json:"event_type"`
	}
	if err := json.Unmarshal(bodyBytes, &webhook); err != nil {
		http.Error(w, "Unable to parse JSON", http.StatusBadRequest)
		return
	}

	ctx := r.Context()

	switch webhook.EventType {
	case paddle.EventTypeNameSubscriptionCreated, paddle.EventTypeNameSubscriptionUpdated:
		var fullEvent struct {
			Data subscriptionEventData `json:"data"`
		}
		if err := json.Unmarshal(bodyBytes, &fullEvent); err != nil {
			log.Printf("Error parsing subscription event: %v", err)
			break
		}
		h.activateFromEvent(ctx, &fullEvent.Data)

	case paddle.EventTypeNameSubscriptionCanceled:
		var fullEvent struct {
			Data subscriptionEventData `json:"data"`
		}
		if err := json.Unmarshal(bodyBytes, &fullEvent); err != nil {
			log.Printf("Error parsing subscription event: %v", err)
			break
		}
		if err := h.subscriptionService.CancelByPaddleID(ctx, fullEvent.Data.ID); err != nil {
			log.Printf("Failed to cancel subscription %s: %v", fullEvent.Data.ID, err)
		}

	default:
		log.Printf("Unhandled Paddle event type: %s", webhook.EventType)
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"id": webhook.EventID})
}

// subscriptionEventData is the slice of the Paddle subscription payload we
// actually consume.
type subscriptionEventData struct {
	ID                   string         `json:"id"`
	CustomData           map[string]any `json:"custom_data"`
	CurrentBillingPeriod *struct {
		EndsAt string `json:"ends_at"`
	} `json:"current_billing_period"`
	Items []struct {
		Price struct {
			ID string `json:"id"`
		} `json:"price"`
	} `json:"items"`
}

func (h *PaddleHandler) activateFromEvent(ctx context.Context, sub *subscriptionEventData) {
	subscriberID, creatorID, ok := parseCustomData(sub.CustomData)
	if !ok {
		log.Printf("Paddle subscription %s missing subscriber/creator custom data", sub.ID)
		return
	}

	priceID := ""
	if len(sub.Items) > 0 {
		priceID = sub.Items[0].Price.ID
	}

	var periodEnd *time.Time
	if sub.CurrentBillingPeriod != nil {
		if t, err := time.Parse(time.RFC3339, sub.CurrentBillingPeriod.EndsAt); err == nil {
			periodEnd = &t
		}
	}

	if err := h.subscriptionService.Activate(ctx, subscriberID, creatorID, sub.ID, priceID, periodEnd); err != nil {
		log.Printf("Failed to activate subscription %s: %v", sub.ID, err)
	}
}

func parseCustomData(data map[string]any) (subscriberID, creatorID uuid.UUID, ok bool) {
	subRaw, okSub := data["subscriberId"].(string)
	creatorRaw, okCreator := data["creatorId"].(string)
	if !okSub || !okCreator {
		return uuid.Nil, uuid.Nil, false
	}

	subscriberID, errSub := uuid.Parse(subRaw)
	creatorID, errCreator := uuid.Parse(creatorRaw)
	if errSub != nil || errCreator != nil {
		return uuid.Nil, uuid.Nil, false
	}
	return subscriberID, creatorID, true
}
