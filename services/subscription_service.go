package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"experteneAPI/internal/types/notification"
	"experteneAPI/internal/types/subscription"

	paddle "github.com/PaddleHQ/paddle-go-sdk"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SubscriptionService struct {
	db            *pgxpool.Pool
	paddleClient  *paddle.SDK
	notifications *NotificationService
}

func NewSubscriptionService(db *pgxpool.Pool, paddleClient *paddle.SDK, notifications *NotificationService) *SubscriptionService {
	return &SubscriptionService{
		db:            db,
		paddleClient:  paddleClient,
		notifications: notifications,
	}
}

// CreateCheckout builds a Paddle transaction for subscribing to a creator and
// returns the hosted checkout URL. subscriber and creator ids travel in the
// transaction's custom data so the webhook can activate the membership.
func (s *SubscriptionService) CreateCheckout(ctx context.Context, subscriberID uuid.UUID, req *subscription.SubscribeRequest) (*subscription.SubscribeResponse, error) {
	if s.paddleClient == nil {
		return nil, fmt.Errorf("billing is not configured")
	}
	if req.PriceID == "" {
		return nil, fmt.Errorf("priceId is required")
	}

	var isCreator bool
	err := s.db.QueryRow(ctx,
		`SELECT is_creator FROM users WHERE id = $1`, req.CreatorID).Scan(&isCreator)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("creator not found")
		}
		return nil, fmt.Errorf("failed to look up creator: %w", err)
	}
	if !isCreator {
		return nil, fmt.Errorf("user is not a creator")
	}

	createReq := &paddle.CreateTransactionRequest{
		Items: []paddle.CreateTransactionItems{
			*paddle.NewCreateTransactionItemsCatalogItem(&paddle.CatalogItem{
				Quantity: 1,
				PriceID:  req.PriceID,
			}),
		},
		CustomData: paddle.CustomData{
			"subscriberId": subscriberID.String(),
			"creatorId":    req.CreatorID.String(),
		},
		CollectionMode: paddle.PtrTo(paddle.CollectionModeAutomatic),
	}

	tx, err := s.paddleClient.CreateTransaction(ctx, createReq)
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	checkoutURL := fmt.Sprintf("https://sandbox-checkout.paddle.com/checkout/custom?_ptxn=%s", tx.ID)

	return &subscription.SubscribeResponse{
		TransactionID: tx.ID,
		CheckoutURL:   checkoutURL,
	}, nil
}

// Activate upserts the subscriber→creator membership from a verified webhook
// event.
func (s *SubscriptionService) Activate(ctx context.Context, subscriberID, creatorID uuid.UUID, paddleSubID, paddlePriceID string, periodEnd *time.Time) error {
	query := `
	INSERT INTO subscriptions (id, subscriber_id, creator_id, paddle_subscription_id, paddle_price_id, status, current_period_end, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
	ON CONFLICT (subscriber_id, creator_id)
	DO UPDATE SET paddle_subscription_id = $4, paddle_price_id = $5, status = $6, current_period_end = $7, updated_at = NOW()
	`

	_, err := s.db.Exec(ctx, query,
		uuid.New(), subscriberID, creatorID, paddleSubID, paddlePriceID,
		subscription.StatusActive, periodEnd)
	if err != nil {
		return fmt.Errorf("failed to activate subscription: %w", err)
	}

	if s.notifications != nil {
		_, err := s.notifications.CreateNotification(ctx, &notification.CreateNotificationRequest{
			UserID:  creatorID,
			Type:    notification.TypeNewSubscriber,
			Title:   "New subscriber",
			Body:    "Someone subscribed to your community",
			ActorID: &subscriberID,
		})
		if err != nil {
			log.Printf("Failed to create subscriber notification: %v", err)
		}
	}

	return nil
}

// CancelByPaddleID marks the membership canceled when Paddle reports the
// subscription ended.
func (s *SubscriptionService) CancelByPaddleID(ctx context.Context, paddleSubID string) error {
	_, err := s.db.Exec(ctx,
		`UPDATE subscriptions SET status = $2, updated_at = NOW() WHERE paddle_subscription_id = $1`,
		paddleSubID, subscription.StatusCanceled)
	if err != nil {
		return fmt.Errorf("failed to cancel subscription: %w", err)
	}
	return nil
}

// IsSubscribed reports whether subscriber has an active membership to
// creator that has not lapsed.
func (s *SubscriptionService) IsSubscribed(ctx context.Context, subscriberID, creatorID uuid.UUID) (bool, error) {
	var subscribed bool
	err := s.db.QueryRow(ctx, `
	SELECT EXISTS (
		SELECT 1 FROM subscriptions
		WHERE subscriber_id = $1 AND creator_id = $2 AND status = 'active'
		  AND (current_period_end IS NULL OR current_period_end > NOW())
	)`, subscriberID, creatorID).Scan(&subscribed)
	if err != nil {
		return false, fmt.Errorf("failed to check subscription: %w", err)
	}
	return subscribed, nil
}

func (s *SubscriptionService) ListForSubscriber(ctx context.Context, subscriberID uuid.UUID) ([]*subscription.Subscription, error) {
	query := `
	SELECT id, subscriber_id, creator_id, paddle_subscription_id, paddle_price_id, status, current_period_end, created_at, updated_at
	FROM subscriptions
	WHERE subscriber_id = $1
	ORDER BY created_at DESC
	`

	rows, err := s.db.Query(ctx, query, subscriberID)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	defer rows.Close()

	subs := []*subscription.Subscription{}
	for rows.Next() {
		sub := &subscription.Subscription{}
		if err := rows.Scan(&sub.ID, &sub.SubscriberID, &sub.CreatorID,
			&sub.PaddleSubscriptionID, &sub.PaddlePriceID, &sub.Status,
			&sub.CurrentPeriodEnd, &sub.CreatedAt, &sub.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		subs = append(subs, sub)
	}

	return subs, rows.Err()
}
