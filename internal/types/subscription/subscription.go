package subscription

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusCanceled Status = "canceled"
	StatusPastDue  Status = "past_due"
)

// Subscription is a subscriber's paid membership to a creator's community,
// billed through Paddle.
type Subscription struct {
	ID                   uuid.UUID  `json:"id"`
	SubscriberID         uuid.UUID  `json:"subscriberId"`
	CreatorID            uuid.UUID  `json:"creatorId"`
	PaddleSubscriptionID string     `json:"paddleSubscriptionId"`
	PaddlePriceID        string     `json:"paddlePriceId"`
	Status               Status     `json:"status"`
	CurrentPeriodEnd     *time.Time `json:"currentPeriodEnd,omitempty"`
	CreatedAt            time.Time  `json:"createdAt"`
	UpdatedAt            time.Time  `json:"updatedAt"`
}

type SubscribeRequest struct {
	CreatorID uuid.UUID `json:"creatorId"`
	PriceID   string    `json:"priceId"`
}

type SubscribeResponse struct {
	TransactionID string `json:"transactionId"`
	CheckoutURL   string `json:"checkoutUrl"`
}
