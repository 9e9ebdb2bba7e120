package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is the marketplace-visible source of truth for one purchase of a
// service offer. Monetary fields are in currency units, not cents;
// NetAmount is only computed at capture/completion time.
type Order struct {
	ID string

	MerchantID   string
	InfluencerID string
	OfferID      string

	TotalAmount    decimal.Decimal
	CommissionRate decimal.Decimal
	NetAmount      decimal.NullDecimal

	CheckoutSessionID *string
	PaymentIntentID   *string
	PaymentCaptured   bool
	WebhookReceivedAt *time.Time

	Status       OrderStatus
	CancelReason *string

	CreatedAt     time.Time
	UpdatedAt     time.Time
	DateAccepted  *time.Time
	DateCompleted *time.Time
	DateDisputed  *time.Time
}

// PartyOf reports whether the given user is the merchant or influencer on
// the order.
func (o *Order) PartyOf(userID string) bool {
	return userID != "" && (userID == o.MerchantID || userID == o.InfluencerID)
}
