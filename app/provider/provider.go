package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// CheckoutSession is the provider-native view of a hosted checkout page.
type CheckoutSession struct {
	ID              string
	URL             string
	PaymentIntentID string
	Status          string
	PaymentStatus   string
	AmountCents     int64
}

type PaymentIntent struct {
	ID          string
	Status      string
	AmountCents int64
}

type Refund struct {
	ID          string
	Status      string
	AmountCents int64
}

type Payout struct {
	ID             string
	Status         string
	AmountCents    int64
	FailureMessage string
}

type ExternalAccount struct {
	ID       string
	BankName string
	Last4    string
	Currency string
	Country  string
}

type CheckoutSessionInput struct {
	OrderID     string
	AmountCents int64
	Currency    string
	Description string
	SuccessURL  string
	CancelURL   string
	Metadata    map[string]string
}

type PayoutInput struct {
	AmountCents   int64
	Currency      string
	Destination   string
	StatementDesc string
}

type ExternalAccountInput struct {
	AccountID     string
	Country       string
	Currency      string
	AccountHolder string
	IBAN          string
}

// WebhookEvent is the parsed form of one inbound provider event. RawObject
// keeps the untouched data.object payload for logging.
type WebhookEvent struct {
	ID        string
	Type      string
	RawObject json.RawMessage

	PayoutID       string
	SessionID      string
	AmountCents    int64
	FailureMessage string
}

// Gateway isolates every external payment-API call behind narrow
// operations. No local state is written here and provider errors
// propagate unchanged.
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, input *CheckoutSessionInput) (*CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error)
	GetPaymentIntent(ctx context.Context, paymentIntentID string) (*PaymentIntent, error)
	CapturePaymentIntent(ctx context.Context, paymentIntentID string) (*PaymentIntent, error)
	CancelPaymentIntent(ctx context.Context, paymentIntentID string) (*PaymentIntent, error)
	CreateRefund(ctx context.Context, paymentIntentID string) (*Refund, error)
	CreatePayout(ctx context.Context, input *PayoutInput) (*Payout, error)
	RetrievePayout(ctx context.Context, payoutID string) (*Payout, error)
	ListExternalAccounts(ctx context.Context, accountID string) ([]*ExternalAccount, error)
	CreateExternalAccount(ctx context.Context, input *ExternalAccountInput) (*ExternalAccount, error)
	DeleteExternalAccount(ctx context.Context, accountID, externalAccountID string) error
	VerifyWebhook(ctx context.Context, payload []byte, signature string) (*WebhookEvent, error)
}

// StripeError carries the provider's own error code untranslated so
// callers can branch on it (e.g. payment_intent_unexpected_state).
type StripeError struct {
	StatusCode int
	Code       string
	Type       string
	Message    string
}

func (e *StripeError) Error() string {
	return fmt.Sprintf("stripe: %s (code=%s status=%d)", e.Message, e.Code, e.StatusCode)
}

// IsStripeCode reports whether err is a StripeError with the given code.
func IsStripeCode(err error, code string) bool {
	var stripeErr *StripeError
	return errors.As(err, &stripeErr) && stripeErr.Code == code
}
