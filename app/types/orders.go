package types

import (
	"errors"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type CreateOrderRequest struct {
	MerchantId     string          `json:"merchantId"`
	InfluencerId   string          `json:"influencerId"`
	OfferId        string          `json:"offerId"`
	TotalAmount    decimal.Decimal `json:"totalAmount"`
	CommissionRate decimal.Decimal `json:"commissionRate"`
}

func NewCreateOrderRequestFromContext(ctx echo.Context) (*CreateOrderRequest, error) {
	var body CreateOrderRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.MerchantId = strings.TrimSpace(body.MerchantId)
	body.InfluencerId = strings.TrimSpace(body.InfluencerId)
	body.OfferId = strings.TrimSpace(body.OfferId)

	return &body, nil
}

func (r *CreateOrderRequest) Validate() error {
	if r.MerchantId == "" {
		return errors.New("merchantId is required")
	}
	if r.InfluencerId == "" {
		return errors.New("influencerId is required")
	}
	if r.OfferId == "" {
		return errors.New("offerId is required")
	}
	if !r.TotalAmount.IsPositive() {
		return errors.New("totalAmount must be > 0")
	}
	if r.CommissionRate.IsNegative() || r.CommissionRate.GreaterThan(decimal.NewFromInt(100)) {
		return errors.New("commissionRate must be between 0 and 100")
	}
	return nil
}

type CreateCheckoutSessionRequest struct {
	OrderId     string `json:"orderId"`
	Description string `json:"description"`
	SuccessUrl  string `json:"successUrl"`
	CancelUrl   string `json:"cancelUrl"`
}

func NewCreateCheckoutSessionRequestFromContext(ctx echo.Context) (*CreateCheckoutSessionRequest, error) {
	var body CreateCheckoutSessionRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.OrderId = strings.TrimSpace(body.OrderId)
	body.SuccessUrl = strings.TrimSpace(body.SuccessUrl)
	body.CancelUrl = strings.TrimSpace(body.CancelUrl)

	return &body, nil
}

func (r *CreateCheckoutSessionRequest) Validate() error {
	if r.OrderId == "" {
		return errors.New("orderId is required")
	}
	return nil
}

type OrderIDRequest struct {
	Id string
}

func NewOrderIDRequestFromContext(ctx echo.Context) (*OrderIDRequest, error) {
	return &OrderIDRequest{Id: strings.TrimSpace(ctx.Param("id"))}, nil
}

func (r *OrderIDRequest) Validate() error {
	if r.Id == "" {
		return errors.New("order id is required")
	}
	return nil
}

type CancelOrderRequest struct {
	Id     string `param:"id"`
	Reason string `json:"reason"`
}

func NewCancelOrderRequestFromContext(ctx echo.Context) (*CancelOrderRequest, error) {
	var body CancelOrderRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.Id = strings.TrimSpace(ctx.Param("id"))
	body.Reason = strings.TrimSpace(body.Reason)

	return &body, nil
}

func (r *CancelOrderRequest) Validate() error {
	if r.Id == "" {
		return errors.New("order id is required")
	}
	return nil
}

type CreateWithdrawalRequest struct {
	BankAccountId string          `json:"bankAccountId"`
	Amount        decimal.Decimal `json:"amount"`
}

func NewCreateWithdrawalRequestFromContext(ctx echo.Context) (*CreateWithdrawalRequest, error) {
	var body CreateWithdrawalRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.BankAccountId = strings.TrimSpace(body.BankAccountId)

	return &body, nil
}

func (r *CreateWithdrawalRequest) Validate() error {
	if r.BankAccountId == "" {
		return errors.New("bankAccountId is required")
	}
	if !r.Amount.IsPositive() {
		return errors.New("amount must be > 0")
	}
	return nil
}

type CreateBankAccountRequest struct {
	Country       string `json:"country"`
	Currency      string `json:"currency"`
	AccountHolder string `json:"accountHolder"`
	Iban          string `json:"iban"`
}

func NewCreateBankAccountRequestFromContext(ctx echo.Context) (*CreateBankAccountRequest, error) {
	var body CreateBankAccountRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.Country = strings.ToUpper(strings.TrimSpace(body.Country))
	body.Currency = strings.ToLower(strings.TrimSpace(body.Currency))
	body.AccountHolder = strings.TrimSpace(body.AccountHolder)
	body.Iban = strings.ReplaceAll(strings.TrimSpace(body.Iban), " ", "")

	return &body, nil
}

func (r *CreateBankAccountRequest) Validate() error {
	if r.Iban == "" {
		return errors.New("iban is required")
	}
	if len(r.Country) != 2 {
		return errors.New("country must be 2 letters")
	}
	if len(r.Currency) != 3 {
		return errors.New("currency must be 3 letters")
	}
	if r.AccountHolder == "" {
		return errors.New("accountHolder is required")
	}
	return nil
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

type OrderPayload struct {
	Id                string  `json:"id"`
	MerchantId        string  `json:"merchantId"`
	InfluencerId      string  `json:"influencerId"`
	OfferId           string  `json:"offerId"`
	TotalAmount       string  `json:"totalAmount"`
	CommissionRate    string  `json:"commissionRate"`
	NetAmount         *string `json:"netAmount,omitempty"`
	Status            string  `json:"status"`
	CheckoutSessionId *string `json:"checkoutSessionId,omitempty"`
	PaymentIntentId   *string `json:"paymentIntentId,omitempty"`
	PaymentCaptured   bool    `json:"paymentCaptured"`
	CancelReason      *string `json:"cancelReason,omitempty"`
	CreatedAt         string  `json:"createdAt"`
	UpdatedAt         string  `json:"updatedAt"`
}

type OrderEnvelopeResponse struct {
	Order *OrderPayload `json:"order"`
}

type CheckoutSessionResponse struct {
	Url       string `json:"url"`
	SessionId string `json:"sessionId"`
}

type CaptureResponse struct {
	Success         bool   `json:"success"`
	PaymentIntentId string `json:"paymentIntentId"`
}

type CancelResponse struct {
	Success               bool   `json:"success"`
	CanceledPaymentIntent string `json:"canceledPaymentIntent,omitempty"`
	NewStatus             string `json:"newStatus"`
}

type CompleteResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type CompletePaymentResponse struct {
	Success          bool   `json:"success"`
	PlatformFee      string `json:"platformFee"`
	InfluencerAmount string `json:"influencerAmount"`
}

type RevenueOutcomePayload struct {
	OrderId string `json:"orderId"`
	Outcome string `json:"outcome"`
	Detail  string `json:"detail,omitempty"`
}

type GenerateRevenuesResponse struct {
	Success     bool                    `json:"success"`
	Processed   int                     `json:"processed"`
	TotalOrders int                     `json:"totalOrders"`
	Results     []RevenueOutcomePayload `json:"results"`
	Errors      []string                `json:"errors"`
}

type RecoverPaymentsResponse struct {
	Success              bool `json:"success"`
	RecoveredOrders      int  `json:"recovered_orders"`
	UnprocessedLogs      int  `json:"unprocessed_logs"`
	OrdersWithoutWebhook int  `json:"orders_without_webhook"`
}

type WebhookAckResponse struct {
	Received bool `json:"received"`
}

type WithdrawalResponse struct {
	Success      bool   `json:"success"`
	WithdrawalId string `json:"withdrawalId"`
	PayoutId     string `json:"payoutId"`
}

type BankAccountPayload struct {
	Id       string `json:"id"`
	BankName string `json:"bankName"`
	Last4    string `json:"last4"`
	Currency string `json:"currency"`
	Country  string `json:"country"`
}

type BankAccountsResponse struct {
	Accounts []BankAccountPayload `json:"accounts"`
}

type BankAccountCreatedResponse struct {
	AccountId string `json:"accountId"`
}

type SuccessResponse struct {
	Success bool `json:"success"`
}
