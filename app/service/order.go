package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/collably/ms-go-orders/app/entity"
	"github.com/collably/ms-go-orders/app/provider"
	"github.com/collably/ms-go-orders/app/repository"
)

func isRevenueExists(err error) bool {
	return errors.Is(err, repository.ErrRevenueAlreadyExists)
}

type CreateOrderInput struct {
	MerchantID     string
	InfluencerID   string
	OfferID        string
	TotalAmount    decimal.Decimal
	CommissionRate decimal.Decimal
}

type CheckoutSessionInput struct {
	OrderID     string
	Description string
	SuccessURL  string
	CancelURL   string
}

type CheckoutSessionResult struct {
	SessionID string
	URL       string
}

type CaptureResult struct {
	PaymentIntentID string
	Status          entity.OrderStatus
}

type CancelInput struct {
	OrderID     string
	RequesterID string
	Reason      string
}

type CancelResult struct {
	Status                  entity.OrderStatus
	CanceledPaymentIntentID string
}

type CompleteResult struct {
	Status        entity.OrderStatus
	PlatformFee   decimal.Decimal
	InfluencerNet decimal.Decimal
}

// CreateOrder registers an order placed on the marketplace side, in the
// initial pending status. Payment starts later with a checkout session.
func (s *OrderService) CreateOrder(ctx context.Context, input *CreateOrderInput) (*entity.Order, error) {
	if strings.TrimSpace(input.MerchantID) == "" ||
		strings.TrimSpace(input.InfluencerID) == "" ||
		strings.TrimSpace(input.OfferID) == "" {
		return nil, ErrInvalidRequest
	}
	if !input.TotalAmount.IsPositive() {
		return nil, ErrInvalidRequest
	}

	now := time.Now().UTC()
	rate := input.CommissionRate
	if rate.IsZero() {
		rate = s.ordersCfg.DefaultCommissionRate
	}

	order := &entity.Order{
		MerchantID:     strings.TrimSpace(input.MerchantID),
		InfluencerID:   strings.TrimSpace(input.InfluencerID),
		OfferID:        strings.TrimSpace(input.OfferID),
		TotalAmount:    input.TotalAmount,
		CommissionRate: rate,
		Status:         entity.StatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.orderRepo.Create(ctx, order); err != nil {
		return nil, err
	}

	s.recordEvent(ctx, order, "order_created", nil, "", now)

	return order, nil
}

// CreateCheckoutSession opens a hosted payment page for the order and
// moves it to pending_payment. The payment intent is created with manual
// capture so funds are only authorized until the influencer accepts.
func (s *OrderService) CreateCheckoutSession(ctx context.Context, input *CheckoutSessionInput) (*CheckoutSessionResult, error) {
	order, err := s.orderRepo.FindByID(ctx, strings.TrimSpace(input.OrderID))
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}

	oldStatus := order.Status
	next, err := entity.Transition(order.Status, entity.ActionStartCheckout)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidStatus, order.Status)
	}

	successURL := strings.TrimSpace(input.SuccessURL)
	if successURL == "" {
		successURL = s.ordersCfg.CheckoutSuccessURL
	}
	cancelURL := strings.TrimSpace(input.CancelURL)
	if cancelURL == "" {
		cancelURL = s.ordersCfg.CheckoutCancelURL
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, &provider.CheckoutSessionInput{
		OrderID:     order.ID,
		AmountCents: toCents(order.TotalAmount),
		Currency:    s.currency(),
		Description: strings.TrimSpace(input.Description),
		SuccessURL:  successURL,
		CancelURL:   cancelURL,
		Metadata:    map[string]string{"order_id": order.ID},
	})
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	order.CheckoutSessionID = &session.ID
	if session.PaymentIntentID != "" {
		intentID := session.PaymentIntentID
		order.PaymentIntentID = &intentID
	}
	order.Status = next
	order.UpdatedAt = now
	if err := s.orderRepo.Update(ctx, order); err != nil {
		return nil, err
	}

	s.recordEvent(ctx, order, "checkout_session_created", &oldStatus, session.ID, now)

	return &CheckoutSessionResult{SessionID: session.ID, URL: session.URL}, nil
}

// CapturePayment is the influencer accepting the order: the authorized
// funds are captured first, then the order is committed locally. A local
// write failure after capture leaves the money moved; the order event
// trail plus the recovery sweep surface that drift.
func (s *OrderService) CapturePayment(ctx context.Context, orderID, requesterID string) (*CaptureResult, error) {
	order, err := s.orderRepo.FindByID(ctx, strings.TrimSpace(orderID))
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if requesterID != order.InfluencerID {
		return nil, ErrNotAuthorized
	}

	oldStatus := order.Status
	next, err := entity.Transition(order.Status, entity.ActionCapture)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidStatus, order.Status)
	}

	intentID, err := s.resolvePaymentIntentID(ctx, order)
	if err != nil {
		return nil, err
	}

	if _, err := s.gateway.CapturePaymentIntent(ctx, intentID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	commission, net := s.commissionSplit(order)

	order.PaymentIntentID = &intentID
	order.PaymentCaptured = true
	order.NetAmount = decimal.NewNullDecimal(net)
	order.Status = next
	order.DateAccepted = &now
	order.UpdatedAt = now
	if err := s.orderRepo.Update(ctx, order); err != nil {
		return nil, err
	}

	s.recordEvent(ctx, order, "payment_captured", &oldStatus, intentID, now)

	if err := s.createRevenueIfMissing(ctx, order, commission, net, entity.RevenueStatusPending, now); err != nil {
		return nil, err
	}

	return &CaptureResult{PaymentIntentID: intentID, Status: order.Status}, nil
}

// CancelPayment closes the order before work starts, either because the
// influencer refused or because the acceptance window timed out. The
// authorization release is best-effort: the order closes locally even
// when the provider call fails, and an already-captured intent is
// refunded instead of canceled.
func (s *OrderService) CancelPayment(ctx context.Context, input *CancelInput) (*CancelResult, error) {
	order, err := s.orderRepo.FindByID(ctx, strings.TrimSpace(input.OrderID))
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.Status != entity.StatusPaymentAuthorized && order.Status != entity.StatusAwaitingInfluencer {
		return nil, fmt.Errorf("%w: %s", ErrInvalidStatus, order.Status)
	}

	reason := strings.TrimSpace(input.Reason)
	action := entity.ActionRefuse
	if reason == "timeout" {
		action = entity.ActionCancel
	} else if input.RequesterID != "" && input.RequesterID != order.InfluencerID {
		return nil, ErrNotAuthorized
	}

	oldStatus := order.Status
	next, err := entity.Transition(order.Status, action)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidStatus, order.Status)
	}

	canceledIntent := ""
	if intentID, err := s.resolvePaymentIntentID(ctx, order); err == nil {
		if _, cancelErr := s.gateway.CancelPaymentIntent(ctx, intentID); cancelErr == nil {
			canceledIntent = intentID
		} else if provider.IsStripeCode(cancelErr, "payment_intent_unexpected_state") {
			// Already captured: release the funds through a refund instead.
			if _, refundErr := s.gateway.CreateRefund(ctx, intentID); refundErr == nil {
				canceledIntent = intentID
			}
		}
	}

	now := time.Now().UTC()
	order.Status = next
	if reason != "" {
		order.CancelReason = &reason
	}
	order.UpdatedAt = now
	if err := s.orderRepo.Update(ctx, order); err != nil {
		return nil, err
	}

	s.recordEvent(ctx, order, "payment_canceled", &oldStatus, reason, now)

	return &CancelResult{Status: order.Status, CanceledPaymentIntentID: canceledIntent}, nil
}

// CompleteOrderAndPay is the party-initiated completion: the order moves
// to its terminal delivered state and the influencer's revenue becomes
// available immediately.
func (s *OrderService) CompleteOrderAndPay(ctx context.Context, orderID, requesterID string) (*CompleteResult, error) {
	order, err := s.orderRepo.FindByID(ctx, strings.TrimSpace(orderID))
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if !order.PartyOf(requesterID) {
		return nil, ErrNotAuthorized
	}

	oldStatus := order.Status
	next, err := entity.Transition(order.Status, entity.ActionComplete)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidStatus, order.Status)
	}

	// Late capture for orders that skipped the acceptance step.
	if !order.PaymentCaptured {
		if intentID, resolveErr := s.resolvePaymentIntentID(ctx, order); resolveErr == nil {
			if _, captureErr := s.gateway.CapturePaymentIntent(ctx, intentID); captureErr == nil {
				order.PaymentIntentID = &intentID
				order.PaymentCaptured = true
			}
		}
	}

	now := time.Now().UTC()
	fee, net := s.platformFee(order.TotalAmount)

	order.Status = next
	order.NetAmount = decimal.NewNullDecimal(net)
	order.DateCompleted = &now
	order.UpdatedAt = now
	if err := s.orderRepo.Update(ctx, order); err != nil {
		return nil, err
	}

	s.recordEvent(ctx, order, "order_completed", &oldStatus, "", now)

	if err := s.createRevenueIfMissing(ctx, order, fee, net, entity.RevenueStatusAvailable, now); err != nil {
		return nil, err
	}

	return &CompleteResult{Status: order.Status, PlatformFee: fee, InfluencerNet: net}, nil
}

// CompleteOrderPayment finalizes the money side without a party action,
// typically from an automated flow once the delivery window closed. The
// charged amount is re-read from the provider when possible so the split
// reflects what was actually paid.
func (s *OrderService) CompleteOrderPayment(ctx context.Context, orderID string) (*CompleteResult, error) {
	order, err := s.orderRepo.FindByID(ctx, strings.TrimSpace(orderID))
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}

	oldStatus := order.Status
	next, err := entity.Transition(order.Status, entity.ActionCompletePayment)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidStatus, order.Status)
	}

	total := order.TotalAmount
	if intentID, resolveErr := s.resolvePaymentIntentID(ctx, order); resolveErr == nil {
		if intent, intentErr := s.gateway.GetPaymentIntent(ctx, intentID); intentErr == nil && intent.AmountCents > 0 {
			total = fromCents(intent.AmountCents)
		}
	}

	now := time.Now().UTC()
	fee, net := s.platformFee(total)

	order.Status = next
	order.NetAmount = decimal.NewNullDecimal(net)
	order.DateCompleted = &now
	order.UpdatedAt = now
	if err := s.orderRepo.Update(ctx, order); err != nil {
		return nil, err
	}

	s.recordEvent(ctx, order, "order_payment_completed", &oldStatus, "", now)

	revenue := &entity.InfluencerRevenue{
		InfluencerID: order.InfluencerID,
		OrderID:      order.ID,
		Amount:       total,
		Commission:   fee,
		NetAmount:    net,
		Status:       entity.RevenueStatusAvailable,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.revenueRepo.Create(ctx, revenue); err != nil && !isRevenueExists(err) {
		return nil, err
	}

	return &CompleteResult{Status: order.Status, PlatformFee: fee, InfluencerNet: net}, nil
}

// createRevenueIfMissing writes the influencer ledger row once per order.
// An existing row, from either a prior call or the generation job, is
// left untouched.
func (s *OrderService) createRevenueIfMissing(ctx context.Context, order *entity.Order, commission, net decimal.Decimal, status string, now time.Time) error {
	exists, err := s.revenueRepo.ExistsForOrder(ctx, order.ID)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	revenue := &entity.InfluencerRevenue{
		InfluencerID: order.InfluencerID,
		OrderID:      order.ID,
		Amount:       order.TotalAmount,
		Commission:   commission,
		NetAmount:    net,
		Status:       status,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	err = s.revenueRepo.Create(ctx, revenue)
	if err != nil && isRevenueExists(err) {
		return nil
	}
	return err
}
