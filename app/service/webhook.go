package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/collably/ms-go-orders/app/entity"
)

// HandleStripeWebhook verifies and ingests one provider event. Every
// verified event leaves a payment_logs row; unknown event types are
// acknowledged without side effects so the provider stops retrying.
func (s *OrderService) HandleStripeWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := s.gateway.VerifyWebhook(ctx, payload, signature)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWebhookRejected, err)
	}

	now := time.Now().UTC()

	switch event.Type {
	case payoutEventPaid:
		err = s.handlePayoutPaid(ctx, event.PayoutID, now)
	case payoutEventFailed:
		err = s.handlePayoutFailed(ctx, event.PayoutID, event.FailureMessage, entity.WithdrawalStatusFailed, now)
	case payoutEventCanceled:
		err = s.handlePayoutFailed(ctx, event.PayoutID, event.FailureMessage, entity.WithdrawalStatusCancelled, now)
	case checkoutEventDone:
		err = s.handleCheckoutCompleted(ctx, event.SessionID, string(event.RawObject), now)
		// handleCheckoutCompleted writes its own log row.
		return err
	}
	if err != nil {
		return err
	}

	log := &entity.PaymentLog{
		EventType:   event.Type,
		PayloadJSON: string(event.RawObject),
		Processed:   true,
		CreatedAt:   now,
		ProcessedAt: &now,
	}
	return s.logRepo.Create(ctx, log)
}

func (s *OrderService) handlePayoutPaid(ctx context.Context, payoutID string, now time.Time) error {
	withdrawal, err := s.withdrawalRepo.FindByPayoutID(ctx, payoutID)
	if err != nil {
		return err
	}
	if withdrawal == nil || withdrawal.Status == entity.WithdrawalStatusCompleted {
		return nil
	}

	withdrawal.Status = entity.WithdrawalStatusCompleted
	withdrawal.UpdatedAt = now
	withdrawal.ProcessedAt = &now
	return s.withdrawalRepo.Update(ctx, withdrawal)
}

// handlePayoutFailed closes the withdrawal and gives the money back:
// withdrawn revenue rows are reverted to available, oldest first, until
// the reverted net total covers the withdrawal amount. Rows beyond the
// covering set are untouched.
func (s *OrderService) handlePayoutFailed(ctx context.Context, payoutID, failureMessage, status string, now time.Time) error {
	withdrawal, err := s.withdrawalRepo.FindByPayoutID(ctx, payoutID)
	if err != nil {
		return err
	}
	if withdrawal == nil || withdrawal.Status == status {
		return nil
	}

	withdrawal.Status = status
	if failureMessage != "" {
		withdrawal.FailureReason = &failureMessage
	}
	withdrawal.UpdatedAt = now
	withdrawal.ProcessedAt = &now
	if err := s.withdrawalRepo.Update(ctx, withdrawal); err != nil {
		return err
	}

	return s.revertWithdrawnRevenues(ctx, withdrawal.InfluencerID, withdrawal.Amount)
}

func (s *OrderService) revertWithdrawnRevenues(ctx context.Context, influencerID string, amount decimal.Decimal) error {
	revenues, err := s.revenueRepo.ListByInfluencerAndStatus(ctx, influencerID, entity.RevenueStatusWithdrawn)
	if err != nil {
		return err
	}

	reverted := decimal.Zero
	var firstErr error
	for _, revenue := range revenues {
		if reverted.GreaterThanOrEqual(amount) {
			break
		}
		if err := s.revenueRepo.UpdateStatus(ctx, revenue.ID, entity.RevenueStatusAvailable); err != nil {
			firstErr = keepFirstErr(firstErr, err)
			continue
		}
		reverted = reverted.Add(revenue.NetAmount)
	}

	return firstErr
}

// handleCheckoutCompleted stamps the webhook receipt on the order behind
// the session and marks it paid. A session with no matching order yet is
// kept as an unprocessed log for the recovery sweep to replay.
func (s *OrderService) handleCheckoutCompleted(ctx context.Context, sessionID, rawPayload string, now time.Time) error {
	log := &entity.PaymentLog{
		EventType:   checkoutEventDone,
		PayloadJSON: rawPayload,
		CreatedAt:   now,
	}
	if sessionID != "" {
		log.SessionID = &sessionID
	}

	order, err := s.orderRepo.FindBySessionID(ctx, sessionID)
	if err != nil {
		return err
	}
	if order == nil {
		return s.logRepo.Create(ctx, log)
	}

	if err := s.markOrderPaid(ctx, order, true, now); err != nil {
		return err
	}

	log.Processed = true
	log.OrderID = &order.ID
	log.ProcessedAt = &now
	return s.logRepo.Create(ctx, log)
}

// markOrderPaid stamps the webhook receipt and confirms the payment.
// The live webhook path also advances through authorization to the
// influencer-confirmation wait, since a completed manual-capture session
// means the funds are held. The recovery replay only repairs to paid.
func (s *OrderService) markOrderPaid(ctx context.Context, order *entity.Order, advance bool, now time.Time) error {
	oldStatus := order.Status

	if order.WebhookReceivedAt == nil {
		order.WebhookReceivedAt = &now
	}
	actions := []entity.OrderAction{entity.ActionMarkPaid}
	if advance {
		actions = append(actions, entity.ActionAuthorize, entity.ActionAwaitInfluencer)
	}
	for _, action := range actions {
		if next, err := entity.Transition(order.Status, action); err == nil {
			order.Status = next
		}
	}
	order.UpdatedAt = now
	if err := s.orderRepo.Update(ctx, order); err != nil {
		return err
	}

	if order.Status != oldStatus {
		s.recordEvent(ctx, order, "payment_confirmed", &oldStatus, "", now)
	}
	return nil
}
