package service

import (
	"context"
	"time"

	"github.com/collably/ms-go-orders/app/entity"
)

type RecoveryReport struct {
	RecoveredOrders      int
	UnprocessedLogs      int
	OrdersWithoutWebhook int
}

// RecoverPayments is the reconciliation sweep. Three passes, all
// unconditional and idempotent on re-run: surface orders whose webhook
// never arrived, replay stored checkout-completion logs against orders
// that exist by now, and force-cancel orders that never reached payment.
// There is no guard against concurrent invocations; every pass re-derives
// its work from current rows, so overlap only wastes queries.
func (s *OrderService) RecoverPayments(ctx context.Context) (*RecoveryReport, error) {
	now := time.Now().UTC()
	report := &RecoveryReport{}

	staleAfter := s.ordersCfg.WebhookStaleAfter
	if staleAfter <= 0 {
		staleAfter = 10 * time.Minute
	}
	missing, err := s.orderRepo.ListPendingPaymentWithoutWebhook(ctx, now.Add(-staleAfter), s.batchSize())
	if err != nil {
		return nil, err
	}
	report.OrdersWithoutWebhook = len(missing)

	if err := s.replayCheckoutLogs(ctx, report, now); err != nil {
		return nil, err
	}

	if err := s.cancelStalePending(ctx, report, now); err != nil {
		return nil, err
	}

	return report, nil
}

// replayCheckoutLogs re-applies checkout-completion events whose order
// was missing when the webhook arrived. A log whose order still cannot
// be found stays unprocessed for the next sweep.
func (s *OrderService) replayCheckoutLogs(ctx context.Context, report *RecoveryReport, now time.Time) error {
	logs, err := s.logRepo.ListUnprocessedByType(ctx, checkoutEventDone, s.batchSize())
	if err != nil {
		return err
	}

	var firstErr error
	for _, log := range logs {
		if log.SessionID == nil || *log.SessionID == "" {
			report.UnprocessedLogs++
			continue
		}

		order, err := s.orderRepo.FindBySessionID(ctx, *log.SessionID)
		if err != nil {
			firstErr = keepFirstErr(firstErr, err)
			report.UnprocessedLogs++
			continue
		}
		if order == nil {
			report.UnprocessedLogs++
			continue
		}

		repaired := false
		if order.Status != entity.StatusPaid && order.WebhookReceivedAt == nil {
			if err := s.markOrderPaid(ctx, order, false, now); err != nil {
				firstErr = keepFirstErr(firstErr, err)
				report.UnprocessedLogs++
				continue
			}
			repaired = true
		}

		if err := s.logRepo.MarkProcessed(ctx, log.ID, order.ID, now); err != nil {
			firstErr = keepFirstErr(firstErr, err)
			continue
		}
		if repaired {
			report.RecoveredOrders++
		}
	}

	return firstErr
}

func (s *OrderService) cancelStalePending(ctx context.Context, report *RecoveryReport, now time.Time) error {
	staleAfter := s.ordersCfg.StalePendingAfter
	if staleAfter <= 0 {
		staleAfter = 48 * time.Hour
	}

	stale, err := s.orderRepo.ListStalePending(ctx, now.Add(-staleAfter), s.batchSize())
	if err != nil {
		return err
	}

	var firstErr error
	for _, order := range stale {
		oldStatus := order.Status
		next, err := entity.Transition(order.Status, entity.ActionForceCancel)
		if err != nil {
			continue
		}

		reason := "stale_pending"
		order.Status = next
		order.CancelReason = &reason
		order.UpdatedAt = now
		if err := s.orderRepo.Update(ctx, order); err != nil {
			firstErr = keepFirstErr(firstErr, err)
			continue
		}

		s.recordEvent(ctx, order, "order_force_cancelled", &oldStatus, reason, now)
		report.RecoveredOrders++
	}

	return firstErr
}
