package service

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/collably/ms-go-orders/app/entity"
	"github.com/collably/ms-go-orders/app/provider"
	"github.com/collably/ms-go-orders/config"
)

const (
	defaultBatchSize = int32(100)

	payoutEventPaid     = "payout.paid"
	payoutEventFailed   = "payout.failed"
	payoutEventCanceled = "payout.canceled"
	checkoutEventDone   = "checkout.session.completed"
)

type orderRepository interface {
	Create(ctx context.Context, order *entity.Order) error
	Update(ctx context.Context, order *entity.Order) error
	FindByID(ctx context.Context, id string) (*entity.Order, error)
	FindBySessionID(ctx context.Context, sessionID string) (*entity.Order, error)
	ListByStatuses(ctx context.Context, statuses []entity.OrderStatus, limit int32) ([]*entity.Order, error)
	ListPendingPaymentWithoutWebhook(ctx context.Context, cutoff time.Time, limit int32) ([]*entity.Order, error)
	ListStalePending(ctx context.Context, cutoff time.Time, limit int32) ([]*entity.Order, error)
}

type revenueRepository interface {
	Create(ctx context.Context, revenue *entity.InfluencerRevenue) error
	CreateLegacy(ctx context.Context, revenue *entity.InfluencerRevenue) error
	ExistsForOrder(ctx context.Context, orderID string) (bool, error)
	ListByInfluencerAndStatus(ctx context.Context, influencerID, status string) ([]*entity.InfluencerRevenue, error)
	UpdateStatus(ctx context.Context, id, status string) error
}

type withdrawalRepository interface {
	Create(ctx context.Context, withdrawal *entity.Withdrawal) error
	Update(ctx context.Context, withdrawal *entity.Withdrawal) error
	FindByPayoutID(ctx context.Context, payoutID string) (*entity.Withdrawal, error)
	ListByStatus(ctx context.Context, status string, limit int32) ([]*entity.Withdrawal, error)
}

type paymentLogRepository interface {
	Create(ctx context.Context, log *entity.PaymentLog) error
	ListUnprocessedByType(ctx context.Context, eventType string, limit int32) ([]*entity.PaymentLog, error)
	MarkProcessed(ctx context.Context, id, orderID string, processedAt time.Time) error
}

type orderEventRepository interface {
	Create(ctx context.Context, event *entity.OrderEvent) error
}

// OrderService owns the full payment lifecycle of an order: checkout,
// capture, cancellation, completion, revenue generation, payout
// compensation and the recovery sweep.
type OrderService struct {
	orderRepo      orderRepository
	revenueRepo    revenueRepository
	withdrawalRepo withdrawalRepository
	logRepo        paymentLogRepository
	eventRepo      orderEventRepository
	gateway        provider.Gateway
	ordersCfg      config.OrdersConfig
}

func NewOrderService(
	orderRepo orderRepository,
	revenueRepo revenueRepository,
	withdrawalRepo withdrawalRepository,
	logRepo paymentLogRepository,
	eventRepo orderEventRepository,
	gateway provider.Gateway,
	ordersCfg config.OrdersConfig,
) *OrderService {
	return &OrderService{
		orderRepo:      orderRepo,
		revenueRepo:    revenueRepo,
		withdrawalRepo: withdrawalRepo,
		logRepo:        logRepo,
		eventRepo:      eventRepo,
		gateway:        gateway,
		ordersCfg:      ordersCfg,
	}
}

func (s *OrderService) batchSize() int32 {
	if s.ordersCfg.JobBatchSize > 0 {
		return s.ordersCfg.JobBatchSize
	}
	return defaultBatchSize
}

func (s *OrderService) currency() string {
	if c := strings.TrimSpace(s.ordersCfg.Currency); c != "" {
		return strings.ToLower(c)
	}
	return "eur"
}

// platformFee splits an amount with the fixed marketplace fee applied at
// completion time, independent of the per-order commission rate.
func (s *OrderService) platformFee(total decimal.Decimal) (fee, net decimal.Decimal) {
	rate := s.ordersCfg.PlatformFeePercent
	if rate.IsZero() {
		rate = decimal.NewFromInt(10)
	}
	fee = total.Mul(rate).Div(decimal.NewFromInt(100)).Round(2)
	return fee, total.Sub(fee)
}

// commissionSplit applies the order's own commission rate, falling back
// to the configured default when the order carries none.
func (s *OrderService) commissionSplit(order *entity.Order) (commission, net decimal.Decimal) {
	rate := order.CommissionRate
	if rate.IsZero() {
		rate = s.ordersCfg.DefaultCommissionRate
	}
	if rate.IsZero() {
		rate = decimal.NewFromInt(10)
	}
	commission = order.TotalAmount.Mul(rate).Div(decimal.NewFromInt(100)).Round(2)
	return commission, order.TotalAmount.Sub(commission)
}

func toCents(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

func fromCents(cents int64) decimal.Decimal {
	return decimal.NewFromInt(cents).Div(decimal.NewFromInt(100))
}

// resolvePaymentIntentID returns the intent attached to the order,
// fetching it through the stored checkout session when needed.
func (s *OrderService) resolvePaymentIntentID(ctx context.Context, order *entity.Order) (string, error) {
	if order.PaymentIntentID != nil && strings.TrimSpace(*order.PaymentIntentID) != "" {
		return *order.PaymentIntentID, nil
	}
	if order.CheckoutSessionID == nil || strings.TrimSpace(*order.CheckoutSessionID) == "" {
		return "", ErrPaymentMissing
	}

	session, err := s.gateway.GetCheckoutSession(ctx, *order.CheckoutSessionID)
	if err != nil {
		return "", err
	}
	if session.PaymentIntentID == "" {
		return "", ErrPaymentMissing
	}
	return session.PaymentIntentID, nil
}

func (s *OrderService) recordEvent(ctx context.Context, order *entity.Order, eventType string, oldStatus *entity.OrderStatus, detail string, now time.Time) {
	event := &entity.OrderEvent{
		OrderID:   order.ID,
		EventType: eventType,
		OldStatus: oldStatus,
		NewStatus: order.Status,
		CreatedAt: now,
	}
	if detail != "" {
		event.Detail = &detail
	}
	_ = s.eventRepo.Create(ctx, event)
}

func keepFirstErr(current, candidate error) error {
	if current != nil {
		return current
	}
	return candidate
}
