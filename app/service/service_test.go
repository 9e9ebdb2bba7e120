package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/collably/ms-go-orders/app/entity"
	"github.com/collably/ms-go-orders/app/provider"
	"github.com/collably/ms-go-orders/app/repository"
	"github.com/collably/ms-go-orders/config"
)

type serviceOrderRepo struct {
	orders map[string]*entity.Order
	nextID int
}

func newServiceOrderRepo() *serviceOrderRepo {
	return &serviceOrderRepo{orders: map[string]*entity.Order{}, nextID: 1}
}

func (r *serviceOrderRepo) Create(_ context.Context, order *entity.Order) error {
	if order.ID == "" {
		order.ID = fmt.Sprintf("order-%d", r.nextID)
		r.nextID++
	}
	copyItem := *order
	r.orders[order.ID] = &copyItem
	return nil
}

func (r *serviceOrderRepo) Update(_ context.Context, order *entity.Order) error {
	if _, ok := r.orders[order.ID]; !ok {
		return repository.ErrOrderNotFound
	}
	copyItem := *order
	r.orders[order.ID] = &copyItem
	return nil
}

func (r *serviceOrderRepo) FindByID(_ context.Context, id string) (*entity.Order, error) {
	item, ok := r.orders[id]
	if !ok {
		return nil, nil
	}
	copyItem := *item
	return &copyItem, nil
}

func (r *serviceOrderRepo) FindBySessionID(_ context.Context, sessionID string) (*entity.Order, error) {
	for _, item := range r.orders {
		if item.CheckoutSessionID != nil && *item.CheckoutSessionID == sessionID {
			copyItem := *item
			return &copyItem, nil
		}
	}
	return nil, nil
}

func (r *serviceOrderRepo) ListByStatuses(_ context.Context, statuses []entity.OrderStatus, limit int32) ([]*entity.Order, error) {
	items := make([]*entity.Order, 0)
	for _, item := range r.orders {
		for _, status := range statuses {
			if item.Status == status {
				copyItem := *item
				items = append(items, &copyItem)
				break
			}
		}
	}
	sortOrders(items)
	return limitOrders(items, limit), nil
}

func (r *serviceOrderRepo) ListPendingPaymentWithoutWebhook(_ context.Context, cutoff time.Time, limit int32) ([]*entity.Order, error) {
	items := make([]*entity.Order, 0)
	for _, item := range r.orders {
		if item.Status == entity.StatusPendingPayment && item.WebhookReceivedAt == nil && !item.CreatedAt.After(cutoff) {
			copyItem := *item
			items = append(items, &copyItem)
		}
	}
	sortOrders(items)
	return limitOrders(items, limit), nil
}

func (r *serviceOrderRepo) ListStalePending(_ context.Context, cutoff time.Time, limit int32) ([]*entity.Order, error) {
	items := make([]*entity.Order, 0)
	for _, item := range r.orders {
		if item.Status == entity.StatusPending && !item.CreatedAt.After(cutoff) {
			copyItem := *item
			items = append(items, &copyItem)
		}
	}
	sortOrders(items)
	return limitOrders(items, limit), nil
}

func sortOrders(items []*entity.Order) {
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.Before(items[j].CreatedAt) })
}

func limitOrders(items []*entity.Order, limit int32) []*entity.Order {
	if limit > 0 && int(limit) < len(items) {
		return items[:limit]
	}
	return items
}

type serviceRevenueRepo struct {
	revenues map[string]*entity.InfluencerRevenue
	legacy   []*entity.InfluencerRevenue
	nextID   int

	legacyErr error
}

func newServiceRevenueRepo() *serviceRevenueRepo {
	return &serviceRevenueRepo{revenues: map[string]*entity.InfluencerRevenue{}, nextID: 1}
}

func (r *serviceRevenueRepo) Create(_ context.Context, revenue *entity.InfluencerRevenue) error {
	for _, item := range r.revenues {
		if item.OrderID == revenue.OrderID {
			return repository.ErrRevenueAlreadyExists
		}
	}
	if revenue.ID == "" {
		revenue.ID = fmt.Sprintf("revenue-%d", r.nextID)
		r.nextID++
	}
	copyItem := *revenue
	r.revenues[revenue.ID] = &copyItem
	return nil
}

func (r *serviceRevenueRepo) CreateLegacy(_ context.Context, revenue *entity.InfluencerRevenue) error {
	if r.legacyErr != nil {
		return r.legacyErr
	}
	copyItem := *revenue
	r.legacy = append(r.legacy, &copyItem)
	return nil
}

func (r *serviceRevenueRepo) ExistsForOrder(_ context.Context, orderID string) (bool, error) {
	for _, item := range r.revenues {
		if item.OrderID == orderID {
			return true, nil
		}
	}
	return false, nil
}

func (r *serviceRevenueRepo) ListByInfluencerAndStatus(_ context.Context, influencerID, status string) ([]*entity.InfluencerRevenue, error) {
	items := make([]*entity.InfluencerRevenue, 0)
	for _, item := range r.revenues {
		if item.InfluencerID == influencerID && item.Status == status {
			copyItem := *item
			items = append(items, &copyItem)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.Before(items[j].CreatedAt) })
	return items, nil
}

func (r *serviceRevenueRepo) UpdateStatus(_ context.Context, id, status string) error {
	item, ok := r.revenues[id]
	if !ok {
		return fmt.Errorf("revenue %s not found", id)
	}
	item.Status = status
	return nil
}

func (r *serviceRevenueRepo) statusOf(orderID string) string {
	for _, item := range r.revenues {
		if item.OrderID == orderID {
			return item.Status
		}
	}
	return ""
}

type serviceWithdrawalRepo struct {
	withdrawals map[string]*entity.Withdrawal
	nextID      int
}

func newServiceWithdrawalRepo() *serviceWithdrawalRepo {
	return &serviceWithdrawalRepo{withdrawals: map[string]*entity.Withdrawal{}, nextID: 1}
}

func (r *serviceWithdrawalRepo) Create(_ context.Context, withdrawal *entity.Withdrawal) error {
	if withdrawal.ID == "" {
		withdrawal.ID = fmt.Sprintf("withdrawal-%d", r.nextID)
		r.nextID++
	}
	copyItem := *withdrawal
	r.withdrawals[withdrawal.ID] = &copyItem
	return nil
}

func (r *serviceWithdrawalRepo) Update(_ context.Context, withdrawal *entity.Withdrawal) error {
	if _, ok := r.withdrawals[withdrawal.ID]; !ok {
		return repository.ErrWithdrawalNotFound
	}
	copyItem := *withdrawal
	r.withdrawals[withdrawal.ID] = &copyItem
	return nil
}

func (r *serviceWithdrawalRepo) FindByPayoutID(_ context.Context, payoutID string) (*entity.Withdrawal, error) {
	for _, item := range r.withdrawals {
		if item.PayoutID != nil && *item.PayoutID == payoutID {
			copyItem := *item
			return &copyItem, nil
		}
	}
	return nil, nil
}

func (r *serviceWithdrawalRepo) ListByStatus(_ context.Context, status string, limit int32) ([]*entity.Withdrawal, error) {
	items := make([]*entity.Withdrawal, 0)
	for _, item := range r.withdrawals {
		if item.Status == status {
			copyItem := *item
			items = append(items, &copyItem)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.Before(items[j].CreatedAt) })
	if limit > 0 && int(limit) < len(items) {
		items = items[:limit]
	}
	return items, nil
}

type servicePaymentLogRepo struct {
	logs   map[string]*entity.PaymentLog
	nextID int
}

func newServicePaymentLogRepo() *servicePaymentLogRepo {
	return &servicePaymentLogRepo{logs: map[string]*entity.PaymentLog{}, nextID: 1}
}

func (r *servicePaymentLogRepo) Create(_ context.Context, log *entity.PaymentLog) error {
	if log.ID == "" {
		log.ID = fmt.Sprintf("log-%d", r.nextID)
		r.nextID++
	}
	copyItem := *log
	r.logs[log.ID] = &copyItem
	return nil
}

func (r *servicePaymentLogRepo) ListUnprocessedByType(_ context.Context, eventType string, limit int32) ([]*entity.PaymentLog, error) {
	items := make([]*entity.PaymentLog, 0)
	for _, item := range r.logs {
		if !item.Processed && item.EventType == eventType {
			copyItem := *item
			items = append(items, &copyItem)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.Before(items[j].CreatedAt) })
	if limit > 0 && int(limit) < len(items) {
		items = items[:limit]
	}
	return items, nil
}

func (r *servicePaymentLogRepo) MarkProcessed(_ context.Context, id, orderID string, processedAt time.Time) error {
	item, ok := r.logs[id]
	if !ok {
		return fmt.Errorf("payment log %s not found", id)
	}
	item.Processed = true
	item.OrderID = &orderID
	item.ProcessedAt = &processedAt
	return nil
}

type serviceOrderEventRepo struct {
	events []*entity.OrderEvent
}

func (r *serviceOrderEventRepo) Create(_ context.Context, event *entity.OrderEvent) error {
	copyItem := *event
	r.events = append(r.events, &copyItem)
	return nil
}

// fakeGateway records every external call and returns configurable
// results, standing in for the real payment provider.
type fakeGateway struct {
	calls []string

	checkoutSession *provider.CheckoutSession
	paymentIntent   *provider.PaymentIntent
	payout          *provider.Payout
	accounts        []*provider.ExternalAccount

	createSessionErr error
	captureErr       error
	cancelErr        error
	refundErr        error
	payoutErr        error
	retrieveErr      error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		checkoutSession: &provider.CheckoutSession{
			ID:              "cs_test",
			URL:             "https://checkout.example/cs_test",
			PaymentIntentID: "pi_test",
			Status:          "open",
		},
		paymentIntent: &provider.PaymentIntent{ID: "pi_test", Status: "requires_capture", AmountCents: 10000},
		payout:        &provider.Payout{ID: "po_test", Status: "pending"},
	}
}

func (g *fakeGateway) record(call string) {
	g.calls = append(g.calls, call)
}

func (g *fakeGateway) called(prefix string) bool {
	for _, call := range g.calls {
		if strings.HasPrefix(call, prefix) {
			return true
		}
	}
	return false
}

func (g *fakeGateway) CreateCheckoutSession(_ context.Context, input *provider.CheckoutSessionInput) (*provider.CheckoutSession, error) {
	g.record("create_session:" + input.OrderID)
	if g.createSessionErr != nil {
		return nil, g.createSessionErr
	}
	return g.checkoutSession, nil
}

func (g *fakeGateway) GetCheckoutSession(_ context.Context, sessionID string) (*provider.CheckoutSession, error) {
	g.record("get_session:" + sessionID)
	return g.checkoutSession, nil
}

func (g *fakeGateway) GetPaymentIntent(_ context.Context, paymentIntentID string) (*provider.PaymentIntent, error) {
	g.record("get_intent:" + paymentIntentID)
	return g.paymentIntent, nil
}

func (g *fakeGateway) CapturePaymentIntent(_ context.Context, paymentIntentID string) (*provider.PaymentIntent, error) {
	g.record("capture:" + paymentIntentID)
	if g.captureErr != nil {
		return nil, g.captureErr
	}
	return g.paymentIntent, nil
}

func (g *fakeGateway) CancelPaymentIntent(_ context.Context, paymentIntentID string) (*provider.PaymentIntent, error) {
	g.record("cancel:" + paymentIntentID)
	if g.cancelErr != nil {
		return nil, g.cancelErr
	}
	return g.paymentIntent, nil
}

func (g *fakeGateway) CreateRefund(_ context.Context, paymentIntentID string) (*provider.Refund, error) {
	g.record("refund:" + paymentIntentID)
	if g.refundErr != nil {
		return nil, g.refundErr
	}
	return &provider.Refund{ID: "re_test", Status: "succeeded"}, nil
}

func (g *fakeGateway) CreatePayout(_ context.Context, input *provider.PayoutInput) (*provider.Payout, error) {
	g.record(fmt.Sprintf("create_payout:%d", input.AmountCents))
	if g.payoutErr != nil {
		return nil, g.payoutErr
	}
	return g.payout, nil
}

func (g *fakeGateway) RetrievePayout(_ context.Context, payoutID string) (*provider.Payout, error) {
	g.record("retrieve_payout:" + payoutID)
	if g.retrieveErr != nil {
		return nil, g.retrieveErr
	}
	return g.payout, nil
}

func (g *fakeGateway) ListExternalAccounts(_ context.Context, accountID string) ([]*provider.ExternalAccount, error) {
	g.record("list_accounts:" + accountID)
	return g.accounts, nil
}

func (g *fakeGateway) CreateExternalAccount(_ context.Context, input *provider.ExternalAccountInput) (*provider.ExternalAccount, error) {
	g.record("create_account:" + input.AccountID)
	return &provider.ExternalAccount{ID: "ba_test", Last4: "1234"}, nil
}

func (g *fakeGateway) DeleteExternalAccount(_ context.Context, accountID, externalAccountID string) error {
	g.record("delete_account:" + externalAccountID)
	return nil
}

func (g *fakeGateway) VerifyWebhook(_ context.Context, payload []byte, signature string) (*provider.WebhookEvent, error) {
	g.record("verify_webhook")
	if signature != "valid" {
		return nil, fmt.Errorf("invalid signature")
	}
	var event provider.WebhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

type serviceFixture struct {
	service        *OrderService
	orderRepo      *serviceOrderRepo
	revenueRepo    *serviceRevenueRepo
	withdrawalRepo *serviceWithdrawalRepo
	logRepo        *servicePaymentLogRepo
	eventRepo      *serviceOrderEventRepo
	gateway        *fakeGateway
}

func newServiceFixture() *serviceFixture {
	fixture := &serviceFixture{
		orderRepo:      newServiceOrderRepo(),
		revenueRepo:    newServiceRevenueRepo(),
		withdrawalRepo: newServiceWithdrawalRepo(),
		logRepo:        newServicePaymentLogRepo(),
		eventRepo:      &serviceOrderEventRepo{},
		gateway:        newFakeGateway(),
	}
	fixture.service = NewOrderService(
		fixture.orderRepo,
		fixture.revenueRepo,
		fixture.withdrawalRepo,
		fixture.logRepo,
		fixture.eventRepo,
		fixture.gateway,
		config.OrdersConfig{
			Currency:              "eur",
			DefaultCommissionRate: decimal.NewFromInt(10),
			PlatformFeePercent:    decimal.NewFromInt(10),
			WebhookStaleAfter:     10 * time.Minute,
			StalePendingAfter:     48 * time.Hour,
			JobBatchSize:          100,
		},
	)
	return fixture
}

func (f *serviceFixture) addOrder(id string, status entity.OrderStatus, total string) *entity.Order {
	now := time.Now().UTC()
	sessionID := "cs_" + id
	intentID := "pi_" + id
	order := &entity.Order{
		ID:                id,
		MerchantID:        "merchant-1",
		InfluencerID:      "influencer-1",
		OfferID:           "offer-1",
		TotalAmount:       decimal.RequireFromString(total),
		CommissionRate:    decimal.NewFromInt(10),
		CheckoutSessionID: &sessionID,
		PaymentIntentID:   &intentID,
		Status:            status,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	copyItem := *order
	f.orderRepo.orders[id] = &copyItem
	return order
}

func mustDecimal(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}
