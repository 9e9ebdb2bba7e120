package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/collably/ms-go-orders/app/entity"
)

var ErrOrderNotFound = errors.New("order not found")

const orderColumns = `
	id, merchant_id, influencer_id, offer_id,
	total_amount, commission_rate, net_amount,
	checkout_session_id, payment_intent_id, payment_captured, webhook_received_at,
	status, cancel_reason,
	created_at, updated_at, date_accepted, date_completed, date_disputed
`

type OrderRepository struct {
	db DBTX
}

func NewOrderRepository(db DBTX) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Create(ctx context.Context, order *entity.Order) error {
	if order.ID == "" {
		order.ID = uuid.NewString()
	}

	query := `
		INSERT INTO orders (` + orderColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		order.ID,
		order.MerchantID,
		order.InfluencerID,
		order.OfferID,
		order.TotalAmount,
		order.CommissionRate,
		order.NetAmount,
		nullableStringValue(order.CheckoutSessionID),
		nullableStringValue(order.PaymentIntentID),
		order.PaymentCaptured,
		nullableTimeValue(order.WebhookReceivedAt),
		string(order.Status),
		nullableStringValue(order.CancelReason),
		order.CreatedAt,
		order.UpdatedAt,
		nullableTimeValue(order.DateAccepted),
		nullableTimeValue(order.DateCompleted),
		nullableTimeValue(order.DateDisputed),
	)
	return err
}

func (r *OrderRepository) Update(ctx context.Context, order *entity.Order) error {
	query := `
		UPDATE orders SET
			total_amount = ?,
			commission_rate = ?,
			net_amount = ?,
			checkout_session_id = ?,
			payment_intent_id = ?,
			payment_captured = ?,
			webhook_received_at = ?,
			status = ?,
			cancel_reason = ?,
			updated_at = ?,
			date_accepted = ?,
			date_completed = ?,
			date_disputed = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		order.TotalAmount,
		order.CommissionRate,
		order.NetAmount,
		nullableStringValue(order.CheckoutSessionID),
		nullableStringValue(order.PaymentIntentID),
		order.PaymentCaptured,
		nullableTimeValue(order.WebhookReceivedAt),
		string(order.Status),
		nullableStringValue(order.CancelReason),
		order.UpdatedAt,
		nullableTimeValue(order.DateAccepted),
		nullableTimeValue(order.DateCompleted),
		nullableTimeValue(order.DateDisputed),
		order.ID,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrOrderNotFound
	}

	return nil
}

func (r *OrderRepository) FindByID(ctx context.Context, id string) (*entity.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = ?`

	order := &entity.Order{}
	if err := scanOrder(r.db.QueryRowContext(ctx, query, id), order); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	return order, nil
}

func (r *OrderRepository) FindBySessionID(ctx context.Context, sessionID string) (*entity.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE checkout_session_id = ? LIMIT 1`

	order := &entity.Order{}
	if err := scanOrder(r.db.QueryRowContext(ctx, query, sessionID), order); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	return order, nil
}

// ListByStatuses returns orders in any of the given statuses, oldest first.
func (r *OrderRepository) ListByStatuses(ctx context.Context, statuses []entity.OrderStatus, limit int32) ([]*entity.Order, error) {
	if len(statuses) == 0 {
		return []*entity.Order{}, nil
	}

	query := `SELECT ` + orderColumns + ` FROM orders WHERE status IN (?` +
		repeatPlaceholder(len(statuses)-1) + `) ORDER BY created_at ASC LIMIT ?`

	args := make([]interface{}, 0, len(statuses)+1)
	for _, s := range statuses {
		args = append(args, string(s))
	}
	args = append(args, limit)

	return r.queryOrders(ctx, query, args...)
}

// ListPendingPaymentWithoutWebhook returns orders stuck in pending_payment
// with no webhook receipt stamp, created before the cutoff.
func (r *OrderRepository) ListPendingPaymentWithoutWebhook(ctx context.Context, cutoff time.Time, limit int32) ([]*entity.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE status = ?
		  AND webhook_received_at IS NULL
		  AND created_at <= ?
		ORDER BY created_at ASC
		LIMIT ?
	`
	return r.queryOrders(ctx, query, string(entity.StatusPendingPayment), cutoff, limit)
}

// ListStalePending returns orders still in the initial pending status
// created before the cutoff. These never reached payment at all.
func (r *OrderRepository) ListStalePending(ctx context.Context, cutoff time.Time, limit int32) ([]*entity.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE status = ?
		  AND created_at <= ?
		ORDER BY created_at ASC
		LIMIT ?
	`
	return r.queryOrders(ctx, query, string(entity.StatusPending), cutoff, limit)
}

func (r *OrderRepository) queryOrders(ctx context.Context, query string, args ...interface{}) ([]*entity.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]*entity.Order, 0)
	for rows.Next() {
		item := &entity.Order{}
		if err := scanOrder(rows, item); err != nil {
			return nil, err
		}
		orders = append(orders, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return orders, nil
}

func scanOrder(scan rowScanner, order *entity.Order) error {
	var sessionID sql.NullString
	var intentID sql.NullString
	var webhookAt sql.NullTime
	var status string
	var cancelReason sql.NullString
	var accepted sql.NullTime
	var completed sql.NullTime
	var disputed sql.NullTime

	err := scan.Scan(
		&order.ID,
		&order.MerchantID,
		&order.InfluencerID,
		&order.OfferID,
		&order.TotalAmount,
		&order.CommissionRate,
		&order.NetAmount,
		&sessionID,
		&intentID,
		&order.PaymentCaptured,
		&webhookAt,
		&status,
		&cancelReason,
		&order.CreatedAt,
		&order.UpdatedAt,
		&accepted,
		&completed,
		&disputed,
	)
	if err != nil {
		return err
	}

	order.CheckoutSessionID = stringPtrFromNull(sessionID)
	order.PaymentIntentID = stringPtrFromNull(intentID)
	order.WebhookReceivedAt = timePtrFromNull(webhookAt)
	order.Status = entity.OrderStatus(status)
	order.CancelReason = stringPtrFromNull(cancelReason)
	order.DateAccepted = timePtrFromNull(accepted)
	order.DateCompleted = timePtrFromNull(completed)
	order.DateDisputed = timePtrFromNull(disputed)

	return nil
}

func repeatPlaceholder(n int) string {
	s := ""
	for i := 0; i < n; i++ {
		s += ", ?"
	}
	return s
}
