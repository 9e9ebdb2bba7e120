package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/collably/ms-go-orders/app/entity"
)

const paymentLogColumns = `
	id, event_type, session_id, payload_json, processed, order_id, created_at, processed_at
`

type PaymentLogRepository struct {
	db DBTX
}

func NewPaymentLogRepository(db DBTX) *PaymentLogRepository {
	return &PaymentLogRepository{db: db}
}

func (r *PaymentLogRepository) Create(ctx context.Context, log *entity.PaymentLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}

	query := `
		INSERT INTO payment_logs (` + paymentLogColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		log.ID,
		log.EventType,
		nullableStringValue(log.SessionID),
		log.PayloadJSON,
		log.Processed,
		nullableStringValue(log.OrderID),
		log.CreatedAt,
		nullableTimeValue(log.ProcessedAt),
	)
	return err
}

// ListUnprocessedByType returns unprocessed logs of one event type, oldest
// first, for the recovery replay pass.
func (r *PaymentLogRepository) ListUnprocessedByType(ctx context.Context, eventType string, limit int32) ([]*entity.PaymentLog, error) {
	query := `
		SELECT ` + paymentLogColumns + `
		FROM payment_logs
		WHERE processed = FALSE AND event_type = ?
		ORDER BY created_at ASC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, eventType, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]*entity.PaymentLog, 0)
	for rows.Next() {
		item := &entity.PaymentLog{}
		if err := scanPaymentLog(rows, item); err != nil {
			return nil, err
		}
		logs = append(logs, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return logs, nil
}

// MarkProcessed flags the log and links it to the order it repaired.
func (r *PaymentLogRepository) MarkProcessed(ctx context.Context, id, orderID string, processedAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE payment_logs SET processed = TRUE, order_id = ?, processed_at = ? WHERE id = ?`,
		orderID, processedAt, id,
	)
	return err
}

func scanPaymentLog(scan rowScanner, log *entity.PaymentLog) error {
	var sessionID sql.NullString
	var orderID sql.NullString
	var processedAt sql.NullTime

	err := scan.Scan(
		&log.ID,
		&log.EventType,
		&sessionID,
		&log.PayloadJSON,
		&log.Processed,
		&orderID,
		&log.CreatedAt,
		&processedAt,
	)
	if err != nil {
		return err
	}

	log.SessionID = stringPtrFromNull(sessionID)
	log.OrderID = stringPtrFromNull(orderID)
	log.ProcessedAt = timePtrFromNull(processedAt)

	return nil
}
