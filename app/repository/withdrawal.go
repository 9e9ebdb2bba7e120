package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/collably/ms-go-orders/app/entity"
)

var ErrWithdrawalNotFound = errors.New("withdrawal not found")

const withdrawalColumns = `
	id, influencer_id, bank_account_id, amount, status, payout_id, failure_reason,
	created_at, updated_at, processed_at
`

type WithdrawalRepository struct {
	db DBTX
}

func NewWithdrawalRepository(db DBTX) *WithdrawalRepository {
	return &WithdrawalRepository{db: db}
}

func (r *WithdrawalRepository) Create(ctx context.Context, withdrawal *entity.Withdrawal) error {
	if withdrawal.ID == "" {
		withdrawal.ID = uuid.NewString()
	}

	query := `
		INSERT INTO withdrawals (` + withdrawalColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		withdrawal.ID,
		withdrawal.InfluencerID,
		withdrawal.BankAccountID,
		withdrawal.Amount,
		withdrawal.Status,
		nullableStringValue(withdrawal.PayoutID),
		nullableStringValue(withdrawal.FailureReason),
		withdrawal.CreatedAt,
		withdrawal.UpdatedAt,
		nullableTimeValue(withdrawal.ProcessedAt),
	)
	return err
}

func (r *WithdrawalRepository) Update(ctx context.Context, withdrawal *entity.Withdrawal) error {
	query := `
		UPDATE withdrawals SET
			status = ?,
			payout_id = ?,
			failure_reason = ?,
			updated_at = ?,
			processed_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		withdrawal.Status,
		nullableStringValue(withdrawal.PayoutID),
		nullableStringValue(withdrawal.FailureReason),
		withdrawal.UpdatedAt,
		nullableTimeValue(withdrawal.ProcessedAt),
		withdrawal.ID,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrWithdrawalNotFound
	}

	return nil
}

func (r *WithdrawalRepository) FindByPayoutID(ctx context.Context, payoutID string) (*entity.Withdrawal, error) {
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawals WHERE payout_id = ? LIMIT 1`

	withdrawal := &entity.Withdrawal{}
	if err := scanWithdrawal(r.db.QueryRowContext(ctx, query, payoutID), withdrawal); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	return withdrawal, nil
}

func (r *WithdrawalRepository) ListByStatus(ctx context.Context, status string, limit int32) ([]*entity.Withdrawal, error) {
	query := `
		SELECT ` + withdrawalColumns + `
		FROM withdrawals
		WHERE status = ?
		ORDER BY created_at ASC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	withdrawals := make([]*entity.Withdrawal, 0)
	for rows.Next() {
		item := &entity.Withdrawal{}
		if err := scanWithdrawal(rows, item); err != nil {
			return nil, err
		}
		withdrawals = append(withdrawals, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return withdrawals, nil
}

func scanWithdrawal(scan rowScanner, withdrawal *entity.Withdrawal) error {
	var payoutID sql.NullString
	var failureReason sql.NullString
	var processedAt sql.NullTime

	err := scan.Scan(
		&withdrawal.ID,
		&withdrawal.InfluencerID,
		&withdrawal.BankAccountID,
		&withdrawal.Amount,
		&withdrawal.Status,
		&payoutID,
		&failureReason,
		&withdrawal.CreatedAt,
		&withdrawal.UpdatedAt,
		&processedAt,
	)
	if err != nil {
		return err
	}

	withdrawal.PayoutID = stringPtrFromNull(payoutID)
	withdrawal.FailureReason = stringPtrFromNull(failureReason)
	withdrawal.ProcessedAt = timePtrFromNull(processedAt)

	return nil
}
