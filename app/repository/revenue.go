package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/collably/ms-go-orders/app/entity"
)

var ErrRevenueAlreadyExists = errors.New("revenue already exists for order")

const revenueColumns = `
	id, influencer_id, order_id, amount, commission, net_amount, status, created_at, updated_at
`

type RevenueRepository struct {
	db DBTX
}

func NewRevenueRepository(db DBTX) *RevenueRepository {
	return &RevenueRepository{db: db}
}

// Create inserts into the current revenue table, which carries a unique
// key on order_id. A duplicate insert from a concurrent writer path maps
// to ErrRevenueAlreadyExists.
func (r *RevenueRepository) Create(ctx context.Context, revenue *entity.InfluencerRevenue) error {
	if revenue.ID == "" {
		revenue.ID = uuid.NewString()
	}

	query := `
		INSERT INTO influencer_revenues (` + revenueColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		revenue.ID,
		revenue.InfluencerID,
		revenue.OrderID,
		revenue.Amount,
		revenue.Commission,
		revenue.NetAmount,
		revenue.Status,
		revenue.CreatedAt,
		revenue.UpdatedAt,
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrRevenueAlreadyExists
		}
		return err
	}

	return nil
}

// CreateLegacy mirrors the row into the legacy table kept for backward
// compatibility. The legacy table has no uniqueness key; callers pre-check.
func (r *RevenueRepository) CreateLegacy(ctx context.Context, revenue *entity.InfluencerRevenue) error {
	query := `
		INSERT INTO revenus_influenceur (` + revenueColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		revenue.ID,
		revenue.InfluencerID,
		revenue.OrderID,
		revenue.Amount,
		revenue.Commission,
		revenue.NetAmount,
		revenue.Status,
		revenue.CreatedAt,
		revenue.UpdatedAt,
	)
	return err
}

func (r *RevenueRepository) ExistsForOrder(ctx context.Context, orderID string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM influencer_revenues WHERE order_id = ? LIMIT 1`, orderID,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListByInfluencerAndStatus returns revenue rows oldest-created first, the
// order required by the payout compensation walk.
func (r *RevenueRepository) ListByInfluencerAndStatus(ctx context.Context, influencerID, status string) ([]*entity.InfluencerRevenue, error) {
	query := `
		SELECT ` + revenueColumns + `
		FROM influencer_revenues
		WHERE influencer_id = ? AND status = ?
		ORDER BY created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, influencerID, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	revenues := make([]*entity.InfluencerRevenue, 0)
	for rows.Next() {
		item := &entity.InfluencerRevenue{}
		if err := scanRevenue(rows, item); err != nil {
			return nil, err
		}
		revenues = append(revenues, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return revenues, nil
}

func (r *RevenueRepository) UpdateStatus(ctx context.Context, id, status string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE influencer_revenues SET status = ?, updated_at = UTC_TIMESTAMP() WHERE id = ?`,
		status, id,
	)
	return err
}

func scanRevenue(scan rowScanner, revenue *entity.InfluencerRevenue) error {
	return scan.Scan(
		&revenue.ID,
		&revenue.InfluencerID,
		&revenue.OrderID,
		&revenue.Amount,
		&revenue.Commission,
		&revenue.NetAmount,
		&revenue.Status,
		&revenue.CreatedAt,
		&revenue.UpdatedAt,
	)
}
