package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	RevenueStatusPending   = "pending"
	RevenueStatusAvailable = "available"
	RevenueStatusWithdrawn = "withdrawn"
	RevenueStatusPaid      = "paid"
)

// InfluencerRevenue is one earnings ledger entry per completed order.
// The current table enforces at most one row per order id; the legacy
// table is written best-effort for backward compatibility.
type InfluencerRevenue struct {
	ID string

	InfluencerID string
	OrderID      string

	Amount     decimal.Decimal
	Commission decimal.Decimal
	NetAmount  decimal.Decimal

	Status string

	CreatedAt time.Time
	UpdatedAt time.Time
}
