package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	WithdrawalStatusPending    = "pending"
	WithdrawalStatusProcessing = "processing"
	WithdrawalStatusCompleted  = "completed"
	WithdrawalStatusFailed     = "failed"
	WithdrawalStatusCancelled  = "cancelled"
)

// Withdrawal is an influencer-initiated payout request against available
// revenue. Status moves are driven by payout webhooks or the status poller.
type Withdrawal struct {
	ID string

	InfluencerID  string
	BankAccountID string

	Amount decimal.Decimal

	Status        string
	PayoutID      *string
	FailureReason *string

	CreatedAt   time.Time
	UpdatedAt   time.Time
	ProcessedAt *time.Time
}
