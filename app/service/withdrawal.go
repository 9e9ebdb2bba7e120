package service

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/collably/ms-go-orders/app/entity"
	"github.com/collably/ms-go-orders/app/provider"
)

type WithdrawalInput struct {
	InfluencerID  string
	BankAccountID string
	Amount        decimal.Decimal
}

type WithdrawalResult struct {
	WithdrawalID string
	PayoutID     string
}

// RequestWithdrawal pays out available revenue to the influencer's bank
// account. The covering revenue rows are marked withdrawn before the
// provider payout is created; a payout failure reverts them so no balance
// is stranded.
func (s *OrderService) RequestWithdrawal(ctx context.Context, input *WithdrawalInput) (*WithdrawalResult, error) {
	influencerID := strings.TrimSpace(input.InfluencerID)
	bankAccountID := strings.TrimSpace(input.BankAccountID)
	if influencerID == "" || bankAccountID == "" || !input.Amount.IsPositive() {
		return nil, ErrInvalidRequest
	}

	available, err := s.revenueRepo.ListByInfluencerAndStatus(ctx, influencerID, entity.RevenueStatusAvailable)
	if err != nil {
		return nil, err
	}

	covering := make([]*entity.InfluencerRevenue, 0, len(available))
	covered := decimal.Zero
	for _, revenue := range available {
		if covered.GreaterThanOrEqual(input.Amount) {
			break
		}
		covering = append(covering, revenue)
		covered = covered.Add(revenue.NetAmount)
	}
	if covered.LessThan(input.Amount) {
		return nil, ErrInsufficientBalance
	}

	marked := make([]*entity.InfluencerRevenue, 0, len(covering))
	for _, revenue := range covering {
		if err := s.revenueRepo.UpdateStatus(ctx, revenue.ID, entity.RevenueStatusWithdrawn); err != nil {
			s.revertRevenueMarks(ctx, marked)
			return nil, err
		}
		marked = append(marked, revenue)
	}

	payout, err := s.gateway.CreatePayout(ctx, &provider.PayoutInput{
		AmountCents:   toCents(input.Amount),
		Currency:      s.currency(),
		Destination:   bankAccountID,
		StatementDesc: s.ordersCfg.PayoutStatementDescriptor,
	})
	if err != nil {
		s.revertRevenueMarks(ctx, marked)
		return nil, err
	}

	now := time.Now().UTC()
	payoutID := payout.ID
	withdrawal := &entity.Withdrawal{
		InfluencerID:  influencerID,
		BankAccountID: bankAccountID,
		Amount:        input.Amount,
		Status:        entity.WithdrawalStatusProcessing,
		PayoutID:      &payoutID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.withdrawalRepo.Create(ctx, withdrawal); err != nil {
		return nil, err
	}

	return &WithdrawalResult{WithdrawalID: withdrawal.ID, PayoutID: payout.ID}, nil
}

func (s *OrderService) revertRevenueMarks(ctx context.Context, marked []*entity.InfluencerRevenue) {
	for _, revenue := range marked {
		_ = s.revenueRepo.UpdateStatus(ctx, revenue.ID, entity.RevenueStatusAvailable)
	}
}

// CheckWithdrawals polls the provider for withdrawals still processing
// and applies the terminal payout states the same way the webhook does.
// This heals withdrawals whose payout webhook was missed.
func (s *OrderService) CheckWithdrawals(ctx context.Context) error {
	withdrawals, err := s.withdrawalRepo.ListByStatus(ctx, entity.WithdrawalStatusProcessing, s.batchSize())
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	var firstErr error
	for _, withdrawal := range withdrawals {
		if withdrawal.PayoutID == nil || *withdrawal.PayoutID == "" {
			continue
		}

		payout, err := s.gateway.RetrievePayout(ctx, *withdrawal.PayoutID)
		if err != nil {
			firstErr = keepFirstErr(firstErr, err)
			continue
		}

		switch payout.Status {
		case "paid":
			err = s.handlePayoutPaid(ctx, payout.ID, now)
		case "failed":
			err = s.handlePayoutFailed(ctx, payout.ID, payout.FailureMessage, entity.WithdrawalStatusFailed, now)
		case "canceled":
			err = s.handlePayoutFailed(ctx, payout.ID, payout.FailureMessage, entity.WithdrawalStatusCancelled, now)
		}
		if err != nil {
			firstErr = keepFirstErr(firstErr, err)
		}
	}

	return firstErr
}

// Bank-account management passes straight through the gateway; the
// service only owns argument checks so controllers stay thin.

func (s *OrderService) ListBankAccounts(ctx context.Context, accountID string) ([]*provider.ExternalAccount, error) {
	if strings.TrimSpace(accountID) == "" {
		return nil, ErrInvalidRequest
	}
	return s.gateway.ListExternalAccounts(ctx, strings.TrimSpace(accountID))
}

func (s *OrderService) AddBankAccount(ctx context.Context, input *provider.ExternalAccountInput) (*provider.ExternalAccount, error) {
	if strings.TrimSpace(input.AccountID) == "" || strings.TrimSpace(input.IBAN) == "" {
		return nil, ErrInvalidRequest
	}
	return s.gateway.CreateExternalAccount(ctx, input)
}

func (s *OrderService) RemoveBankAccount(ctx context.Context, accountID, externalAccountID string) error {
	if strings.TrimSpace(accountID) == "" || strings.TrimSpace(externalAccountID) == "" {
		return ErrInvalidRequest
	}
	return s.gateway.DeleteExternalAccount(ctx, strings.TrimSpace(accountID), strings.TrimSpace(externalAccountID))
}
