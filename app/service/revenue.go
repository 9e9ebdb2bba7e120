package service

import (
	"context"

	"github.com/collably/ms-go-orders/app/entity"
)

const (
	RevenueOutcomeCreated = "created"
	RevenueOutcomeSkipped = "skipped"
	RevenueOutcomeError   = "error"
)

type RevenueOutcome struct {
	OrderID string
	Outcome string
	Detail  string
}

type RevenueBatchReport struct {
	TotalOrders int
	Processed   int
	Results     []RevenueOutcome
}

// GenerateMissingRevenues backfills the influencer ledger for completed
// orders that never got a revenue row, typically because the completing
// handler crashed between the order write and the ledger write. One bad
// order never aborts the batch; its outcome is reported instead.
func (s *OrderService) GenerateMissingRevenues(ctx context.Context) (*RevenueBatchReport, error) {
	orders, err := s.orderRepo.ListByStatuses(ctx,
		[]entity.OrderStatus{entity.StatusCompleted, entity.StatusAutoCompleted},
		s.batchSize(),
	)
	if err != nil {
		return nil, err
	}

	report := &RevenueBatchReport{
		TotalOrders: len(orders),
		Results:     make([]RevenueOutcome, 0, len(orders)),
	}

	for _, order := range orders {
		outcome := s.generateRevenueForOrder(ctx, order)
		report.Results = append(report.Results, outcome)
		if outcome.Outcome == RevenueOutcomeCreated {
			report.Processed++
		}
	}

	return report, nil
}

func (s *OrderService) generateRevenueForOrder(ctx context.Context, order *entity.Order) RevenueOutcome {
	exists, err := s.revenueRepo.ExistsForOrder(ctx, order.ID)
	if err != nil {
		return RevenueOutcome{OrderID: order.ID, Outcome: RevenueOutcomeError, Detail: err.Error()}
	}
	if exists {
		return RevenueOutcome{OrderID: order.ID, Outcome: RevenueOutcomeSkipped, Detail: "revenue row already exists"}
	}

	commission, net := s.commissionSplit(order)

	createdAt := order.UpdatedAt
	if order.DateCompleted != nil {
		createdAt = *order.DateCompleted
	}

	revenue := &entity.InfluencerRevenue{
		InfluencerID: order.InfluencerID,
		OrderID:      order.ID,
		Amount:       order.TotalAmount,
		Commission:   commission,
		NetAmount:    net,
		Status:       entity.RevenueStatusAvailable,
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
	}
	if err := s.revenueRepo.Create(ctx, revenue); err != nil {
		if isRevenueExists(err) {
			return RevenueOutcome{OrderID: order.ID, Outcome: RevenueOutcomeSkipped, Detail: "revenue row already exists"}
		}
		return RevenueOutcome{OrderID: order.ID, Outcome: RevenueOutcomeError, Detail: err.Error()}
	}

	// Legacy table mirror. The old reporting stack still reads it, so a
	// failed mirror is recorded but does not undo the current-table row.
	outcome := RevenueOutcome{OrderID: order.ID, Outcome: RevenueOutcomeCreated}
	if err := s.revenueRepo.CreateLegacy(ctx, revenue); err != nil {
		outcome.Detail = "legacy mirror failed: " + err.Error()
	}

	return outcome
}
