package mapper

import (
	"time"

	"github.com/collably/ms-go-orders/app/entity"
	"github.com/collably/ms-go-orders/app/provider"
	"github.com/collably/ms-go-orders/app/service"
	"github.com/collably/ms-go-orders/app/types"
)

func OrderToPayload(order *entity.Order) *types.OrderPayload {
	if order == nil {
		return nil
	}

	payload := &types.OrderPayload{
		Id:                order.ID,
		MerchantId:        order.MerchantID,
		InfluencerId:      order.InfluencerID,
		OfferId:           order.OfferID,
		TotalAmount:       order.TotalAmount.StringFixed(2),
		CommissionRate:    order.CommissionRate.String(),
		Status:            string(order.Status),
		CheckoutSessionId: order.CheckoutSessionID,
		PaymentIntentId:   order.PaymentIntentID,
		PaymentCaptured:   order.PaymentCaptured,
		CancelReason:      order.CancelReason,
		CreatedAt:         order.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:         order.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if order.NetAmount.Valid {
		net := order.NetAmount.Decimal.StringFixed(2)
		payload.NetAmount = &net
	}

	return payload
}

func RevenueReportToResponse(report *service.RevenueBatchReport) *types.GenerateRevenuesResponse {
	response := &types.GenerateRevenuesResponse{
		Success:     true,
		Processed:   report.Processed,
		TotalOrders: report.TotalOrders,
		Results:     make([]types.RevenueOutcomePayload, 0, len(report.Results)),
		Errors:      make([]string, 0),
	}
	for _, result := range report.Results {
		response.Results = append(response.Results, types.RevenueOutcomePayload{
			OrderId: result.OrderID,
			Outcome: result.Outcome,
			Detail:  result.Detail,
		})
		if result.Outcome == service.RevenueOutcomeError {
			response.Errors = append(response.Errors, result.OrderID+": "+result.Detail)
		}
	}

	return response
}

func BankAccountsToPayload(accounts []*provider.ExternalAccount) []types.BankAccountPayload {
	payloads := make([]types.BankAccountPayload, 0, len(accounts))
	for _, account := range accounts {
		if account == nil {
			continue
		}
		payloads = append(payloads, types.BankAccountPayload{
			Id:       account.ID,
			BankName: account.BankName,
			Last4:    account.Last4,
			Currency: account.Currency,
			Country:  account.Country,
		})
	}
	return payloads
}
