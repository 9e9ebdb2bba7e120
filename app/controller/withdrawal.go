package controller

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/collably/ms-go-orders/app/auth"
	"github.com/collably/ms-go-orders/app/mapper"
	"github.com/collably/ms-go-orders/app/provider"
	"github.com/collably/ms-go-orders/app/service"
	"github.com/collably/ms-go-orders/app/types"
)

func (c *OrderController) CreateWithdrawal(ctx echo.Context) error {
	req, err := types.NewCreateWithdrawalRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	result, err := c.orderService.RequestWithdrawal(ctx.Request().Context(), &service.WithdrawalInput{
		InfluencerID:  auth.UserIDFromContext(ctx),
		BankAccountID: req.BankAccountId,
		Amount:        req.Amount,
	})
	if err != nil {
		return c.writeServiceError(ctx, err, "Create withdrawal failed")
	}

	return ctx.JSON(http.StatusOK, &types.WithdrawalResponse{
		Success:      true,
		WithdrawalId: result.WithdrawalID,
		PayoutId:     result.PayoutID,
	})
}

// Bank-account routes act on the caller's own connected account; the
// account id comes from the verified identity, never from the request.

func (c *OrderController) ListBankAccounts(ctx echo.Context) error {
	accounts, err := c.orderService.ListBankAccounts(ctx.Request().Context(), auth.UserIDFromContext(ctx))
	if err != nil {
		return c.writeServiceError(ctx, err, "List bank accounts failed")
	}

	return ctx.JSON(http.StatusOK, &types.BankAccountsResponse{Accounts: mapper.BankAccountsToPayload(accounts)})
}

func (c *OrderController) CreateBankAccount(ctx echo.Context) error {
	req, err := types.NewCreateBankAccountRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	account, err := c.orderService.AddBankAccount(ctx.Request().Context(), &provider.ExternalAccountInput{
		AccountID:     auth.UserIDFromContext(ctx),
		Country:       req.Country,
		Currency:      req.Currency,
		AccountHolder: req.AccountHolder,
		IBAN:          req.Iban,
	})
	if err != nil {
		return c.writeServiceError(ctx, err, "Create bank account failed")
	}

	return ctx.JSON(http.StatusCreated, &types.BankAccountCreatedResponse{AccountId: account.ID})
}

func (c *OrderController) DeleteBankAccount(ctx echo.Context) error {
	externalAccountID := strings.TrimSpace(ctx.Param("accountId"))
	if externalAccountID == "" {
		return c.writeError(ctx, http.StatusBadRequest, "accountId is required")
	}

	err := c.orderService.RemoveBankAccount(ctx.Request().Context(), auth.UserIDFromContext(ctx), externalAccountID)
	if err != nil {
		return c.writeServiceError(ctx, err, "Delete bank account failed")
	}

	return ctx.JSON(http.StatusOK, &types.SuccessResponse{Success: true})
}
