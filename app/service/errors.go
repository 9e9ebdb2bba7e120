package service

import "errors"

var (
	ErrInvalidRequest      = errors.New("invalid request")
	ErrOrderNotFound       = errors.New("order not found")
	ErrNotAuthorized       = errors.New("requester is not a party to this order")
	ErrInvalidStatus       = errors.New("invalid order status")
	ErrPaymentMissing      = errors.New("order has no payment attached")
	ErrWebhookRejected     = errors.New("webhook rejected")
	ErrWithdrawalNotFound  = errors.New("withdrawal not found")
	ErrInsufficientBalance = errors.New("insufficient available balance")
)
