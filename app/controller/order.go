package controller

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/collably/ms-go-orders/app/auth"
	"github.com/collably/ms-go-orders/app/factory"
	"github.com/collably/ms-go-orders/app/mapper"
	"github.com/collably/ms-go-orders/app/service"
	"github.com/collably/ms-go-orders/app/types"
)

type OrderController struct {
	orderService *service.OrderService
	logger       logrus.FieldLogger
}

func NewOrderController(orderService *service.OrderService) *OrderController {
	return &OrderController{
		orderService: orderService,
		logger:       factory.NewModuleLogger("orders-controller"),
	}
}

func (c *OrderController) Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, &types.HealthResponse{Status: "ok"})
}

func (c *OrderController) CreateOrder(ctx echo.Context) error {
	req, err := types.NewCreateOrderRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	order, err := c.orderService.CreateOrder(ctx.Request().Context(), &service.CreateOrderInput{
		MerchantID:     req.MerchantId,
		InfluencerID:   req.InfluencerId,
		OfferID:        req.OfferId,
		TotalAmount:    req.TotalAmount,
		CommissionRate: req.CommissionRate,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidRequest) {
			return c.writeError(ctx, http.StatusBadRequest, err.Error())
		}
		c.logger.WithError(err).Error("Create order failed")
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	return ctx.JSON(http.StatusCreated, &types.OrderEnvelopeResponse{Order: mapper.OrderToPayload(order)})
}

func (c *OrderController) CreateCheckoutSession(ctx echo.Context) error {
	req, err := types.NewCreateCheckoutSessionRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	result, err := c.orderService.CreateCheckoutSession(ctx.Request().Context(), &service.CheckoutSessionInput{
		OrderID:     req.OrderId,
		Description: req.Description,
		SuccessURL:  req.SuccessUrl,
		CancelURL:   req.CancelUrl,
	})
	if err != nil {
		return c.writeServiceError(ctx, err, "Create checkout session failed")
	}

	return ctx.JSON(http.StatusOK, &types.CheckoutSessionResponse{Url: result.URL, SessionId: result.SessionID})
}

func (c *OrderController) CapturePayment(ctx echo.Context) error {
	req, err := types.NewOrderIDRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	result, err := c.orderService.CapturePayment(ctx.Request().Context(), req.Id, auth.UserIDFromContext(ctx))
	if err != nil {
		return c.writeServiceError(ctx, err, "Capture payment failed")
	}

	return ctx.JSON(http.StatusOK, &types.CaptureResponse{Success: true, PaymentIntentId: result.PaymentIntentID})
}

func (c *OrderController) CancelPayment(ctx echo.Context) error {
	req, err := types.NewCancelOrderRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	result, err := c.orderService.CancelPayment(ctx.Request().Context(), &service.CancelInput{
		OrderID:     req.Id,
		RequesterID: auth.UserIDFromContext(ctx),
		Reason:      req.Reason,
	})
	if err != nil {
		return c.writeServiceError(ctx, err, "Cancel payment failed")
	}

	return ctx.JSON(http.StatusOK, &types.CancelResponse{
		Success:               true,
		CanceledPaymentIntent: result.CanceledPaymentIntentID,
		NewStatus:             string(result.Status),
	})
}

func (c *OrderController) CompleteOrder(ctx echo.Context) error {
	req, err := types.NewOrderIDRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	_, err = c.orderService.CompleteOrderAndPay(ctx.Request().Context(), req.Id, auth.UserIDFromContext(ctx))
	if err != nil {
		return c.writeServiceError(ctx, err, "Complete order failed")
	}

	return ctx.JSON(http.StatusOK, &types.CompleteResponse{Success: true, Message: "Order completed"})
}

func (c *OrderController) CompleteOrderPayment(ctx echo.Context) error {
	req, err := types.NewOrderIDRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	result, err := c.orderService.CompleteOrderPayment(ctx.Request().Context(), req.Id)
	if err != nil {
		return c.writeServiceError(ctx, err, "Complete order payment failed")
	}

	return ctx.JSON(http.StatusOK, &types.CompletePaymentResponse{
		Success:          true,
		PlatformFee:      result.PlatformFee.StringFixed(2),
		InfluencerAmount: result.InfluencerNet.StringFixed(2),
	})
}

func (c *OrderController) GenerateMissingRevenues(ctx echo.Context) error {
	report, err := c.orderService.GenerateMissingRevenues(ctx.Request().Context())
	if err != nil {
		c.logger.WithError(err).Error("Generate missing revenues failed")
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	return ctx.JSON(http.StatusOK, mapper.RevenueReportToResponse(report))
}

func (c *OrderController) RecoverPayments(ctx echo.Context) error {
	report, err := c.orderService.RecoverPayments(ctx.Request().Context())
	if err != nil {
		c.logger.WithError(err).Error("Recover payments failed")
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	return ctx.JSON(http.StatusOK, &types.RecoverPaymentsResponse{
		Success:              true,
		RecoveredOrders:      report.RecoveredOrders,
		UnprocessedLogs:      report.UnprocessedLogs,
		OrdersWithoutWebhook: report.OrdersWithoutWebhook,
	})
}

// HandleStripeWebhook reads the raw body before any binding so the HMAC
// check runs over exactly what was sent.
func (c *OrderController) HandleStripeWebhook(ctx echo.Context) error {
	payload, err := io.ReadAll(io.LimitReader(ctx.Request().Body, 1<<20))
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "unreadable body")
	}
	signature := ctx.Request().Header.Get("Stripe-Signature")

	if err := c.orderService.HandleStripeWebhook(ctx.Request().Context(), payload, signature); err != nil {
		if errors.Is(err, service.ErrWebhookRejected) {
			return c.writeError(ctx, http.StatusBadRequest, "webhook rejected")
		}
		c.logger.WithError(err).Error("Handle stripe webhook failed")
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	return ctx.JSON(http.StatusOK, &types.WebhookAckResponse{Received: true})
}

func (c *OrderController) writeServiceError(ctx echo.Context, err error, logMessage string) error {
	switch {
	case errors.Is(err, service.ErrOrderNotFound):
		return c.writeError(ctx, http.StatusNotFound, "order not found")
	case errors.Is(err, service.ErrNotAuthorized):
		return c.writeError(ctx, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrInvalidRequest),
		errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrPaymentMissing),
		errors.Is(err, service.ErrInsufficientBalance):
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	default:
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error(logMessage)
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}
}

func (c *OrderController) writeError(ctx echo.Context, statusCode int, message string) error {
	return ctx.JSON(statusCode, &types.ErrorResponse{Error: message})
}
