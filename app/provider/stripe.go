package provider

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const stripeAPIBase = "https://api.stripe.com"

type StripeConfig struct {
	SecretKey                 string
	WebhookSecret             string
	SignatureToleranceSeconds int64
	HTTPTimeout               time.Duration
}

type StripeGateway struct {
	cfg    StripeConfig
	client *http.Client
}

func NewStripeGateway(cfg StripeConfig) *StripeGateway {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	tolerance := cfg.SignatureToleranceSeconds
	if tolerance <= 0 {
		tolerance = 300
	}
	cfg.SignatureToleranceSeconds = tolerance

	return &StripeGateway{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, input *CheckoutSessionInput) (*CheckoutSession, error) {
	if strings.TrimSpace(g.cfg.SecretKey) == "" {
		return nil, errors.New("stripe secret key is not configured")
	}

	values := url.Values{}
	values.Set("mode", "payment")
	values.Set("line_items[0][quantity]", "1")
	values.Set("line_items[0][price_data][currency]", strings.ToLower(input.Currency))
	values.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(input.AmountCents, 10))
	values.Set("line_items[0][price_data][product_data][name]", buildProductName(input))
	// Delayed capture: funds are only authorized at checkout and captured
	// once the influencer accepts the order.
	values.Set("payment_intent_data[capture_method]", "manual")
	values.Set("success_url", strings.TrimSpace(input.SuccessURL))
	values.Set("cancel_url", strings.TrimSpace(input.CancelURL))
	values.Set("client_reference_id", input.OrderID)
	for k, v := range input.Metadata {
		values.Set("metadata["+k+"]", v)
	}
	values.Set("metadata[order_id]", input.OrderID)

	body, err := g.postForm(ctx, "/v1/checkout/sessions", values)
	if err != nil {
		return nil, err
	}

	var payload struct {
		ID            string      `json:"id"`
		URL           string      `json:"url"`
		PaymentIntent interface{} `json:"payment_intent"`
		Status        string      `json:"status"`
		PaymentStatus string      `json:"payment_status"`
		AmountTotal   int64       `json:"amount_total"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}

	return &CheckoutSession{
		ID:              strings.TrimSpace(payload.ID),
		URL:             strings.TrimSpace(payload.URL),
		PaymentIntentID: parseStringish(payload.PaymentIntent),
		Status:          payload.Status,
		PaymentStatus:   payload.PaymentStatus,
		AmountCents:     payload.AmountTotal,
	}, nil
}

func (g *StripeGateway) GetCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error) {
	body, err := g.get(ctx, "/v1/checkout/sessions/"+url.PathEscape(sessionID))
	if err != nil {
		return nil, err
	}

	var payload struct {
		ID            string      `json:"id"`
		URL           string      `json:"url"`
		PaymentIntent interface{} `json:"payment_intent"`
		Status        string      `json:"status"`
		PaymentStatus string      `json:"payment_status"`
		AmountTotal   int64       `json:"amount_total"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}

	return &CheckoutSession{
		ID:              strings.TrimSpace(payload.ID),
		URL:             strings.TrimSpace(payload.URL),
		PaymentIntentID: parseStringish(payload.PaymentIntent),
		Status:          payload.Status,
		PaymentStatus:   payload.PaymentStatus,
		AmountCents:     payload.AmountTotal,
	}, nil
}

func (g *StripeGateway) GetPaymentIntent(ctx context.Context, paymentIntentID string) (*PaymentIntent, error) {
	body, err := g.get(ctx, "/v1/payment_intents/"+url.PathEscape(paymentIntentID))
	if err != nil {
		return nil, err
	}
	return parsePaymentIntent(body)
}

func (g *StripeGateway) CapturePaymentIntent(ctx context.Context, paymentIntentID string) (*PaymentIntent, error) {
	body, err := g.postForm(ctx, "/v1/payment_intents/"+url.PathEscape(paymentIntentID)+"/capture", url.Values{})
	if err != nil {
		return nil, err
	}
	return parsePaymentIntent(body)
}

func (g *StripeGateway) CancelPaymentIntent(ctx context.Context, paymentIntentID string) (*PaymentIntent, error) {
	body, err := g.postForm(ctx, "/v1/payment_intents/"+url.PathEscape(paymentIntentID)+"/cancel", url.Values{})
	if err != nil {
		return nil, err
	}
	return parsePaymentIntent(body)
}

func (g *StripeGateway) CreateRefund(ctx context.Context, paymentIntentID string) (*Refund, error) {
	values := url.Values{}
	values.Set("payment_intent", paymentIntentID)

	body, err := g.postForm(ctx, "/v1/refunds", values)
	if err != nil {
		return nil, err
	}

	var payload struct {
		ID     string `json:"id"`
		Status string `json:"status"`
		Amount int64  `json:"amount"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}

	return &Refund{ID: payload.ID, Status: payload.Status, AmountCents: payload.Amount}, nil
}

func (g *StripeGateway) CreatePayout(ctx context.Context, input *PayoutInput) (*Payout, error) {
	values := url.Values{}
	values.Set("amount", strconv.FormatInt(input.AmountCents, 10))
	values.Set("currency", strings.ToLower(input.Currency))
	if strings.TrimSpace(input.Destination) != "" {
		values.Set("destination", input.Destination)
	}
	if strings.TrimSpace(input.StatementDesc) != "" {
		values.Set("statement_descriptor", input.StatementDesc)
	}

	body, err := g.postForm(ctx, "/v1/payouts", values)
	if err != nil {
		return nil, err
	}
	return parsePayout(body)
}

func (g *StripeGateway) RetrievePayout(ctx context.Context, payoutID string) (*Payout, error) {
	body, err := g.get(ctx, "/v1/payouts/"+url.PathEscape(payoutID))
	if err != nil {
		return nil, err
	}
	return parsePayout(body)
}

func (g *StripeGateway) ListExternalAccounts(ctx context.Context, accountID string) ([]*ExternalAccount, error) {
	body, err := g.get(ctx, "/v1/accounts/"+url.PathEscape(accountID)+"/external_accounts?object=bank_account")
	if err != nil {
		return nil, err
	}

	var payload struct {
		Data []struct {
			ID       string `json:"id"`
			BankName string `json:"bank_name"`
			Last4    string `json:"last4"`
			Currency string `json:"currency"`
			Country  string `json:"country"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}

	accounts := make([]*ExternalAccount, 0, len(payload.Data))
	for _, item := range payload.Data {
		accounts = append(accounts, &ExternalAccount{
			ID:       item.ID,
			BankName: item.BankName,
			Last4:    item.Last4,
			Currency: item.Currency,
			Country:  item.Country,
		})
	}

	return accounts, nil
}

func (g *StripeGateway) CreateExternalAccount(ctx context.Context, input *ExternalAccountInput) (*ExternalAccount, error) {
	values := url.Values{}
	values.Set("external_account[object]", "bank_account")
	values.Set("external_account[country]", strings.ToUpper(input.Country))
	values.Set("external_account[currency]", strings.ToLower(input.Currency))
	values.Set("external_account[account_holder_name]", input.AccountHolder)
	values.Set("external_account[account_number]", input.IBAN)

	body, err := g.postForm(ctx, "/v1/accounts/"+url.PathEscape(input.AccountID)+"/external_accounts", values)
	if err != nil {
		return nil, err
	}

	var payload struct {
		ID       string `json:"id"`
		BankName string `json:"bank_name"`
		Last4    string `json:"last4"`
		Currency string `json:"currency"`
		Country  string `json:"country"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}

	return &ExternalAccount{
		ID:       payload.ID,
		BankName: payload.BankName,
		Last4:    payload.Last4,
		Currency: payload.Currency,
		Country:  payload.Country,
	}, nil
}

func (g *StripeGateway) DeleteExternalAccount(ctx context.Context, accountID, externalAccountID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete,
		stripeAPIBase+"/v1/accounts/"+url.PathEscape(accountID)+"/external_accounts/"+url.PathEscape(externalAccountID), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+g.cfg.SecretKey)

	_, err = g.do(req)
	return err
}

func (g *StripeGateway) VerifyWebhook(_ context.Context, payload []byte, signature string) (*WebhookEvent, error) {
	if strings.TrimSpace(g.cfg.WebhookSecret) == "" {
		return nil, errors.New("stripe webhook secret is not configured")
	}
	if !verifyStripeSignature(payload, signature, g.cfg.WebhookSecret, g.cfg.SignatureToleranceSeconds) {
		return nil, errors.New("invalid stripe signature")
	}

	var event struct {
		ID   string `json:"id"`
		Type string `json:"type"`
		Data struct {
			Object json.RawMessage `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, err
	}

	result := &WebhookEvent{
		ID:        strings.TrimSpace(event.ID),
		Type:      event.Type,
		RawObject: event.Data.Object,
	}

	switch event.Type {
	case "payout.paid", "payout.failed", "payout.canceled":
		var object struct {
			ID             string `json:"id"`
			Amount         int64  `json:"amount"`
			FailureMessage string `json:"failure_message"`
		}
		if json.Unmarshal(event.Data.Object, &object) == nil {
			result.PayoutID = strings.TrimSpace(object.ID)
			result.AmountCents = object.Amount
			result.FailureMessage = strings.TrimSpace(object.FailureMessage)
		}
	case "checkout.session.completed":
		var object struct {
			ID          string `json:"id"`
			AmountTotal int64  `json:"amount_total"`
		}
		if json.Unmarshal(event.Data.Object, &object) == nil {
			result.SessionID = strings.TrimSpace(object.ID)
			result.AmountCents = object.AmountTotal
		}
	}

	return result, nil
}

func (g *StripeGateway) postForm(ctx context.Context, path string, values url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, stripeAPIBase+path, strings.NewReader(values.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+g.cfg.SecretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return g.do(req)
}

func (g *StripeGateway) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, stripeAPIBase+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+g.cfg.SecretKey)

	return g.do(req)
}

func (g *StripeGateway) do(req *http.Request) ([]byte, error) {
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, parseStripeError(resp.StatusCode, body)
	}

	return body, nil
}

func parseStripeError(statusCode int, body []byte) error {
	var payload struct {
		Error struct {
			Code    string `json:"code"`
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.Error.Message == "" {
		return &StripeError{
			StatusCode: statusCode,
			Message:    fmt.Sprintf("request failed: status=%d body=%s", statusCode, string(body)),
		}
	}
	return &StripeError{
		StatusCode: statusCode,
		Code:       payload.Error.Code,
		Type:       payload.Error.Type,
		Message:    payload.Error.Message,
	}
}

func parsePaymentIntent(body []byte) (*PaymentIntent, error) {
	var payload struct {
		ID     string `json:"id"`
		Status string `json:"status"`
		Amount int64  `json:"amount"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}
	return &PaymentIntent{ID: payload.ID, Status: payload.Status, AmountCents: payload.Amount}, nil
}

func parsePayout(body []byte) (*Payout, error) {
	var payload struct {
		ID             string `json:"id"`
		Status         string `json:"status"`
		Amount         int64  `json:"amount"`
		FailureMessage string `json:"failure_message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}
	return &Payout{
		ID:             payload.ID,
		Status:         payload.Status,
		AmountCents:    payload.Amount,
		FailureMessage: strings.TrimSpace(payload.FailureMessage),
	}, nil
}

func buildProductName(input *CheckoutSessionInput) string {
	name := strings.TrimSpace(input.Description)
	if name == "" {
		return "commande " + strings.TrimSpace(input.OrderID)
	}
	return name
}

func verifyStripeSignature(payload []byte, signatureHeader string, webhookSecret string, toleranceSeconds int64) bool {
	signatureHeader = strings.TrimSpace(signatureHeader)
	if signatureHeader == "" || strings.TrimSpace(webhookSecret) == "" {
		return false
	}

	parts := strings.Split(signatureHeader, ",")
	var ts string
	v1 := make([]string, 0, 1)
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if strings.HasPrefix(part, "t=") {
			ts = strings.TrimSpace(strings.TrimPrefix(part, "t="))
		}
		if strings.HasPrefix(part, "v1=") {
			v1 = append(v1, strings.TrimSpace(strings.TrimPrefix(part, "v1=")))
		}
	}
	if ts == "" || len(v1) == 0 {
		return false
	}

	tsUnix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return false
	}
	now := time.Now().Unix()
	if now-tsUnix > toleranceSeconds || tsUnix-now > toleranceSeconds {
		return false
	}

	signedPayload := []byte(ts + "." + string(payload))
	mac := hmac.New(sha256.New, []byte(webhookSecret))
	_, _ = mac.Write(signedPayload)
	expected := mac.Sum(nil)

	for _, sig := range v1 {
		candidate, err := hex.DecodeString(sig)
		if err != nil {
			continue
		}
		if hmac.Equal(candidate, expected) {
			return true
		}
	}

	return false
}

func parseStringish(v interface{}) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case map[string]interface{}:
		if raw, ok := t["id"]; ok {
			if s, ok := raw.(string); ok {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}
