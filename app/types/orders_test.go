package types

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func jsonContext(t *testing.T, method, path, body string) echo.Context {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec)
}

func TestCreateOrderRequestValidate(t *testing.T) {
	ctx := jsonContext(t, http.MethodPost, "/orders",
		`{"merchantId":" merchant-1 ","influencerId":"influencer-1","offerId":"offer-1","totalAmount":"150.00","commissionRate":"12.5"}`)

	req, err := NewCreateOrderRequestFromContext(ctx)
	if err != nil {
		t.Fatalf("bind failed: %v", err)
	}
	if req.MerchantId != "merchant-1" {
		t.Fatalf("expected trimmed merchant id, got %q", req.MerchantId)
	}
	if err := req.Validate(); err != nil {
		t.Fatalf("expected valid request: %v", err)
	}
}

func TestCreateOrderRequestRejectsMissingFields(t *testing.T) {
	cases := []string{
		`{"influencerId":"i","offerId":"o","totalAmount":"10"}`,
		`{"merchantId":"m","offerId":"o","totalAmount":"10"}`,
		`{"merchantId":"m","influencerId":"i","totalAmount":"10"}`,
		`{"merchantId":"m","influencerId":"i","offerId":"o"}`,
		`{"merchantId":"m","influencerId":"i","offerId":"o","totalAmount":"-5"}`,
		`{"merchantId":"m","influencerId":"i","offerId":"o","totalAmount":"10","commissionRate":"150"}`,
	}

	for _, body := range cases {
		ctx := jsonContext(t, http.MethodPost, "/orders", body)
		req, err := NewCreateOrderRequestFromContext(ctx)
		if err != nil {
			t.Fatalf("bind failed for %s: %v", body, err)
		}
		if err := req.Validate(); err == nil {
			t.Fatalf("expected validation error for %s", body)
		}
	}
}

func TestCreateCheckoutSessionRequestRequiresOrderID(t *testing.T) {
	ctx := jsonContext(t, http.MethodPost, "/orders/sessions", `{"description":"collab"}`)

	req, err := NewCreateCheckoutSessionRequestFromContext(ctx)
	if err != nil {
		t.Fatalf("bind failed: %v", err)
	}
	if err := req.Validate(); err == nil {
		t.Fatal("expected validation error for missing orderId")
	}
}

func TestCancelOrderRequestReadsParamAndBody(t *testing.T) {
	ctx := jsonContext(t, http.MethodPost, "/orders/order-7/cancel", `{"reason":" timeout "}`)
	ctx.SetParamNames("id")
	ctx.SetParamValues("order-7")

	req, err := NewCancelOrderRequestFromContext(ctx)
	if err != nil {
		t.Fatalf("bind failed: %v", err)
	}
	if req.Id != "order-7" || req.Reason != "timeout" {
		t.Fatalf("unexpected request: %+v", req)
	}
	if err := req.Validate(); err != nil {
		t.Fatalf("expected valid request: %v", err)
	}
}

func TestCreateWithdrawalRequestValidate(t *testing.T) {
	ctx := jsonContext(t, http.MethodPost, "/withdrawals", `{"bankAccountId":"ba_1","amount":"50.00"}`)

	req, err := NewCreateWithdrawalRequestFromContext(ctx)
	if err != nil {
		t.Fatalf("bind failed: %v", err)
	}
	if err := req.Validate(); err != nil {
		t.Fatalf("expected valid request: %v", err)
	}

	ctx = jsonContext(t, http.MethodPost, "/withdrawals", `{"bankAccountId":"ba_1","amount":"0"}`)
	req, _ = NewCreateWithdrawalRequestFromContext(ctx)
	if err := req.Validate(); err == nil {
		t.Fatal("expected validation error for zero amount")
	}
}

func TestCreateBankAccountRequestNormalizesFields(t *testing.T) {
	ctx := jsonContext(t, http.MethodPost, "/influencers/bank-accounts",
		`{"country":"fr","currency":"EUR","accountHolder":"Jane Doe","iban":"FR14 2004 1010 0505 0001 3M02 606"}`)

	req, err := NewCreateBankAccountRequestFromContext(ctx)
	if err != nil {
		t.Fatalf("bind failed: %v", err)
	}
	if req.Country != "FR" || req.Currency != "eur" {
		t.Fatalf("expected normalized country/currency, got %q %q", req.Country, req.Currency)
	}
	if req.Iban != "FR1420041010050500013M02606" {
		t.Fatalf("expected iban without spaces, got %q", req.Iban)
	}
	if err := req.Validate(); err != nil {
		t.Fatalf("expected valid request: %v", err)
	}
}
