package provider

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"
)

func signedWebhookHeader(payload []byte, secret string, ts int64) string {
	signed := fmt.Sprintf("%d.%s", ts, string(payload))
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(signed))
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func TestVerifyStripeSignature(t *testing.T) {
	payload := []byte(`{"id":"evt_1"}`)
	secret := "whsec_test"
	header := signedWebhookHeader(payload, secret, time.Now().Unix())

	if !verifyStripeSignature(payload, header, secret, 300) {
		t.Fatal("expected signature to validate")
	}
	if verifyStripeSignature(payload, header, "wrong-secret", 300) {
		t.Fatal("expected signature with wrong secret to fail")
	}
}

func TestVerifyStripeSignatureRejectsStaleTimestamp(t *testing.T) {
	payload := []byte(`{"id":"evt_1"}`)
	secret := "whsec_test"
	header := signedWebhookHeader(payload, secret, time.Now().Add(-time.Hour).Unix())

	if verifyStripeSignature(payload, header, secret, 300) {
		t.Fatal("expected stale timestamp to fail")
	}
}

func TestVerifyWebhookParsesPayoutFailed(t *testing.T) {
	secret := "whsec_test"
	gateway := NewStripeGateway(StripeConfig{SecretKey: "sk_test", WebhookSecret: secret})

	payload := []byte(`{"id":"evt_1","type":"payout.failed","data":{"object":{"id":"po_1","amount":4500,"failure_message":"account closed"}}}`)
	header := signedWebhookHeader(payload, secret, time.Now().Unix())

	event, err := gateway.VerifyWebhook(context.Background(), payload, header)
	if err != nil {
		t.Fatalf("verify webhook failed: %v", err)
	}
	if event.Type != "payout.failed" {
		t.Fatalf("unexpected event type: %s", event.Type)
	}
	if event.PayoutID != "po_1" || event.AmountCents != 4500 {
		t.Fatalf("unexpected payout fields: %+v", event)
	}
	if event.FailureMessage != "account closed" {
		t.Fatalf("unexpected failure message: %s", event.FailureMessage)
	}
}

func TestVerifyWebhookParsesCheckoutSessionCompleted(t *testing.T) {
	secret := "whsec_test"
	gateway := NewStripeGateway(StripeConfig{SecretKey: "sk_test", WebhookSecret: secret})

	payload := []byte(`{"id":"evt_2","type":"checkout.session.completed","data":{"object":{"id":"cs_1","amount_total":10000}}}`)
	header := signedWebhookHeader(payload, secret, time.Now().Unix())

	event, err := gateway.VerifyWebhook(context.Background(), payload, header)
	if err != nil {
		t.Fatalf("verify webhook failed: %v", err)
	}
	if event.SessionID != "cs_1" || event.AmountCents != 10000 {
		t.Fatalf("unexpected session fields: %+v", event)
	}
}

func TestVerifyWebhookRejectsBadSignature(t *testing.T) {
	gateway := NewStripeGateway(StripeConfig{SecretKey: "sk_test", WebhookSecret: "whsec_test"})

	_, err := gateway.VerifyWebhook(context.Background(), []byte(`{}`), "t=1,v1=deadbeef")
	if err == nil {
		t.Fatal("expected invalid signature error")
	}
}

func TestParseStripeErrorKeepsProviderCode(t *testing.T) {
	err := parseStripeError(400, []byte(`{"error":{"code":"payment_intent_unexpected_state","type":"invalid_request_error","message":"already captured"}}`))
	if !IsStripeCode(err, "payment_intent_unexpected_state") {
		t.Fatalf("expected provider code to survive, got %v", err)
	}
}
