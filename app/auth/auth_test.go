package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

func TestClientVerify(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"userId":"user-1","role":"influencer","active":true}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 2*time.Second)

	identity, err := client.Verify(context.Background(), "good-token")
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if identity.UserID != "user-1" || identity.Role != "influencer" {
		t.Fatalf("unexpected identity: %+v", identity)
	}

	if _, err := client.Verify(context.Background(), "bad-token"); err != ErrTokenInvalid {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestClientVerifyRejectsInactive(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"userId":"user-1","active":false}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 2*time.Second)
	if _, err := client.Verify(context.Background(), "some-token"); err != ErrTokenInvalid {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

type staticVerifier struct {
	identity *Identity
	err      error
}

func (v *staticVerifier) Verify(_ context.Context, _ string) (*Identity, error) {
	return v.identity, v.err
}

func TestRequireUserStoresIdentity(t *testing.T) {
	middleware := NewEchoAuthMiddleware(&staticVerifier{
		identity: &Identity{UserID: "user-9", Active: true},
	})

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/withdrawals", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer token")
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)

	var seenUserID string
	handler := middleware.RequireUser()(func(ctx echo.Context) error {
		seenUserID = UserIDFromContext(ctx)
		return ctx.NoContent(http.StatusOK)
	})

	if err := handler(ctx); err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if seenUserID != "user-9" {
		t.Fatalf("expected user id from context, got %q", seenUserID)
	}
}

func TestRequireUserRejectsMissingToken(t *testing.T) {
	middleware := NewEchoAuthMiddleware(&staticVerifier{err: ErrTokenInvalid})

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/withdrawals", nil)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)

	handler := middleware.RequireUser()(func(ctx echo.Context) error {
		return ctx.NoContent(http.StatusOK)
	})

	err := handler(ctx)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
}
