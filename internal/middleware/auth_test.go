package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dukerupert/contactbook/internal/auth"
	"github.com/dukerupert/contactbook/internal/database"
	"github.com/dukerupert/contactbook/internal/model"
	"github.com/dukerupert/contactbook/internal/store"
)

func setupAuthMiddleware(t *testing.T) (*auth.Gate, *auth.Tokens, *store.SessionStore, *model.Account) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	accounts := store.NewAccountStore(db)
	sessions := store.NewSessionStore(db)
	a, err := accounts.Create(context.Background(), &model.Account{Email: "alice@example.com", PasswordHash: "h"})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	tokens := auth.NewTokens("secret", time.Hour)
	return auth.NewGate(tokens, sessions, accounts), tokens, sessions, a
}

func TestRequireAuthNoHeader(t *testing.T) {
	gate, _, _, _ := setupAuthMiddleware(t)

	handler := RequireAuth(gate, slog.Default())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("should not reach handler")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	if body := strings.TrimSpace(rec.Body.String()); body != `{"message":"Not authorized"}` {
		t.Errorf("body = %s", body)
	}
}

func TestRequireAuthInvalidToken(t *testing.T) {
	gate, _, _, _ := setupAuthMiddleware(t)

	handler := RequireAuth(gate, slog.Default())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("should not reach handler")
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer invalid-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestRequireAuthValidSession(t *testing.T) {
	gate, tokens, sessions, a := setupAuthMiddleware(t)

	sess, _ := tokens.Issue(a.ID)
	if err := sessions.Put(context.Background(), sess); err != nil {
		t.Fatalf("put session: %v", err)
	}

	var got *model.Account
	handler := RequireAuth(gate, slog.Default())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		acc, ok := auth.AccountFromContext(r.Context())
		if !ok {
			t.Fatal("expected account in request context")
		}
		got = acc
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+sess.Token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if got == nil || got.ID != a.ID {
		t.Errorf("account = %v, want %s", got, a.ID)
	}
}

type brokenGate struct{}

func (brokenGate) Resolve(context.Context, string) (*model.Account, error) {
	return nil, errors.New("database is locked")
}

func TestRequireAuthStoreFailure(t *testing.T) {
	handler := RequireAuth(brokenGate{}, slog.Default())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("should not reach handler")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
}
