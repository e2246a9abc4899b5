package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/dukerupert/contactbook/internal/account"
	"github.com/dukerupert/contactbook/internal/auth"
	"github.com/dukerupert/contactbook/internal/database"
	"github.com/dukerupert/contactbook/internal/model"
	"github.com/dukerupert/contactbook/internal/store"
	"github.com/dukerupert/contactbook/internal/validation"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type testEnv struct {
	accounts *store.AccountStore
	sessions *store.SessionStore
	contacts *store.ContactStore
	service  *account.Service
	v        *validation.Validator
}

func setupEnv(t *testing.T, opts ...account.Option) testEnv {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	env := testEnv{
		accounts: store.NewAccountStore(db),
		sessions: store.NewSessionStore(db),
		contacts: store.NewContactStore(db),
		v:        validation.New([]string{"com", "net"}),
	}
	opts = append([]account.Option{account.WithBcryptCost(bcrypt.MinCost), account.WithLogger(discard)}, opts...)
	env.service = account.NewService(env.accounts, env.sessions, auth.NewTokens("test-secret", time.Hour), opts...)
	return env
}

func (e testEnv) createAccount(t *testing.T, email string) *model.Account {
	t.Helper()
	a, err := e.accounts.Create(context.Background(), &model.Account{
		Email:        email,
		PasswordHash: "hash",
		Subscription: model.SubscriptionStarter,
	})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	return a
}

// serve runs h behind the validation stage for T (when withBody) and with a
// attached to the request context (when non-nil).
func serve[T any](t *testing.T, v *validation.Validator, h http.HandlerFunc, req *http.Request, a *model.Account, withBody bool) *httptest.ResponseRecorder {
	t.Helper()
	var next http.Handler = h
	if withBody {
		next = validation.Body[T](v, http.StatusBadRequest)(next)
	}
	if a != nil {
		req = req.WithContext(auth.WithAccount(req.Context(), a))
	}
	rec := httptest.NewRecorder()
	next.ServeHTTP(rec, req)
	return rec
}

func jsonRequest(method, target string, body any) *http.Request {
	var buf bytes.Buffer
	if s, ok := body.(string); ok {
		buf.WriteString(s)
	} else if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode message: %v", err)
	}
	return body.Message
}
