package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/contactbook/internal/auth"
	"github.com/dukerupert/contactbook/internal/common"
	"github.com/dukerupert/contactbook/internal/model"
)

// Resolver maps an Authorization header to the account that owns it.
type Resolver interface {
	Resolve(ctx context.Context, header string) (*model.Account, error)
}

// RequireAuth resolves the bearer token and attaches the account to the
// request context. Credential problems yield 401; store failures yield 500.
func RequireAuth(gate Resolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			account, err := gate.Resolve(r.Context(), r.Header.Get("Authorization"))
			if errors.Is(err, common.ErrUnauthorized) {
				writeMessage(w, http.StatusUnauthorized, "Not authorized")
				return
			}
			if err != nil {
				logger.Error("resolve session", "error", err)
				writeMessage(w, http.StatusInternalServerError, err.Error())
				return
			}

			ctx := auth.WithAccount(r.Context(), account)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"message": msg})
}
