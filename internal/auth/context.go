package auth

import (
	"context"

	"github.com/dukerupert/contactbook/internal/model"
)

type contextKey struct{}

func WithAccount(ctx context.Context, a *model.Account) context.Context {
	return context.WithValue(ctx, contextKey{}, a)
}

func AccountFromContext(ctx context.Context) (*model.Account, bool) {
	a, ok := ctx.Value(contextKey{}).(*model.Account)
	return a, ok && a != nil
}

func AccountID(ctx context.Context) string {
	a, ok := AccountFromContext(ctx)
	if !ok {
		return ""
	}
	return a.ID
}
