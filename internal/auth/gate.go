package auth

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"
	"time"

	"github.com/dukerupert/contactbook/internal/common"
	"github.com/dukerupert/contactbook/internal/model"
)

type SessionGetter interface {
	GetByAccountID(ctx context.Context, accountID string) (*model.Session, error)
}

type AccountGetter interface {
	GetByID(ctx context.Context, id string) (*model.Account, error)
}

// Gate maps an Authorization header back to the account that owns the
// presented token. A token is only accepted while it is the account's current
// session, so logging in again or logging out revokes earlier tokens.
type Gate struct {
	tokens   *Tokens
	sessions SessionGetter
	accounts AccountGetter
	now      func() time.Time
}

func NewGate(tokens *Tokens, sessions SessionGetter, accounts AccountGetter) *Gate {
	return &Gate{tokens: tokens, sessions: sessions, accounts: accounts, now: time.Now}
}

// Resolve returns common.ErrUnauthorized for any credential problem. Other
// errors come from the stores.
func (g *Gate) Resolve(ctx context.Context, header string) (*model.Account, error) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || scheme != "Bearer" || token == "" {
		return nil, common.ErrUnauthorized
	}

	accountID, err := g.tokens.Parse(token)
	if err != nil {
		return nil, common.ErrUnauthorized
	}

	sess, err := g.sessions.GetByAccountID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if sess == nil || sess.Expired(g.now()) {
		return nil, common.ErrUnauthorized
	}
	if subtle.ConstantTimeCompare([]byte(sess.Token), []byte(token)) != 1 {
		return nil, common.ErrUnauthorized
	}

	account, err := g.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}
	if account == nil {
		return nil, common.ErrUnauthorized
	}
	return account, nil
}
