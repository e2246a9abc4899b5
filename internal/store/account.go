package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/dukerupert/contactbook/internal/common"
	"github.com/dukerupert/contactbook/internal/model"
)

type AccountStore struct {
	db *sql.DB
}

func NewAccountStore(db *sql.DB) *AccountStore {
	return &AccountStore{db: db}
}

func scanAccount(scanner interface{ Scan(...any) error }) (*model.Account, error) {
	var a model.Account
	var subscription string
	var verified int
	var token sql.NullString

	err := scanner.Scan(
		&a.ID, &a.Email, &a.PasswordHash, &subscription, &a.AvatarURL,
		&verified, &token, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.Subscription = model.Subscription(subscription)
	a.Verified = verified != 0
	if token.Valid {
		a.VerificationToken = &token.String
	}
	return &a, nil
}

const accountCols = `id, email, password_hash, subscription, avatar_url, verified, verification_token, created_at, updated_at`

// Create inserts a new account. The ID, subscription and timestamps are filled
// in when empty. A duplicate email yields common.ErrEmailInUse.
func (s *AccountStore) Create(ctx context.Context, a *model.Account) (*model.Account, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Subscription == "" {
		a.Subscription = model.SubscriptionStarter
	}
	now := time.Now().UTC()

	var token sql.NullString
	if a.VerificationToken != nil {
		token = sql.NullString{String: *a.VerificationToken, Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO accounts (`+accountCols+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Email, a.PasswordHash, string(a.Subscription), a.AvatarURL,
		boolInt(a.Verified), token, now, now,
	)
	if isUniqueViolation(err) {
		return nil, common.ErrEmailInUse
	}
	if err != nil {
		return nil, fmt.Errorf("insert account: %w", err)
	}
	return s.GetByID(ctx, a.ID)
}

func (s *AccountStore) GetByID(ctx context.Context, id string) (*model.Account, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+accountCols+` FROM accounts WHERE id = ?`, id)
	a, err := scanAccount(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	return a, nil
}

func (s *AccountStore) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+accountCols+` FROM accounts WHERE email = ?`, email)
	a, err := scanAccount(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get account by email: %w", err)
	}
	return a, nil
}

func (s *AccountStore) GetByVerificationToken(ctx context.Context, token string) (*model.Account, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+accountCols+` FROM accounts WHERE verification_token = ?`, token)
	a, err := scanAccount(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get account by verification token: %w", err)
	}
	return a, nil
}

// MarkVerified sets the verified flag and clears the verification token.
func (s *AccountStore) MarkVerified(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE accounts SET verified = 1, verification_token = NULL, updated_at = ? WHERE id = ?`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("mark verified: %w", err)
	}
	return nil
}

func (s *AccountStore) UpdateSubscription(ctx context.Context, id string, sub model.Subscription) (*model.Account, error) {
	_, err := s.db.ExecContext(ctx,
		`UPDATE accounts SET subscription = ?, updated_at = ? WHERE id = ?`,
		string(sub), time.Now().UTC(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update subscription: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *AccountStore) UpdateAvatar(ctx context.Context, id, avatarURL string) (*model.Account, error) {
	_, err := s.db.ExecContext(ctx,
		`UPDATE accounts SET avatar_url = ?, updated_at = ? WHERE id = ?`,
		avatarURL, time.Now().UTC(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update avatar: %w", err)
	}
	return s.GetByID(ctx, id)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}
