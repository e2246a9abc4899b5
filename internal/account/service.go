// Package account implements signup, login, logout, email verification and
// profile updates. Login is the only place sessions are issued.
package account

import (
	"context"
	"crypto/md5"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/dukerupert/contactbook/internal/auth"
	"github.com/dukerupert/contactbook/internal/common"
	"github.com/dukerupert/contactbook/internal/metrics"
	"github.com/dukerupert/contactbook/internal/model"
)

type AccountStore interface {
	Create(ctx context.Context, a *model.Account) (*model.Account, error)
	GetByID(ctx context.Context, id string) (*model.Account, error)
	GetByEmail(ctx context.Context, email string) (*model.Account, error)
	GetByVerificationToken(ctx context.Context, token string) (*model.Account, error)
	MarkVerified(ctx context.Context, id string) error
	UpdateSubscription(ctx context.Context, id string, sub model.Subscription) (*model.Account, error)
	UpdateAvatar(ctx context.Context, id, avatarURL string) (*model.Account, error)
}

type SessionStore interface {
	Put(ctx context.Context, sess model.Session) error
	DeleteByAccountID(ctx context.Context, accountID string) error
}

type Mailer interface {
	Configured() bool
	VerificationLink(token string) string
	SendVerification(ctx context.Context, toEmail, token string) error
	SendVerificationReminder(ctx context.Context, toEmail, token string) error
}

type AvatarSaver interface {
	Save(ctx context.Context, accountID, filename string, src io.Reader) (string, error)
}

// dummyHash keeps the unknown-email path as slow as a real password check.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("contactbook-timing-pad"), bcrypt.DefaultCost)

type Service struct {
	accounts            AccountStore
	sessions            SessionStore
	tokens              *auth.Tokens
	mailer              Mailer
	avatars             AvatarSaver
	metrics             *metrics.Metrics
	logger              *slog.Logger
	requireVerification bool
	bcryptCost          int
}

type Option func(*Service)

func WithMailer(m Mailer) Option {
	return func(s *Service) { s.mailer = m }
}

func WithAvatars(a AvatarSaver) Option {
	return func(s *Service) { s.avatars = a }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithRequireVerification controls whether unverified accounts may log in.
func WithRequireVerification(required bool) Option {
	return func(s *Service) { s.requireVerification = required }
}

// WithBcryptCost overrides bcrypt.DefaultCost. Tests use bcrypt.MinCost.
func WithBcryptCost(cost int) Option {
	return func(s *Service) { s.bcryptCost = cost }
}

func NewService(accounts AccountStore, sessions SessionStore, tokens *auth.Tokens, opts ...Option) *Service {
	s := &Service{
		accounts:            accounts,
		sessions:            sessions,
		tokens:              tokens,
		logger:              slog.Default(),
		requireVerification: true,
		bcryptCost:          bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates an unverified account and sends its verification email.
// The email check is not atomic with the insert; the store's unique index
// turns a lost race into common.ErrEmailInUse as well.
func (s *Service) Register(ctx context.Context, email, password string) (*model.Account, error) {
	existing, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, common.ErrEmailInUse
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	token := uuid.NewString()

	a, err := s.accounts.Create(ctx, &model.Account{
		Email:             email,
		PasswordHash:      string(hash),
		Subscription:      model.SubscriptionStarter,
		AvatarURL:         gravatarURL(email),
		VerificationToken: &token,
	})
	if err != nil {
		return nil, err
	}
	s.metrics.Signup()
	s.logger.Info("account registered", "account_id", a.ID)

	if err := s.sendVerification(ctx, a.Email, token, false); err != nil {
		return nil, err
	}
	return a, nil
}

// sendVerification mails the link, or logs it when no mailer is configured so
// local setups can still verify. reminder selects the resend copy.
func (s *Service) sendVerification(ctx context.Context, email, token string, reminder bool) error {
	if s.mailer == nil || !s.mailer.Configured() {
		link := "/api/users/verify/" + token
		if s.mailer != nil {
			link = s.mailer.VerificationLink(token)
		}
		s.logger.Warn("email not configured, verification link not sent", "email", email, "link", link)
		return nil
	}
	send := s.mailer.SendVerification
	if reminder {
		send = s.mailer.SendVerificationReminder
	}
	if err := send(ctx, email, token); err != nil {
		return fmt.Errorf("send verification email: %w", err)
	}
	return nil
}

// Authenticate checks credentials and issues a new session, replacing any
// previous one. Unverified accounts are refused before the password is checked.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*model.Session, *model.Account, error) {
	a, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		return nil, nil, err
	}
	if a == nil {
		bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		s.metrics.AuthAttempt(metrics.OutcomeBadCreds)
		return nil, nil, common.ErrUnauthorized
	}
	if s.requireVerification && !a.Verified {
		s.metrics.AuthAttempt(metrics.OutcomeUnverified)
		return nil, nil, common.ErrNotVerified
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)); err != nil {
		s.metrics.AuthAttempt(metrics.OutcomeBadCreds)
		return nil, nil, common.ErrUnauthorized
	}

	sess, err := s.tokens.Issue(a.ID)
	if err != nil {
		return nil, nil, err
	}
	if err := s.sessions.Put(ctx, sess); err != nil {
		return nil, nil, err
	}
	s.metrics.AuthAttempt(metrics.OutcomeSuccess)
	s.metrics.SessionIssued()
	s.logger.Info("session issued", "account_id", a.ID)
	return &sess, a, nil
}

// EndSession revokes the account's session. It succeeds when there is none.
func (s *Service) EndSession(ctx context.Context, accountID string) error {
	if err := s.sessions.DeleteByAccountID(ctx, accountID); err != nil {
		return err
	}
	s.logger.Info("session ended", "account_id", accountID)
	return nil
}

// Verify marks the account owning token as verified. The token is single use.
func (s *Service) Verify(ctx context.Context, token string) error {
	a, err := s.accounts.GetByVerificationToken(ctx, token)
	if err != nil {
		return err
	}
	if a == nil {
		return common.ErrNotFound
	}
	if err := s.accounts.MarkVerified(ctx, a.ID); err != nil {
		return err
	}
	s.logger.Info("account verified", "account_id", a.ID)
	return nil
}

// ResendVerification sends the pending verification link again.
func (s *Service) ResendVerification(ctx context.Context, email string) error {
	a, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if a == nil {
		return common.ErrNotFound
	}
	if a.Verified || a.VerificationToken == nil {
		return common.ErrAlreadyVerified
	}
	return s.sendVerification(ctx, a.Email, *a.VerificationToken, true)
}

func (s *Service) UpdateSubscription(ctx context.Context, accountID string, sub model.Subscription) (*model.Account, error) {
	if !sub.Valid() {
		return nil, fmt.Errorf("unknown subscription %q", sub)
	}
	a, err := s.accounts.UpdateSubscription(ctx, accountID, sub)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, common.ErrNotFound
	}
	return a, nil
}

// UpdateAvatar processes and stores the uploaded image and records its URL.
func (s *Service) UpdateAvatar(ctx context.Context, accountID, filename string, src io.Reader) (*model.Account, error) {
	if s.avatars == nil {
		return nil, errors.New("avatar storage not configured")
	}
	url, err := s.avatars.Save(ctx, accountID, filename, src)
	if err != nil {
		return nil, err
	}
	a, err := s.accounts.UpdateAvatar(ctx, accountID, url)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, common.ErrNotFound
	}
	return a, nil
}

func gravatarURL(email string) string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email))))
	return fmt.Sprintf("https://www.gravatar.com/avatar/%x?d=identicon", sum)
}
