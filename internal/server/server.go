package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dukerupert/contactbook/internal/account"
	"github.com/dukerupert/contactbook/internal/auth"
	"github.com/dukerupert/contactbook/internal/handler"
	"github.com/dukerupert/contactbook/internal/metrics"
	"github.com/dukerupert/contactbook/internal/middleware"
	"github.com/dukerupert/contactbook/internal/validation"
	ws "github.com/dukerupert/contactbook/internal/websocket"
)

// SessionStore is the session persistence the server needs: the issuer writes
// sessions, the auth gate reads them and the cleanup task prunes them.
type SessionStore interface {
	account.SessionStore
	auth.SessionGetter
	DeleteExpired(ctx context.Context) (int64, error)
}

// Stores groups one persistence backend (SQLite or MongoDB).
type Stores struct {
	Accounts account.AccountStore
	Sessions SessionStore
	Contacts handler.ContactStore
}

type Config struct {
	SecretKey           string
	TokenTTL            time.Duration
	RequireVerification bool
	AllowedTLDs         []string
	CORSOrigin          string
	// TrustProxy keys rate limits on forwarding headers instead of the peer address.
	TrustProxy bool
	// AvatarDir is served under /avatars/ when avatars are stored locally.
	AvatarDir string
	Mailer    account.Mailer
	Avatars   account.AvatarSaver
	Metrics   *metrics.Metrics
}

type Server struct {
	hub          *ws.Hub
	validator    *validation.Validator
	gate         *auth.Gate
	userH        *handler.UserHandler
	contactH     *handler.ContactHandler
	sessionStore SessionStore
	rateLimiter  *middleware.RateLimiter
	cfg          Config
	logger       *slog.Logger
}

func New(stores Stores, cfg Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))
	v := validation.New(cfg.AllowedTLDs)
	tokens := auth.NewTokens(cfg.SecretKey, cfg.TokenTTL)

	opts := []account.Option{
		account.WithMetrics(cfg.Metrics),
		account.WithLogger(logger.With("component", "account")),
		account.WithRequireVerification(cfg.RequireVerification),
	}
	if cfg.Mailer != nil {
		opts = append(opts, account.WithMailer(cfg.Mailer))
	}
	if cfg.Avatars != nil {
		opts = append(opts, account.WithAvatars(cfg.Avatars))
	}
	accounts := account.NewService(stores.Accounts, stores.Sessions, tokens, opts...)

	return &Server{
		hub:          hub,
		validator:    v,
		gate:         auth.NewGate(tokens, stores.Sessions, stores.Accounts),
		userH:        handler.NewUserHandler(accounts, hub, logger.With("component", "user")),
		contactH:     handler.NewContactHandler(stores.Contacts, v, hub, logger.With("component", "contact")),
		sessionStore: stores.Sessions,
		rateLimiter:  middleware.NewRateLimiter(),
		cfg:          cfg,
		logger:       logger,
	}
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() SessionStore {
	return s.sessionStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()
	authed := middleware.RequireAuth(s.gate, s.logger.With("component", "auth"))

	// Public account routes
	mux.Handle("POST /api/users/signup", s.rateLimited("signup", body[validation.CredentialsRequest](s.validator, http.StatusBadRequest, s.userH.Signup)))
	mux.Handle("POST /api/users/login", s.rateLimited("login", body[validation.CredentialsRequest](s.validator, http.StatusUnauthorized, s.userH.Login)))
	mux.HandleFunc("GET /api/users/verify/{verificationToken}", s.userH.Verify)
	mux.Handle("POST /api/users/verify", s.rateLimited("resend", body[validation.EmailRequest](s.validator, http.StatusBadRequest, s.userH.ResendVerification)))

	// Authenticated account routes
	mux.Handle("GET /api/users/logout", authed(http.HandlerFunc(s.userH.Logout)))
	mux.Handle("GET /api/users/current", authed(http.HandlerFunc(s.userH.Current)))
	mux.Handle("PATCH /api/users", body[validation.SubscriptionRequest](s.validator, http.StatusBadRequest, authed(http.HandlerFunc(s.userH.UpdateSubscription)).ServeHTTP))
	mux.Handle("PATCH /api/users/avatars", authed(http.HandlerFunc(s.userH.UpdateAvatar)))

	// Contact routes: body validation, then the auth gate, then the handler
	mux.Handle("GET /api/contacts", authed(http.HandlerFunc(s.contactH.List)))
	mux.Handle("POST /api/contacts", body[validation.ContactRequest](s.validator, http.StatusBadRequest, authed(http.HandlerFunc(s.contactH.Create)).ServeHTTP))
	mux.Handle("GET /api/contacts/events", authed(ws.HandleWebSocket(s.hub, originPatterns(s.cfg.CORSOrigin))))
	mux.Handle("GET /api/contacts/{id}", authed(http.HandlerFunc(s.contactH.Get)))
	mux.Handle("PUT /api/contacts/{id}", body[validation.ContactRequest](s.validator, http.StatusBadRequest, authed(http.HandlerFunc(s.contactH.Update)).ServeHTTP))
	mux.Handle("PATCH /api/contacts/{id}/favorite", body[validation.FavoriteRequest](s.validator, http.StatusBadRequest, authed(http.HandlerFunc(s.contactH.SetFavorite)).ServeHTTP))
	mux.Handle("DELETE /api/contacts/{id}", authed(http.HandlerFunc(s.contactH.Delete)))

	if s.cfg.AvatarDir != "" {
		mux.Handle("GET /avatars/", http.StripPrefix("/avatars/", http.FileServer(http.Dir(s.cfg.AvatarDir))))
	}
	mux.HandleFunc("GET /health", s.healthHandler)
	if s.cfg.Metrics != nil {
		mux.Handle("GET /metrics", s.cfg.Metrics.Handler())
	}
	mux.HandleFunc("/", s.notFound)

	var h http.Handler = mux
	h = middleware.CORS(s.cfg.CORSOrigin)(h)
	h = middleware.Recover(s.logger.With("component", "recover"))(h)
	return middleware.RequestLogger(s.logger.With("component", "http"), s.cfg.Metrics)(h)
}

func body[T any](v *validation.Validator, failStatus int, next http.HandlerFunc) http.Handler {
	return validation.Body[T](v, failStatus)(next)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	json.NewEncoder(w).Encode(map[string]string{"message": "Not found"})
}

// rateLimited gives each route its own per-IP budget of 10 requests a minute.
func (s *Server) rateLimited(name string, h http.Handler) http.Handler {
	p := middleware.Policy{Name: name, Limit: 10, Window: time.Minute}
	return middleware.RateLimit(s.rateLimiter, p, middleware.ClientIP(s.cfg.TrustProxy))(h)
}

// originPatterns converts the CORS origin setting into host patterns for the
// websocket origin check.
func originPatterns(cors string) []string {
	if cors == "" || cors == "*" {
		return []string{"*"}
	}
	var patterns []string
	for _, o := range strings.Split(cors, ",") {
		o = strings.TrimSpace(o)
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			patterns = append(patterns, u.Host)
		} else if o != "" {
			patterns = append(patterns, o)
		}
	}
	return patterns
}
