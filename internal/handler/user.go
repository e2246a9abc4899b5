package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/contactbook/internal/account"
	"github.com/dukerupert/contactbook/internal/auth"
	"github.com/dukerupert/contactbook/internal/common"
	"github.com/dukerupert/contactbook/internal/model"
	"github.com/dukerupert/contactbook/internal/validation"
	"github.com/dukerupert/contactbook/internal/websocket"
)

const maxAvatarBytes = 5 << 20

type UserHandler struct {
	accounts *account.Service
	hub      *websocket.Hub
	logger   *slog.Logger
}

func NewUserHandler(accounts *account.Service, hub *websocket.Hub, logger *slog.Logger) *UserHandler {
	return &UserHandler{accounts: accounts, hub: hub, logger: logger}
}

type signupResponse struct {
	User    model.PublicUser `json:"user"`
	Message string           `json:"message"`
}

type loginUser struct {
	Email        string             `json:"email"`
	Subscription model.Subscription `json:"subscription"`
}

type loginResponse struct {
	Token string    `json:"token"`
	User  loginUser `json:"user"`
}

type avatarResponse struct {
	AvatarURL string `json:"avatarURL"`
}

// payload returns the body decoded by validation.Body. A missing payload means
// the route was registered without the validation stage.
func payload[T any](w http.ResponseWriter, r *http.Request) (*T, bool) {
	req, ok := validation.FromContext[T](r.Context())
	if !ok {
		writeMessage(w, http.StatusInternalServerError, "request body not validated")
		return nil, false
	}
	return req, true
}

func currentAccount(w http.ResponseWriter, r *http.Request) (*model.Account, bool) {
	a, ok := auth.AccountFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Not authorized")
		return nil, false
	}
	return a, true
}

func (h *UserHandler) Signup(w http.ResponseWriter, r *http.Request) {
	req, ok := payload[validation.CredentialsRequest](w, r)
	if !ok {
		return
	}

	a, err := h.accounts.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, h.logger, err, "User not found")
		return
	}

	writeJSON(w, http.StatusCreated, signupResponse{
		User:    a.Public(),
		Message: "User registered successfully. Please check your email to verify your account.",
	})
}

func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	req, ok := payload[validation.CredentialsRequest](w, r)
	if !ok {
		return
	}

	sess, a, err := h.accounts.Authenticate(r.Context(), req.Email, req.Password)
	if errors.Is(err, common.ErrUnauthorized) {
		writeMessage(w, http.StatusUnauthorized, "Email or password is wrong")
		return
	}
	if err != nil {
		writeError(w, h.logger, err, "User not found")
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Token: sess.Token,
		User:  loginUser{Email: a.Email, Subscription: a.Subscription},
	})
}

func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	a, ok := currentAccount(w, r)
	if !ok {
		return
	}
	if err := h.accounts.EndSession(r.Context(), a.ID); err != nil {
		writeError(w, h.logger, err, "User not found")
		return
	}
	if h.hub != nil {
		h.hub.Disconnect(a.ID)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *UserHandler) Current(w http.ResponseWriter, r *http.Request) {
	a, ok := currentAccount(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, loginUser{Email: a.Email, Subscription: a.Subscription})
}

func (h *UserHandler) UpdateSubscription(w http.ResponseWriter, r *http.Request) {
	req, ok := payload[validation.SubscriptionRequest](w, r)
	if !ok {
		return
	}
	a, ok := currentAccount(w, r)
	if !ok {
		return
	}

	updated, err := h.accounts.UpdateSubscription(r.Context(), a.ID, model.Subscription(req.Subscription))
	if err != nil {
		writeError(w, h.logger, err, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, loginUser{Email: updated.Email, Subscription: updated.Subscription})
}

func (h *UserHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	a, ok := currentAccount(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxAvatarBytes)
	file, header, err := r.FormFile("avatar")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeMessage(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		writeMessage(w, http.StatusBadRequest, "missing required avatar file")
		return
	}
	defer file.Close()

	updated, err := h.accounts.UpdateAvatar(r.Context(), a.ID, header.Filename, file)
	if err != nil {
		writeError(w, h.logger, err, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, avatarResponse{AvatarURL: updated.AvatarURL})
}

func (h *UserHandler) Verify(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("verificationToken")
	if err := h.accounts.Verify(r.Context(), token); err != nil {
		writeError(w, h.logger, err, "User not found")
		return
	}
	writeMessage(w, http.StatusOK, "Verification successful")
}

func (h *UserHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	req, ok := payload[validation.EmailRequest](w, r)
	if !ok {
		return
	}
	if err := h.accounts.ResendVerification(r.Context(), req.Email); err != nil {
		writeError(w, h.logger, err, "User not found")
		return
	}
	writeMessage(w, http.StatusOK, "Verification email sent")
}
