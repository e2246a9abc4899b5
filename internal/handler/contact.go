package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/dukerupert/contactbook/internal/common"
	"github.com/dukerupert/contactbook/internal/model"
	"github.com/dukerupert/contactbook/internal/validation"
	"github.com/dukerupert/contactbook/internal/websocket"
)

// ContactStore is satisfied by both store.ContactStore and docstore.ContactStore.
// Every method is scoped to ownerID; a record of another owner reads as missing.
type ContactStore interface {
	Create(ctx context.Context, ownerID string, in model.ContactInput) (*model.Contact, error)
	GetByID(ctx context.Context, ownerID, id string) (*model.Contact, error)
	List(ctx context.Context, ownerID string, f model.ContactFilter) ([]model.Contact, error)
	Update(ctx context.Context, ownerID, id string, in model.ContactInput) (*model.Contact, error)
	SetFavorite(ctx context.Context, ownerID, id string, favorite bool) (*model.Contact, error)
	Delete(ctx context.Context, ownerID, id string) (bool, error)
}

const contactNotFound = "Contact not found"

type ContactHandler struct {
	store     ContactStore
	validator *validation.Validator
	hub       *websocket.Hub
	logger    *slog.Logger
}

func NewContactHandler(s ContactStore, v *validation.Validator, hub *websocket.Hub, logger *slog.Logger) *ContactHandler {
	return &ContactHandler{store: s, validator: v, hub: hub, logger: logger}
}

func (h *ContactHandler) broadcast(accountID string, msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(accountID, msg)
	}
}

func (h *ContactHandler) List(w http.ResponseWriter, r *http.Request) {
	a, ok := currentAccount(w, r)
	if !ok {
		return
	}

	filter, ferr := h.validator.ContactFilter(r.URL.Query())
	if ferr != nil {
		writeJSON(w, http.StatusBadRequest, ferr)
		return
	}

	contacts, err := h.store.List(r.Context(), a.ID, filter)
	if err != nil {
		writeError(w, h.logger, err, contactNotFound)
		return
	}
	if contacts == nil {
		contacts = []model.Contact{}
	}
	writeJSON(w, http.StatusOK, contacts)
}

func (h *ContactHandler) Get(w http.ResponseWriter, r *http.Request) {
	a, ok := currentAccount(w, r)
	if !ok {
		return
	}

	contact, err := h.store.GetByID(r.Context(), a.ID, parseIDParam(r))
	if err != nil {
		writeError(w, h.logger, err, contactNotFound)
		return
	}
	if contact == nil {
		writeMessage(w, http.StatusNotFound, contactNotFound)
		return
	}
	writeJSON(w, http.StatusOK, contact)
}

func (h *ContactHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, ok := payload[validation.ContactRequest](w, r)
	if !ok {
		return
	}
	a, ok := currentAccount(w, r)
	if !ok {
		return
	}

	contact, err := h.store.Create(r.Context(), a.ID, req.Input())
	if err != nil {
		writeError(w, h.logger, err, contactNotFound)
		return
	}

	h.broadcast(a.ID, websocket.NewMessage("contact", "created", contact.ID, nil))
	writeJSON(w, http.StatusCreated, contact)
}

func (h *ContactHandler) Update(w http.ResponseWriter, r *http.Request) {
	req, ok := payload[validation.ContactRequest](w, r)
	if !ok {
		return
	}
	a, ok := currentAccount(w, r)
	if !ok {
		return
	}

	contact, err := h.store.Update(r.Context(), a.ID, parseIDParam(r), req.Input())
	if err != nil {
		writeError(w, h.logger, err, contactNotFound)
		return
	}
	if contact == nil {
		writeMessage(w, http.StatusNotFound, contactNotFound)
		return
	}

	h.broadcast(a.ID, websocket.NewMessage("contact", "updated", contact.ID, nil))
	writeJSON(w, http.StatusOK, contact)
}

func (h *ContactHandler) SetFavorite(w http.ResponseWriter, r *http.Request) {
	req, ok := payload[validation.FavoriteRequest](w, r)
	if !ok {
		return
	}
	a, ok := currentAccount(w, r)
	if !ok {
		return
	}

	contact, err := h.store.SetFavorite(r.Context(), a.ID, parseIDParam(r), *req.Favorite)
	if err != nil {
		writeError(w, h.logger, err, contactNotFound)
		return
	}
	if contact == nil {
		writeMessage(w, http.StatusNotFound, contactNotFound)
		return
	}

	h.broadcast(a.ID, websocket.NewMessage("contact", "favorited", contact.ID, map[string]any{
		"favorite": contact.Favorite,
	}))
	writeJSON(w, http.StatusOK, contact)
}

func (h *ContactHandler) Delete(w http.ResponseWriter, r *http.Request) {
	a, ok := currentAccount(w, r)
	if !ok {
		return
	}

	id := parseIDParam(r)
	deleted, err := h.store.Delete(r.Context(), a.ID, id)
	if err != nil {
		writeError(w, h.logger, err, contactNotFound)
		return
	}
	if !deleted {
		writeError(w, h.logger, common.ErrNotFound, contactNotFound)
		return
	}

	h.broadcast(a.ID, websocket.NewMessage("contact", "deleted", id, nil))
	writeMessage(w, http.StatusOK, "Contact deleted")
}
