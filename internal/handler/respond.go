package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/contactbook/internal/avatar"
	"github.com/dukerupert/contactbook/internal/common"
	"github.com/dukerupert/contactbook/internal/validation"
)

type messageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, messageResponse{Message: msg})
}

// writeError maps domain errors to status codes. notFound is the message used
// for common.ErrNotFound so each resource can name what is missing.
// Unexpected errors surface their message with a 500.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error, notFound string) {
	var ferr *validation.FieldError
	switch {
	case errors.As(err, &ferr):
		writeJSON(w, http.StatusBadRequest, ferr)
	case errors.Is(err, common.ErrEmailInUse):
		writeMessage(w, http.StatusConflict, "Email in use")
	case errors.Is(err, common.ErrUnauthorized), errors.Is(err, common.ErrInvalidToken):
		writeMessage(w, http.StatusUnauthorized, "Not authorized")
	case errors.Is(err, common.ErrNotVerified):
		writeMessage(w, http.StatusForbidden, "Please verify your email before logging in.")
	case errors.Is(err, common.ErrNotFound):
		writeMessage(w, http.StatusNotFound, notFound)
	case errors.Is(err, common.ErrAlreadyVerified):
		writeMessage(w, http.StatusBadRequest, "Verification has already been passed")
	case errors.Is(err, avatar.ErrProcess):
		logger.Error("process avatar", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Failed to process image")
	case errors.Is(err, avatar.ErrStore):
		logger.Error("store avatar", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Failed to move file")
	default:
		logger.Error("request failed", "error", err)
		writeMessage(w, http.StatusInternalServerError, err.Error())
	}
}

func parseIDParam(r *http.Request) string {
	return r.PathValue("id")
}
