package api

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) error {
	users, err := h.svc.Store.Users.All(r.Context())
	if err != nil {
		return err
	}

	RespondJSON(w, r, http.StatusOK, users)

	return nil
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) error {
	user, err := h.svc.Store.Users.Get(r.Context(), chi.URLParam(r, "userID"))
	if errors.Is(err, sql.ErrNoRows) {
		return NewError(http.StatusNotFound, "User not found")
	}

	if err != nil {
		return err
	}

	RespondJSON(w, r, http.StatusOK, user)

	return nil
}

type SetUserActiveRequest struct {
	IsActive bool `json:"isActive"`
}

func (h *Handler) SetUserActive(w http.ResponseWriter, r *http.Request) error {
	req, err := DecodeJSON[SetUserActiveRequest](r)
	if err != nil {
		return err
	}

	userID := chi.URLParam(r, "userID")

	claims := GetClaims(r.Context())
	if claims.UserID == userID && !req.IsActive {
		return NewError(http.StatusBadRequest, "Cannot disable your own account")
	}

	user, err := h.svc.Store.Users.SetActive(r.Context(), userID, req.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return NewError(http.StatusNotFound, "User not found")
	}

	if err != nil {
		return err
	}

	if !req.IsActive {
		if err := h.svc.Store.RefreshTokens.DeleteForUser(r.Context(), userID); err != nil {
			return err
		}
	}

	RespondJSON(w, r, http.StatusOK, user)

	return nil
}

func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) error {
	userID := chi.URLParam(r, "userID")

	claims := GetClaims(r.Context())
	if claims.UserID == userID {
		return NewError(http.StatusBadRequest, "Cannot delete your own account")
	}

	err := h.svc.Store.Users.Delete(r.Context(), userID)
	if errors.Is(err, sql.ErrNoRows) {
		return NewError(http.StatusNotFound, "User not found")
	}

	if err != nil {
		return err
	}

	RespondJSON(w, r, http.StatusNoContent, nil)

	return nil
}
