package api

import (
	"net/http"
	"strings"
	"time"

	"smartfarm-backend/backend/internal/auth"
	"smartfarm-backend/backend/internal/models"
)

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone,omitempty"`
	Address  string `json:"address,omitempty"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type TokenResponse struct {
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
	User         models.User `json:"user"`
}

func (r RegisterRequest) validate() map[string]string {
	fieldErrors := make(map[string]string)

	if name := strings.TrimSpace(r.Username); len(name) < 3 || len(name) > 30 {
		fieldErrors["username"] = "username must be between 3 and 30 characters"
	}

	if !strings.Contains(r.Email, "@") {
		fieldErrors["email"] = "a valid email is required"
	}

	if len(r.Password) < 6 {
		fieldErrors["password"] = "password must be at least 6 characters"
	}

	return fieldErrors
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) error {
	req, err := DecodeJSON[RegisterRequest](r)
	if err != nil {
		return err
	}

	if fieldErrors := req.validate(); len(fieldErrors) > 0 {
		return NewValidationError(fieldErrors)
	}

	ctx := r.Context()

	if existing, err := h.svc.Store.Users.ByUsername(ctx, req.Username); err != nil {
		return err
	} else if existing != nil {
		return NewError(http.StatusConflict, "Username already taken")
	}

	if existing, err := h.svc.Store.Users.ByEmail(ctx, req.Email); err != nil {
		return err
	} else if existing != nil {
		return NewError(http.StatusConflict, "Email already registered")
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return err
	}

	// The first account becomes the administrator.
	count, err := h.svc.Store.Users.Count(ctx)
	if err != nil {
		return err
	}

	role := models.RoleUser
	if count == 0 {
		role = models.RoleAdmin
	}

	user, err := h.svc.Store.Users.Create(ctx, models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		Phone:        req.Phone,
		Address:      req.Address,
		Role:         role,
		IsActive:     true,
	})
	if err != nil {
		return err
	}

	return h.issueTokens(w, r, user)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) error {
	req, err := DecodeJSON[LoginRequest](r)
	if err != nil {
		return err
	}

	user, err := h.svc.Store.Users.ByUsername(r.Context(), req.Username)
	if err != nil {
		return err
	}

	// Same response for unknown user and bad password.
	if user == nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
		return NewError(http.StatusUnauthorized, "Invalid username or password")
	}

	if !user.IsActive {
		return NewError(http.StatusForbidden, "Account is disabled")
	}

	return h.issueTokens(w, r, *user)
}

func (h *Handler) issueTokens(w http.ResponseWriter, r *http.Request, user models.User) error {
	accessToken, err := h.svc.Auth.IssueAccessToken(user)
	if err != nil {
		return err
	}

	refreshToken, err := auth.NewRefreshToken()
	if err != nil {
		return err
	}

	expiresAt := time.Now().Add(auth.RefreshTokenTTL)
	if _, err := h.svc.Store.RefreshTokens.Create(r.Context(), refreshToken, user.ID, expiresAt); err != nil {
		return err
	}

	RespondJSON(w, r, http.StatusOK, TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user,
	})

	return nil
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) error {
	req, err := DecodeJSON[RefreshRequest](r)
	if err != nil {
		return err
	}

	ctx := r.Context()

	stored, err := h.svc.Store.RefreshTokens.Get(ctx, req.RefreshToken)
	if err != nil {
		return err
	}

	if stored == nil || time.Now().After(stored.ExpiresAt) {
		return NewError(http.StatusUnauthorized, "Invalid or expired refresh token")
	}

	user, err := h.svc.Store.Users.Get(ctx, stored.UserID)
	if err != nil {
		return err
	}

	if !user.IsActive {
		return NewError(http.StatusForbidden, "Account is disabled")
	}

	// Rotate: the presented token is consumed either way.
	if err := h.svc.Store.RefreshTokens.Delete(ctx, req.RefreshToken); err != nil {
		return err
	}

	return h.issueTokens(w, r, user)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) error {
	claims := GetClaims(r.Context())

	if err := h.svc.Store.RefreshTokens.DeleteForUser(r.Context(), claims.UserID); err != nil {
		return err
	}

	RespondJSON(w, r, http.StatusNoContent, nil)

	return nil
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) error {
	claims := GetClaims(r.Context())

	user, err := h.svc.Store.Users.Get(r.Context(), claims.UserID)
	if err != nil {
		return err
	}

	RespondJSON(w, r, http.StatusOK, user)

	return nil
}

type UpdateProfileRequest struct {
	Email   string `json:"email"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) error {
	req, err := DecodeJSON[UpdateProfileRequest](r)
	if err != nil {
		return err
	}

	if !strings.Contains(req.Email, "@") {
		return NewValidationError(map[string]string{"email": "a valid email is required"})
	}

	claims := GetClaims(r.Context())

	user, err := h.svc.Store.Users.UpdateProfile(r.Context(), claims.UserID, req.Email, req.Phone, req.Address)
	if err != nil {
		return err
	}

	RespondJSON(w, r, http.StatusOK, user)

	return nil
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) error {
	req, err := DecodeJSON[ChangePasswordRequest](r)
	if err != nil {
		return err
	}

	if len(req.NewPassword) < 6 {
		return NewValidationError(map[string]string{"newPassword": "password must be at least 6 characters"})
	}

	ctx := r.Context()
	claims := GetClaims(ctx)

	user, err := h.svc.Store.Users.Get(ctx, claims.UserID)
	if err != nil {
		return err
	}

	if !auth.CheckPassword(user.PasswordHash, req.CurrentPassword) {
		return NewError(http.StatusUnauthorized, "Current password is incorrect")
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		return err
	}

	if err := h.svc.Store.Users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return err
	}

	// Force re-login everywhere else.
	if err := h.svc.Store.RefreshTokens.DeleteForUser(ctx, user.ID); err != nil {
		return err
	}

	RespondJSON(w, r, http.StatusNoContent, nil)

	return nil
}
