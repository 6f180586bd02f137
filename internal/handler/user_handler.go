package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/hackorsnooze/internal/middleware"
	"github.com/hitoshi/hackorsnooze/internal/model"
	"github.com/hitoshi/hackorsnooze/internal/wire"
)

// UserHandler はアカウントとお気に入り関連のHTTPハンドラー。
type UserHandler struct {
	accounts AccountServiceInterface
	catalog  CatalogServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(accounts AccountServiceInterface, catalog CatalogServiceInterface) *UserHandler {
	return &UserHandler{accounts: accounts, catalog: catalog}
}

// Signup はアカウントを作成し、ユーザーとトークンを返す。
// POST /signup
func (h *UserHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req wire.CredentialsRequest
	if err := decodeBody(w, r, &req); err != nil {
		middleware.WriteError(w, err)
		return
	}
	if err := validate.Validate(req); err != nil {
		middleware.WriteError(w, err)
		return
	}

	profile, token, err := h.accounts.Signup(r.Context(), req.User.Username, req.User.Password, req.User.Name)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	middleware.SetUsername(r.Context(), profile.Username)
	u := wire.FromProfile(*profile)
	writeJSON(w, http.StatusCreated, wire.AuthEnvelope{User: &u, Token: token})
}

// Login は認証情報を検証し、ユーザーと新しいトークンを返す。
// POST /login
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req wire.CredentialsRequest
	if err := decodeBody(w, r, &req); err != nil {
		middleware.WriteError(w, err)
		return
	}
	if err := validate.Validate(req); err != nil {
		middleware.WriteError(w, err)
		return
	}

	profile, token, err := h.accounts.Login(r.Context(), req.User.Username, req.User.Password)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	middleware.SetUsername(r.Context(), profile.Username)
	u := wire.FromProfile(*profile)
	writeJSON(w, http.StatusOK, wire.AuthEnvelope{User: &u, Token: token})
}

// GetUser はユーザーのプロフィールを返す。有効なトークンが必要。
// GET /users/{username}?token=...
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	if _, err := authenticate(r, h.accounts, tokenFrom(r, "")); err != nil {
		middleware.WriteError(w, err)
		return
	}

	profile, err := h.accounts.Profile(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	u := wire.FromProfile(*profile)
	writeJSON(w, http.StatusOK, wire.UserEnvelope{User: &u})
}

// AddFavorite はお気に入りを登録する。
// POST /users/{username}/favorites/{storyId}
func (h *UserHandler) AddFavorite(w http.ResponseWriter, r *http.Request) {
	h.toggleFavorite(w, r, h.catalog.AddFavorite, "Favorite Added Successfully!")
}

// RemoveFavorite はお気に入りを解除する。
// DELETE /users/{username}/favorites/{storyId}
func (h *UserHandler) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	h.toggleFavorite(w, r, h.catalog.RemoveFavorite, "Favorite Removed Successfully!")
}

// toggleFavorite はお気に入り操作の共通処理。
// パスのユーザー名がトークンの持ち主と一致しない場合はFORBIDDENとする。
func (h *UserHandler) toggleFavorite(
	w http.ResponseWriter,
	r *http.Request,
	apply func(ctx context.Context, username, storyID string) error,
	message string,
) {
	var req wire.TokenRequest
	if err := decodeBody(w, r, &req); err != nil {
		middleware.WriteError(w, err)
		return
	}

	username, err := authenticate(r, h.accounts, tokenFrom(r, req.Token))
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	if username != chi.URLParam(r, "username") {
		middleware.WriteError(w, model.NewForbiddenError("他のユーザーのお気に入りは変更できません。"))
		return
	}

	if err := apply(r.Context(), username, chi.URLParam(r, "storyId")); err != nil {
		middleware.WriteError(w, err)
		return
	}

	profile, err := h.accounts.Profile(r.Context(), username)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	u := wire.FromProfile(*profile)
	writeJSON(w, http.StatusOK, wire.MessageEnvelope{Message: message, User: &u})
}
