// Package handler はHack or Snooze APIのHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/hitoshi/hackorsnooze/internal/middleware"
	"github.com/hitoshi/hackorsnooze/internal/model"
	"github.com/hitoshi/hackorsnooze/internal/validation"
)

// maxRequestBodySize はリクエストボディの上限（1MB）。
const maxRequestBodySize = 1 << 20

// validate はリクエストボディ検証用の共有インスタンス。
var validate = validation.New()

// AccountServiceInterface はアカウント操作に必要なサービスインターフェース。
type AccountServiceInterface interface {
	Signup(ctx context.Context, username, password, name string) (*model.Profile, string, error)
	Login(ctx context.Context, username, password string) (*model.Profile, string, error)
	Authenticate(ctx context.Context, token string) (string, error)
	Profile(ctx context.Context, username string) (*model.Profile, error)
}

// CatalogServiceInterface はストーリーとお気に入り操作に必要なサービスインターフェース。
type CatalogServiceInterface interface {
	List(ctx context.Context) ([]model.Story, error)
	Get(ctx context.Context, storyID string) (*model.Story, error)
	Create(ctx context.Context, username string, ns model.NewStory) (*model.Story, error)
	Delete(ctx context.Context, username, storyID string) (*model.Story, error)
	AddFavorite(ctx context.Context, username, storyID string) error
	RemoveFavorite(ctx context.Context, username, storyID string) error
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// decodeBody はリクエストボディをデコードする。
// 空のボディはエラーとせず、vをゼロ値のままにする。
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return model.NewInvalidRequestError("リクエストボディの解析に失敗しました。")
	}
	return nil
}

// tokenFrom はボディのトークンを優先し、無ければクエリパラメータのトークンを返す。
func tokenFrom(r *http.Request, bodyToken string) string {
	if bodyToken != "" {
		return bodyToken
	}
	return r.URL.Query().Get("token")
}

// authenticate はトークンを検証してユーザー名を返し、リクエストログに記録させる。
func authenticate(r *http.Request, accounts AccountServiceInterface, token string) (string, error) {
	username, err := accounts.Authenticate(r.Context(), token)
	if err != nil {
		return "", err
	}
	middleware.SetUsername(r.Context(), username)
	return username, nil
}
