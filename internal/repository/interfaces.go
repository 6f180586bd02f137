// Package repository はリファレンスサーバーのデータ永続化を提供する。
package repository

import (
	"context"
	"errors"

	"github.com/lib/pq"

	"github.com/hitoshi/hackorsnooze/internal/model"
)

// ErrDuplicate は一意制約違反を表す。
var ErrDuplicate = errors.New("duplicate key")

// UserRepository はアカウントの永続化インターフェース。
type UserRepository interface {
	// Create はアカウントを作成する。ユーザー名が既に存在する場合はErrDuplicateを返す。
	Create(ctx context.Context, account *model.Account) error

	// FindByUsername はユーザー名でアカウントを取得する。見つからない場合はnilを返す。
	FindByUsername(ctx context.Context, username string) (*model.Account, error)
}

// TokenRepository はログイントークンの永続化インターフェース。
type TokenRepository interface {
	// Create はトークンを保存する。
	Create(ctx context.Context, token *model.LoginToken) error

	// FindUsername はトークンに紐づくユーザー名を返す。見つからない場合は空文字を返す。
	FindUsername(ctx context.Context, token string) (string, error)
}

// StoryRepository はストーリーの永続化インターフェース。
type StoryRepository interface {
	// List は全ストーリーを新しい順に返す。
	List(ctx context.Context) ([]model.Story, error)

	// FindByID は指定IDのストーリーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Story, error)

	// ListByUsername は指定ユーザーの投稿を新しい順に返す。
	ListByUsername(ctx context.Context, username string) ([]model.Story, error)

	// Create はストーリーを作成する。
	Create(ctx context.Context, story *model.Story) error

	// DeleteByID は指定IDのストーリーを削除する。お気に入りはCASCADE削除される。
	// 削除対象が存在しなかった場合はfalseを返す。
	DeleteByID(ctx context.Context, id string) (bool, error)
}

// FavoriteRepository はお気に入りの永続化インターフェース。
type FavoriteRepository interface {
	// Add はお気に入りを登録する。既に登録済みの場合は何もしない。
	Add(ctx context.Context, username, storyID string) error

	// Remove はお気に入りを解除する。登録されていない場合も何もしない。
	Remove(ctx context.Context, username, storyID string) error

	// ListStories は指定ユーザーのお気に入りを登録が新しい順に返す。
	ListStories(ctx context.Context, username string) ([]model.Story, error)
}

// pqUniqueViolation はPostgreSQLの一意制約違反のSQLSTATE。
const pqUniqueViolation = "23505"

// isUniqueViolation はerrが一意制約違反かを判定する。
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}
