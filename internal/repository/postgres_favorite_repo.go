package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/hackorsnooze/internal/model"
)

// PostgresFavoriteRepo はPostgreSQLを使用したお気に入りリポジトリ。
type PostgresFavoriteRepo struct {
	db *sql.DB
}

// NewPostgresFavoriteRepo はPostgresFavoriteRepoを生成する。
func NewPostgresFavoriteRepo(db *sql.DB) *PostgresFavoriteRepo {
	return &PostgresFavoriteRepo{db: db}
}

// Add はお気に入りを冪等に登録する。
func (r *PostgresFavoriteRepo) Add(ctx context.Context, username, storyID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO favorites (username, story_id) VALUES ($1, $2)
		 ON CONFLICT (username, story_id) DO NOTHING`,
		username, storyID,
	)
	if err != nil {
		return fmt.Errorf("failed to add favorite: %w", err)
	}
	return nil
}

// Remove はお気に入りを冪等に解除する。
func (r *PostgresFavoriteRepo) Remove(ctx context.Context, username, storyID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM favorites WHERE username = $1 AND story_id = $2`,
		username, storyID,
	)
	if err != nil {
		return fmt.Errorf("failed to remove favorite: %w", err)
	}
	return nil
}

// ListStories は指定ユーザーのお気に入りを登録が新しい順に返す。
func (r *PostgresFavoriteRepo) ListStories(ctx context.Context, username string) ([]model.Story, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+storyColumns+`
		 FROM favorites f
		 JOIN stories s ON s.id = f.story_id
		 WHERE f.username = $1
		 ORDER BY f.created_at DESC, s.id`,
		username,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list favorites: %w", err)
	}
	return scanStories(rows)
}

// compile-time interface check
var _ FavoriteRepository = (*PostgresFavoriteRepo)(nil)
