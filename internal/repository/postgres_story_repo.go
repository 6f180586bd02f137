package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/hackorsnooze/internal/model"
)

const storyColumns = `s.id, s.title, s.author, s.url, s.username, s.created_at`

// PostgresStoryRepo はPostgreSQLを使用したストーリーリポジトリ。
type PostgresStoryRepo struct {
	db *sql.DB
}

// NewPostgresStoryRepo はPostgresStoryRepoを生成する。
func NewPostgresStoryRepo(db *sql.DB) *PostgresStoryRepo {
	return &PostgresStoryRepo{db: db}
}

// List は全ストーリーを新しい順に返す。
func (r *PostgresStoryRepo) List(ctx context.Context) ([]model.Story, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+storyColumns+` FROM stories s ORDER BY s.created_at DESC, s.id`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list stories: %w", err)
	}
	return scanStories(rows)
}

// FindByID は指定IDのストーリーを取得する。
func (r *PostgresStoryRepo) FindByID(ctx context.Context, id string) (*model.Story, error) {
	s := &model.Story{}
	err := r.db.QueryRowContext(ctx,
		`SELECT `+storyColumns+` FROM stories s WHERE s.id = $1`,
		id,
	).Scan(&s.ID, &s.Title, &s.Author, &s.URL, &s.Username, &s.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find story by ID: %w", err)
	}
	return s, nil
}

// ListByUsername は指定ユーザーの投稿を新しい順に返す。
func (r *PostgresStoryRepo) ListByUsername(ctx context.Context, username string) ([]model.Story, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+storyColumns+` FROM stories s WHERE s.username = $1 ORDER BY s.created_at DESC, s.id`,
		username,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list stories by username: %w", err)
	}
	return scanStories(rows)
}

// Create はストーリーを作成する。
func (r *PostgresStoryRepo) Create(ctx context.Context, story *model.Story) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO stories (id, username, title, author, url, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		story.ID, story.Username, story.Title, story.Author, story.URL, story.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert story: %w", err)
	}
	return nil
}

// DeleteByID は指定IDのストーリーを削除する。
func (r *PostgresStoryRepo) DeleteByID(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM stories WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete story: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}

// scanStories はstoryColumnsの順で選択した行を読み取る。rowsは必ずCloseする。
func scanStories(rows *sql.Rows) ([]model.Story, error) {
	defer rows.Close()

	stories := make([]model.Story, 0)
	for rows.Next() {
		var s model.Story
		if err := rows.Scan(&s.ID, &s.Title, &s.Author, &s.URL, &s.Username, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan story: %w", err)
		}
		stories = append(stories, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate stories: %w", err)
	}
	return stories, nil
}

// compile-time interface check
var _ StoryRepository = (*PostgresStoryRepo)(nil)
