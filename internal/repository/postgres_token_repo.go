package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/hackorsnooze/internal/model"
)

// PostgresTokenRepo はPostgreSQLを使用したログイントークンリポジトリ。
type PostgresTokenRepo struct {
	db *sql.DB
}

// NewPostgresTokenRepo はPostgresTokenRepoを生成する。
func NewPostgresTokenRepo(db *sql.DB) *PostgresTokenRepo {
	return &PostgresTokenRepo{db: db}
}

// Create はトークンを保存する。
func (r *PostgresTokenRepo) Create(ctx context.Context, token *model.LoginToken) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO login_tokens (token, username, created_at) VALUES ($1, $2, $3)`,
		token.Token, token.Username, token.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert login token: %w", err)
	}
	return nil
}

// FindUsername はトークンに紐づくユーザー名を返す。
func (r *PostgresTokenRepo) FindUsername(ctx context.Context, token string) (string, error) {
	var username string
	err := r.db.QueryRowContext(ctx,
		`SELECT username FROM login_tokens WHERE token = $1`,
		token,
	).Scan(&username)

	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to find login token: %w", err)
	}
	return username, nil
}

// compile-time interface check
var _ TokenRepository = (*PostgresTokenRepo)(nil)
