package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/hackorsnooze/internal/model"
)

// PostgresUserRepo はPostgreSQLを使用したアカウントリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// Create はアカウントを作成する。
func (r *PostgresUserRepo) Create(ctx context.Context, account *model.Account) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (username, name, password_hash, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		account.Username, account.Name, account.PasswordHash, account.CreatedAt, account.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// FindByUsername はユーザー名でアカウントを取得する。
func (r *PostgresUserRepo) FindByUsername(ctx context.Context, username string) (*model.Account, error) {
	a := &model.Account{}
	err := r.db.QueryRowContext(ctx,
		`SELECT username, name, password_hash, created_at, updated_at FROM users WHERE username = $1`,
		username,
	).Scan(&a.Username, &a.Name, &a.PasswordHash, &a.CreatedAt, &a.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by username: %w", err)
	}
	return a, nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
