// Package cleanup は期限切れログイントークンの定期削除ジョブを提供する。
// 保持期間を超えたトークンは削除され、以後そのトークンでの認証は401になる。
package cleanup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// DefaultRetentionDays はログイントークンの既定の保持日数。
const DefaultRetentionDays = 180

// Executor はSQLのExecContextを抽象化するインターフェース。
// *sql.DB や *sql.Tx を受け付けることができる。
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// TokenCleanupJob は保持期間を超過したログイントークンを削除するジョブ。
type TokenCleanupJob struct {
	db            Executor
	logger        *slog.Logger
	RetentionDays int
}

// NewTokenCleanupJob は新しいTokenCleanupJobを生成する。
// retentionDaysが0以下の場合はDefaultRetentionDaysを使う。
func NewTokenCleanupJob(db Executor, logger *slog.Logger, retentionDays int) *TokenCleanupJob {
	if retentionDays <= 0 {
		retentionDays = DefaultRetentionDays
	}
	return &TokenCleanupJob{
		db:            db,
		logger:        logger,
		RetentionDays: retentionDays,
	}
}

// Run はcreated_atがRetentionDays日より古いトークンを削除する。
// 削除対象がなくてもエラーにならない。
func (j *TokenCleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	interval := fmt.Sprintf("%d days", j.RetentionDays)

	result, err := j.db.ExecContext(ctx,
		`DELETE FROM login_tokens WHERE created_at < now() - $1::interval`, interval)
	if err != nil {
		j.logger.Error("ログイントークンの削除に失敗しました",
			slog.String("error", err.Error()),
			slog.Int("retention_days", j.RetentionDays),
		)
		return fmt.Errorf("ログイントークンの削除に失敗: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("削除件数の取得に失敗: %w", err)
	}

	j.logger.Info("ログイントークンのクリーンアップが完了しました",
		slog.Int64("deleted_count", deleted),
		slog.Int("retention_days", j.RetentionDays),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	return nil
}

// Start は起動直後に1回、以後intervalごとにRunを実行する。
// ctxがキャンセルされるまでブロックする。失敗はログに残して次回に回す。
// intervalが0以下の場合は1回だけ実行して戻る。
func (j *TokenCleanupJob) Start(ctx context.Context, interval time.Duration) {
	if err := j.Run(ctx); err != nil && ctx.Err() == nil {
		j.logger.Warn("token cleanup failed", slog.String("error", err.Error()))
	}
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := j.Run(ctx); err != nil && ctx.Err() == nil {
				j.logger.Warn("token cleanup failed", slog.String("error", err.Error()))
			}
		}
	}
}
