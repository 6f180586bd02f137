package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/hackorsnooze/internal/middleware"
)

// HealthChecker はヘルスチェック対象の依存（DB接続など）を表す。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// healthCheckTimeout はヘルスチェックでの依存確認のタイムアウト。
const healthCheckTimeout = 2 * time.Second

// NewHealthHandler はヘルスチェックハンドラーを返す。
// GET /health
func NewHealthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if checker != nil {
			ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
			defer cancel()
			if err := checker.PingContext(ctx); err != nil {
				slog.Error("health check failed", slog.String("error", err.Error()))
				middleware.WriteErrorResponse(w, http.StatusServiceUnavailable, "データベースに接続できません。")
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
