package middleware

import (
	"net/http"
	"time"

	"github.com/hitoshi/hackorsnooze/internal/metrics"
)

// NewMetricsMiddleware はレスポンスのステータスコードと処理時間を記録するミドルウェアを返す。
func NewMetricsMiddleware(rec metrics.HTTPRecorder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(sr, r)

			rec.RecordHTTPStatus(sr.statusCode)
			rec.RecordHTTPLatency(time.Since(start))
		})
	}
}
