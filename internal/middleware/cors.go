package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/cors"
)

// NewCORSMiddleware は指定されたオリジンに対するCORSミドルウェアを返す。
// allowedOriginはカンマ区切りで複数指定でき、"*" はすべてのオリジンを許可する。
// 認証はCookieではなくトークンで行うため、credentialsは許可しない。
func NewCORSMiddleware(allowedOrigin string) func(next http.Handler) http.Handler {
	var origins []string
	for _, o := range strings.Split(allowedOrigin, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}

	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           86400,
	})
}
