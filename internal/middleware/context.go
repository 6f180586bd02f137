// Package middleware はリファレンスサーバーのHTTPミドルウェアを提供する。
package middleware

import "context"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var requestInfoKey = contextKey("request_info")

// requestInfo はハンドラーからロギングミドルウェアへ渡す情報。
// ロギングミドルウェアがリクエストごとに生成し、ハンドラーが書き込む。
type requestInfo struct {
	username string
}

func withRequestInfo(ctx context.Context) (context.Context, *requestInfo) {
	info := &requestInfo{}
	return context.WithValue(ctx, requestInfoKey, info), info
}

// SetUsername は認証済みユーザー名をリクエストログに記録させる。
// ロギングミドルウェアを通っていないコンテキストでは何もしない。
func SetUsername(ctx context.Context, username string) {
	if info, ok := ctx.Value(requestInfoKey).(*requestInfo); ok {
		info.username = username
	}
}

// UsernameFromContext はSetUsernameで記録したユーザー名を返す。
func UsernameFromContext(ctx context.Context) (string, bool) {
	info, ok := ctx.Value(requestInfoKey).(*requestInfo)
	if !ok || info.username == "" {
		return "", false
	}
	return info.username, true
}
