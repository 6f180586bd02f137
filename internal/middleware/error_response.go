package middleware

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/hackorsnooze/internal/model"
	"github.com/hitoshi/hackorsnooze/internal/wire"
)

// StatusFor はエラーコードに対応するHTTPステータスを返す。
func StatusFor(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeInvalidURL, model.ErrCodeMissingField,
		model.ErrCodeInvalidPayload, model.ErrCodeInvalidRequest:
		return http.StatusBadRequest
	case model.ErrCodeUnauthorized, model.ErrCodeInvalidCredential:
		return http.StatusUnauthorized
	case model.ErrCodeForbidden:
		return http.StatusForbidden
	case model.ErrCodeUsernameTaken:
		return http.StatusConflict
	case model.ErrCodeStoryNotFound, model.ErrCodeUserNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// WriteError はエラーをAPIのエラーエンベロープで書き込む。
// APIError以外のエラーはログに記録し、詳細を伏せて500を返す。
func WriteError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		slog.Error("internal error", slog.String("error", err.Error()))
		WriteInternalServerError(w)
		return
	}
	status := StatusFor(apiErr)
	if status >= 500 {
		slog.Error("internal error", slog.String("error", err.Error()))
	}
	WriteErrorResponse(w, status, apiErr.Message)
}

// WriteErrorResponse は {"error":{"status","title","message"}} 形式でレスポンスを書き込む。
func WriteErrorResponse(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(wire.ErrorEnvelope{Error: wire.ErrorBody{
		Status:  status,
		Title:   http.StatusText(status),
		Message: message,
	}})
}

// WriteInternalServerError は内部サーバーエラーのレスポンスを書き込む。
// 詳細はログのみに記録し、クライアントには一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusInternalServerError, "内部エラーが発生しました。")
}
