// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
)

// エラーカテゴリ。呼び出し元はカテゴリで回復方法を判断する。
const (
	// CategoryValidation は入力不正（URL形式、必須項目の欠落）。ローカルで回復可能。
	CategoryValidation = "validation"
	// CategoryAuth はトークン不正・期限切れ・認証情報の誤り。再認証が必要。
	CategoryAuth = "auth"
	// CategoryNotFound は参照先のストーリーやユーザーがサーバー側に存在しない。
	CategoryNotFound = "not_found"
	// CategoryTransport は通信失敗・タイムアウト・不正なレスポンス。手動で再試行可能。
	CategoryTransport = "transport"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: validation, auth, not_found, transport
	Action   string // ユーザー向け対処方法
	Err      error  // 原因となったエラー（任意）
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap は原因となったエラーを返す。
func (e *APIError) Unwrap() error {
	return e.Err
}

// 定義済みエラーコード
const (
	ErrCodeInvalidURL        = "INVALID_URL"
	ErrCodeMissingField      = "MISSING_FIELD"
	ErrCodeInvalidPayload    = "INVALID_PAYLOAD"
	ErrCodeInvalidRequest    = "INVALID_REQUEST"
	ErrCodeUnauthorized      = "UNAUTHORIZED"
	ErrCodeForbidden         = "FORBIDDEN"
	ErrCodeInvalidCredential = "INVALID_CREDENTIALS"
	ErrCodeUsernameTaken     = "USERNAME_TAKEN"
	ErrCodeStoryNotFound     = "STORY_NOT_FOUND"
	ErrCodeUserNotFound      = "USER_NOT_FOUND"
	ErrCodeTransport         = "TRANSPORT_FAILED"
)

// NewInvalidURLError は無効なURLエラーを生成する。
func NewInvalidURLError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidURL,
		Message:  fmt.Sprintf("無効なURLです: %s", reason),
		Category: CategoryValidation,
		Action:   "正しいURL形式（http:// または https:// で始まるURL）を入力してください。",
	}
}

// NewMissingFieldError は必須項目の欠落エラーを生成する。
func NewMissingFieldError(field string) *APIError {
	return &APIError{
		Code:     ErrCodeMissingField,
		Message:  fmt.Sprintf("必須項目が入力されていません: %s", field),
		Category: CategoryValidation,
		Action:   "必須項目をすべて入力してください。",
	}
}

// NewInvalidPayloadError はサーバーから受け取ったペイロードが不正な場合のエラーを生成する。
func NewInvalidPayloadError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidPayload,
		Message:  fmt.Sprintf("サーバーの応答が不正です: %s", reason),
		Category: CategoryValidation,
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewInvalidRequestError はリクエスト内容が不正な場合のエラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  reason,
		Category: CategoryValidation,
		Action:   "入力内容を確認してください。",
	}
}

// NewUnauthorizedError はトークンが無い・無効な場合のエラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: CategoryAuth,
		Action:   "ログインし直してください。",
	}
}

// NewForbiddenError は他ユーザーのリソースを操作しようとした場合のエラーを生成する。
func NewForbiddenError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  reason,
		Category: CategoryAuth,
		Action:   "自分のアカウントでログインしているか確認してください。",
	}
}

// NewInvalidCredentialsError はユーザー名またはパスワードが誤っている場合のエラーを生成する。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredential,
		Message:  "ユーザー名またはパスワードが正しくありません。",
		Category: CategoryAuth,
		Action:   "入力内容を確認して再度ログインしてください。",
	}
}

// NewUsernameTakenError はユーザー名が既に使われている場合のエラーを生成する。
func NewUsernameTakenError(username string) *APIError {
	return &APIError{
		Code:     ErrCodeUsernameTaken,
		Message:  fmt.Sprintf("ユーザー名は既に使われています: %s", username),
		Category: CategoryAuth,
		Action:   "別のユーザー名を指定してください。",
	}
}

// NewStoryNotFoundError はストーリー未検出エラーを生成する。
func NewStoryNotFoundError(storyID string) *APIError {
	return &APIError{
		Code:     ErrCodeStoryNotFound,
		Message:  fmt.Sprintf("指定されたストーリーが見つかりません: %s", storyID),
		Category: CategoryNotFound,
		Action:   "一覧を再読み込みしてください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError(username string) *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  fmt.Sprintf("ユーザーが見つかりません: %s", username),
		Category: CategoryNotFound,
		Action:   "ログインし直してください。",
	}
}

// NewTransportError は通信失敗エラーを生成する。
func NewTransportError(reason string, err error) *APIError {
	return &APIError{
		Code:     ErrCodeTransport,
		Message:  fmt.Sprintf("サーバーとの通信に失敗しました: %s", reason),
		Category: CategoryTransport,
		Action:   "ネットワーク接続を確認し、しばらく待ってから再度お試しください。",
		Err:      err,
	}
}

// CategoryOf はエラーのカテゴリを返す。APIError以外は空文字を返す。
func CategoryOf(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Category
	}
	return ""
}

// IsValidationError はerrがvalidationカテゴリのAPIErrorかを判定する。
func IsValidationError(err error) bool { return CategoryOf(err) == CategoryValidation }

// IsAuthError はerrがauthカテゴリのAPIErrorかを判定する。
func IsAuthError(err error) bool { return CategoryOf(err) == CategoryAuth }

// IsNotFoundError はerrがnot_foundカテゴリのAPIErrorかを判定する。
func IsNotFoundError(err error) bool { return CategoryOf(err) == CategoryNotFound }

// IsTransportError はerrがtransportカテゴリのAPIErrorかを判定する。
func IsTransportError(err error) bool { return CategoryOf(err) == CategoryTransport }
