// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, bookmark, system
	Action   string // ユーザー向け対処方法
	Details  string // 下層から透過するエラー詳細（省略可）
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeInvalidRequest   = "INVALID_REQUEST"
	ErrCodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	ErrCodeInvalidURL       = "INVALID_URL"
	ErrCodeEmptyCredentials = "EMPTY_CREDENTIALS"
	ErrCodeLoginFailed      = "LOGIN_FAILED"
	ErrCodeEmailTaken       = "EMAIL_TAKEN"
	ErrCodeBookmarkNotFound = "BOOKMARK_NOT_FOUND"
	ErrCodePersistence      = "PERSISTENCE_FAILED"
)

// NewUnauthorizedError は認証エラーを生成する。
// ベアラートークンの欠落・不正・検証失敗のすべてで使用する。
func NewUnauthorizedError(details string) *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "未認証：有効なトークンがありません。",
		Category: "auth",
		Action:   "ログインし直してください。",
		Details:  details,
	}
}

// NewInvalidRequestError はリクエストボディ不正エラーを生成する。
func NewInvalidRequestError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	}
}

// NewInvalidURLError は無効なURLエラーを生成する。
func NewInvalidURLError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidURL,
		Message:  fmt.Sprintf("無効なURLです: %s", reason),
		Category: "validation",
		Action:   "http:// または https:// で始まるURL、もしくはホスト名を入力してください。",
	}
}

// NewMethodNotAllowedError は許可されないHTTPメソッドのエラーを生成する。
func NewMethodNotAllowedError() *APIError {
	return &APIError{
		Code:     ErrCodeMethodNotAllowed,
		Message:  "このエンドポイントではサポートされないHTTPメソッドです。",
		Category: "validation",
		Action:   "POSTメソッドでリクエストしてください。",
	}
}

// NewBookmarkNotFoundError はブックマーク未検出エラーを生成する。
func NewBookmarkNotFoundError(bookmarkID string) *APIError {
	return &APIError{
		Code:     ErrCodeBookmarkNotFound,
		Message:  fmt.Sprintf("指定されたブックマークが見つかりません: %s", bookmarkID),
		Category: "bookmark",
		Action:   "ブックマークIDを確認してください。",
	}
}

// NewPersistenceError は永続化層の失敗を表すエラーを生成する。
// 下層のメッセージとエラーコード（lib/pqのSQLSTATE等）を呼び出し元の診断用に透過する。
func NewPersistenceError(details, code string) *APIError {
	e := &APIError{
		Code:     ErrCodePersistence,
		Message:  "ブックマークの保存に失敗しました。",
		Category: "system",
		Action:   "データベースの権限設定を確認してください。",
		Details:  details,
	}
	if code != "" {
		e.Code = code
	}
	return e
}
