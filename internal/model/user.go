// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// PasswordHashはbcryptハッシュで、APIレスポンスには決して含めない。
type User struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Identity は検証済みベアラートークンから解決された呼び出し元の身元を表す。
// 認証ミドルウェアがリクエストコンテキストに注入する。
type Identity struct {
	UserID string
	Email  string
}
