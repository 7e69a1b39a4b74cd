// Package model はドメインモデルを定義する。
package model

import "time"

// Bookmark は保存済みブックマークを表す。
// user_idは検証済みトークンのsubjectから決定され、クライアント指定の値は一切信用しない。
type Bookmark struct {
	ID          string
	UserID      string
	URL         string
	Title       string
	Description string
	Tags        []string
	Keywords    []string // AI抽出キーワード。未抽出の場合はnil（DBではNULL）
	Thumbnail   string   // favicon（data URI）またはfaviconエンドポイントURL
	Summary     string
	CreatedAt   time.Time
}

// BookmarkInput はブックマーク保存リクエストの入力を表す。
// URL以外は省略可能で、省略時はサービス層でデフォルトが適用される。
type BookmarkInput struct {
	URL         string
	Title       string
	Description string
	Tags        []string
	Keywords    []string
	Favicon     string
	Summary     string
}

// Enrichment は1つのURLに対する4系統のメタデータ抽出結果を表す。
// 各フィールドは抽出失敗時もフォールバック値で埋められる。
type Enrichment struct {
	Title    string
	Favicon  string // base64 data URI。取得失敗時は空文字
	Keywords []string
	Summary  string
}
