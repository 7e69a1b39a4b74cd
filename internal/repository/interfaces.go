// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/bukuma/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByEmail は指定メールアドレスのユーザーを取得する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// Create はユーザーを作成する。メールアドレス重複時はエラーを返す。
	Create(ctx context.Context, user *model.User) error
}

// BookmarkRepository はブックマークデータの永続化インターフェース。
type BookmarkRepository interface {
	// Create はブックマークを1回だけINSERTする。リトライは行わない。
	// 永続化層の拒否（権限ポリシー違反等）はそのままエラーとして返す。
	Create(ctx context.Context, bookmark *model.Bookmark) error

	// ListByUserID は指定ユーザーのブックマーク一覧をcreated_at降順で返す。
	ListByUserID(ctx context.Context, userID string) ([]*model.Bookmark, error)

	// FindByID は指定IDのブックマークを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Bookmark, error)

	// Delete は指定ユーザーが所有するブックマークを削除する。
	// 所有者が一致しない、または存在しない場合は削除件数0としてfalseを返す。
	Delete(ctx context.Context, userID, id string) (bool, error)
}
