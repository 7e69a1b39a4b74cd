package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/bukuma/internal/model"
)

// PostgresBookmarkRepo はPostgreSQLを使用したブックマークリポジトリ。
type PostgresBookmarkRepo struct {
	db *sql.DB
}

// NewPostgresBookmarkRepo はPostgresBookmarkRepoを生成する。
func NewPostgresBookmarkRepo(db *sql.DB) *PostgresBookmarkRepo {
	return &PostgresBookmarkRepo{db: db}
}

// Create はブックマークを1回だけINSERTする。リトライは行わない。
// keywordsはnilの場合NULLとして保存する（AI抽出なしを区別するため）。
// INSERT時のcreated_atはDB側のdefault now()を使用し、RETURNINGで取得する。
func (r *PostgresBookmarkRepo) Create(ctx context.Context, bookmark *model.Bookmark) error {
	var keywords interface{}
	if bookmark.Keywords != nil {
		keywords = pq.Array(bookmark.Keywords)
	}

	err := r.db.QueryRowContext(ctx,
		`INSERT INTO bookmarks (id, user_id, url, title, description, tags, keywords, thumbnail, summary)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING created_at`,
		bookmark.ID, bookmark.UserID, bookmark.URL, bookmark.Title, bookmark.Description,
		pq.Array(bookmark.Tags), keywords, bookmark.Thumbnail, bookmark.Summary,
	).Scan(&bookmark.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert bookmark: %w", err)
	}

	return nil
}

// ListByUserID は指定ユーザーのブックマーク一覧をcreated_at降順で返す。
func (r *PostgresBookmarkRepo) ListByUserID(ctx context.Context, userID string) ([]*model.Bookmark, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, url, title, description, tags, keywords, thumbnail, summary, created_at
		 FROM bookmarks WHERE user_id = $1 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookmarks: %w", err)
	}
	defer rows.Close()

	var bookmarks []*model.Bookmark
	for rows.Next() {
		b, err := scanBookmark(rows)
		if err != nil {
			return nil, err
		}
		bookmarks = append(bookmarks, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bookmarks: %w", err)
	}

	return bookmarks, nil
}

// FindByID は指定IDのブックマークを取得する。見つからない場合はnilを返す。
func (r *PostgresBookmarkRepo) FindByID(ctx context.Context, id string) (*model.Bookmark, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, url, title, description, tags, keywords, thumbnail, summary, created_at
		 FROM bookmarks WHERE id = $1`,
		id,
	)

	b, err := scanBookmark(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find bookmark by ID: %w", err)
	}

	return b, nil
}

// Delete は指定ユーザーが所有するブックマークを削除する。
// user_id条件により他ユーザーの行は削除できない。
func (r *PostgresBookmarkRepo) Delete(ctx context.Context, userID, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM bookmarks WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete bookmark: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

// rowScanner はsql.Rowとsql.Rowsの共通Scanインターフェース。
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanBookmark は1行分のブックマークをスキャンする。
// keywordsのNULLはnilスライスとして読み出される。
func scanBookmark(row rowScanner) (*model.Bookmark, error) {
	b := &model.Bookmark{}
	var tags, keywords pq.StringArray

	err := row.Scan(
		&b.ID, &b.UserID, &b.URL, &b.Title, &b.Description,
		&tags, &keywords, &b.Thumbnail, &b.Summary, &b.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	b.Tags = []string(tags)
	b.Keywords = []string(keywords)

	return b, nil
}

// compile-time interface check
var _ BookmarkRepository = (*PostgresBookmarkRepo)(nil)
