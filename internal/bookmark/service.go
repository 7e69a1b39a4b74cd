// Package bookmark はブックマーク保存・一覧・削除のドメインロジックを提供する。
package bookmark

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/hitoshi/bukuma/internal/enrich"
	"github.com/hitoshi/bukuma/internal/model"
	"github.com/hitoshi/bukuma/internal/repository"
)

// Sanitizer は保存前のテキストフィールドのサニタイズのインターフェース。
type Sanitizer interface {
	Sanitize(raw string) string
}

// BookmarkService はブックマーク操作のインターフェースを定義する。
type BookmarkService interface {
	// AddBookmark はブックマークを保存する。
	// user_idは検証済みトークンのsubjectから渡されたuserIDのみを使用し、
	// クライアントがボディで指定した値は一切参照しない。
	AddBookmark(ctx context.Context, userID string, input model.BookmarkInput) (*model.Bookmark, error)

	// ListBookmarks は指定ユーザーのブックマーク一覧をcreated_at降順で返す。
	ListBookmarks(ctx context.Context, userID string) ([]*model.Bookmark, error)

	// DeleteBookmark は指定ユーザーが所有するブックマークを削除する。
	DeleteBookmark(ctx context.Context, userID, bookmarkID string) error
}

// Service はBookmarkServiceの実装。
type Service struct {
	repo      repository.BookmarkRepository
	sanitizer Sanitizer
	logger    *slog.Logger
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(repo repository.BookmarkRepository, sanitizer Sanitizer, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		sanitizer: sanitizer,
		logger:    logger,
	}
}

// AddBookmark はブックマークを保存する。
// URLの正規化、デフォルト値の適用、タグの重複除去を行い、
// INSERTは1回だけ試行する（リトライなし）。
func (s *Service) AddBookmark(ctx context.Context, userID string, input model.BookmarkInput) (*model.Bookmark, error) {
	if strings.TrimSpace(input.URL) == "" {
		return nil, model.NewInvalidURLError("URLが空です")
	}

	normalizedURL := NormalizeURL(input.URL)
	if !HasWebScheme(normalizedURL) {
		return nil, model.NewInvalidURLError("http/https以外のスキームです")
	}
	hostname := hostnameOf(normalizedURL)

	// デフォルト値の適用
	title := s.sanitizer.Sanitize(input.Title)
	if title == "" {
		title = normalizedURL
	}
	description := s.sanitizer.Sanitize(input.Description)
	summary := s.sanitizer.Sanitize(input.Summary)

	thumbnail := input.Favicon
	if thumbnail == "" {
		// faviconが未解決の場合は決定的なfaviconエンドポイントURLを使用する。
		// 同一ホスト名に対して常に同一のURLになる（冪等なデフォルト）。
		thumbnail = enrich.FaviconEndpoint(hostname)
	}

	// keywordsが空の場合はnil（DBではNULL）として保存する
	keywords := input.Keywords
	if len(keywords) == 0 {
		keywords = nil
	}

	bookmark := &model.Bookmark{
		ID:          uuid.New().String(),
		UserID:      userID,
		URL:         normalizedURL,
		Title:       title,
		Description: description,
		Tags:        dedupeTags(input.Tags),
		Keywords:    keywords,
		Thumbnail:   thumbnail,
		Summary:     summary,
	}

	if err := s.repo.Create(ctx, bookmark); err != nil {
		s.logger.Error("ブックマークの保存に失敗しました",
			slog.String("user_id", userID),
			slog.String("url", normalizedURL),
			slog.String("error", err.Error()),
		)
		return nil, persistenceError(err)
	}

	s.logger.Info("ブックマークを保存しました",
		slog.String("bookmark_id", bookmark.ID),
		slog.String("user_id", userID),
		slog.String("url", normalizedURL),
	)

	return bookmark, nil
}

// ListBookmarks は指定ユーザーのブックマーク一覧をcreated_at降順で返す。
func (s *Service) ListBookmarks(ctx context.Context, userID string) ([]*model.Bookmark, error) {
	bookmarks, err := s.repo.ListByUserID(ctx, userID)
	if err != nil {
		s.logger.Error("ブックマーク一覧の取得に失敗しました",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return nil, persistenceError(err)
	}
	return bookmarks, nil
}

// DeleteBookmark は指定ユーザーが所有するブックマークを削除する。
// 所有者が一致しない場合も存在しない場合と同じ未検出エラーを返す
// （他ユーザーのブックマークの存在を漏らさない）。
func (s *Service) DeleteBookmark(ctx context.Context, userID, bookmarkID string) error {
	deleted, err := s.repo.Delete(ctx, userID, bookmarkID)
	if err != nil {
		s.logger.Error("ブックマークの削除に失敗しました",
			slog.String("user_id", userID),
			slog.String("bookmark_id", bookmarkID),
			slog.String("error", err.Error()),
		)
		return persistenceError(err)
	}
	if !deleted {
		return model.NewBookmarkNotFoundError(bookmarkID)
	}

	s.logger.Info("ブックマークを削除しました",
		slog.String("bookmark_id", bookmarkID),
		slog.String("user_id", userID),
	)
	return nil
}

// NormalizeURL はスキームを持たないURLに https:// を前置する。
// ネットワークアクセス・永続化のいずれよりも前に適用される。
// "example.com:8080" のようなポート付きホストをurl.Parseに渡すと
// ポートがスキームとして解釈されるため、"://" の有無で判定する。
func NormalizeURL(rawURL string) string {
	trimmed := strings.TrimSpace(rawURL)
	if strings.Contains(trimmed, "://") {
		return trimmed
	}
	return "https://" + trimmed
}

// HasWebScheme は正規化後のURLがhttpまたはhttpsで始まるかを判定する。
// ftp: やjavascript: 等のスキームを持つURLは保存対象にしない。
func HasWebScheme(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// hostnameOf はURLからホスト名を取り出す。パース不能な場合は入力をそのまま返す。
func hostnameOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return rawURL
	}
	return u.Hostname()
}

// dedupeTags はタグの重複を除去する。
// 大文字小文字は区別し、初出順を維持する。nil入力には空スライスを返す。
func dedupeTags(tags []string) []string {
	result := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		result = append(result, tag)
	}
	return result
}

// persistenceError は永続化層のエラーをAPIエラーに変換する。
// lib/pqのエラーの場合はメッセージとSQLSTATEコードを診断用に透過する。
func persistenceError(err error) *model.APIError {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return model.NewPersistenceError(pqErr.Message, string(pqErr.Code))
	}
	return model.NewPersistenceError(err.Error(), "")
}

// compile-time interface check
var _ BookmarkService = (*Service)(nil)
