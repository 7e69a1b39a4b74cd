package enrich

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
)

// TitleExtractorService はページタイトル抽出のインターフェース。
type TitleExtractorService interface {
	// ExtractTitle は指定URLのページタイトルを抽出する。
	// <title> → 最初の<h1> → ホスト名の順でフォールバックし、決して失敗しない。
	ExtractTitle(ctx context.Context, rawURL string) string
}

// TitleExtractor はTitleExtractorServiceの実装。
type TitleExtractor struct {
	fetcher PageFetcherService
	logger  *slog.Logger
}

// NewTitleExtractor はTitleExtractorの新しいインスタンスを生成する。
func NewTitleExtractor(fetcher PageFetcherService, logger *slog.Logger) *TitleExtractor {
	return &TitleExtractor{
		fetcher: fetcher,
		logger:  logger,
	}
}

// ExtractTitle は指定URLのページタイトルを抽出する。
// 取得・パースに失敗した場合はホスト名を返す（エラーは外に漏らさない）。
func (e *TitleExtractor) ExtractTitle(ctx context.Context, rawURL string) string {
	doc, err := e.fetcher.FetchDocument(ctx, rawURL)
	if err != nil {
		e.logger.Warn("タイトル抽出: ページ取得に失敗しました。ホスト名にフォールバックします",
			slog.String("url", rawURL),
			slog.String("error", err.Error()),
		)
		return hostnameOf(rawURL)
	}

	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		return title
	}
	if h1 := strings.TrimSpace(doc.Find("h1").First().Text()); h1 != "" {
		return h1
	}
	return hostnameOf(rawURL)
}

// hostnameOf はURLからホスト名を取り出す。パース不能な場合は入力をそのまま返す。
func hostnameOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return rawURL
	}
	return u.Hostname()
}

// compile-time interface check
var _ TitleExtractorService = (*TitleExtractor)(nil)
