// Package enrich はURLからのメタデータ抽出（タイトル・favicon・キーワード・要約）を提供する。
//
// 4系統の抽出は互いに独立しており、いずれかの失敗が他系統や全体の結果を
// 失敗させることはない。各系統は失敗時にフォールバック値へ縮退する。
package enrich

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// browserUserAgent はページ取得時に送信するUser-Agent。
// botとして弾かれるサイトがあるため、一般的なブラウザのUAを使用する。
const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// SSRFValidator はSSRF検証のインターフェース。
type SSRFValidator interface {
	ValidateURL(rawURL string) error
	NewSafeClient(timeout time.Duration, maxResponseSize int64) *http.Client
}

// PageFetcherService はページ取得のインターフェース。
type PageFetcherService interface {
	// FetchDocument は指定URLのHTMLを取得し、パース済みドキュメントを返す。
	// リトライは行わない（1回失敗したらその系統はフォールバックに縮退する）。
	FetchDocument(ctx context.Context, rawURL string) (*goquery.Document, error)
}

// PageFetcher はPageFetcherServiceの実装。
// SSRF検証付きのHTTPクライアントでユーザー指定URLを取得する。
type PageFetcher struct {
	ssrfGuard   SSRFValidator
	logger      *slog.Logger
	timeout     time.Duration
	maxBodySize int64
}

// NewPageFetcher はPageFetcherの新しいインスタンスを生成する。
func NewPageFetcher(ssrfGuard SSRFValidator, logger *slog.Logger, timeout time.Duration, maxBodySize int64) *PageFetcher {
	return &PageFetcher{
		ssrfGuard:   ssrfGuard,
		logger:      logger,
		timeout:     timeout,
		maxBodySize: maxBodySize,
	}
}

// FetchDocument は指定URLのHTMLを取得し、パース済みドキュメントを返す。
func (f *PageFetcher) FetchDocument(ctx context.Context, rawURL string) (*goquery.Document, error) {
	// SSRF検証
	if err := f.ssrfGuard.ValidateURL(rawURL); err != nil {
		f.logger.Warn("ページ取得: SSRF検証に失敗しました",
			slog.String("url", rawURL),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("SSRF検証に失敗: %w", err)
	}

	client := f.ssrfGuard.NewSafeClient(f.timeout, f.maxBodySize)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("リクエスト作成に失敗: %w", err)
	}
	req.Header.Set("User-Agent", browserUserAgent)

	resp, err := client.Do(req)
	if err != nil {
		f.logger.Warn("ページ取得: HTTPリクエストに失敗しました",
			slog.String("url", rawURL),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("HTTPリクエスト失敗: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		f.logger.Warn("ページ取得: HTTPステータス異常",
			slog.String("url", rawURL),
			slog.Int("http_status", resp.StatusCode),
		)
		return nil, fmt.Errorf("HTTPステータス異常: %d", resp.StatusCode)
	}

	// レスポンスボディを読み込み（最大サイズ制限付き）
	body := io.LimitReader(resp.Body, f.maxBodySize)

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("HTMLパースに失敗: %w", err)
	}

	return doc, nil
}

// compile-time interface check
var _ PageFetcherService = (*PageFetcher)(nil)
