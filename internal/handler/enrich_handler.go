package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/hitoshi/bukuma/internal/bookmark"
	"github.com/hitoshi/bukuma/internal/middleware"
	"github.com/hitoshi/bukuma/internal/model"
)

// EnrichCoordinatorInterface はメタデータ抽出ハンドラーが必要とする並行実行のインターフェース。
type EnrichCoordinatorInterface interface {
	Enrich(ctx context.Context, rawURL string) *model.Enrichment
}

// TitleExtractorInterface はタイトル抽出のインターフェース。
type TitleExtractorInterface interface {
	ExtractTitle(ctx context.Context, rawURL string) string
}

// FaviconFetcherInterface はfavicon取得のインターフェース。
type FaviconFetcherInterface interface {
	FetchFavicon(ctx context.Context, pageURL string) string
}

// KeywordExtractorInterface はキーワード抽出のインターフェース。
type KeywordExtractorInterface interface {
	ExtractKeywords(ctx context.Context, rawURL string) []string
}

// SummaryExtractorInterface は要約生成のインターフェース。
type SummaryExtractorInterface interface {
	ExtractSummary(ctx context.Context, rawURL string) string
}

// EnrichMetricsRecorder はメタデータ抽出メトリクスのインターフェース。
type EnrichMetricsRecorder interface {
	RecordEnrichLatency(duration time.Duration)
	RecordEnrichFallback(branch string)
}

// EnrichHandler はメタデータ抽出関連のHTTPハンドラー。
// 4エンドポイントはそれぞれ単一系統を、/enrichは4系統の並行マージを実行する。
type EnrichHandler struct {
	titles      TitleExtractorInterface
	favicons    FaviconFetcherInterface
	keywords    KeywordExtractorInterface
	summaries   SummaryExtractorInterface
	coordinator EnrichCoordinatorInterface
	collector   EnrichMetricsRecorder
}

// NewEnrichHandler はEnrichHandlerを生成する。
func NewEnrichHandler(
	titles TitleExtractorInterface,
	favicons FaviconFetcherInterface,
	keywords KeywordExtractorInterface,
	summaries SummaryExtractorInterface,
	coordinator EnrichCoordinatorInterface,
	collector EnrichMetricsRecorder,
) *EnrichHandler {
	return &EnrichHandler{
		titles:      titles,
		favicons:    favicons,
		keywords:    keywords,
		summaries:   summaries,
		coordinator: coordinator,
		collector:   collector,
	}
}

// urlRequest は抽出系エンドポイントの共通リクエストボディ。
type urlRequest struct {
	URL string `json:"url"`
}

// decodeURLRequest はリクエストボディからURLを取り出し、スキームを正規化する。
// URLが欠落している場合はfalseを返し、400レスポンスを書き込み済みとする。
func decodeURLRequest(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req urlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return "", false
	}
	if strings.TrimSpace(req.URL) == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidURLError("URLが空です"))
		return "", false
	}
	// ネットワークアクセスより前にスキームを正規化する
	return bookmark.NormalizeURL(req.URL), true
}

// GetPageTitle はページタイトルを抽出する。
// POST /get-page-title
func (h *EnrichHandler) GetPageTitle(w http.ResponseWriter, r *http.Request) {
	rawURL, ok := decodeURLRequest(w, r)
	if !ok {
		return
	}

	title := h.titles.ExtractTitle(r.Context(), rawURL)

	writeJSON(w, http.StatusOK, map[string]any{"title": title})
}

// GetFavicon はfaviconをbase64 data URIとして取得する。
// 取得失敗時は favicon: null を返す。
// POST /get-favicon
func (h *EnrichHandler) GetFavicon(w http.ResponseWriter, r *http.Request) {
	rawURL, ok := decodeURLRequest(w, r)
	if !ok {
		return
	}

	favicon := h.favicons.FetchFavicon(r.Context(), rawURL)

	var body map[string]any
	if favicon == "" {
		h.recordFallback("favicon")
		body = map[string]any{"favicon": nil}
	} else {
		body = map[string]any{"favicon": favicon}
	}
	writeJSON(w, http.StatusOK, body)
}

// ExtractKeywords は本文からキーワードを抽出する。
// POST /extract-keywords
func (h *EnrichHandler) ExtractKeywords(w http.ResponseWriter, r *http.Request) {
	rawURL, ok := decodeURLRequest(w, r)
	if !ok {
		return
	}

	keywords := h.keywords.ExtractKeywords(r.Context(), rawURL)
	if len(keywords) == 0 {
		h.recordFallback("keywords")
		keywords = []string{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"keywords": keywords})
}

// ExtractSummary は本文から要約を生成する。
// POST /extract-summary
func (h *EnrichHandler) ExtractSummary(w http.ResponseWriter, r *http.Request) {
	rawURL, ok := decodeURLRequest(w, r)
	if !ok {
		return
	}

	summary := h.summaries.ExtractSummary(r.Context(), rawURL)
	if summary == "" {
		h.recordFallback("summary")
	}

	writeJSON(w, http.StatusOK, map[string]any{"summary": summary})
}

// Enrich は4系統を並行実行し、マージ済みの結果を返す。
// 各系統の失敗はフォールバック値に縮退するため、常に200を返す。
// POST /enrich
func (h *EnrichHandler) Enrich(w http.ResponseWriter, r *http.Request) {
	rawURL, ok := decodeURLRequest(w, r)
	if !ok {
		return
	}

	start := time.Now()
	result := h.coordinator.Enrich(r.Context(), rawURL)
	if h.collector != nil {
		h.collector.RecordEnrichLatency(time.Since(start))
	}

	keywords := result.Keywords
	if keywords == nil {
		keywords = []string{}
	}

	var favicon any
	if result.Favicon != "" {
		favicon = result.Favicon
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"title":    result.Title,
		"favicon":  favicon,
		"keywords": keywords,
		"summary":  result.Summary,
	})
}

func (h *EnrichHandler) recordFallback(branch string) {
	if h.collector != nil {
		h.collector.RecordEnrichFallback(branch)
	}
}
