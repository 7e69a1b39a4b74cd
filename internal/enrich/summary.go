package enrich

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// summaryPromptFormat は要約生成用のプロンプト。
const summaryPromptFormat = `以下のウェブページ本文の核心を捉えた簡潔な要約を100文字以内で生成してください。

本文：%s`

// SummaryExtractorService は要約生成のインターフェース。
type SummaryExtractorService interface {
	// ExtractSummary は指定URLの本文から要約を生成する。
	// 取得・LLM呼び出しの失敗時は空文字列を返す（エラーは外に漏らさない）。
	ExtractSummary(ctx context.Context, rawURL string) string
}

// SummaryExtractor はSummaryExtractorServiceの実装。
type SummaryExtractor struct {
	fetcher   PageFetcherService
	client    ChatCompleter
	model     string
	textLimit int
	logger    *slog.Logger
}

// NewSummaryExtractor はSummaryExtractorの新しいインスタンスを生成する。
// clientがnilの場合（APIキー未設定）、生成は常に空文字列を返す。
func NewSummaryExtractor(fetcher PageFetcherService, client ChatCompleter, model string, textLimit int, logger *slog.Logger) *SummaryExtractor {
	return &SummaryExtractor{
		fetcher:   fetcher,
		client:    client,
		model:     model,
		textLimit: textLimit,
		logger:    logger,
	}
}

// ExtractSummary は指定URLの本文から要約を生成する。
func (e *SummaryExtractor) ExtractSummary(ctx context.Context, rawURL string) string {
	if e.client == nil {
		e.logger.Warn("要約生成: APIキー未設定のためスキップします", slog.String("url", rawURL))
		return ""
	}

	doc, err := e.fetcher.FetchDocument(ctx, rawURL)
	if err != nil {
		e.logger.Warn("要約生成: ページ取得に失敗しました",
			slog.String("url", rawURL),
			slog.String("error", err.Error()),
		)
		return ""
	}

	mainText := ExtractMainText(doc, e.textLimit)
	if mainText == "" {
		return ""
	}

	content, err := completeChat(ctx, e.client, e.model, fmt.Sprintf(summaryPromptFormat, mainText))
	if err != nil {
		e.logger.Warn("要約生成: LLM呼び出しに失敗しました",
			slog.String("url", rawURL),
			slog.String("error", err.Error()),
		)
		return ""
	}

	return strings.TrimSpace(content)
}

// compile-time interface check
var _ SummaryExtractorService = (*SummaryExtractor)(nil)
