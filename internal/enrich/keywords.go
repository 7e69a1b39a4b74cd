package enrich

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// maxKeywords は1つのURLに対して返すキーワードの上限数。
const maxKeywords = 5

// keywordPromptFormat はキーワード抽出用のプロンプト。
// カンマ区切りの素朴な形式を指定する。JSONを要求するとモデルによっては
// コードブロックで包んで返すため、パースが安定しない。
const keywordPromptFormat = `以下のウェブページ本文から最も重要なキーワードを3〜5個抽出してください。キーワードのみをカンマ区切りで返してください。

本文：%s`

// KeywordExtractorService はキーワード抽出のインターフェース。
type KeywordExtractorService interface {
	// ExtractKeywords は指定URLの本文からキーワードを最大5個抽出する。
	// 取得・LLM呼び出しの失敗時は空スライスを返す（エラーは外に漏らさない）。
	ExtractKeywords(ctx context.Context, rawURL string) []string
}

// KeywordExtractor はKeywordExtractorServiceの実装。
type KeywordExtractor struct {
	fetcher   PageFetcherService
	client    ChatCompleter
	model     string
	textLimit int
	logger    *slog.Logger
}

// NewKeywordExtractor はKeywordExtractorの新しいインスタンスを生成する。
// clientがnilの場合（APIキー未設定）、抽出は常に空スライスを返す。
func NewKeywordExtractor(fetcher PageFetcherService, client ChatCompleter, model string, textLimit int, logger *slog.Logger) *KeywordExtractor {
	return &KeywordExtractor{
		fetcher:   fetcher,
		client:    client,
		model:     model,
		textLimit: textLimit,
		logger:    logger,
	}
}

// ExtractKeywords は指定URLの本文からキーワードを最大5個抽出する。
func (e *KeywordExtractor) ExtractKeywords(ctx context.Context, rawURL string) []string {
	if e.client == nil {
		e.logger.Warn("キーワード抽出: APIキー未設定のためスキップします", slog.String("url", rawURL))
		return []string{}
	}

	doc, err := e.fetcher.FetchDocument(ctx, rawURL)
	if err != nil {
		e.logger.Warn("キーワード抽出: ページ取得に失敗しました",
			slog.String("url", rawURL),
			slog.String("error", err.Error()),
		)
		return []string{}
	}

	mainText := ExtractMainText(doc, e.textLimit)
	if mainText == "" {
		return []string{}
	}

	content, err := completeChat(ctx, e.client, e.model, fmt.Sprintf(keywordPromptFormat, mainText))
	if err != nil {
		e.logger.Warn("キーワード抽出: LLM呼び出しに失敗しました",
			slog.String("url", rawURL),
			slog.String("error", err.Error()),
		)
		return []string{}
	}

	return splitKeywords(content)
}

// splitKeywords はLLM出力をキーワードのリストに分解する。
// ASCIIカンマと全角カンマの両方を区切りとして扱い、
// 前後の空白を除去し、空要素を捨て、最大5個に制限する。
func splitKeywords(content string) []string {
	parts := strings.FieldsFunc(content, func(r rune) bool {
		return r == ',' || r == '，'
	})

	keywords := make([]string, 0, maxKeywords)
	for _, p := range parts {
		k := strings.TrimSpace(p)
		if k == "" {
			continue
		}
		keywords = append(keywords, k)
		if len(keywords) == maxKeywords {
			break
		}
	}
	return keywords
}

// compile-time interface check
var _ KeywordExtractorService = (*KeywordExtractor)(nil)
