package enrich

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/bukuma/internal/model"
)

// CoordinatorService はメタデータ抽出の並行実行のインターフェース。
type CoordinatorService interface {
	// Enrich は4系統（タイトル・favicon・キーワード・要約）を並行実行し、
	// 全系統の完了を待ってマージ済みの結果を返す。
	// 各系統の失敗はその系統のフォールバック値に縮退し、Enrich自体は失敗しない。
	Enrich(ctx context.Context, rawURL string) *model.Enrichment
}

// Coordinator はCoordinatorServiceの実装。
// 各系統は独立にページを取得する。系統間で状態を共有しないため、
// 1系統の遅延・失敗が他系統に波及しない。
type Coordinator struct {
	titles    TitleExtractorService
	favicons  FaviconFetcherService
	keywords  KeywordExtractorService
	summaries SummaryExtractorService
	logger    *slog.Logger
}

// NewCoordinator はCoordinatorの新しいインスタンスを生成する。
func NewCoordinator(
	titles TitleExtractorService,
	favicons FaviconFetcherService,
	keywords KeywordExtractorService,
	summaries SummaryExtractorService,
	logger *slog.Logger,
) *Coordinator {
	return &Coordinator{
		titles:    titles,
		favicons:  favicons,
		keywords:  keywords,
		summaries: summaries,
		logger:    logger,
	}
}

// Enrich は4系統を並行実行し、マージ済みの結果を返す。
// 各系統はフォールバック値を返すことで失敗を吸収済みのため、
// ここではエラー分岐が存在しない（構造的に失敗しない）。
func (c *Coordinator) Enrich(ctx context.Context, rawURL string) *model.Enrichment {
	start := time.Now()
	result := &model.Enrichment{}

	var wg sync.WaitGroup
	wg.Add(4)

	go func() {
		defer wg.Done()
		result.Title = c.titles.ExtractTitle(ctx, rawURL)
	}()
	go func() {
		defer wg.Done()
		result.Favicon = c.favicons.FetchFavicon(ctx, rawURL)
	}()
	go func() {
		defer wg.Done()
		result.Keywords = c.keywords.ExtractKeywords(ctx, rawURL)
	}()
	go func() {
		defer wg.Done()
		result.Summary = c.summaries.ExtractSummary(ctx, rawURL)
	}()

	wg.Wait()

	c.logger.Info("メタデータ抽出が完了しました",
		slog.String("url", rawURL),
		slog.Bool("has_favicon", result.Favicon != ""),
		slog.Int("keywords", len(result.Keywords)),
		slog.Bool("has_summary", result.Summary != ""),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return result
}

// compile-time interface check
var _ CoordinatorService = (*Coordinator)(nil)
