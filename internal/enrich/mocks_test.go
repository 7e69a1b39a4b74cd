package enrich

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sashabaranov/go-openai"
)

// testLogger はテスト用のロガー（出力を破棄）。
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockSSRFGuard はSSRFValidatorのモック実装。
// httptestサーバー（ループバックアドレス）へのアクセスを許可するために使用する。
type mockSSRFGuard struct {
	validateErr error
}

func (m *mockSSRFGuard) ValidateURL(rawURL string) error {
	return m.validateErr
}

func (m *mockSSRFGuard) NewSafeClient(timeout time.Duration, maxResponseSize int64) *http.Client {
	return &http.Client{Timeout: timeout}
}

// mockPageFetcher はPageFetcherServiceのモック実装。
type mockPageFetcher struct {
	fetchFn func(ctx context.Context, rawURL string) (*goquery.Document, error)
}

func (m *mockPageFetcher) FetchDocument(ctx context.Context, rawURL string) (*goquery.Document, error) {
	return m.fetchFn(ctx, rawURL)
}

// mockChatCompleter はChatCompleterのモック実装。
type mockChatCompleter struct {
	completeFn func(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

func (m *mockChatCompleter) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	return m.completeFn(ctx, req)
}

// chatResponse は先頭choiceに指定本文を持つレスポンスを組み立てる。
func chatResponse(content string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: content}},
		},
	}
}

// docFromHTML はHTML文字列からgoqueryドキュメントを組み立てる。
func docFromHTML(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("failed to parse HTML: %v", err)
	}
	return doc
}
