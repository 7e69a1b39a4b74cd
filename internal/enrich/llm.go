package enrich

import (
	"context"

	"github.com/sashabaranov/go-openai"
)

// LLM呼び出しの生成パラメータ。
const (
	llmTopP        = 0.7
	llmTemperature = 0.9
	llmMaxTokens   = 256
)

// ChatCompleter はチャット補完APIのインターフェース。
// go-openaiのClientが実装する。テストではモックに差し替える。
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// NewLLMClient はOpenAI互換エンドポイント向けのチャット補完クライアントを生成する。
// ZhipuAI等のOpenAI互換APIをBaseURLの差し替えで利用する。
// APIキーが未設定の場合はnilを返し、呼び出し側はフォールバックに縮退する。
func NewLLMClient(apiKey, baseURL string) *openai.Client {
	if apiKey == "" {
		return nil
	}
	config := openai.DefaultConfig(apiKey)
	config.BaseURL = baseURL
	return openai.NewClientWithConfig(config)
}

// LLMCallRecorder はチャット補完呼び出しの成否の記録先。
// metrics.CollectorのRecordLLMCallが実装する。
type LLMCallRecorder interface {
	RecordLLMCall(success bool)
}

// recordingChatCompleter は呼び出しの成否をメトリクスに記録するChatCompleterのデコレータ。
type recordingChatCompleter struct {
	inner    ChatCompleter
	recorder LLMCallRecorder
}

// NewRecordingChatCompleter はチャット補完の成否をrecorderに記録するクライアントを返す。
func NewRecordingChatCompleter(inner ChatCompleter, recorder LLMCallRecorder) ChatCompleter {
	return &recordingChatCompleter{inner: inner, recorder: recorder}
}

func (r *recordingChatCompleter) CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	resp, err := r.inner.CreateChatCompletion(ctx, request)
	r.recorder.RecordLLMCall(err == nil)
	return resp, err
}

// completeChat は単一のユーザーメッセージでチャット補完を実行し、
// 先頭choiceの本文を返す。
func completeChat(ctx context.Context, client ChatCompleter, model, prompt string) (string, error) {
	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		TopP:        llmTopP,
		Temperature: llmTemperature,
		MaxTokens:   llmMaxTokens,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}
