package enrich

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestFaviconEndpoint_Deterministic(t *testing.T) {
	first := FaviconEndpoint("example.com")
	second := FaviconEndpoint("example.com")

	// 同一ホスト名に対して常に同一のURLを返すこと
	if first != second {
		t.Errorf("FaviconEndpoint is not deterministic: %q != %q", first, second)
	}
	want := "https://www.google.com/s2/favicons?domain=example.com&sz=32"
	if first != want {
		t.Errorf("FaviconEndpoint = %q, want %q", first, want)
	}
}

func newTestFaviconFetcher(provider string) *FaviconFetcher {
	return &FaviconFetcher{
		client:   &http.Client{Timeout: 5 * time.Second},
		logger:   testLogger(),
		provider: provider,
	}
}

func TestFaviconFetcher_FetchFavicon_ReturnsDataURI(t *testing.T) {
	imageBytes := []byte{0x89, 0x50, 0x4E, 0x47} // PNGマジックナンバー
	var gotDomain string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotDomain = r.URL.Query().Get("domain")
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(imageBytes)
	}))
	defer srv.Close()

	fetcher := newTestFaviconFetcher(srv.URL)

	got := fetcher.FetchFavicon(context.Background(), "https://example.com/article")

	want := "data:image/png;base64," + base64.StdEncoding.EncodeToString(imageBytes)
	if got != want {
		t.Errorf("FetchFavicon = %q, want %q", got, want)
	}
	// ページURLのパスではなくホスト名がプロバイダに渡ること
	if gotDomain != "example.com" {
		t.Errorf("domain = %q, want %q", gotDomain, "example.com")
	}
}

func TestFaviconFetcher_FetchFavicon_FailureReturnsEmpty(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			"404レスポンス",
			func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "not found", http.StatusNotFound)
			},
		},
		{
			"空ボディ",
			func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			fetcher := newTestFaviconFetcher(srv.URL)

			if got := fetcher.FetchFavicon(context.Background(), "https://example.com"); got != "" {
				t.Errorf("FetchFavicon = %q, want empty", got)
			}
		})
	}
}

func TestFaviconFetcher_FetchFavicon_NetworkErrorReturnsEmpty(t *testing.T) {
	// 接続先のないプロバイダ
	fetcher := newTestFaviconFetcher("http://127.0.0.1:1")

	if got := fetcher.FetchFavicon(context.Background(), "https://example.com"); got != "" {
		t.Errorf("FetchFavicon = %q, want empty", got)
	}
}

func TestFaviconFetcher_FetchFavicon_SingleAttempt(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "server error", http.StatusInternalServerError)
	}))
	defer srv.Close()

	fetcher := newTestFaviconFetcher(srv.URL)
	_ = fetcher.FetchFavicon(context.Background(), "https://example.com")

	// リトライしないこと
	if calls != 1 {
		t.Errorf("request count = %d, want 1", calls)
	}
}

func TestFaviconEndpoint_EscapesHostname(t *testing.T) {
	got := FaviconEndpoint("例え.jp")
	if !strings.Contains(got, "domain=") {
		t.Errorf("FaviconEndpoint = %q, missing domain parameter", got)
	}
	if strings.Contains(got, "例え.jp") {
		t.Errorf("FaviconEndpoint = %q, hostname not escaped", got)
	}
}
