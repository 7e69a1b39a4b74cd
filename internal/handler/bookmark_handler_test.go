package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/bukuma/internal/middleware"
	"github.com/hitoshi/bukuma/internal/model"
)

// mockBookmarkService はBookmarkServiceInterfaceのモック実装。
type mockBookmarkService struct {
	addFn    func(ctx context.Context, userID string, input model.BookmarkInput) (*model.Bookmark, error)
	listFn   func(ctx context.Context, userID string) ([]*model.Bookmark, error)
	deleteFn func(ctx context.Context, userID, bookmarkID string) error
}

func (m *mockBookmarkService) AddBookmark(ctx context.Context, userID string, input model.BookmarkInput) (*model.Bookmark, error) {
	return m.addFn(ctx, userID, input)
}

func (m *mockBookmarkService) ListBookmarks(ctx context.Context, userID string) ([]*model.Bookmark, error) {
	return m.listFn(ctx, userID)
}

func (m *mockBookmarkService) DeleteBookmark(ctx context.Context, userID, bookmarkID string) error {
	return m.deleteFn(ctx, userID, bookmarkID)
}

func authedRequest(method, target, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	ctx := middleware.ContextWithIdentity(req.Context(), &model.Identity{UserID: "user-1", Email: "alice@example.com"})
	return req.WithContext(ctx)
}

func TestBookmarkHandler_AddBookmark_Success(t *testing.T) {
	var gotUserID string
	svc := &mockBookmarkService{
		addFn: func(ctx context.Context, userID string, input model.BookmarkInput) (*model.Bookmark, error) {
			gotUserID = userID
			return &model.Bookmark{
				ID:     "bm-1",
				UserID: userID,
				URL:    "https://example.com",
				Title:  "https://example.com",
				Tags:   []string{"a", "b"},
			}, nil
		},
	}
	h := NewBookmarkHandler(svc, nil)

	req := authedRequest(http.MethodPost, "/add-bookmark", `{"url":"example.com","tags":["a","a","b"]}`)
	w := httptest.NewRecorder()
	h.AddBookmark(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	// user_idは検証済みトークン由来の値のみ
	if gotUserID != "user-1" {
		t.Errorf("userID = %q, want %q", gotUserID, "user-1")
	}

	var body struct {
		Success  bool             `json:"success"`
		Bookmark bookmarkResponse `json:"bookmark"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if !body.Success {
		t.Error("success = false, want true")
	}
	if body.Bookmark.ID != "bm-1" {
		t.Errorf("bookmark.id = %q", body.Bookmark.ID)
	}
}

func TestBookmarkHandler_AddBookmark_ClientSuppliedUserIDIgnored(t *testing.T) {
	var gotUserID string
	svc := &mockBookmarkService{
		addFn: func(ctx context.Context, userID string, input model.BookmarkInput) (*model.Bookmark, error) {
			gotUserID = userID
			return &model.Bookmark{ID: "bm-1", UserID: userID}, nil
		},
	}
	h := NewBookmarkHandler(svc, nil)

	// ボディにuser_idを入れてもトークンのsubjectが使われる
	req := authedRequest(http.MethodPost, "/add-bookmark", `{"url":"example.com","user_id":"attacker"}`)
	w := httptest.NewRecorder()
	h.AddBookmark(w, req)

	if gotUserID != "user-1" {
		t.Errorf("userID = %q, want token subject user-1", gotUserID)
	}
}

func TestBookmarkHandler_AddBookmark_NoIdentity_Returns401(t *testing.T) {
	svc := &mockBookmarkService{
		addFn: func(ctx context.Context, userID string, input model.BookmarkInput) (*model.Bookmark, error) {
			t.Fatal("AddBookmark should not be called without identity")
			return nil, nil
		},
	}
	h := NewBookmarkHandler(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/add-bookmark", strings.NewReader(`{"url":"example.com"}`))
	w := httptest.NewRecorder()
	h.AddBookmark(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestBookmarkHandler_AddBookmark_MalformedJSON_Returns400(t *testing.T) {
	svc := &mockBookmarkService{
		addFn: func(ctx context.Context, userID string, input model.BookmarkInput) (*model.Bookmark, error) {
			t.Fatal("AddBookmark should not be called for malformed JSON")
			return nil, nil
		},
	}
	h := NewBookmarkHandler(svc, nil)

	req := authedRequest(http.MethodPost, "/add-bookmark", `{broken`)
	w := httptest.NewRecorder()
	h.AddBookmark(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestBookmarkHandler_AddBookmark_EmptyURL_Returns400(t *testing.T) {
	svc := &mockBookmarkService{
		addFn: func(ctx context.Context, userID string, input model.BookmarkInput) (*model.Bookmark, error) {
			return nil, model.NewInvalidURLError("URLが空です")
		},
	}
	h := NewBookmarkHandler(svc, nil)

	req := authedRequest(http.MethodPost, "/add-bookmark", `{}`)
	w := httptest.NewRecorder()
	h.AddBookmark(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}

	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body["error"] == nil {
		t.Error("expected error field in body")
	}
}

func TestBookmarkHandler_AddBookmark_PersistenceFailure_Returns500WithCode(t *testing.T) {
	svc := &mockBookmarkService{
		addFn: func(ctx context.Context, userID string, input model.BookmarkInput) (*model.Bookmark, error) {
			return nil, model.NewPersistenceError("permission denied for table bookmarks", "42501")
		},
	}
	h := NewBookmarkHandler(svc, nil)

	req := authedRequest(http.MethodPost, "/add-bookmark", `{"url":"example.com"}`)
	w := httptest.NewRecorder()
	h.AddBookmark(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}

	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	// 下層のメッセージとコードが診断用に透過される
	if body["code"] != "42501" {
		t.Errorf("code = %v, want 42501", body["code"])
	}
	if body["details"] != "permission denied for table bookmarks" {
		t.Errorf("details = %v", body["details"])
	}
}

func TestBookmarkHandler_ListBookmarks_Success(t *testing.T) {
	svc := &mockBookmarkService{
		listFn: func(ctx context.Context, userID string) ([]*model.Bookmark, error) {
			return []*model.Bookmark{
				{ID: "bm-1", UserID: userID},
				{ID: "bm-2", UserID: userID},
			}, nil
		},
	}
	h := NewBookmarkHandler(svc, nil)

	req := authedRequest(http.MethodGet, "/bookmarks", "")
	w := httptest.NewRecorder()
	h.ListBookmarks(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var body struct {
		Success   bool               `json:"success"`
		Bookmarks []bookmarkResponse `json:"bookmarks"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if len(body.Bookmarks) != 2 {
		t.Errorf("bookmarks count = %d, want 2", len(body.Bookmarks))
	}
}

func TestBookmarkHandler_DeleteBookmark_NotFound_Returns404(t *testing.T) {
	svc := &mockBookmarkService{
		deleteFn: func(ctx context.Context, userID, bookmarkID string) error {
			return model.NewBookmarkNotFoundError(bookmarkID)
		},
	}
	h := NewBookmarkHandler(svc, nil)

	r := chi.NewRouter()
	r.Delete("/bookmarks/{id}", h.DeleteBookmark)

	req := authedRequest(http.MethodDelete, "/bookmarks/bm-missing", "")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestBookmarkHandler_DeleteBookmark_Success(t *testing.T) {
	var gotUserID, gotID string
	svc := &mockBookmarkService{
		deleteFn: func(ctx context.Context, userID, bookmarkID string) error {
			gotUserID, gotID = userID, bookmarkID
			return nil
		},
	}
	h := NewBookmarkHandler(svc, nil)

	r := chi.NewRouter()
	r.Delete("/bookmarks/{id}", h.DeleteBookmark)

	req := authedRequest(http.MethodDelete, "/bookmarks/bm-1", "")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if gotUserID != "user-1" || gotID != "bm-1" {
		t.Errorf("Delete called with (%q, %q)", gotUserID, gotID)
	}
}

// mockBookmarkCreatedRecorder はBookmarkCreatedRecorderのモック実装。
type mockBookmarkCreatedRecorder struct {
	count int
}

func (m *mockBookmarkCreatedRecorder) RecordBookmarkCreated() {
	m.count++
}

func TestBookmarkHandler_AddBookmark_RecordsMetric(t *testing.T) {
	svc := &mockBookmarkService{
		addFn: func(ctx context.Context, userID string, input model.BookmarkInput) (*model.Bookmark, error) {
			return &model.Bookmark{ID: "bm-1"}, nil
		},
	}
	collector := &mockBookmarkCreatedRecorder{}
	h := NewBookmarkHandler(svc, collector)

	req := authedRequest(http.MethodPost, "/add-bookmark", `{"url":"example.com"}`)
	w := httptest.NewRecorder()
	h.AddBookmark(w, req)

	if collector.count != 1 {
		t.Errorf("bookmark created count = %d, want 1", collector.count)
	}
}
