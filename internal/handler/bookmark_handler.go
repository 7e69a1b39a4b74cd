package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/bukuma/internal/middleware"
	"github.com/hitoshi/bukuma/internal/model"
)

// BookmarkServiceInterface はブックマークハンドラーが必要とするサービスインターフェース。
type BookmarkServiceInterface interface {
	AddBookmark(ctx context.Context, userID string, input model.BookmarkInput) (*model.Bookmark, error)
	ListBookmarks(ctx context.Context, userID string) ([]*model.Bookmark, error)
	DeleteBookmark(ctx context.Context, userID, bookmarkID string) error
}

// BookmarkCreatedRecorder はブックマーク保存メトリクスのインターフェース。
type BookmarkCreatedRecorder interface {
	RecordBookmarkCreated()
}

// BookmarkHandler はブックマーク関連のHTTPハンドラー。
type BookmarkHandler struct {
	service   BookmarkServiceInterface
	collector BookmarkCreatedRecorder
}

// NewBookmarkHandler はBookmarkHandlerを生成する。
func NewBookmarkHandler(service BookmarkServiceInterface, collector BookmarkCreatedRecorder) *BookmarkHandler {
	return &BookmarkHandler{
		service:   service,
		collector: collector,
	}
}

// addBookmarkRequest はブックマーク保存リクエストのボディ。
// user_idに相当するフィールドは受け付けない。検証済みトークンのsubjectのみを使用する。
type addBookmarkRequest struct {
	URL         string   `json:"url"`
	Tags        []string `json:"tags"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords"`
	Favicon     string   `json:"favicon"`
	Summary     string   `json:"summary"`
}

// bookmarkResponse はブックマークのレスポンス表現。
type bookmarkResponse struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Tags        []string  `json:"tags"`
	Keywords    []string  `json:"keywords"` // 未抽出の場合はnull
	Thumbnail   string    `json:"thumbnail"`
	Summary     string    `json:"summary"`
	CreatedAt   time.Time `json:"created_at"`
}

func toBookmarkResponse(b *model.Bookmark) bookmarkResponse {
	return bookmarkResponse{
		ID:          b.ID,
		UserID:      b.UserID,
		URL:         b.URL,
		Title:       b.Title,
		Description: b.Description,
		Tags:        b.Tags,
		Keywords:    b.Keywords,
		Thumbnail:   b.Thumbnail,
		Summary:     b.Summary,
		CreatedAt:   b.CreatedAt,
	}
}

// AddBookmark はブックマークを保存する。
// POST /add-bookmark
func (h *BookmarkHandler) AddBookmark(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError(err.Error()))
		return
	}

	var req addBookmarkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return
	}

	bookmark, err := h.service.AddBookmark(r.Context(), identity.UserID, model.BookmarkInput{
		URL:         req.URL,
		Title:       req.Title,
		Description: req.Description,
		Tags:        req.Tags,
		Keywords:    req.Keywords,
		Favicon:     req.Favicon,
		Summary:     req.Summary,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if h.collector != nil {
		h.collector.RecordBookmarkCreated()
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"bookmark": toBookmarkResponse(bookmark),
	})
}

// ListBookmarks は認証済みユーザーのブックマーク一覧を返す。
// GET /bookmarks
func (h *BookmarkHandler) ListBookmarks(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError(err.Error()))
		return
	}

	bookmarks, err := h.service.ListBookmarks(r.Context(), identity.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	responses := make([]bookmarkResponse, 0, len(bookmarks))
	for _, b := range bookmarks {
		responses = append(responses, toBookmarkResponse(b))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"bookmarks": responses,
	})
}

// DeleteBookmark は認証済みユーザーのブックマークを削除する。
// DELETE /bookmarks/{id}
func (h *BookmarkHandler) DeleteBookmark(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError(err.Error()))
		return
	}

	bookmarkID := chi.URLParam(r, "id")
	if bookmarkID == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return
	}

	if err := h.service.DeleteBookmark(r.Context(), identity.UserID, bookmarkID); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// writeServiceError はサービス層のエラーをHTTPステータスに対応付けて書き込む。
func writeServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		middleware.WriteInternalServerError(w)
		return
	}

	switch apiErr.Code {
	case model.ErrCodeInvalidURL, model.ErrCodeInvalidRequest:
		middleware.WriteErrorResponse(w, http.StatusBadRequest, apiErr)
	case model.ErrCodeUnauthorized:
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, apiErr)
	case model.ErrCodeBookmarkNotFound:
		middleware.WriteErrorResponse(w, http.StatusNotFound, apiErr)
	default:
		// 永続化層の拒否（権限ポリシー違反等）はコードを透過した500
		middleware.WriteErrorResponse(w, http.StatusInternalServerError, apiErr)
	}
}
