// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/bukuma/internal/auth"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Login(ctx context.Context, email, password string) (token, resolvedEmail string, err error)
	Signup(ctx context.Context, email, password string) (token, resolvedEmail string, err error)
}

// LoginFailureRecorder はログイン失敗メトリクスのインターフェース。
type LoginFailureRecorder interface {
	RecordLoginFailure()
}

// AuthHandler はログイン・サインアップのHTTPハンドラー。
type AuthHandler struct {
	service   AuthServiceInterface
	collector LoginFailureRecorder
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, collector LoginFailureRecorder) *AuthHandler {
	return &AuthHandler{
		service:   service,
		collector: collector,
	}
}

// credentialsRequest はログイン・サインアップの共通リクエストボディ。
type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// authSuccessResponse は認証成功レスポンス。
type authSuccessResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token"`
	Email   string `json:"email"`
}

// authFailureResponse は認証失敗レスポンス。
// 他のエンドポイントの統一エラーフォーマットとは異なり、
// クライアントがsuccessフラグで分岐する歴史的な形式を維持する。
type authFailureResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Login はメールアドレスとパスワードでログインし、ベアラートークンを発行する。
// POST /login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAuthFailure(w, http.StatusBadRequest, "リクエストボディの解析に失敗しました。")
		return
	}

	if req.Email == "" || req.Password == "" {
		writeAuthFailure(w, http.StatusBadRequest, "メールアドレスとパスワードは必須です。")
		return
	}

	token, email, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if h.collector != nil {
			h.collector.RecordLoginFailure()
		}
		if errors.Is(err, auth.ErrInvalidCredentials) {
			// 存在しないユーザーとパスワード誤りは同じ応答（ユーザー列挙を防ぐ）
			writeAuthFailure(w, http.StatusUnauthorized, err.Error())
			return
		}
		slog.Error("ログイン処理に失敗しました", slog.String("error", err.Error()))
		writeAuthFailure(w, http.StatusInternalServerError, "サーバーエラーが発生しました。")
		return
	}

	writeJSON(w, http.StatusOK, authSuccessResponse{
		Success: true,
		Token:   token,
		Email:   email,
	})
}

// Signup は新規ユーザーを登録し、ベアラートークンを発行する。
// POST /signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAuthFailure(w, http.StatusBadRequest, "リクエストボディの解析に失敗しました。")
		return
	}

	if req.Email == "" || req.Password == "" {
		writeAuthFailure(w, http.StatusBadRequest, "メールアドレスとパスワードは必須です。")
		return
	}

	token, email, err := h.service.Signup(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrEmailTaken) {
			writeAuthFailure(w, http.StatusConflict, err.Error())
			return
		}
		slog.Error("サインアップ処理に失敗しました", slog.String("error", err.Error()))
		writeAuthFailure(w, http.StatusInternalServerError, "サーバーエラーが発生しました。")
		return
	}

	writeJSON(w, http.StatusOK, authSuccessResponse{
		Success: true,
		Token:   token,
		Email:   email,
	})
}

// writeAuthFailure は認証系の失敗レスポンスを書き込む。
func writeAuthFailure(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, authFailureResponse{
		Success: false,
		Message: message,
	})
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}
