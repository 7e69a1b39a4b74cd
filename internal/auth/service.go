// Package auth はメールアドレス/パスワード認証とトークン管理のドメインロジックを提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/bukuma/internal/model"
	"github.com/hitoshi/bukuma/internal/repository"
)

// ErrInvalidCredentials はメールアドレスまたはパスワードが一致しない場合のエラー。
// どちらが誤っているかを呼び出し元に区別させない。
var ErrInvalidCredentials = fmt.Errorf("メールアドレスまたはパスワードが正しくありません")

// ErrEmailTaken は既に登録済みのメールアドレスでのサインアップを表すエラー。
var ErrEmailTaken = fmt.Errorf("このメールアドレスは既に登録されています")

// Service は認証のサービス層。
// ログイン・サインアップとトークン発行を統括する。
type Service struct {
	userRepo repository.UserRepository
	tokens   *TokenService
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(userRepo repository.UserRepository, tokens *TokenService) *Service {
	return &Service{
		userRepo: userRepo,
		tokens:   tokens,
	}
}

// Login はメールアドレスとパスワードを検証し、アクセストークンを発行する。
// ユーザー未登録とパスワード不一致はどちらもErrInvalidCredentialsとして返す。
func (s *Service) Login(ctx context.Context, email, password string) (token string, userEmail string, err error) {
	email = normalizeEmail(email)

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return "", "", fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return "", "", ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		slog.Warn("ログイン失敗: パスワード不一致",
			slog.String("email", email),
		)
		return "", "", ErrInvalidCredentials
	}

	token, err = s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return "", "", fmt.Errorf("トークンの発行に失敗しました: %w", err)
	}

	return token, user.Email, nil
}

// Signup は新規ユーザーを作成し、アクセストークンを発行する。
func (s *Service) Signup(ctx context.Context, email, password string) (token string, userEmail string, err error) {
	email = normalizeEmail(email)

	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return "", "", fmt.Errorf("ユーザーの確認に失敗しました: %w", err)
	}
	if existing != nil {
		return "", "", ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", "", fmt.Errorf("パスワードハッシュの生成に失敗しました: %w", err)
	}

	now := time.Now()
	user := &model.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		// 事前のFindByEmailとINSERTの間に同一アドレスの登録が割り込んだ場合、
		// users.emailの一意制約違反（SQLSTATE 23505）が返る。これも登録済み扱いにする。
		if isUniqueViolation(err) {
			return "", "", ErrEmailTaken
		}
		return "", "", fmt.Errorf("ユーザーの作成に失敗しました: %w", err)
	}

	slog.Info("新規ユーザーを作成しました",
		slog.String("user_id", user.ID),
	)

	token, err = s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return "", "", fmt.Errorf("トークンの発行に失敗しました: %w", err)
	}

	return token, user.Email, nil
}

// VerifyToken はベアラートークンを検証し、呼び出し元の身元を解決する。
// ブックマーク書き込みのuser_idは必ずこの戻り値から決定される。
func (s *Service) VerifyToken(tokenString string) (*model.Identity, error) {
	return s.tokens.Verify(tokenString)
}

// isUniqueViolation はlib/pqの一意制約違反（SQLSTATE 23505）かどうかを判定する。
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// normalizeEmail はメールアドレスを比較用に正規化する。
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
