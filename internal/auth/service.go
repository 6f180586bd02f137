// Package auth はリファレンスサーバーのアカウント作成、ログイン、トークン認証を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/hackorsnooze/internal/model"
	"github.com/hitoshi/hackorsnooze/internal/repository"
	"github.com/hitoshi/hackorsnooze/internal/security"
)

// usernamePattern はURLパスにそのまま埋め込めるユーザー名の形式。
var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,64}$`)

// maxPasswordBytes はbcryptが扱える最大バイト数。
const maxPasswordBytes = 72

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	BcryptCost int
}

// Service はアカウントとログイントークンに関するビジネスロジックを提供する。
type Service struct {
	userRepo  repository.UserRepository
	tokenRepo repository.TokenRepository
	storyRepo repository.StoryRepository
	favRepo   repository.FavoriteRepository
	sanitizer security.TextSanitizer
	config    ServiceConfig
	now       func() time.Time
}

// NewService はServiceを生成する。
func NewService(
	userRepo repository.UserRepository,
	tokenRepo repository.TokenRepository,
	storyRepo repository.StoryRepository,
	favRepo repository.FavoriteRepository,
	sanitizer security.TextSanitizer,
	config ServiceConfig,
) *Service {
	if config.BcryptCost == 0 {
		config.BcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		userRepo:  userRepo,
		tokenRepo: tokenRepo,
		storyRepo: storyRepo,
		favRepo:   favRepo,
		sanitizer: sanitizer,
		config:    config,
		now:       time.Now,
	}
}

// Signup はアカウントを作成し、プロフィールとログイントークンを返す。
// ユーザー名が使用済みの場合はUSERNAME_TAKENエラーを返す。
func (s *Service) Signup(ctx context.Context, username, password, name string) (*model.Profile, string, error) {
	if err := validateCredentials(username, password); err != nil {
		return nil, "", err
	}
	name = s.sanitizer.Clean(name)
	if name == "" {
		return nil, "", model.NewMissingFieldError("name")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.config.BcryptCost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now().UTC()
	account := &model.Account{
		Username:     username,
		Name:         name,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.userRepo.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, "", model.NewUsernameTakenError(username)
		}
		return nil, "", fmt.Errorf("failed to create user: %w", err)
	}

	token, err := s.issueToken(ctx, username)
	if err != nil {
		return nil, "", err
	}

	slog.Info("new user created", slog.String("username", username))

	return &model.Profile{
		Username:  account.Username,
		Name:      account.Name,
		CreatedAt: account.CreatedAt,
		Favorites: []model.Story{},
		Stories:   []model.Story{},
	}, token, nil
}

// Login はパスワードを検証し、プロフィールと新しいログイントークンを返す。
// ユーザーが存在しない場合もパスワード不一致と同じエラーを返す。
func (s *Service) Login(ctx context.Context, username, password string) (*model.Profile, string, error) {
	if strings.TrimSpace(username) == "" {
		return nil, "", model.NewMissingFieldError("username")
	}
	if password == "" {
		return nil, "", model.NewMissingFieldError("password")
	}

	account, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, "", fmt.Errorf("failed to find user: %w", err)
	}
	if account == nil {
		return nil, "", model.NewInvalidCredentialsError()
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		slog.Info("login rejected", slog.String("username", username))
		return nil, "", model.NewInvalidCredentialsError()
	}

	token, err := s.issueToken(ctx, username)
	if err != nil {
		return nil, "", err
	}

	profile, err := s.Profile(ctx, username)
	if err != nil {
		return nil, "", err
	}

	slog.Info("user logged in", slog.String("username", username))
	return profile, token, nil
}

// Authenticate はトークンに紐づくユーザー名を返す。
// トークンが空または不明な場合はUNAUTHORIZEDエラーを返す。
func (s *Service) Authenticate(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", model.NewUnauthorizedError()
	}
	username, err := s.tokenRepo.FindUsername(ctx, token)
	if err != nil {
		return "", fmt.Errorf("failed to find token: %w", err)
	}
	if username == "" {
		return "", model.NewUnauthorizedError()
	}
	return username, nil
}

// Profile はユーザー情報とお気に入り・投稿一覧を返す。
func (s *Service) Profile(ctx context.Context, username string) (*model.Profile, error) {
	account, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if account == nil {
		return nil, model.NewUserNotFoundError(username)
	}

	favorites, err := s.favRepo.ListStories(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to list favorites: %w", err)
	}
	stories, err := s.storyRepo.ListByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to list own stories: %w", err)
	}

	return &model.Profile{
		Username:  account.Username,
		Name:      account.Name,
		CreatedAt: account.CreatedAt,
		Favorites: favorites,
		Stories:   stories,
	}, nil
}

// issueToken はログイントークンを生成して永続化する。
func (s *Service) issueToken(ctx context.Context, username string) (string, error) {
	token, err := generateToken()
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	if err := s.tokenRepo.Create(ctx, &model.LoginToken{
		Token:     token,
		Username:  username,
		CreatedAt: s.now().UTC(),
	}); err != nil {
		return "", fmt.Errorf("failed to save token: %w", err)
	}
	return token, nil
}

// generateToken は暗号的に安全なトークンを生成する。
func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func validateCredentials(username, password string) error {
	if strings.TrimSpace(username) == "" {
		return model.NewMissingFieldError("username")
	}
	if !usernamePattern.MatchString(username) {
		return model.NewInvalidRequestError("ユーザー名に使用できるのは英数字と _ . - のみです（64文字まで）。")
	}
	if password == "" {
		return model.NewMissingFieldError("password")
	}
	if len(password) > maxPasswordBytes {
		return model.NewInvalidRequestError("パスワードは72バイト以内で指定してください。")
	}
	return nil
}
