// Package catalog はリファレンスサーバーのストーリーとお気に入りのビジネスロジックを提供する。
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/hackorsnooze/internal/model"
	"github.com/hitoshi/hackorsnooze/internal/repository"
	"github.com/hitoshi/hackorsnooze/internal/security"
)

// URLValidator は投稿URLの検証インターフェース。
type URLValidator interface {
	ValidateURL(rawURL string) error
}

// Service はストーリーカタログのサービス層。
type Service struct {
	storyRepo repository.StoryRepository
	favRepo   repository.FavoriteRepository
	validator URLValidator
	sanitizer security.TextSanitizer
	now       func() time.Time
	newID     func() string
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	storyRepo repository.StoryRepository,
	favRepo repository.FavoriteRepository,
	validator URLValidator,
	sanitizer security.TextSanitizer,
) *Service {
	return &Service{
		storyRepo: storyRepo,
		favRepo:   favRepo,
		validator: validator,
		sanitizer: sanitizer,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// List は全ストーリーを新しい順に返す。
func (s *Service) List(ctx context.Context) ([]model.Story, error) {
	stories, err := s.storyRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("ストーリー一覧の取得に失敗しました: %w", err)
	}
	return stories, nil
}

// Get は指定IDのストーリーを返す。存在しない場合はSTORY_NOT_FOUNDエラーを返す。
func (s *Service) Get(ctx context.Context, storyID string) (*model.Story, error) {
	story, err := s.storyRepo.FindByID(ctx, storyID)
	if err != nil {
		return nil, fmt.Errorf("ストーリーの取得に失敗しました: %w", err)
	}
	if story == nil {
		return nil, model.NewStoryNotFoundError(storyID)
	}
	return story, nil
}

// Create はストーリーを作成する。IDと作成日時はサーバーで採番する。
// タイトルと著者名はマークアップを除去してから保存する。
func (s *Service) Create(ctx context.Context, username string, ns model.NewStory) (*model.Story, error) {
	ns.Title = s.sanitizer.Clean(ns.Title)
	ns.Author = s.sanitizer.Clean(ns.Author)
	if err := ns.Validate(); err != nil {
		return nil, err
	}
	if err := s.validator.ValidateURL(ns.URL); err != nil {
		return nil, err
	}

	story := &model.Story{
		ID:        s.newID(),
		Title:     ns.Title,
		Author:    ns.Author,
		URL:       ns.URL,
		Username:  username,
		CreatedAt: s.now().UTC(),
	}
	if err := s.storyRepo.Create(ctx, story); err != nil {
		return nil, fmt.Errorf("ストーリーの作成に失敗しました: %w", err)
	}

	slog.Info("story created",
		slog.String("story_id", story.ID),
		slog.String("username", username),
	)
	return story, nil
}

// Delete は投稿者本人のストーリーを削除し、削除したストーリーを返す。
// 他ユーザーのストーリーはFORBIDDENエラーとする。
func (s *Service) Delete(ctx context.Context, username, storyID string) (*model.Story, error) {
	story, err := s.Get(ctx, storyID)
	if err != nil {
		return nil, err
	}
	if story.Username != username {
		return nil, model.NewForbiddenError("他のユーザーのストーリーは削除できません。")
	}

	deleted, err := s.storyRepo.DeleteByID(ctx, storyID)
	if err != nil {
		return nil, fmt.Errorf("ストーリーの削除に失敗しました: %w", err)
	}
	if !deleted {
		// 確認後に別リクエストで削除された
		return nil, model.NewStoryNotFoundError(storyID)
	}

	slog.Info("story deleted",
		slog.String("story_id", storyID),
		slog.String("username", username),
	)
	return story, nil
}

// AddFavorite はお気に入りを冪等に登録する。
func (s *Service) AddFavorite(ctx context.Context, username, storyID string) error {
	if _, err := s.Get(ctx, storyID); err != nil {
		return err
	}
	if err := s.favRepo.Add(ctx, username, storyID); err != nil {
		return fmt.Errorf("お気に入りの登録に失敗しました: %w", err)
	}
	return nil
}

// RemoveFavorite はお気に入りを冪等に解除する。
func (s *Service) RemoveFavorite(ctx context.Context, username, storyID string) error {
	if _, err := s.Get(ctx, storyID); err != nil {
		return err
	}
	if err := s.favRepo.Remove(ctx, username, storyID); err != nil {
		return fmt.Errorf("お気に入りの解除に失敗しました: %w", err)
	}
	return nil
}
