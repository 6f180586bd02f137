package story

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/hitoshi/hackorsnooze/internal/model"
)

// Author はストーリーを投稿するログイン済みユーザー。
// user.Userが実装する。
type Author interface {
	Username() string
	LoginToken() string
}

// OwnStoryRecorder は投稿の確定後に自分の投稿として記録できる投稿者。
type OwnStoryRecorder interface {
	RecordOwnStory(story model.Story)
}

// List はカタログ全体を新しい順に保持する。
// storiesはListのメソッドからのみ変更され、外部には常にコピーを返す。
// ロックはローカル反映の間だけ保持し、リモート呼び出し中は保持しない。
type List struct {
	remote Remote
	logger *slog.Logger

	mu      sync.RWMutex
	stories *model.StorySet
}

// NewList は既知のストーリーからListを生成する。重複したIDは先に現れたものを残す。
func NewList(remote Remote, logger *slog.Logger, stories []model.Story) *List {
	return &List{
		remote:  remote,
		logger:  logger,
		stories: model.NewStorySet(stories),
	}
}

// FetchAll はカタログ全体を取得し、サーバーの順序を保ったListを返す。
// 取得またはペイロード検証に失敗した場合はListを返さない。
func FetchAll(ctx context.Context, remote Remote, logger *slog.Logger) (*List, error) {
	stories, err := remote.ListStories(ctx)
	if err != nil {
		return nil, err
	}
	return NewList(remote, logger, stories), nil
}

// Refresh はカタログを再取得して全体を置き換える。
// 失敗した場合は現在の内容をそのまま残す。
func (l *List) Refresh(ctx context.Context) error {
	stories, err := l.remote.ListStories(ctx)
	if err != nil {
		return err
	}

	set := model.NewStorySet(stories)

	l.mu.Lock()
	l.stories = set
	l.mu.Unlock()

	l.logger.Info("カタログを再取得しました", slog.Int("story_count", set.Len()))
	return nil
}

// AddStory はストーリーを投稿し、サーバーが確定したストーリーを先頭に追加する。
// 未ログイン・入力不正の場合はリモートを呼び出さずにエラーを返す。
// 失敗時はstoriesを変更しない。
func (l *List) AddStory(ctx context.Context, author Author, ns model.NewStory) (model.Story, error) {
	if author == nil || strings.TrimSpace(author.LoginToken()) == "" {
		return model.Story{}, model.NewUnauthorizedError()
	}
	if err := ns.Validate(); err != nil {
		return model.Story{}, err
	}

	created, err := l.remote.CreateStory(ctx, author.LoginToken(), ns)
	if err != nil {
		l.logger.Warn("ストーリーの投稿に失敗しました",
			slog.String("username", author.Username()),
			slog.String("error", err.Error()),
		)
		return model.Story{}, err
	}

	l.mu.Lock()
	l.stories.Prepend(created)
	l.mu.Unlock()

	if r, ok := author.(OwnStoryRecorder); ok {
		r.RecordOwnStory(created)
	}

	l.logger.Info("ストーリーを投稿しました",
		slog.String("story_id", created.ID),
		slog.String("username", author.Username()),
	)
	return created, nil
}

// Stories は現在のカタログのスナップショットを返す。
func (l *List) Stories() []model.Story {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.stories.Snapshot()
}

// Len はカタログの件数を返す。
func (l *List) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.stories.Len()
}

// Contains はIDがカタログに含まれるかを返す。
func (l *List) Contains(storyID string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.stories.Contains(storyID)
}

// ContainsURL は同じURLのストーリーが既にカタログにあるかを返す。
func (l *List) ContainsURL(rawURL string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.stories.ContainsURL(rawURL)
}
