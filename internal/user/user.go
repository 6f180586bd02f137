// Package user はログイン中ユーザーのクライアント側状態を管理する。
// お気に入りと自分の投稿の2つのコレクションを保持し、
// リモートでの確定後にのみローカルへ反映する。
package user

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/hitoshi/hackorsnooze/internal/model"
)

// Remote はユーザー関連のリモート呼び出しインターフェース。
// remote.Clientが実装する。
type Remote interface {
	Signup(ctx context.Context, username, password, name string) (model.Profile, string, error)
	Login(ctx context.Context, username, password string) (model.Profile, string, error)
	GetUser(ctx context.Context, token, username string) (model.Profile, error)
	AddFavorite(ctx context.Context, token, username, storyID string) error
	RemoveFavorite(ctx context.Context, token, username, storyID string) error
	DeleteStory(ctx context.Context, token, storyID string) error
}

// User はログイン中のユーザー。
// 識別情報とトークンは生成後に変更しない。
// favorites/ownStoriesはUserのメソッドからのみ変更され、外部には常にコピーを返す。
type User struct {
	remote Remote
	logger *slog.Logger

	username   string
	name       string
	createdAt  time.Time
	loginToken string

	mu         sync.RWMutex
	favorites  *model.StorySet
	ownStories *model.StorySet
	// お気に入り操作の発行番号。storyIdごとに最後に反映した成功の番号を保持する。
	// 失敗した操作は記録しないため、それより古い成功は反映される。
	seq        uint64
	appliedFav map[string]uint64
}

// Signup はアカウントを作成し、サーバーのスナップショットからUserを生成する。
func Signup(ctx context.Context, remote Remote, logger *slog.Logger, username, password, name string) (*User, error) {
	if err := requireFields("username", username, "password", password, "name", name); err != nil {
		return nil, err
	}

	profile, token, err := remote.Signup(ctx, username, password, name)
	if err != nil {
		logger.Warn("サインアップに失敗しました",
			slog.String("username", username),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	u, err := hydrate(remote, logger, profile, token)
	if err != nil {
		return nil, err
	}
	logger.Info("サインアップしました", slog.String("username", u.username))
	return u, nil
}

// Login は認証情報でログインし、サーバーのスナップショットからUserを生成する。
func Login(ctx context.Context, remote Remote, logger *slog.Logger, username, password string) (*User, error) {
	if err := requireFields("username", username, "password", password); err != nil {
		return nil, err
	}

	profile, token, err := remote.Login(ctx, username, password)
	if err != nil {
		logger.Warn("ログインに失敗しました",
			slog.String("username", username),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	u, err := hydrate(remote, logger, profile, token)
	if err != nil {
		return nil, err
	}
	logger.Info("ログインしました", slog.String("username", u.username))
	return u, nil
}

// ResumeSession は保存済みのトークンでセッションを再開する。
// 起動時に無人で実行されるため、失敗はエラーとして返さずnil（未ログイン）を返す。
func ResumeSession(ctx context.Context, remote Remote, logger *slog.Logger, token, username string) *User {
	if strings.TrimSpace(token) == "" || strings.TrimSpace(username) == "" {
		return nil
	}

	profile, err := remote.GetUser(ctx, token, username)
	if err != nil {
		logger.Warn("セッションの再開に失敗しました",
			slog.String("username", username),
			slog.String("category", model.CategoryOf(err)),
			slog.String("error", err.Error()),
		)
		return nil
	}

	u, err := hydrate(remote, logger, profile, token)
	if err != nil {
		logger.Warn("セッションの再開に失敗しました",
			slog.String("username", username),
			slog.String("error", err.Error()),
		)
		return nil
	}
	logger.Info("セッションを再開しました", slog.String("username", u.username))
	return u
}

// hydrate はサーバーのスナップショットからUserを生成する。
// 他人名義のストーリーが自分の投稿に含まれる場合は生成しない。
func hydrate(remote Remote, logger *slog.Logger, p model.Profile, token string) (*User, error) {
	for _, s := range p.Stories {
		if s.Username != p.Username {
			return nil, model.NewInvalidPayloadError(
				fmt.Sprintf("自分の投稿に他のユーザーのストーリーが含まれています: %s (%s)", s.ID, s.Username))
		}
	}

	return &User{
		remote:     remote,
		logger:     logger,
		username:   p.Username,
		name:       p.Name,
		createdAt:  p.CreatedAt,
		loginToken: token,
		favorites:  model.NewStorySet(p.Favorites),
		ownStories: model.NewStorySet(p.Stories),
		appliedFav: make(map[string]uint64),
	}, nil
}

// Username はユーザー名を返す。
func (u *User) Username() string { return u.username }

// Name は表示名を返す。
func (u *User) Name() string { return u.name }

// CreatedAt はアカウント作成日時を返す。
func (u *User) CreatedAt() time.Time { return u.createdAt }

// LoginToken はログイントークンを返す。
func (u *User) LoginToken() string { return u.loginToken }

// Favorites はお気に入りのスナップショットを返す。
func (u *User) Favorites() []model.Story {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.favorites.Snapshot()
}

// OwnStories は自分の投稿のスナップショットを返す。
func (u *User) OwnStories() []model.Story {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.ownStories.Snapshot()
}

// IsFavorite はストーリーがお気に入りに含まれるかをstoryIdで判定する。
func (u *User) IsFavorite(story model.Story) bool {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.favorites.Contains(story.ID)
}

// IsOwnStory はストーリーが自分の投稿に含まれるかをstoryIdで判定する。
func (u *User) IsOwnStory(story model.Story) bool {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.ownStories.Contains(story.ID)
}

// RecordOwnStory はサーバーで作成が確定したストーリーを自分の投稿の先頭に加える。
// 既に含まれている場合は何もしない。
func (u *User) RecordOwnStory(story model.Story) {
	if story.ID == "" {
		return
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.ownStories.Prepend(story)
}

// AddFavorite はストーリーをお気に入りに登録する。
// リモートで成功した後にのみローカルへ追加する。既に含まれている場合は何もしない。
// 同じストーリーに対して後から発行された操作が既に成功・反映済みの場合、この結果は反映しない。
func (u *User) AddFavorite(ctx context.Context, story model.Story) error {
	return u.toggleFavorite(ctx, story, true)
}

// RemoveFavorite はストーリーをお気に入りから解除する。
// 含まれていないストーリーの解除もエラーにはしない。
func (u *User) RemoveFavorite(ctx context.Context, story model.Story) error {
	return u.toggleFavorite(ctx, story, false)
}

func (u *User) toggleFavorite(ctx context.Context, story model.Story, favorite bool) error {
	if story.ID == "" {
		return model.NewMissingFieldError("storyId")
	}

	seq := u.issue()

	var err error
	if favorite {
		err = u.remote.AddFavorite(ctx, u.loginToken, u.username, story.ID)
	} else {
		err = u.remote.RemoveFavorite(ctx, u.loginToken, u.username, story.ID)
	}

	u.mu.Lock()
	// 後から発行された操作が既に成功・反映済みなら、この結果は古い
	latest := seq > u.appliedFav[story.ID]
	if err == nil && latest {
		u.appliedFav[story.ID] = seq
		if favorite {
			u.favorites.Append(story)
		} else {
			u.favorites.Remove(story.ID)
		}
	}
	u.mu.Unlock()

	if err != nil {
		u.logger.Warn("お気に入りの更新に失敗しました",
			slog.String("username", u.username),
			slog.String("story_id", story.ID),
			slog.Bool("favorite", favorite),
			slog.String("error", err.Error()),
		)
		return err
	}
	if !latest {
		u.logger.Debug("後続の操作が反映済みのためお気に入りの更新結果を破棄しました",
			slog.String("story_id", story.ID),
			slog.Bool("favorite", favorite),
		)
		return nil
	}

	u.logger.Info("お気に入りを更新しました",
		slog.String("username", u.username),
		slog.String("story_id", story.ID),
		slog.Bool("favorite", favorite),
	)
	return nil
}

// issue は新しい操作番号を発行する。
// 番号は全ストーリーで単調増加し、再利用しない。
func (u *User) issue() uint64 {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.seq++
	return u.seq
}

// RemoveOwnStory はストーリーを削除し、自分の投稿から取り除く。
// ローカルに含まれていない場合もリモートに問い合わせる。
// カタログや他ユーザーのお気に入りには反映しない。
func (u *User) RemoveOwnStory(ctx context.Context, story model.Story) error {
	if story.ID == "" {
		return model.NewMissingFieldError("storyId")
	}

	if err := u.remote.DeleteStory(ctx, u.loginToken, story.ID); err != nil {
		u.logger.Warn("ストーリーの削除に失敗しました",
			slog.String("username", u.username),
			slog.String("story_id", story.ID),
			slog.String("error", err.Error()),
		)
		return err
	}

	u.mu.Lock()
	u.ownStories.Remove(story.ID)
	u.mu.Unlock()

	u.logger.Info("ストーリーを削除しました",
		slog.String("username", u.username),
		slog.String("story_id", story.ID),
	)
	return nil
}

// requireFields は name, value の組を順に調べ、最初の空項目をMISSING_FIELDエラーにする。
func requireFields(pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			return model.NewMissingFieldError(pairs[i])
		}
	}
	return nil
}
