package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"golang.org/x/time/rate"

	"github.com/hitoshi/hackorsnooze/internal/config"
	"github.com/hitoshi/hackorsnooze/internal/feedimport"
	"github.com/hitoshi/hackorsnooze/internal/model"
	"github.com/hitoshi/hackorsnooze/internal/remote"
	"github.com/hitoshi/hackorsnooze/internal/security"
	"github.com/hitoshi/hackorsnooze/internal/story"
	"github.com/hitoshi/hackorsnooze/internal/user"
	"github.com/hitoshi/hackorsnooze/internal/wire"
)

// ErrNotLoggedIn は保存済み認証情報でセッションを再開できなかった場合のエラー。
var ErrNotLoggedIn = errors.New("not logged in: set HNS_USERNAME and HNS_TOKEN (see `login`)")

// clientEnv はクライアントコマンドの実行に必要な依存関係。
type clientEnv struct {
	cfg    *config.Config
	logger *slog.Logger
	remote *remote.Client
	out    io.Writer
}

func newClientEnv(cfg *config.Config, logger *slog.Logger, out io.Writer) *clientEnv {
	client := remote.NewClient(
		&http.Client{Timeout: cfg.APITimeout},
		logger,
		cfg.APIBaseURL,
		remote.WithRateLimiter(rate.NewLimiter(rate.Limit(cfg.APIRateLimit), cfg.APIRateBurst)),
		remote.WithMaxResponseSize(cfg.APIMaxResponseSize),
	)
	return &clientEnv{cfg: cfg, logger: logger, remote: client, out: out}
}

// storyView はコマンド出力用のストーリー表現。ホスト名を併記する。
type storyView struct {
	wire.StoryPayload
	Hostname string `json:"hostname"`
}

// sessionView はsignup/loginの出力。HNS_USERNAME/HNS_TOKENに設定する値を含む。
type sessionView struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	Token    string `json:"token"`
}

// profileView は me の出力。
type profileView struct {
	Username   string      `json:"username"`
	Name       string      `json:"name"`
	CreatedAt  string      `json:"createdAt"`
	Favorites  []storyView `json:"favorites"`
	OwnStories []storyView `json:"stories"`
}

// favoriteView は favorite/unfavorite の出力。
type favoriteView struct {
	Story    storyView `json:"story"`
	Favorite bool      `json:"favorite"`
}

func toView(s model.Story) storyView {
	host, err := s.Hostname()
	if err != nil {
		host = ""
	}
	return storyView{StoryPayload: wire.FromStory(s), Hostname: host}
}

func toViews(stories []model.Story) []storyView {
	views := make([]storyView, 0, len(stories))
	for _, s := range stories {
		views = append(views, toView(s))
	}
	return views
}

// runClientCommand はリモートサービスに対するコマンドを実行し、結果をJSONで出力する。
func runClientCommand(ctx context.Context, env *clientEnv, cmd Command, args []string) error {
	result, err := env.dispatch(ctx, cmd, args)
	return writeOutcome(env.out, result, err)
}

// writeOutcome はresultがあればJSONで出力し、コマンドのエラーを返す。
// 途中で中断したコマンドは、それまでの結果をエラーと一緒に出力する。
func writeOutcome(w io.Writer, result any, err error) error {
	if result == nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if encErr := enc.Encode(result); encErr != nil && err == nil {
		return encErr
	}
	return err
}

func (e *clientEnv) dispatch(ctx context.Context, cmd Command, args []string) (any, error) {
	switch cmd {
	case CommandStories:
		list, err := story.FetchAll(ctx, e.remote, e.logger)
		if err != nil {
			return nil, err
		}
		return toViews(list.Stories()), nil

	case CommandStory:
		s, err := story.FetchByID(ctx, e.remote, args[0])
		if err != nil {
			return nil, err
		}
		return toView(s), nil

	case CommandSignup:
		u, err := user.Signup(ctx, e.remote, e.logger, args[0], args[1], args[2])
		if err != nil {
			return nil, err
		}
		return sessionView{Username: u.Username(), Name: u.Name(), Token: u.LoginToken()}, nil

	case CommandLogin:
		u, err := user.Login(ctx, e.remote, e.logger, args[0], args[1])
		if err != nil {
			return nil, err
		}
		return sessionView{Username: u.Username(), Name: u.Name(), Token: u.LoginToken()}, nil
	}

	// 以降はログイン済みユーザーが必要
	u, err := e.resume(ctx)
	if err != nil {
		return nil, err
	}

	switch cmd {
	case CommandMe:
		return profileView{
			Username:   u.Username(),
			Name:       u.Name(),
			CreatedAt:  u.CreatedAt().UTC().Format(wire.TimeLayout),
			Favorites:  toViews(u.Favorites()),
			OwnStories: toViews(u.OwnStories()),
		}, nil

	case CommandSubmit:
		list := story.NewList(e.remote, e.logger, nil)
		s, err := list.AddStory(ctx, u, model.NewStory{Author: args[0], Title: args[1], URL: args[2]})
		if err != nil {
			return nil, err
		}
		return toView(s), nil

	case CommandFavorite, CommandUnfavorite:
		s, err := story.FetchByID(ctx, e.remote, args[0])
		if err != nil {
			return nil, err
		}
		if cmd == CommandFavorite {
			err = u.AddFavorite(ctx, s)
		} else {
			err = u.RemoveFavorite(ctx, s)
		}
		if err != nil {
			return nil, err
		}
		return favoriteView{Story: toView(s), Favorite: u.IsFavorite(s)}, nil

	case CommandDelete:
		target := model.Story{ID: args[0]}
		for _, s := range u.OwnStories() {
			if s.ID == args[0] {
				target = s
				break
			}
		}
		if err := u.RemoveOwnStory(ctx, target); err != nil {
			return nil, err
		}
		return map[string]string{"deleted": args[0]}, nil

	case CommandImportFeed:
		return e.importFeed(ctx, u, args)
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, cmd)
}

// resume は保存済み認証情報からセッションを再開する。
func (e *clientEnv) resume(ctx context.Context) (*user.User, error) {
	if !e.cfg.HasStoredCredentials() {
		return nil, ErrNotLoggedIn
	}
	u := user.ResumeSession(ctx, e.remote, e.logger, e.cfg.StoredToken, e.cfg.StoredUsername)
	if u == nil {
		return nil, ErrNotLoggedIn
	}
	return u, nil
}

func (e *clientEnv) importFeed(ctx context.Context, u *user.User, args []string) (any, error) {
	limit := 0
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n < 0 {
			return nil, fmt.Errorf("limit must be a non-negative integer: %q", args[1])
		}
		limit = n
	}

	// 既存URLのスキップ判定のためカタログ全体を取得する
	list, err := story.FetchAll(ctx, e.remote, e.logger)
	if err != nil {
		return nil, err
	}

	importer := feedimport.NewImporter(
		security.NewURLGuard(),
		list,
		security.NewTextSanitizer(),
		e.logger,
		e.cfg.FeedFetchTimeout,
		e.cfg.FeedMaxSize,
	)
	result, err := importer.Import(ctx, u, args[0], limit)
	if err != nil {
		if len(result.Submitted) == 0 && result.Skipped == 0 && result.Failed == 0 {
			return nil, err
		}
		// 中断までに投稿したストーリーも報告する
		return newImportView(result), err
	}
	return newImportView(result), nil
}

type importView struct {
	Submitted []storyView `json:"submitted"`
	Skipped   int         `json:"skipped"`
	Failed    int         `json:"failed"`
}

func newImportView(result feedimport.Result) importView {
	return importView{toViews(result.Submitted), result.Skipped, result.Failed}
}
