// Package remote はHack or Snooze APIのHTTPクライアントを提供する。
// 全エンドポイントの呼び出し、レスポンスの検証、エラーカテゴリへの変換を担う。
// 自動リトライは行わない。
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/hitoshi/hackorsnooze/internal/metrics"
	"github.com/hitoshi/hackorsnooze/internal/model"
	"github.com/hitoshi/hackorsnooze/internal/wire"
)

const (
	// defaultMaxResponseSize はレスポンスボディの最大読み取りサイズ（5MB）。
	defaultMaxResponseSize = 5 * 1024 * 1024
	userAgent              = "HackOrSnooze-Go/1.0"
)

// エンドポイント名。ログとメトリクスのラベルに使用する。
const (
	EndpointListStories    = "list_stories"
	EndpointGetStory       = "get_story"
	EndpointCreateStory    = "create_story"
	EndpointDeleteStory    = "delete_story"
	EndpointSignup         = "signup"
	EndpointLogin          = "login"
	EndpointGetUser        = "get_user"
	EndpointAddFavorite    = "add_favorite"
	EndpointRemoveFavorite = "remove_favorite"
)

// Client はHack or Snooze APIのクライアント。
// 複数のgoroutineから同時に使用できる。
type Client struct {
	httpClient      *http.Client
	logger          *slog.Logger
	baseURL         string
	limiter         *rate.Limiter // nilの場合は制限しない
	metrics         metrics.RemoteRecorder
	maxResponseSize int64
}

// Option はClientの任意設定。
type Option func(*Client)

// WithRateLimiter は送信レート制限を設定する。
func WithRateLimiter(l *rate.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithMetrics はメトリクス記録先を設定する。
func WithMetrics(m metrics.RemoteRecorder) Option {
	return func(c *Client) { c.metrics = m }
}

// WithMaxResponseSize はレスポンスボディの最大サイズを設定する。
func WithMaxResponseSize(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxResponseSize = n
		}
	}
}

// NewClient はClientの新しいインスタンスを生成する。
func NewClient(httpClient *http.Client, logger *slog.Logger, baseURL string, opts ...Option) *Client {
	c := &Client{
		httpClient:      httpClient,
		logger:          logger,
		baseURL:         strings.TrimRight(baseURL, "/"),
		metrics:         metrics.Nop{},
		maxResponseSize: defaultMaxResponseSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListStories は全ストーリーをサーバーの返す順序で取得する。
func (c *Client) ListStories(ctx context.Context) ([]model.Story, error) {
	var env wire.StoriesEnvelope
	err := c.do(ctx, call{
		endpoint: EndpointListStories,
		method:   http.MethodGet,
		path:     "/stories",
	}, &env)
	if err != nil {
		return nil, err
	}

	stories, err := wire.ToStories(env.Stories)
	if err != nil {
		return nil, c.invalidPayload(EndpointListStories, err)
	}
	return stories, nil
}

// GetStory はIDを指定してストーリーを1件取得する。
func (c *Client) GetStory(ctx context.Context, storyID string) (model.Story, error) {
	var env wire.StoryEnvelope
	err := c.do(ctx, call{
		endpoint: EndpointGetStory,
		method:   http.MethodGet,
		path:     "/stories/" + url.PathEscape(storyID),
		notFound: func() *model.APIError { return model.NewStoryNotFoundError(storyID) },
	}, &env)
	if err != nil {
		return model.Story{}, err
	}
	return c.storyFrom(EndpointGetStory, env.Story)
}

// CreateStory はストーリーを投稿し、サーバーが確定したストーリーを返す。
func (c *Client) CreateStory(ctx context.Context, token string, ns model.NewStory) (model.Story, error) {
	var env wire.StoryEnvelope
	err := c.do(ctx, call{
		endpoint: EndpointCreateStory,
		method:   http.MethodPost,
		path:     "/stories",
		body: wire.CreateStoryRequest{
			Token: token,
			Story: wire.NewStoryPayload{Author: ns.Author, Title: ns.Title, URL: ns.URL},
		},
	}, &env)
	if err != nil {
		return model.Story{}, err
	}
	return c.storyFrom(EndpointCreateStory, env.Story)
}

// DeleteStory はストーリーを削除する。レスポンスボディの内容は問わない。
func (c *Client) DeleteStory(ctx context.Context, token, storyID string) error {
	return c.do(ctx, call{
		endpoint: EndpointDeleteStory,
		method:   http.MethodDelete,
		path:     "/stories/" + url.PathEscape(storyID),
		body:     wire.TokenRequest{Token: token},
		notFound: func() *model.APIError { return model.NewStoryNotFoundError(storyID) },
	}, nil)
}

// Signup はアカウントを作成し、ユーザー情報とログイントークンを返す。
func (c *Client) Signup(ctx context.Context, username, password, name string) (model.Profile, string, error) {
	var env wire.AuthEnvelope
	err := c.do(ctx, call{
		endpoint: EndpointSignup,
		method:   http.MethodPost,
		path:     "/signup",
		body: wire.CredentialsRequest{
			User: wire.CredentialsPayload{Username: username, Password: password, Name: name},
		},
		conflict: func() *model.APIError { return model.NewUsernameTakenError(username) },
	}, &env)
	if err != nil {
		return model.Profile{}, "", err
	}
	return c.authFrom(EndpointSignup, env)
}

// Login は認証情報でログインし、ユーザー情報とログイントークンを返す。
func (c *Client) Login(ctx context.Context, username, password string) (model.Profile, string, error) {
	var env wire.AuthEnvelope
	err := c.do(ctx, call{
		endpoint: EndpointLogin,
		method:   http.MethodPost,
		path:     "/login",
		body: wire.CredentialsRequest{
			User: wire.CredentialsPayload{Username: username, Password: password},
		},
		unauthorized: model.NewInvalidCredentialsError,
		notFound:     model.NewInvalidCredentialsError,
	}, &env)
	if err != nil {
		return model.Profile{}, "", err
	}
	return c.authFrom(EndpointLogin, env)
}

// GetUser は保存済みトークンでユーザー情報を取得する。
func (c *Client) GetUser(ctx context.Context, token, username string) (model.Profile, error) {
	var env wire.UserEnvelope
	err := c.do(ctx, call{
		endpoint: EndpointGetUser,
		method:   http.MethodGet,
		path:     "/users/" + url.PathEscape(username),
		query:    url.Values{"token": {token}},
		notFound: func() *model.APIError { return model.NewUserNotFoundError(username) },
	}, &env)
	if err != nil {
		return model.Profile{}, err
	}
	if env.User == nil {
		return model.Profile{}, c.invalidPayload(EndpointGetUser, model.NewInvalidPayloadError("user がありません"))
	}
	profile, err := env.User.ToProfile()
	if err != nil {
		return model.Profile{}, c.invalidPayload(EndpointGetUser, err)
	}
	return profile, nil
}

// AddFavorite はストーリーをお気に入りに登録する。
func (c *Client) AddFavorite(ctx context.Context, token, username, storyID string) error {
	return c.favorite(ctx, EndpointAddFavorite, http.MethodPost, token, username, storyID)
}

// RemoveFavorite はストーリーをお気に入りから解除する。
func (c *Client) RemoveFavorite(ctx context.Context, token, username, storyID string) error {
	return c.favorite(ctx, EndpointRemoveFavorite, http.MethodDelete, token, username, storyID)
}

func (c *Client) favorite(ctx context.Context, endpoint, method, token, username, storyID string) error {
	return c.do(ctx, call{
		endpoint: endpoint,
		method:   method,
		path:     "/users/" + url.PathEscape(username) + "/favorites/" + url.PathEscape(storyID),
		body:     wire.TokenRequest{Token: token},
		notFound: func() *model.APIError { return model.NewStoryNotFoundError(storyID) },
	}, nil)
}

func (c *Client) storyFrom(endpoint string, p *wire.StoryPayload) (model.Story, error) {
	if p == nil {
		return model.Story{}, c.invalidPayload(endpoint, model.NewInvalidPayloadError("story がありません"))
	}
	s, err := p.ToStory()
	if err != nil {
		return model.Story{}, c.invalidPayload(endpoint, err)
	}
	return s, nil
}

func (c *Client) authFrom(endpoint string, env wire.AuthEnvelope) (model.Profile, string, error) {
	if env.User == nil {
		return model.Profile{}, "", c.invalidPayload(endpoint, model.NewInvalidPayloadError("user がありません"))
	}
	if strings.TrimSpace(env.Token) == "" {
		return model.Profile{}, "", c.invalidPayload(endpoint, model.NewInvalidPayloadError("token がありません"))
	}
	profile, err := env.User.ToProfile()
	if err != nil {
		return model.Profile{}, "", c.invalidPayload(endpoint, err)
	}
	return profile, env.Token, nil
}

func (c *Client) invalidPayload(endpoint string, err error) error {
	c.logger.Error("リモートサービスのレスポンスが不正です",
		slog.String("endpoint", endpoint),
		slog.String("error", err.Error()),
	)
	c.metrics.RecordRemoteFailure(endpoint, model.CategoryValidation)
	return err
}

// call は1回のAPI呼び出しの内容を表す。
type call struct {
	endpoint string
	method   string
	path     string
	query    url.Values
	body     any

	// ステータス別のエラー生成。未指定の場合は汎用エラーを使う。
	notFound     func() *model.APIError
	unauthorized func() *model.APIError
	conflict     func() *model.APIError
}

// do はリクエストを送信し、2xxのレスポンスをoutにデコードする。
// outがnilの場合はボディを読み捨てる。
func (c *Client) do(ctx context.Context, cl call, out any) error {
	requestID := uuid.NewString()
	logger := c.logger.With(
		slog.String("endpoint", cl.endpoint),
		slog.String("request_id", requestID),
	)

	err := c.send(ctx, cl, requestID, logger, out)
	if err != nil {
		c.metrics.RecordRemoteFailure(cl.endpoint, model.CategoryOf(err))
	}
	return err
}

func (c *Client) send(ctx context.Context, cl call, requestID string, logger *slog.Logger, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			logger.Warn("送信レート制限の待機が中断されました", slog.String("error", err.Error()))
			return model.NewTransportError("リクエストが中断されました", err)
		}
	}

	reqURL := c.baseURL + cl.path
	if len(cl.query) > 0 {
		reqURL += "?" + cl.query.Encode()
	}

	var body io.Reader
	if cl.body != nil {
		b, err := json.Marshal(cl.body)
		if err != nil {
			return fmt.Errorf("リクエストボディのエンコードに失敗しました: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, reqURL, body)
	if err != nil {
		return model.NewTransportError("リクエストの作成に失敗しました", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.RecordRemoteLatency(cl.endpoint, time.Since(start))
	if err != nil {
		logger.Error("リモートサービスの呼び出しに失敗しました", slog.String("error", err.Error()))
		return model.NewTransportError(cl.endpoint, err)
	}
	defer resp.Body.Close()

	c.metrics.RecordRemoteRequest(cl.endpoint, resp.StatusCode)

	raw, err := io.ReadAll(io.LimitReader(resp.Body, c.maxResponseSize+1))
	if err != nil {
		logger.Error("レスポンスボディの読み取りに失敗しました", slog.String("error", err.Error()))
		return model.NewTransportError("レスポンスの読み取りに失敗しました", err)
	}
	if int64(len(raw)) > c.maxResponseSize {
		logger.Error("レスポンスサイズが上限を超えています", slog.Int64("max_bytes", c.maxResponseSize))
		return model.NewTransportError("レスポンスサイズが上限を超えています", nil)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := errorForStatus(cl, resp.StatusCode, raw)
		logger.Warn("リモートサービスがエラーステータスを返しました",
			slog.Int("http_status", resp.StatusCode),
			slog.String("code", apiErr.Code),
		)
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		logger.Error("レスポンスJSONのパースに失敗しました",
			slog.Int("http_status", resp.StatusCode),
			slog.String("error", err.Error()),
		)
		return model.NewTransportError("レスポンスのパースに失敗しました", err)
	}
	return nil
}

// errorForStatus はエラーステータスをエラーカテゴリに変換する。
// サーバーのエラーメッセージは取得できた場合のみErrに保持する。
func errorForStatus(cl call, status int, raw []byte) *model.APIError {
	msg := remoteMessage(raw)

	var apiErr *model.APIError
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		reason := msg
		if reason == "" {
			reason = http.StatusText(status)
		}
		apiErr = model.NewInvalidRequestError(reason)
	case http.StatusUnauthorized:
		apiErr = pick(cl.unauthorized, model.NewUnauthorizedError)
	case http.StatusForbidden:
		apiErr = model.NewForbiddenError(nonEmpty(msg, "この操作は許可されていません。"))
	case http.StatusConflict:
		apiErr = pick(cl.conflict, func() *model.APIError {
			return model.NewForbiddenError(nonEmpty(msg, "リソースが競合しています。"))
		})
	case http.StatusNotFound:
		if cl.notFound != nil {
			apiErr = cl.notFound()
		} else {
			apiErr = model.NewTransportError(fmt.Sprintf("%s が見つかりません", cl.path), nil)
		}
	default:
		apiErr = model.NewTransportError(fmt.Sprintf("ステータス %d", status), nil)
	}

	if msg != "" && apiErr.Err == nil {
		apiErr.Err = errors.New(msg)
	}
	return apiErr
}

// remoteMessage はエラーエンベロープからメッセージを取り出す。
func remoteMessage(raw []byte) string {
	var env wire.ErrorEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return ""
	}
	return strings.TrimSpace(env.Error.Message)
}

func pick(f, fallback func() *model.APIError) *model.APIError {
	if f != nil {
		return f()
	}
	return fallback()
}

func nonEmpty(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
