// Package wire はHack or Snooze APIのJSONスキーマを定義する。
// クライアントとリファレンスサーバーの双方が同じ型で入出力し、
// 境界で必須項目を検証してからドメインモデルへ変換する。
package wire

import (
	"fmt"
	"strings"
	"time"

	"github.com/hitoshi/hackorsnooze/internal/model"
)

// TimeLayout はcreatedAtの出力形式。入力はRFC3339（小数秒の有無を問わない）を受け付ける。
const TimeLayout = time.RFC3339Nano

// StoryPayload はストーリーのワイヤ表現。
type StoryPayload struct {
	StoryID   string `json:"storyId"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	URL       string `json:"url"`
	Username  string `json:"username"`
	CreatedAt string `json:"createdAt"`
}

// UserPayload はユーザーのワイヤ表現。
type UserPayload struct {
	Username  string         `json:"username"`
	Name      string         `json:"name"`
	CreatedAt string         `json:"createdAt"`
	Favorites []StoryPayload `json:"favorites"`
	Stories   []StoryPayload `json:"stories"`
}

// NewStoryPayload はストーリー投稿時の入力。
type NewStoryPayload struct {
	Author string `json:"author" validate:"required,max=200"`
	Title  string `json:"title" validate:"required,max=300"`
	URL    string `json:"url" validate:"required,max=2048"`
}

// CredentialsPayload はサインアップ・ログイン時の認証情報。
type CredentialsPayload struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
	Name     string `json:"name,omitempty" validate:"max=200"`
}

// --- リクエストボディ ---

// CreateStoryRequest は POST /stories のボディ。
type CreateStoryRequest struct {
	Token string          `json:"token"`
	Story NewStoryPayload `json:"story"`
}

// CredentialsRequest は POST /signup, POST /login のボディ。
type CredentialsRequest struct {
	User CredentialsPayload `json:"user"`
}

// TokenRequest はお気に入り操作・ストーリー削除のボディ。
type TokenRequest struct {
	Token string `json:"token"`
}

// --- レスポンスボディ ---

// StoriesEnvelope は GET /stories のレスポンス。
type StoriesEnvelope struct {
	Stories []StoryPayload `json:"stories"`
}

// StoryEnvelope は単一ストーリーのレスポンス。
type StoryEnvelope struct {
	Story *StoryPayload `json:"story"`
}

// UserEnvelope は GET /users/{username} のレスポンス。
type UserEnvelope struct {
	User *UserPayload `json:"user"`
}

// AuthEnvelope はサインアップ・ログインのレスポンス。
type AuthEnvelope struct {
	User  *UserPayload `json:"user"`
	Token string       `json:"token"`
}

// MessageEnvelope はお気に入り操作・削除のレスポンス。
type MessageEnvelope struct {
	Message string        `json:"message"`
	User    *UserPayload  `json:"user,omitempty"`
	Story   *StoryPayload `json:"story,omitempty"`
}

// ErrorEnvelope はエラーレスポンス。
type ErrorEnvelope struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody はエラーの詳細。
type ErrorBody struct {
	Status  int    `json:"status"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

// ToStory はペイロードを検証してmodel.Storyに変換する。
// 必須項目の欠落や日時形式の誤りはINVALID_PAYLOADエラーとする。
func (p StoryPayload) ToStory() (model.Story, error) {
	missing := firstEmpty(
		"storyId", p.StoryID,
		"title", p.Title,
		"author", p.Author,
		"url", p.URL,
		"username", p.Username,
		"createdAt", p.CreatedAt,
	)
	if missing != "" {
		return model.Story{}, model.NewInvalidPayloadError(fmt.Sprintf("story.%s がありません", missing))
	}

	createdAt, err := parseTime(p.CreatedAt)
	if err != nil {
		return model.Story{}, model.NewInvalidPayloadError(fmt.Sprintf("story.createdAt の形式が不正です: %s", p.CreatedAt))
	}

	return model.Story{
		ID:        p.StoryID,
		Title:     p.Title,
		Author:    p.Author,
		URL:       p.URL,
		Username:  p.Username,
		CreatedAt: createdAt,
	}, nil
}

// ToStories は全件を変換する。1件でも不正な場合はエラーを返し、部分的な結果は返さない。
func ToStories(payloads []StoryPayload) ([]model.Story, error) {
	stories := make([]model.Story, 0, len(payloads))
	for i, p := range payloads {
		s, err := p.ToStory()
		if err != nil {
			return nil, fmt.Errorf("stories[%d]: %w", i, err)
		}
		stories = append(stories, s)
	}
	return stories, nil
}

// ToProfile はペイロードを検証してmodel.Profileに変換する。
func (p UserPayload) ToProfile() (model.Profile, error) {
	if missing := firstEmpty("username", p.Username, "createdAt", p.CreatedAt); missing != "" {
		return model.Profile{}, model.NewInvalidPayloadError(fmt.Sprintf("user.%s がありません", missing))
	}

	createdAt, err := parseTime(p.CreatedAt)
	if err != nil {
		return model.Profile{}, model.NewInvalidPayloadError(fmt.Sprintf("user.createdAt の形式が不正です: %s", p.CreatedAt))
	}

	favorites, err := ToStories(p.Favorites)
	if err != nil {
		return model.Profile{}, fmt.Errorf("user.favorites: %w", err)
	}
	stories, err := ToStories(p.Stories)
	if err != nil {
		return model.Profile{}, fmt.Errorf("user.stories: %w", err)
	}

	return model.Profile{
		Username:  p.Username,
		Name:      p.Name,
		CreatedAt: createdAt,
		Favorites: favorites,
		Stories:   stories,
	}, nil
}

// FromStory はmodel.Storyをワイヤ表現に変換する。
func FromStory(s model.Story) StoryPayload {
	return StoryPayload{
		StoryID:   s.ID,
		Title:     s.Title,
		Author:    s.Author,
		URL:       s.URL,
		Username:  s.Username,
		CreatedAt: s.CreatedAt.UTC().Format(TimeLayout),
	}
}

// FromStories は複数のストーリーを変換する。nilではなく空スライスを返す。
func FromStories(stories []model.Story) []StoryPayload {
	out := make([]StoryPayload, 0, len(stories))
	for _, s := range stories {
		out = append(out, FromStory(s))
	}
	return out
}

// FromProfile はmodel.Profileをワイヤ表現に変換する。
func FromProfile(p model.Profile) UserPayload {
	return UserPayload{
		Username:  p.Username,
		Name:      p.Name,
		CreatedAt: p.CreatedAt.UTC().Format(TimeLayout),
		Favorites: FromStories(p.Favorites),
		Stories:   FromStories(p.Stories),
	}
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// firstEmpty は name, value の組を順に調べ、最初に空だった項目名を返す。
func firstEmpty(pairs ...string) string {
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			return pairs[i]
		}
	}
	return ""
}
