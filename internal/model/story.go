// Package model はドメインモデルを定義する。
package model

import (
	"net/url"
	"strings"
	"time"
)

// Story はユーザーが投稿したリンク1件を表す。
// サーバーが採番したIDで同一性を判定し、生成後は変更しない。
type Story struct {
	ID        string
	Title     string
	Author    string
	URL       string
	Username  string // 投稿者
	CreatedAt time.Time
}

// NewStory はストーリー投稿時の入力を表す。
// IDと作成日時はサーバーが採番するため含まない。
type NewStory struct {
	Author string
	Title  string
	URL    string
}

// Hostname はURLのホスト名を返す。
// 絶対URLとして解釈できない場合はINVALID_URLエラーを返す。
func (s Story) Hostname() (string, error) {
	return HostnameOf(s.URL)
}

// HostnameOf は絶対URL文字列からホスト名を取り出す。
func HostnameOf(rawURL string) (string, error) {
	if strings.TrimSpace(rawURL) == "" {
		return "", NewInvalidURLError("URLが空です")
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", NewInvalidURLError(rawURL)
	}
	if !u.IsAbs() || u.Hostname() == "" {
		return "", NewInvalidURLError(rawURL)
	}

	return u.Hostname(), nil
}

// Validate は投稿入力の必須項目とURL形式を検証する。
// サーバーに送る前に呼び出し、不正な入力を送信しない。
func (n NewStory) Validate() error {
	if strings.TrimSpace(n.Author) == "" {
		return NewMissingFieldError("author")
	}
	if strings.TrimSpace(n.Title) == "" {
		return NewMissingFieldError("title")
	}
	if strings.TrimSpace(n.URL) == "" {
		return NewMissingFieldError("url")
	}
	if _, err := HostnameOf(n.URL); err != nil {
		return err
	}
	return nil
}
