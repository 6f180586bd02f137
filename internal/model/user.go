// Package model はドメインモデルを定義する。
package model

import "time"

// Profile はサーバーから受け取ったユーザーのスナップショットを表す。
// ログイン・サインアップ・セッション再開時のハイドレーション元になる。
type Profile struct {
	Username  string
	Name      string
	CreatedAt time.Time
	Favorites []Story
	Stories   []Story // 自分が投稿したストーリー
}

// Account はリファレンスサーバーが保持するユーザーを表す。
type Account struct {
	Username     string
	Name         string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// LoginToken はサインアップ・ログイン時に発行する不透明なトークンを表す。
type LoginToken struct {
	Token     string
	Username  string
	CreatedAt time.Time
}
