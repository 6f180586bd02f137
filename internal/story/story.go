// Package story はストーリーカタログのクライアント側状態を管理する。
// カタログ全体の取得、単一ストーリーの取得、投稿を提供する。
package story

import (
	"context"

	"github.com/hitoshi/hackorsnooze/internal/model"
)

// Remote はストーリー関連のリモート呼び出しインターフェース。
// remote.Clientが実装する。
type Remote interface {
	ListStories(ctx context.Context) ([]model.Story, error)
	GetStory(ctx context.Context, storyID string) (model.Story, error)
	CreateStory(ctx context.Context, token string, ns model.NewStory) (model.Story, error)
}

// FetchByID はIDを指定してストーリーを1件取得する。
// ローカルの状態には一切反映しない。取り込み先は呼び出し元が決める。
func FetchByID(ctx context.Context, remote Remote, storyID string) (model.Story, error) {
	if storyID == "" {
		return model.Story{}, model.NewMissingFieldError("storyId")
	}
	return remote.GetStory(ctx, storyID)
}
