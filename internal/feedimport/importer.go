// Package feedimport はRSS/Atomフィードのエントリをストーリーとして一括投稿する。
package feedimport

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/hitoshi/hackorsnooze/internal/model"
	"github.com/hitoshi/hackorsnooze/internal/story"
)

// URLGuard はフィードURLの検証と安全なHTTPクライアントの生成を行う。
type URLGuard interface {
	ValidateURL(rawURL string) error
	NewSafeClient(timeout time.Duration) *http.Client
}

// StoryAdder は投稿先のストーリー一覧。story.Listが実装する。
type StoryAdder interface {
	AddStory(ctx context.Context, author story.Author, ns model.NewStory) (model.Story, error)
	ContainsURL(rawURL string) bool
}

// TextCleaner はフィード由来のテキストからマークアップを除去する。
type TextCleaner interface {
	Clean(in string) string
}

// Result はインポート結果の件数と投稿したストーリーを表す。
type Result struct {
	Submitted []model.Story `json:"submitted"`
	Skipped   int           `json:"skipped"`
	Failed    int           `json:"failed"`
}

// Importer はフィードを取得し、各エントリをストーリーとして投稿する。
type Importer struct {
	guard       URLGuard
	stories     StoryAdder
	cleaner     TextCleaner
	logger      *slog.Logger
	timeout     time.Duration
	maxBodySize int64
}

// NewImporter はImporterの新しいインスタンスを生成する。
func NewImporter(
	guard URLGuard,
	stories StoryAdder,
	cleaner TextCleaner,
	logger *slog.Logger,
	timeout time.Duration,
	maxBodySize int64,
) *Importer {
	return &Importer{
		guard:       guard,
		stories:     stories,
		cleaner:     cleaner,
		logger:      logger,
		timeout:     timeout,
		maxBodySize: maxBodySize,
	}
}

// entry はフィードの1エントリから組み立てた投稿候補。
type entry struct {
	title  string
	author string
	link   string
}

// Import はfeedURLのエントリを先頭から最大limit件（0以下は全件）投稿する。
// 一覧に同じURLが既にあるエントリはスキップする。
// 認証エラーが発生した時点で中断し、それまでの結果とエラーを返す。
// その他の投稿失敗は件数に数えて続行する。
func (i *Importer) Import(ctx context.Context, author story.Author, feedURL string, limit int) (Result, error) {
	result := Result{Submitted: []model.Story{}}

	entries, err := i.fetch(ctx, feedURL)
	if err != nil {
		return result, err
	}

	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if limit > 0 && len(result.Submitted) >= limit {
			break
		}

		if _, dup := seen[e.link]; dup || e.title == "" || i.stories.ContainsURL(e.link) {
			result.Skipped++
			continue
		}
		seen[e.link] = struct{}{}

		s, err := i.stories.AddStory(ctx, author, model.NewStory{
			Author: e.author,
			Title:  e.title,
			URL:    e.link,
		})
		if err != nil {
			if model.IsAuthError(err) {
				return result, err
			}
			result.Failed++
			i.logger.Warn("エントリの投稿に失敗しました",
				slog.String("feed_url", feedURL),
				slog.String("link", e.link),
				slog.String("error", err.Error()),
			)
			continue
		}
		result.Submitted = append(result.Submitted, s)
	}

	i.logger.Info("フィードのインポートが完了しました",
		slog.String("feed_url", feedURL),
		slog.Int("submitted", len(result.Submitted)),
		slog.Int("skipped", result.Skipped),
		slog.Int("failed", result.Failed),
	)
	return result, nil
}

// fetch はフィードを取得してパースし、投稿候補を返す。
// feedURLがHTMLページの場合は、headで宣言されたフィードを1回だけたどる。
func (i *Importer) fetch(ctx context.Context, feedURL string) ([]entry, error) {
	if err := i.guard.ValidateURL(feedURL); err != nil {
		return nil, err
	}

	body, contentType, err := i.get(ctx, feedURL)
	if err != nil {
		return nil, err
	}

	if !looksLikeFeed(contentType, body) && isHTML(contentType) {
		discovered := discoverFeed(body, feedURL)
		if discovered == "" {
			return nil, model.NewInvalidPayloadError(fmt.Sprintf("ページにフィードが見つかりません: %s", feedURL))
		}
		if err := i.guard.ValidateURL(discovered); err != nil {
			return nil, err
		}
		i.logger.Info("フィードを検出しました",
			slog.String("page_url", feedURL),
			slog.String("feed_url", discovered),
		)
		feedURL = discovered
		if body, _, err = i.get(ctx, feedURL); err != nil {
			return nil, err
		}
	}

	parsed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		i.logger.Error("フィードのパースに失敗しました",
			slog.String("feed_url", feedURL),
			slog.String("error", err.Error()),
		)
		return nil, model.NewInvalidPayloadError(fmt.Sprintf("フィードを解析できません: %v", err))
	}

	return i.convertItems(parsed), nil
}

// get はSSRF対策済みクライアントでURLを取得し、ボディとContent-Typeを返す。
func (i *Importer) get(ctx context.Context, rawURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", model.NewInvalidURLError(rawURL)
	}
	req.Header.Set("User-Agent", "HackOrSnooze-Go/1.0 Feed Importer")
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml, text/html, */*")

	resp, err := i.guard.NewSafeClient(i.timeout).Do(req)
	if err != nil {
		return nil, "", model.NewTransportError("フィードの取得に失敗しました", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", model.NewTransportError(fmt.Sprintf("フィードがHTTPステータス %d を返しました", resp.StatusCode), nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, i.maxBodySize+1))
	if err != nil {
		return nil, "", model.NewTransportError("フィードの読み取りに失敗しました", err)
	}
	if int64(len(body)) > i.maxBodySize {
		return nil, "", model.NewTransportError("フィードが大きすぎます", nil)
	}
	return body, resp.Header.Get("Content-Type"), nil
}

// convertItems はgofeedのエントリを投稿候補に変換する。リンクの無いエントリは除外する。
func (i *Importer) convertItems(feed *gofeed.Feed) []entry {
	fallbackAuthor := i.cleaner.Clean(feed.Title)
	if fallbackAuthor == "" {
		if host, err := model.HostnameOf(feed.Link); err == nil {
			fallbackAuthor = host
		}
	}

	entries := make([]entry, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}

		link := strings.TrimSpace(item.Link)
		// LinkがなくGUIDがURL形式の場合はGUIDをLinkとして使用
		if link == "" && (strings.HasPrefix(item.GUID, "http://") || strings.HasPrefix(item.GUID, "https://")) {
			link = item.GUID
		}
		if link == "" {
			continue
		}

		author := ""
		if item.Author != nil {
			author = item.Author.Name
		}
		if author == "" && len(item.Authors) > 0 && item.Authors[0] != nil {
			author = item.Authors[0].Name
		}
		author = i.cleaner.Clean(author)
		if author == "" {
			author = fallbackAuthor
		}

		entries = append(entries, entry{
			title:  i.cleaner.Clean(item.Title),
			author: author,
			link:   link,
		})
	}
	return entries
}
