package feedimport

import (
	"bytes"
	"mime"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// feedLink はHTMLのheadで宣言されたフィードへのリンク。
type feedLink struct {
	url  string
	atom bool
}

// mediaTypeOf はContent-Typeからパラメータを除いたメディアタイプを返す。
func mediaTypeOf(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.TrimSpace(strings.Split(contentType, ";")[0])
	}
	return strings.ToLower(mediaType)
}

// isHTML はレスポンスがHTMLページかを判定する。
func isHTML(contentType string) bool {
	return strings.Contains(mediaTypeOf(contentType), "html")
}

// looksLikeFeed はContent-Typeとボディの先頭からRSS/Atomフィードかを判定する。
func looksLikeFeed(contentType string, body []byte) bool {
	switch mediaTypeOf(contentType) {
	case "application/rss+xml", "application/atom+xml", "application/feed+json":
		return true
	}

	// 先頭4KBにルート要素が含まれる前提
	head := body
	if len(head) > 4096 {
		head = head[:4096]
	}
	prefix := strings.ToLower(string(head))

	if strings.Contains(prefix, "<rss") || strings.Contains(prefix, "<rdf:rdf") {
		return true
	}
	return strings.Contains(prefix, "<feed") && strings.Contains(prefix, "http://www.w3.org/2005/atom")
}

// discoverFeed はHTMLのheadからフィードリンクを探し、最も適したURLを返す。
// 見つからない場合は空文字を返す。
func discoverFeed(htmlBody []byte, pageURL string) string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	return bestFeed(feedLinks(htmlBody, base), base.Hostname())
}

// feedLinks は <link rel="alternate" type="application/(rss|atom)+xml"> を収集する。
// 相対URLはbaseを基準に解決する。
func feedLinks(htmlBody []byte, base *url.URL) []feedLink {
	var links []feedLink

	z := html.NewTokenizer(bytes.NewReader(htmlBody))
	inHead := false
	for {
		switch z.Next() {
		case html.ErrorToken:
			return links

		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			switch string(name) {
			case "head":
				inHead = true
				continue
			case "body":
				return links
			case "link":
			default:
				continue
			}
			if !inHead || !hasAttr {
				continue
			}

			var rel, typ, href string
			for more := true; more; {
				var key, val []byte
				key, val, more = z.TagAttr()
				switch strings.ToLower(string(key)) {
				case "rel":
					rel = strings.ToLower(string(val))
				case "type":
					typ = strings.ToLower(string(val))
				case "href":
					href = string(val)
				}
			}
			if rel != "alternate" || href == "" {
				continue
			}
			if typ != "application/rss+xml" && typ != "application/atom+xml" {
				continue
			}

			ref, err := url.Parse(href)
			if err != nil {
				continue
			}
			links = append(links, feedLink{
				url:  base.ResolveReference(ref).String(),
				atom: typ == "application/atom+xml",
			})

		case html.EndTagToken:
			if name, _ := z.TagName(); string(name) == "head" {
				return links
			}
		}
	}
}

// bestFeed は候補から1件を選ぶ。同一ホスト、Atom、先頭の順に優先する。
func bestFeed(links []feedLink, host string) string {
	best, bestScore := "", -1
	for _, l := range links {
		score := 0
		if u, err := url.Parse(l.url); err == nil && strings.EqualFold(u.Hostname(), host) {
			score += 100
		}
		if l.atom {
			score += 10
		}
		if score > bestScore {
			best, bestScore = l.url, score
		}
	}
	return best
}
