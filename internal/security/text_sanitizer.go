package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer はユーザー入力のタイトル・著者名・表示名から
// マークアップを取り除き、プレーンテキストとして保存できる形にする。
type TextSanitizer interface {
	Clean(s string) string
}

type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はbluemondayのStrictPolicyでTextSanitizerを生成する。
// StrictPolicyは全タグを除去する。script/style要素は中身ごと除去される。
func NewTextSanitizer() TextSanitizer {
	return &textSanitizer{policy: bluemonday.StrictPolicy()}
}

// Clean はタグを除去し、エスケープされた文字実体を戻して前後の空白を削る。
// JSONで返す値のためHTMLエスケープは残さない。
func (s *textSanitizer) Clean(in string) string {
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(in)))
}
