// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ContentSanitizerService は管理画面から投稿されたイベント本文や
// Markdownからレンダリングしたブログ本文をサニタイズする。
// bluemondayの許可リストベースのポリシーで、安全なタグと属性のみを通過させる。
package security

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// codeLanguageClass はシンタックスハイライト用のclass属性（goldmarkが出力する形式）。
var codeLanguageClass = regexp.MustCompile(`^language-[a-zA-Z0-9_+-]+$`)

// ContentSanitizerService はHTMLコンテンツのサニタイズ機能のインターフェースを定義する。
type ContentSanitizerService interface {
	// Sanitize はHTMLコンテンツをサニタイズして安全なHTMLを返す。
	// 見出し、段落、リスト、引用、コード、表、画像、リンクのみを通過させ、
	// script, iframe, styleタグおよびon*イベント属性を除去する。
	// imgタグのsrc属性はhttpsスキームのみ許可される。
	// 外部リンクにはtarget="_blank"とrel="noopener noreferrer"が付与される。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(rawHTML string) string

	// PlainText はHTMLから全てのタグを除去したテキストを返す。
	// RSSの概要や一覧の抜粋に使う。
	PlainText(rawHTML string) string
}

// contentSanitizer はContentSanitizerServiceの実装。
// bluemondayのポリシーはスレッドセーフに共有できる。
type contentSanitizer struct {
	policy *bluemonday.Policy
	strict *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerServiceの新しいインスタンスを生成する。
func NewContentSanitizer() *contentSanitizer {
	p := bluemonday.NewPolicy()

	p.AllowElements(
		"p", "br", "hr",
		"h1", "h2", "h3", "h4", "h5", "h6",
		"ul", "ol", "li",
		"blockquote", "pre", "code",
		"strong", "em", "del",
		"table", "thead", "tbody", "tr", "th", "td",
	)
	p.AllowAttrs("class").Matching(codeLanguageClass).OnElements("code")
	p.AllowAttrs("align").Matching(regexp.MustCompile(`^(left|center|right)$`)).OnElements("th", "td")

	// 記事間のリンクのため相対URLは許可する。
	// 絶対URLのリンクにのみtarget="_blank"が付与される。
	p.AllowAttrs("href").OnElements("a")
	p.AllowRelativeURLs(true)
	p.AllowURLSchemes("https", "http", "mailto")
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoReferrerOnLinks(true)

	// 画像はhttpsのみ
	p.AllowAttrs("alt", "title").OnElements("img")
	p.AllowAttrs("src").Matching(regexp.MustCompile(`^https://`)).OnElements("img")

	strict := bluemonday.StrictPolicy()
	strict.AddSpaceWhenStrippingTag(true)

	return &contentSanitizer{
		policy: p,
		strict: strict,
	}
}

// Sanitize はHTMLコンテンツをサニタイズして安全なHTMLを返す。
func (s *contentSanitizer) Sanitize(rawHTML string) string {
	return s.policy.Sanitize(rawHTML)
}

// PlainText はHTMLから全てのタグを除去し、連続する空白を1つにまとめる。
func (s *contentSanitizer) PlainText(rawHTML string) string {
	text := html.UnescapeString(s.strict.Sanitize(rawHTML))
	return strings.Join(strings.Fields(text), " ")
}
