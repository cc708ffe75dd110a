// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ContentSanitizerService はユーザー入力のテキスト（bio、summary等）を
// サニタイズし、XSS攻撃などのセキュリティリスクから閲覧者を保護する。
// bluemondayライブラリを使用した許可リストベースのポリシーで、
// 学生プロフィールの長文フィールドには限定的な整形タグのみを通過させる。
package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizerService はユーザー入力のサニタイズ機能のインターフェースを定義する。
// プロフィールとポートフォリオアイテムの保存前に使用される。
type ContentSanitizerService interface {
	// SanitizeRichText は長文フィールド（bio, summary）をサニタイズする。
	// 許可タグ（p, br, ul, ol, li, blockquote, strong, em, a）のみを通過させ、
	// script, iframe, styleタグおよびon*イベント属性を除去する。
	// aタグにはrel="noopener noreferrer"が自動付与される。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	SanitizeRichText(raw string) string

	// SanitizePlainText は短文フィールド（title, headline等）から
	// 全てのHTMLタグを除去し、前後の空白を取り除く。
	SanitizePlainText(raw string) string
}

// contentSanitizer はContentSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type contentSanitizer struct {
	richText  *bluemonday.Policy
	plainText *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerServiceの新しいインスタンスを生成する。
// 初期化時にbluemondayのカスタムポリシーを構築する。
func NewContentSanitizer() *contentSanitizer {
	rich := bluemonday.NewPolicy()

	// 許可タグの設定（属性なしのシンプルなタグ）
	// script, iframe, style等は許可リストに含めないことで自動的に除去される
	// on*イベント属性はbluemondayのデフォルトで許可されないため除去される
	rich.AllowElements(
		"p", "br", "ul", "ol", "li",
		"blockquote", "strong", "em",
	)

	// aタグ: href属性のみ許可し、rel="noreferrer noopener"を強制付与
	rich.AllowAttrs("href").OnElements("a")
	rich.AllowStandardURLs()
	rich.RequireNoReferrerOnLinks(true)

	return &contentSanitizer{
		richText:  rich,
		plainText: bluemonday.StrictPolicy(),
	}
}

// SanitizeRichText は長文フィールドをサニタイズして安全なHTMLを返す。
func (s *contentSanitizer) SanitizeRichText(raw string) string {
	return s.richText.Sanitize(raw)
}

// SanitizePlainText は全てのHTMLタグを除去したテキストを返す。
func (s *contentSanitizer) SanitizePlainText(raw string) string {
	return strings.TrimSpace(s.plainText.Sanitize(raw))
}

// compile-time interface check
var _ ContentSanitizerService = (*contentSanitizer)(nil)
