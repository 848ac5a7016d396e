// Package slug はタイトルからURL用のスラッグを生成する。
package slug

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/mozillazg/go-unidecode"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxLength はスラッグ本体の最大長。重複時のサフィックス分は含まない。
const MaxLength = 200

var (
	nonSlugChars    = regexp.MustCompile(`[^a-z0-9-]+`)
	multipleHyphens = regexp.MustCompile(`-{2,}`)
)

// Make は文字列をURL用のスラッグに変換する。
// 結合文字を除去してからunidecodeで音写するため、"Đà Nẵng" は "da-nang" になる。
func Make(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, err := transform.String(t, s)
	if err != nil {
		result = s
	}

	result = strings.ToLower(unidecode.Unidecode(result))
	result = strings.Join(strings.Fields(result), "-")
	result = nonSlugChars.ReplaceAllString(result, "-")
	result = multipleHyphens.ReplaceAllString(result, "-")
	result = strings.Trim(result, "-")

	if len(result) > MaxLength {
		result = strings.TrimRight(result[:MaxLength], "-")
	}
	return result
}

// ExistsFunc はスラッグが使用済みかどうかを返す。
type ExistsFunc func(ctx context.Context, slug string) (bool, error)

// Unique はbaseが使用済みの場合に "-2", "-3"… を付けて未使用のスラッグを返す。
// baseが空の場合はfallbackを使う。
func Unique(ctx context.Context, base, fallback string, exists ExistsFunc) (string, error) {
	if base == "" {
		base = fallback
	}

	candidate := base
	for n := 2; ; n++ {
		used, err := exists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("スラッグの重複確認に失敗しました: %w", err)
		}
		if !used {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, n)
	}
}
