package enrich

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// noiseSelector はLLMへの入力から除去するタグ。
// ナビゲーションやフッターはキーワード・要約の精度を下げるノイズになる。
const noiseSelector = "script, style, nav, header, footer, aside"

// whitespacePattern は連続する空白文字（改行・タブ含む）にマッチする。
var whitespacePattern = regexp.MustCompile(`\s+`)

// ExtractMainText はドキュメントからLLM入力用の本文テキストを抽出する。
// ノイズタグを除去し、空白を単一スペースに畳み、先頭limit文字に切り詰める。
// limitは文字（rune）単位で数える。マルチバイト文字の途中で切らないため。
func ExtractMainText(doc *goquery.Document, limit int) string {
	doc.Find(noiseSelector).Remove()

	text := doc.Find("body").Text()
	text = whitespacePattern.ReplaceAllString(text, " ")
	text = strings.TrimSpace(text)

	return truncateRunes(text, limit)
}

// truncateRunes は文字列を先頭limit文字（rune単位）に切り詰める。
func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
