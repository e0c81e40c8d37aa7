package taxonomy

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// addPrompt はプルダウン UI が新規項目に付ける `Add "…"` を取り除くための式です。
var addPrompt = regexp.MustCompile(`^Add\s+["“](.+?)["”]$`)

// CleanLabel は表示用のラベル名を整えます。
func CleanLabel(raw string) string {
	label := strings.TrimSpace(raw)
	if m := addPrompt.FindStringSubmatch(label); m != nil {
		label = strings.TrimSpace(m[1])
	}
	return strings.Join(strings.Fields(label), " ")
}

// Fold は照合用キーを返します。大文字小文字と発音区別符号の差は無視されます。
func Fold(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, name)
	if err != nil {
		stripped = name
	}
	return cases.Fold().String(strings.Join(strings.Fields(stripped), " "))
}
