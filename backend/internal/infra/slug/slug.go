package slug

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Make 将任意文本转换为 URL 安全的 slug：去掉变音符号、转小写，
// 非字母数字的连续字符折叠为单个 "-"，首尾不保留分隔符。
func Make(text string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), text)
	if err != nil {
		folded = text
	}

	var b strings.Builder
	b.Grow(len(folded))
	pendingDash := false
	for _, r := range strings.ToLower(folded) {
		if isSlugRune(r) {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}
	return b.String()
}

// FromValue 处理表单中的任意值，非字符串按空串对待。
func FromValue(value any) string {
	if text, ok := value.(string); ok {
		return Make(text)
	}
	return ""
}

func isSlugRune(r rune) bool {
	if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
		return true
	}
	// 非拉丁文字（如中文）原样保留。
	return r > unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r))
}
