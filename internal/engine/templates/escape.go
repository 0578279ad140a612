package templates

import (
	"strings"

	"hookbot/internal/platform/models"
)

var (
	markdownReplacer = strings.NewReplacer(
		"_", `\_`,
		"*", `\*`,
		"`", "\\`",
		"[", `\[`,
	)

	// * and ` stay as formatting markers.
	markdownV2Replacer = strings.NewReplacer(
		`\`, `\\`,
		"_", `\_`,
		"[", `\[`,
		"]", `\]`,
		"(", `\(`,
		")", `\)`,
		"~", `\~`,
		">", `\>`,
		"#", `\#`,
		"+", `\+`,
		"-", `\-`,
		"=", `\=`,
		"|", `\|`,
		"{", `\{`,
		"}", `\}`,
		".", `\.`,
		"!", `\!`,
	)

	// Quotes are left alone.
	htmlReplacer = strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
	)
)

// Escape prepares text for the given parse mode.
func Escape(text string, mode models.ParseMode) string {
	switch mode {
	case models.ParseModeMarkdown:
		return markdownReplacer.Replace(text)
	case models.ParseModeMarkdownV2:
		return markdownV2Replacer.Replace(text)
	case models.ParseModeHTML:
		return htmlReplacer.Replace(text)
	}
	return text
}
