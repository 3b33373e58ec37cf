package telegram

import (
	"html"
	"regexp"
	"strings"
)

var boldPattern = regexp.MustCompile(`\*\*(.+?)\*\*`)

// formatBody renders the assistant's **bold** markup for the given parse
// mode. Bodies are escaped first so only our own tags reach Telegram.
func formatBody(body, parseMode string) string {
	switch strings.ToLower(parseMode) {
	case "html":
		return boldPattern.ReplaceAllString(html.EscapeString(body), "<b>$1</b>")
	case "":
		return boldPattern.ReplaceAllString(body, "$1")
	default:
		// Telegram's legacy Markdown uses single asterisks for bold.
		return boldPattern.ReplaceAllString(body, "*$1*")
	}
}

// escapeIfNeeded prepares plain text for the configured parse mode.
func escapeIfNeeded(text, parseMode string) string {
	if strings.EqualFold(parseMode, "html") {
		return html.EscapeString(text)
	}
	return text
}
