// internal/feed/sanitize.go
package feed

import (
	"strings"

	htmlparser "golang.org/x/net/html"
)

// stripHTML reduces feed-provided markup to plain text with normalized
// whitespace. Feed descriptions routinely carry inline HTML; the browsing
// feed wants text only.
func stripHTML(input string) string {
	if input == "" {
		return ""
	}

	doc, err := htmlparser.Parse(strings.NewReader(input))
	if err != nil {
		return strings.TrimSpace(input)
	}

	var buf strings.Builder
	var walk func(n *htmlparser.Node)
	walk = func(n *htmlparser.Node) {
		if n.Type == htmlparser.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == htmlparser.TextNode {
			buf.WriteString(n.Data)
			buf.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return strings.Join(strings.Fields(buf.String()), " ")
}

// truncate shortens text to maxLength, avoiding mid-word cuts where it can.
func truncate(input string, maxLength int) string {
	if maxLength <= 0 || len(input) <= maxLength {
		return input
	}
	if maxLength <= 3 {
		return "..."
	}

	text := input[:maxLength-3]
	if lastSpace := strings.LastIndex(text, " "); lastSpace > (maxLength-3)/2 {
		text = text[:lastSpace]
	}
	return text + "..."
}
