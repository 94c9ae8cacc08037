// Package render converts the platform's rich-text comment payloads
// (Quill delta ops or TipTap-flavored HTML) to wrapped plain text for the
// terminal.
package render

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	xhtml "golang.org/x/net/html"
)

var sanitizer = bluemonday.UGCPolicy()

// HTMLToText converts sanitized HTML to plain text with basic formatting:
// <p>, <a>, <i>/<em>, <strong>, <code>, <pre><code>, <blockquote>, and
// HTML entities.
func HTMLToText(raw string, width int) string {
	if raw == "" {
		return ""
	}

	// Strip anything the UGC policy disallows before tokenizing.
	raw = sanitizer.Sanitize(raw)
	raw = html.UnescapeString(raw)

	tokenizer := xhtml.NewTokenizer(strings.NewReader(raw))
	var sb strings.Builder
	var inPre, inCode, inQuote bool
	var anchorURL string

	for {
		tt := tokenizer.Next()
		switch tt {
		case xhtml.ErrorToken:
			return WrapText(strings.TrimSpace(sb.String()), width)

		case xhtml.StartTagToken:
			t := tokenizer.Token()
			switch t.Data {
			case "p", "div":
				if sb.Len() > 0 {
					sb.WriteString("\n\n")
				}
			case "br":
				sb.WriteString("\n")
			case "i", "em":
				sb.WriteString("*")
			case "b", "strong":
				sb.WriteString("**")
			case "code":
				if !inPre {
					sb.WriteString("`")
				}
				inCode = true
			case "pre":
				inPre = true
				sb.WriteString("\n")
			case "blockquote":
				inQuote = true
				if sb.Len() > 0 {
					sb.WriteString("\n\n")
				}
				sb.WriteString("> ")
			case "a":
				for _, attr := range t.Attr {
					if attr.Key == "href" {
						anchorURL = attr.Val
					}
				}
			}

		case xhtml.EndTagToken:
			t := tokenizer.Token()
			switch t.Data {
			case "i", "em":
				sb.WriteString("*")
			case "b", "strong":
				sb.WriteString("**")
			case "code":
				if !inPre {
					sb.WriteString("`")
				}
				inCode = false
			case "pre":
				inPre = false
				sb.WriteString("\n")
			case "blockquote":
				inQuote = false
			case "a":
				if anchorURL != "" {
					text := strings.TrimSpace(sb.String())
					// Only append the URL if it differs from the link text.
					if !strings.HasSuffix(text, anchorURL) {
						sb.WriteString(" [")
						sb.WriteString(anchorURL)
						sb.WriteString("]")
					}
				}
				anchorURL = ""
			}

		case xhtml.TextToken:
			text := tokenizer.Token().Data
			switch {
			case inPre:
				// Preserve whitespace in pre blocks, indent with 4 spaces.
				lines := strings.Split(text, "\n")
				for i, line := range lines {
					if i > 0 {
						sb.WriteString("\n")
					}
					if line != "" {
						sb.WriteString("    ")
						sb.WriteString(line)
					}
				}
			case inQuote:
				sb.WriteString(strings.ReplaceAll(text, "\n", "\n> "))
			case inCode:
				sb.WriteString(text)
			default:
				sb.WriteString(text)
			}
		}
	}
}
